package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Customer is the slice of the customer service's record the order workflow
// cares about.
type Customer struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Active bool   `json:"isActive"`
}

type customerResponse struct {
	Success bool     `json:"success"`
	Data    Customer `json:"data"`
}

type CustomerClient struct {
	baseURL string
	http    *http.Client
}

func NewCustomerClient(baseURL string) *CustomerClient {
	return &CustomerClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Exists reports whether the customer exists and is active. Timeouts and
// non-2xx responses are a negative result, not retried here.
func (c *CustomerClient) Exists(ctx context.Context, customerID string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/customers/%s", c.baseURL, customerID), nil)
	if err != nil {
		return false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("customer service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("customer service: unexpected status code %d", resp.StatusCode)
	}

	var body customerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode customer response: %w", err)
	}
	return body.Success && body.Data.Active, nil
}
