package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type checkResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Available bool `json:"available"`
	} `json:"data"`
}

// InventoryClient is the order service's synchronous probe into the inventory
// service, used for the best-effort pre-check before an order is accepted.
type InventoryClient struct {
	baseURL string
	http    *http.Client
}

func NewInventoryClient(baseURL string) *InventoryClient {
	return &InventoryClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *InventoryClient) CheckStock(ctx context.Context, productID string, qty int) (bool, error) {
	url := fmt.Sprintf("%s/api/inventory/check/%s?quantity=%d", c.baseURL, productID, qty)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("inventory service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("inventory service: unexpected status code %d", resp.StatusCode)
	}

	var body checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode check response: %w", err)
	}
	return body.Success && body.Data.Available, nil
}
