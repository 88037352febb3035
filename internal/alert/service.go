package alert

import (
	"context"
	"fmt"
	"log"

	"github.com/VinkRasengan/Warehouse-management-sub001/internal/email"
)

// Service creates alerts and sends email for the severe ones. Email delivery
// is a side effect: a failed send is logged and the alert still persists.
type Service struct {
	repo      Repository
	sender    email.Sender
	recipient string
	logger    *log.Logger
}

func NewService(repo Repository, sender email.Sender, recipient string, logger *log.Logger) *Service {
	return &Service{
		repo:      repo,
		sender:    sender,
		recipient: recipient,
		logger:    logger,
	}
}

// CreateStockLowAlert records a low/out-of-stock alert. Severity is CRITICAL
// when nothing is left, HIGH otherwise.
func (s *Service) CreateStockLowAlert(ctx context.Context, productID string, currentQuantity, minThreshold int) (*Alert, error) {
	severity := SeverityHigh
	title := fmt.Sprintf("Low stock: %s", productID)
	if currentQuantity <= 0 {
		severity = SeverityCritical
		title = fmt.Sprintf("Out of stock: %s", productID)
	}

	a := &Alert{
		Type:     TypeStockLow,
		Severity: severity,
		Title:    title,
		Message: fmt.Sprintf("Product %s has %d units available (minimum stock %d)",
			productID, currentQuantity, minThreshold),
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	if severity == SeverityHigh || severity == SeverityCritical {
		if err := s.sender.Send(s.recipient, a.Title, a.Message); err != nil {
			s.logger.Printf("send alert email for %s: %v", productID, err)
		}
	}

	return a, nil
}

func (s *Service) List(ctx context.Context, unresolvedOnly bool) ([]Alert, error) {
	return s.repo.List(ctx, unresolvedOnly)
}

func (s *Service) MarkRead(ctx context.Context, alertID string) error {
	return s.repo.MarkRead(ctx, alertID)
}

func (s *Service) Resolve(ctx context.Context, alertID, resolvedBy string) error {
	return s.repo.Resolve(ctx, alertID, resolvedBy)
}
