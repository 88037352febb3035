package alert

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	alerts    map[string]*Alert
	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{alerts: make(map[string]*Alert)}
}

func (f *fakeRepo) Create(ctx context.Context, a *Alert) error {
	if f.createErr != nil {
		return f.createErr
	}
	if a.ID == "" {
		a.ID = "alert-" + a.Title
	}
	a.CreatedAt = time.Now().UTC()
	cp := *a
	f.alerts[a.ID] = &cp
	return nil
}

func (f *fakeRepo) List(ctx context.Context, unresolvedOnly bool) ([]Alert, error) {
	var out []Alert
	for _, a := range f.alerts {
		if unresolvedOnly && a.IsResolved {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeRepo) MarkRead(ctx context.Context, alertID string) error {
	a, ok := f.alerts[alertID]
	if !ok {
		return ErrNotFound
	}
	a.IsRead = true
	return nil
}

func (f *fakeRepo) Resolve(ctx context.Context, alertID, resolvedBy string) error {
	a, ok := f.alerts[alertID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	a.IsResolved = true
	a.ResolvedAt = &now
	a.ResolvedBy = resolvedBy
	return nil
}

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) Send(to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, subject)
	return nil
}

func newTestService(repo Repository, sender *fakeSender) *Service {
	return NewService(repo, sender, "ops@example.com", log.New(io.Discard, "", 0))
}

func TestCreateStockLowAlertSeverity(t *testing.T) {
	repo := newFakeRepo()
	sender := &fakeSender{}
	svc := newTestService(repo, sender)

	a, err := svc.CreateStockLowAlert(context.Background(), "p1", 3, 5)
	require.NoError(t, err)
	assert.Equal(t, SeverityHigh, a.Severity)
	assert.Equal(t, TypeStockLow, a.Type)
	assert.Contains(t, a.Title, "Low stock")
	assert.Contains(t, a.Message, "3 units available")

	a, err = svc.CreateStockLowAlert(context.Background(), "p2", 0, 5)
	require.NoError(t, err)
	assert.Equal(t, SeverityCritical, a.Severity)
	assert.Contains(t, a.Title, "Out of stock")

	assert.Len(t, sender.sent, 2, "HIGH and CRITICAL alerts both email")
}

func TestCreateStockLowAlertSurvivesEmailFailure(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeSender{err: errors.New("smtp down")})

	a, err := svc.CreateStockLowAlert(context.Background(), "p1", 0, 5)
	require.NoError(t, err, "a failed email must not fail the alert")

	stored, ok := repo.alerts[a.ID]
	require.True(t, ok)
	assert.Equal(t, SeverityCritical, stored.Severity)
}

func TestCreateStockLowAlertRepoFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = errors.New("db down")
	sender := &fakeSender{}
	svc := newTestService(repo, sender)

	_, err := svc.CreateStockLowAlert(context.Background(), "p1", 0, 5)
	require.Error(t, err)
	assert.Empty(t, sender.sent, "no email when the alert did not persist")
}

func TestResolveLifecycle(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeSender{})

	a, err := svc.CreateStockLowAlert(context.Background(), "p1", 2, 5)
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(context.Background(), a.ID))
	require.NoError(t, svc.Resolve(context.Background(), a.ID, "ops"))

	unresolved, err := svc.List(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, unresolved)

	all, err := svc.List(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].IsRead)
	assert.True(t, all[0].IsResolved)
	assert.Equal(t, "ops", all[0].ResolvedBy)

	assert.ErrorIs(t, svc.Resolve(context.Background(), "ghost", "ops"), ErrNotFound)
}
