package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/catalog"
	"stockwatch/internal/engine"
	"stockwatch/internal/models"
	"stockwatch/internal/schedule"
	"stockwatch/internal/watcher"
)

type stubWatcher struct {
	mu     sync.Mutex
	queued []pollResult
}

type pollResult struct {
	event *models.Event
	err   error
}

func (w *stubWatcher) push(event *models.Event, err error) {
	w.mu.Lock()
	w.queued = append(w.queued, pollResult{event: event, err: err})
	w.mu.Unlock()
}

func (w *stubWatcher) Vendor() models.Vendor { return models.VendorMarketplace }

func (w *stubWatcher) Interval() time.Duration { return 5 * time.Millisecond }

func (w *stubWatcher) Poll(context.Context) (*models.Event, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queued) == 0 {
		return nil, nil
	}
	next := w.queued[0]
	w.queued = w.queued[1:]
	return next.event, next.err
}

type captureSink struct {
	mu        sync.Mutex
	decisions [][]models.Decision
	alerts    [][]models.MilestoneAlert

	decisionReceived chan struct{}
	alertReceived    chan struct{}
}

func newCaptureSink() *captureSink {
	return &captureSink{
		decisionReceived: make(chan struct{}, 16),
		alertReceived:    make(chan struct{}, 16),
	}
}

func (s *captureSink) SendDecisions(_ context.Context, batch []models.Decision) error {
	s.mu.Lock()
	s.decisions = append(s.decisions, batch)
	s.mu.Unlock()
	s.decisionReceived <- struct{}{}
	return nil
}

func (s *captureSink) SendAlerts(_ context.Context, batch []models.MilestoneAlert) error {
	s.mu.Lock()
	s.alerts = append(s.alerts, batch)
	s.mu.Unlock()
	s.alertReceived <- struct{}{}
	return nil
}

func (s *captureSink) SendDigest(context.Context, []schedule.UpcomingRelease, string) error {
	return nil
}

type memoryReleaseStore struct {
	mu       sync.Mutex
	order    []string
	products map[string]*models.TrackedProduct
}

func newMemoryReleaseStore() *memoryReleaseStore {
	return &memoryReleaseStore{products: make(map[string]*models.TrackedProduct)}
}

func (s *memoryReleaseStore) Upsert(product *models.TrackedProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[product.ProductID]; !ok {
		cp := *product
		s.products[product.ProductID] = &cp
		s.order = append(s.order, product.ProductID)
	}
	return nil
}

func (s *memoryReleaseStore) List() ([]models.TrackedProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TrackedProduct, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.products[id])
	}
	return out, nil
}

func (s *memoryReleaseStore) MarkNotified(productID string, milestone models.Milestone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.products[productID]
	if !ok {
		return fmt.Errorf("no such product: %s", productID)
	}
	if milestone == models.MilestoneAnnouncement {
		product.NotifiedAnnouncement = true
	}
	return nil
}

func emptyCatalog(t *testing.T) *catalog.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[],"next_page":""}`))
	}))
	t.Cleanup(server.Close)
	return catalog.NewClient(server.URL, zerolog.Nop())
}

func restockEvent(product string) *models.Event {
	return &models.Event{
		Snapshot: models.Snapshot{
			Vendor:    models.VendorMarketplace,
			Key:       models.ProductKey{ID: product},
			Price:     10,
			Available: true,
		},
		Type: models.EventRestock,
	}
}

func TestPipelineDeliversDecisions(t *testing.T) {
	eng := engine.New()
	eng.Register(models.InterestEntry{OwnerID: 1, ProductID: "prod-1", Action: models.ActionNotify})

	w := &stubWatcher{}
	w.push(nil, errors.New("transient upstream failure"))
	w.push(restockEvent("prod-1"), nil)

	out := newCaptureSink()
	sched := schedule.New(newMemoryReleaseStore())
	pipe := New([]watcher.Watcher{w}, eng, sched, emptyCatalog(t), out, Options{
		QueueSize:     8,
		ShutdownGrace: 2 * time.Second,
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- pipe.Run(ctx) }()

	select {
	case <-out.decisionReceived:
	case <-time.After(5 * time.Second):
		t.Fatal("no decision batch arrived")
	}
	cancel()
	require.NoError(t, <-runErr)

	out.mu.Lock()
	defer out.mu.Unlock()
	require.NotEmpty(t, out.decisions)
	batch := out.decisions[0]
	require.Len(t, batch, 1)
	assert.Equal(t, "prod-1", batch[0].Entry.ProductID)
	assert.Equal(t, models.EventRestock, batch[0].Event.Type)
}

func TestPipelineDeliversPendingAlertsOnSync(t *testing.T) {
	store := newMemoryReleaseStore()
	release := time.Now().UTC().AddDate(0, 0, 60)
	require.NoError(t, store.Upsert(&models.TrackedProduct{
		ProductID:  "set-1",
		Code:       "set-1",
		Name:       "Spring Set",
		Category:   "expansion",
		ReleasedAt: &release,
	}))

	out := newCaptureSink()
	pipe := New(nil, engine.New(), schedule.New(store), emptyCatalog(t), out, Options{
		ShutdownGrace: 2 * time.Second,
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- pipe.Run(ctx) }()

	select {
	case <-out.alertReceived:
	case <-time.After(5 * time.Second):
		t.Fatal("no alert batch arrived")
	}
	cancel()
	require.NoError(t, <-runErr)

	out.mu.Lock()
	require.NotEmpty(t, out.alerts)
	require.Len(t, out.alerts[0], 1)
	assert.Equal(t, models.MilestoneAnnouncement, out.alerts[0][0].Milestone)
	out.mu.Unlock()

	// Confirmed delivery latches the flag.
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.True(t, store.products["set-1"].NotifiedAnnouncement)
}

func TestUntilNextDigest(t *testing.T) {
	base := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, 5*time.Hour, untilNextDigest(base, 15, 0))
	assert.Equal(t, 30*time.Minute, untilNextDigest(base, 10, 30))

	// Already past today's slot: roll to tomorrow.
	assert.Equal(t, 23*time.Hour, untilNextDigest(base, 9, 0))

	// Exactly at the slot counts as passed.
	assert.Equal(t, 24*time.Hour, untilNextDigest(base, 10, 0))
}
