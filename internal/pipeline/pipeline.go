// Package pipeline glues watchers, the decision engine and the milestone
// scheduler into a live system.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stockwatch/internal/catalog"
	"stockwatch/internal/engine"
	"stockwatch/internal/models"
	"stockwatch/internal/schedule"
	"stockwatch/internal/sink"
	"stockwatch/internal/watcher"
)

// maxBackoff caps the retry delay after a failed poll cycle.
const maxBackoff = 5 * time.Minute

// Options configures a Pipeline.
type Options struct {
	QueueSize        int
	SyncInterval     time.Duration
	DigestHourUTC    int
	DigestMinuteUTC  int
	DigestWindowDays int
	ShutdownGrace    time.Duration
}

// Pipeline runs one polling goroutine per watcher, all feeding a single
// bounded event queue drained by one decision/dispatch goroutine. Two more
// periodic goroutines drive catalog sync plus alert delivery, and the
// once-daily digest.
type Pipeline struct {
	opts     Options
	logger   zerolog.Logger
	watchers []watcher.Watcher
	engine   *engine.DecisionEngine
	sched    *schedule.Scheduler
	catalog  *catalog.Client
	out      sink.Sink
	queue    chan models.Event
}

// New assembles a pipeline. The queue is bounded: watcher goroutines block
// on it when the consumer falls behind, which is the only backpressure in
// the system.
func New(watchers []watcher.Watcher, eng *engine.DecisionEngine, sched *schedule.Scheduler, cat *catalog.Client, out sink.Sink, opts Options, logger zerolog.Logger) *Pipeline {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.SyncInterval < 30*time.Minute {
		opts.SyncInterval = 30 * time.Minute
	}
	if opts.DigestWindowDays <= 0 {
		opts.DigestWindowDays = 90
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = 10 * time.Second
	}
	return &Pipeline{
		opts:     opts,
		logger:   logger.With().Str("component", "pipeline").Logger(),
		watchers: watchers,
		engine:   eng,
		sched:    sched,
		catalog:  cat,
		out:      out,
		queue:    make(chan models.Event, opts.QueueSize),
	}
}

// Run blocks until ctx is cancelled, then waits for every goroutine to wind
// down within the shutdown grace period.
func (p *Pipeline) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	for _, w := range p.watchers {
		wg.Add(1)
		go func(w watcher.Watcher) {
			defer wg.Done()
			p.pollLoop(ctx, w)
		}(w)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.dispatchLoop(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.syncLoop(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.digestLoop(ctx)
	}()

	p.logger.Info().Int("watchers", len(p.watchers)).Msg("pipeline started")
	<-ctx.Done()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.logger.Info().Msg("pipeline stopped")
		return nil
	case <-time.After(p.opts.ShutdownGrace):
		return fmt.Errorf("pipeline shutdown timed out after %s", p.opts.ShutdownGrace)
	}
}

// pollLoop is the producer for one watcher: poll, enqueue, sleep. A failed
// cycle backs off to min(5m, 2x interval) and never terminates the loop.
func (p *Pipeline) pollLoop(ctx context.Context, w watcher.Watcher) {
	logger := p.logger.With().Str("vendor", string(w.Vendor())).Logger()
	logger.Info().Dur("interval", w.Interval()).Msg("watcher started")

	for {
		event, err := w.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info().Msg("watcher cancelled")
				return
			}
			backoff := 2 * w.Interval()
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			logger.Warn().Err(err).Dur("backoff", backoff).Msg("poll failed")
			if !sleep(ctx, backoff) {
				logger.Info().Msg("watcher cancelled")
				return
			}
			continue
		}

		if event != nil {
			select {
			case p.queue <- *event:
			case <-ctx.Done():
				logger.Info().Msg("watcher cancelled")
				return
			}
		}

		if !sleep(ctx, w.Interval()) {
			logger.Info().Msg("watcher cancelled")
			return
		}
	}
}

// dispatchLoop is the sole queue consumer: one event at a time, in arrival
// order. All decisions for one event go to the sink as one batch; a
// rejected batch is dropped, decisions are not durable.
func (p *Pipeline) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("dispatch worker cancelled")
			return
		case event := <-p.queue:
			decisions := p.engine.Evaluate(event)
			if len(decisions) == 0 {
				continue
			}
			p.logger.Info().
				Int("decisions", len(decisions)).
				Str("event_type", string(event.Type)).
				Str("product", event.Snapshot.Key.ID).
				Msg("dispatching decisions")
			if err := p.out.SendDecisions(ctx, decisions); err != nil {
				p.logger.Error().Err(err).Msg("decision batch rejected")
			}
		}
	}
}

// syncLoop runs catalog sync plus pending-alert delivery, first immediately
// and then on the sync interval.
func (p *Pipeline) syncLoop(ctx context.Context) {
	p.runSync(ctx)

	ticker := time.NewTicker(p.opts.SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("sync worker cancelled")
			return
		case <-ticker.C:
			p.runSync(ctx)
		}
	}
}

func (p *Pipeline) runSync(ctx context.Context) {
	products, err := p.catalog.FetchProducts(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("catalog fetch failed")
	} else if len(products) > 0 {
		if err := p.sched.Sync(products); err != nil {
			p.logger.Error().Err(err).Msg("catalog sync failed")
		} else {
			p.logger.Info().Int("products", len(products)).Msg("catalog synced")
		}
	}

	alerts, err := p.sched.PendingAlerts(time.Now().UTC())
	if err != nil {
		p.logger.Error().Err(err).Msg("pending alert scan failed")
		return
	}
	if len(alerts) == 0 {
		return
	}

	// Flags advance only after the sink confirms the batch, so a rejected
	// batch is retried in full on the next cycle.
	if err := p.out.SendAlerts(ctx, alerts); err != nil {
		p.logger.Error().Err(err).Int("alerts", len(alerts)).Msg("alert batch rejected")
		return
	}
	for _, alert := range alerts {
		if err := p.sched.MarkSent(alert); err != nil {
			p.logger.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to mark alert sent")
		}
	}
	p.logger.Info().Int("alerts", len(alerts)).Msg("milestone alerts delivered")
}

// digestLoop fires the daily digest at the configured UTC wall-clock time.
func (p *Pipeline) digestLoop(ctx context.Context) {
	for {
		wait := untilNextDigest(time.Now().UTC(), p.opts.DigestHourUTC, p.opts.DigestMinuteUTC)
		if !sleep(ctx, wait) {
			p.logger.Info().Msg("digest worker cancelled")
			return
		}
		p.runDigest(ctx)
	}
}

func (p *Pipeline) runDigest(ctx context.Context) {
	upcoming, err := p.sched.Upcoming(p.opts.DigestWindowDays, time.Now().UTC())
	if err != nil {
		p.logger.Error().Err(err).Msg("digest scan failed")
		return
	}
	title := fmt.Sprintf("Release Digest (Next %d Days)", p.opts.DigestWindowDays)
	if err := p.out.SendDigest(ctx, upcoming, title); err != nil {
		p.logger.Error().Err(err).Msg("digest rejected")
		return
	}
	p.logger.Info().Int("releases", len(upcoming)).Msg("digest delivered")
}

// untilNextDigest returns the wait until the next occurrence of the
// configured time of day, rolling to tomorrow when already passed.
func untilNextDigest(now time.Time, hour, minute int) time.Duration {
	target := time.Date(now.Year(), now.Month(), now.Day(), hour%24, minute%60, 0, 0, time.UTC)
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target.Sub(now)
}

// sleep waits for the duration or context cancellation, reporting whether
// the full duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
