// Package sink delivers decisions, milestone alerts and digests to the
// outside world.
package sink

import (
	"context"

	"stockwatch/internal/models"
	"stockwatch/internal/schedule"
)

// Sink accepts pipeline output for delivery. SendDecisions receives one
// batch per triggering event. Alert latches only advance after SendAlerts
// returns nil, so implementations must not report success they cannot back.
type Sink interface {
	SendDecisions(ctx context.Context, batch []models.Decision) error
	SendAlerts(ctx context.Context, batch []models.MilestoneAlert) error
	SendDigest(ctx context.Context, upcoming []schedule.UpcomingRelease, title string) error
}

// Multi fans deliveries out to several sinks. The first error wins; later
// sinks still get the batch so a flaky sink cannot starve the others.
type Multi []Sink

func (m Multi) SendDecisions(ctx context.Context, batch []models.Decision) error {
	var first error
	for _, s := range m {
		if err := s.SendDecisions(ctx, batch); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) SendAlerts(ctx context.Context, batch []models.MilestoneAlert) error {
	var first error
	for _, s := range m {
		if err := s.SendAlerts(ctx, batch); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) SendDigest(ctx context.Context, upcoming []schedule.UpcomingRelease, title string) error {
	var first error
	for _, s := range m {
		if err := s.SendDigest(ctx, upcoming, title); err != nil && first == nil {
			first = err
		}
	}
	return first
}
