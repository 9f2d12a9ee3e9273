package sink

import (
	"context"

	"github.com/rs/zerolog"

	"stockwatch/internal/models"
	"stockwatch/internal/schedule"
)

// LogSink writes every delivery to the structured log. It never fails, so
// it is safe as the innermost sink in a Multi.
type LogSink struct {
	logger zerolog.Logger
	router *Router
}

// NewLogSink builds a log sink. The router may be nil when tag routing is
// not configured.
func NewLogSink(logger zerolog.Logger, router *Router) *LogSink {
	return &LogSink{logger: logger.With().Str("sink", "log").Logger(), router: router}
}

func (s *LogSink) SendDecisions(_ context.Context, batch []models.Decision) error {
	for _, decision := range batch {
		event := s.logger.Info().
			Str("decision_id", decision.ID).
			Str("event_type", string(decision.Event.Type)).
			Str("product", decision.Event.Snapshot.Key.ID).
			Str("vendor", string(decision.Event.Snapshot.Vendor)).
			Float64("price", decision.Event.Snapshot.Price).
			Int64("owner", decision.Entry.OwnerID).
			Str("action", string(decision.Action)).
			Str("rationale", decision.Rationale)
		if s.router != nil {
			if mentions := s.router.Mentions(decision.Entry.TagList()); mentions != "" {
				event = event.Str("mentions", mentions)
			}
		}
		event.Msg("decision dispatched")
	}
	return nil
}

func (s *LogSink) SendAlerts(_ context.Context, batch []models.MilestoneAlert) error {
	for _, alert := range batch {
		s.logger.Info().
			Str("alert_id", alert.ID).
			Str("product", alert.Product.ProductID).
			Str("milestone", string(alert.Milestone)).
			Str("message", alert.Message).
			Msg("milestone alert dispatched")
	}
	return nil
}

func (s *LogSink) SendDigest(_ context.Context, upcoming []schedule.UpcomingRelease, title string) error {
	s.logger.Info().
		Str("title", title).
		Int("releases", len(upcoming)).
		Msg("digest dispatched")
	return nil
}
