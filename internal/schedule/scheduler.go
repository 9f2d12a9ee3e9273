// Package schedule derives one-time calendar milestone alerts from tracked
// release-date state.
package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"stockwatch/internal/models"
	"stockwatch/internal/store"
)

// UpcomingRelease pairs a tracked product with its days-until-release.
type UpcomingRelease struct {
	Product   models.TrackedProduct `json:"product"`
	DaysUntil int                   `json:"days_until"`
}

type countdown struct {
	threshold int
	milestone models.Milestone
	label     string
}

// Countdown thresholds use exact day equality on purpose: an outage on the
// threshold day skips the milestone rather than firing it late.
var countdowns = []countdown{
	{30, models.MilestoneTMinus30, "30 days"},
	{14, models.MilestoneTMinus14, "two weeks"},
	{7, models.MilestoneTMinus7, "one week"},
	{1, models.MilestoneTMinus1, "tomorrow"},
}

// Scheduler evaluates tracked products against the calendar and emits
// milestone alerts whose latch is still unset. Product state lives in the
// repository; the scheduler only reads it and conditionally advances one
// flag at a time.
type Scheduler struct {
	releases store.ReleaseStore
}

// New returns a scheduler over the given release repository.
func New(releases store.ReleaseStore) *Scheduler {
	return &Scheduler{releases: releases}
}

// Sync upserts catalog items. Notification flags are never touched, so
// calling it repeatedly with overlapping or stale data is safe.
func (s *Scheduler) Sync(items []models.TrackedProduct) error {
	for i := range items {
		if err := s.releases.Upsert(&items[i]); err != nil {
			return err
		}
	}
	return nil
}

// PendingAlerts computes the alerts newly due as of today. The caller must
// confirm delivery via MarkSent before the corresponding latch advances.
func (s *Scheduler) PendingAlerts(today time.Time) ([]models.MilestoneAlert, error) {
	products, err := s.releases.List()
	if err != nil {
		return nil, err
	}
	day := truncateToDay(today)

	var alerts []models.MilestoneAlert
	for i := range products {
		alerts = append(alerts, s.alertsForProduct(&products[i], day)...)
	}
	return alerts, nil
}

// MarkSent records confirmed delivery of one alert, flipping its milestone
// latch for good.
func (s *Scheduler) MarkSent(alert models.MilestoneAlert) error {
	return s.releases.MarkNotified(alert.Product.ProductID, alert.Milestone)
}

// Upcoming lists products releasing within the window, soonest first with a
// name tie-break so digest ordering is deterministic. Products already
// released or without a known date are excluded.
func (s *Scheduler) Upcoming(withinDays int, today time.Time) ([]UpcomingRelease, error) {
	products, err := s.releases.List()
	if err != nil {
		return nil, err
	}
	day := truncateToDay(today)

	var upcoming []UpcomingRelease
	for _, product := range products {
		if product.ReleasedAt == nil {
			continue
		}
		days := daysBetween(day, truncateToDay(*product.ReleasedAt))
		if days < 0 || days > withinDays {
			continue
		}
		upcoming = append(upcoming, UpcomingRelease{Product: product, DaysUntil: days})
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		if upcoming[i].DaysUntil != upcoming[j].DaysUntil {
			return upcoming[i].DaysUntil < upcoming[j].DaysUntil
		}
		return upcoming[i].Product.Name < upcoming[j].Product.Name
	})
	return upcoming, nil
}

func (s *Scheduler) alertsForProduct(product *models.TrackedProduct, day time.Time) []models.MilestoneAlert {
	var alerts []models.MilestoneAlert

	futureOrUnknown := product.ReleasedAt == nil || !truncateToDay(*product.ReleasedAt).Before(day)
	if !product.NotifiedAnnouncement && futureOrUnknown {
		alerts = append(alerts, newAlert(product, models.MilestoneAnnouncement, day,
			fmt.Sprintf("%s (%s) announced.", product.Name, strings.ToUpper(product.Code))))
	}

	if product.ReleasedAt == nil {
		return alerts
	}
	release := truncateToDay(*product.ReleasedAt)
	days := daysBetween(day, release)

	for _, c := range countdowns {
		if product.Notified(c.milestone) || days != c.threshold {
			continue
		}
		alerts = append(alerts, newAlert(product, c.milestone, day,
			fmt.Sprintf("%s releases in %s! (%s)", product.Name, c.label, release.Format("2006-01-02"))))
	}

	if !product.NotifiedReleaseDay && days == 0 {
		alerts = append(alerts, newAlert(product, models.MilestoneReleaseDay, day,
			fmt.Sprintf("%s releases today!", product.Name)))
	}
	return alerts
}

func newAlert(product *models.TrackedProduct, milestone models.Milestone, day time.Time, message string) models.MilestoneAlert {
	return models.MilestoneAlert{
		ID:           uuid.NewString(),
		Product:      *product,
		Milestone:    milestone,
		ScheduledFor: day,
		Message:      message,
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
