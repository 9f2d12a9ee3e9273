// digest-export writes the upcoming-release digest to an Excel workbook.
// It reads the same tracked-release table the daemon maintains, so the
// export matches the next scheduled digest exactly.
package main

import (
	"flag"
	"fmt"
	"time"

	"stockwatch/internal/config"
	"stockwatch/internal/database"
	"stockwatch/internal/logging"
	"stockwatch/internal/report"
	"stockwatch/internal/schedule"
	"stockwatch/internal/store"
)

var (
	output = flag.String("out", "release-digest.xlsx", "output workbook path")
	window = flag.Int("days", 90, "how many days ahead to include")
)

func main() {
	flag.Parse()

	cfg := config.Load()
	logger := logging.New(cfg.Environment)

	days := *window
	if days <= 0 {
		days = cfg.DigestWindowDays
	}

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	sched := schedule.New(store.NewReleaseStore(db))
	upcoming, err := sched.Upcoming(days, time.Now().UTC())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to list upcoming releases")
	}

	title := fmt.Sprintf("Release Digest (Next %d Days)", days)
	if err := report.WriteDigest(*output, title, upcoming); err != nil {
		logger.Fatal().Err(err).Str("path", *output).Msg("failed to write workbook")
	}
	logger.Info().Str("path", *output).Int("releases", len(upcoming)).Msg("digest exported")
}
