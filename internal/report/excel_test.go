package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"stockwatch/internal/models"
	"stockwatch/internal/schedule"
)

func TestWriteDigest(t *testing.T) {
	release := time.Date(2026, time.April, 10, 0, 0, 0, 0, time.UTC)
	upcoming := []schedule.UpcomingRelease{
		{
			Product: models.TrackedProduct{
				Code:       "spr",
				Name:       "Spring Set",
				Category:   "expansion",
				ReleasedAt: &release,
				DetailURL:  "https://catalog.example/spr",
			},
			DaysUntil: 7,
		},
		{
			Product:   models.TrackedProduct{Code: "myst", Name: "Mystery Set", Category: "masters"},
			DaysUntil: 45,
		},
	}

	path := filepath.Join(t.TempDir(), "digest.xlsx")
	require.NoError(t, WriteDigest(path, "Release Digest (Next 90 Days)", upcoming))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Upcoming Releases"}, f.GetSheetList())

	title, err := f.GetCellValue("Upcoming Releases", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Release Digest (Next 90 Days)", title)

	header, err := f.GetCellValue("Upcoming Releases", "D2")
	require.NoError(t, err)
	assert.Equal(t, "Release Date", header)

	name, err := f.GetCellValue("Upcoming Releases", "B3")
	require.NoError(t, err)
	assert.Equal(t, "Spring Set", name)

	released, err := f.GetCellValue("Upcoming Releases", "D3")
	require.NoError(t, err)
	assert.Equal(t, "2026-04-10", released)

	// No known release date renders as an empty cell.
	released, err = f.GetCellValue("Upcoming Releases", "D4")
	require.NoError(t, err)
	assert.Empty(t, released)
}

func TestWriteDigestEmptyWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digest.xlsx")
	require.NoError(t, WriteDigest(path, "Release Digest (Next 90 Days)", nil))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	value, err := f.GetCellValue("Upcoming Releases", "A3")
	require.NoError(t, err)
	assert.Empty(t, value)
}
