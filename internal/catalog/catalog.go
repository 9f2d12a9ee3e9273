// Package catalog pulls the release catalog of trackable products.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"stockwatch/internal/models"
)

// relevantCategories filters catalog noise down to release-worthy items.
var relevantCategories = map[string]bool{
	"expansion":        true,
	"core":             true,
	"masters":          true,
	"commander":        true,
	"draft_innovation": true,
	"starter":          true,
	"box":              true,
	"promo":            true,
}

// staleCutoff drops items released over a year ago.
const staleCutoff = 365 * 24 * time.Hour

// Client fetches the catalog source's full product list, following
// pagination links until exhausted.
type Client struct {
	client  *resty.Client
	logger  zerolog.Logger
	baseURL string
}

type catalogPage struct {
	Data     []catalogItem `json:"data"`
	NextPage string        `json:"next_page"`
}

type catalogItem struct {
	ID         string `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	Category   string `json:"set_type"`
	ReleasedAt string `json:"released_at"`
	DetailURI  string `json:"scryfall_uri"`
	IconURI    string `json:"icon_svg_uri"`
}

// NewClient builds a catalog client against the given endpoint URL.
func NewClient(baseURL string, logger zerolog.Logger) *Client {
	return &Client{
		client:  resty.New().SetTimeout(30 * time.Second),
		logger:  logger.With().Str("component", "catalog").Logger(),
		baseURL: baseURL,
	}
}

// FetchProducts pulls the current catalog. A failed page stops pagination
// but returns whatever was collected so far; sync stays incremental.
func (c *Client) FetchProducts(ctx context.Context) ([]models.TrackedProduct, error) {
	now := time.Now().UTC()
	cutoff := now.Add(-staleCutoff)

	var products []models.TrackedProduct
	url := c.baseURL
	for url != "" {
		var page catalogPage
		resp, err := c.client.R().
			SetContext(ctx).
			SetResult(&page).
			Get(url)
		if err != nil {
			if len(products) > 0 {
				c.logger.Warn().Err(err).Msg("catalog pagination aborted")
				return products, nil
			}
			return nil, fmt.Errorf("catalog request failed: %w", err)
		}
		if resp.StatusCode() != 200 {
			if len(products) > 0 {
				c.logger.Warn().Int("status", resp.StatusCode()).Msg("catalog pagination aborted")
				return products, nil
			}
			return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode())
		}

		for _, item := range page.Data {
			if !relevantCategories[item.Category] {
				continue
			}
			releasedAt := parseDate(item.ReleasedAt)
			if releasedAt != nil && releasedAt.Before(cutoff) {
				continue
			}
			products = append(products, models.TrackedProduct{
				ProductID:  item.ID,
				Code:       item.Code,
				Name:       item.Name,
				Category:   item.Category,
				ReleasedAt: releasedAt,
				DetailURL:  item.DetailURI,
				IconURL:    item.IconURI,
				ObservedAt: now,
			})
		}
		url = page.NextPage
	}
	return products, nil
}

func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil
	}
	parsed = parsed.UTC()
	return &parsed
}
