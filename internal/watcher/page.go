package watcher

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"stockwatch/internal/models"
)

const pageUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0 Safari/537.36"

var (
	titlePattern = regexp.MustCompile(`(?is)<title>(.*?)</title>`)
	pricePattern = regexp.MustCompile(`\$(\d+[.,]?\d*)`)
)

// PageWatcher polls configured retail product pages (big-box style) and
// extracts title, price and stock state from the raw HTML. The page URL is
// the product key: big-box pages carry no stable SKU we can rely on.
type PageWatcher struct {
	client   *resty.Client
	logger   zerolog.Logger
	urls     []string
	interval time.Duration
	tracker  *tracker
}

// NewPageWatcher builds a page watcher over the given product page URLs.
func NewPageWatcher(urls []string, logger zerolog.Logger) *PageWatcher {
	return &PageWatcher{
		client:   resty.New().SetTimeout(30 * time.Second),
		logger:   logger.With().Str("watcher", "page").Logger(),
		urls:     urls,
		interval: 7 * time.Minute,
		tracker:  newTracker(),
	}
}

func (w *PageWatcher) Vendor() models.Vendor { return models.VendorAmazon }

func (w *PageWatcher) Interval() time.Duration { return w.interval }

// Poll drains buffered events first, then fetches every configured page.
// A failed page is skipped; the cycle continues with the rest.
func (w *PageWatcher) Poll(ctx context.Context) (*models.Event, error) {
	if event := w.tracker.next(); event != nil {
		return event, nil
	}

	for _, url := range w.urls {
		html, err := w.fetchPage(ctx, url)
		if err != nil {
			w.logger.Debug().Err(err).Str("url", url).Msg("page fetch failed")
			continue
		}
		w.tracker.observe(w.snapshotFromHTML(url, html))
	}
	return w.tracker.next(), nil
}

func (w *PageWatcher) fetchPage(ctx context.Context, url string) (string, error) {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", pageUserAgent).
		Get(url)
	if err != nil {
		return "", fmt.Errorf("page request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("page returned status %d", resp.StatusCode())
	}
	return string(resp.Body()), nil
}

func (w *PageWatcher) snapshotFromHTML(url, html string) models.Snapshot {
	vendor := vendorFromURL(url)
	title := extractTitle(html)
	if title == "" {
		title = string(vendor) + " listing"
	}

	return models.Snapshot{
		Vendor: vendor,
		Key: models.ProductKey{
			ID:          url,
			ProductCode: url,
			Finish:      "any",
		},
		Title:      title,
		URL:        url,
		Price:      extractPrice(html),
		Currency:   "USD",
		Available:  isInStock(html),
		ObservedAt: time.Now().UTC(),
		Metadata:   map[string]string{"source": "page"},
	}
}

func vendorFromURL(url string) models.Vendor {
	lowered := strings.ToLower(url)
	switch {
	case strings.Contains(lowered, "amazon."):
		return models.VendorAmazon
	case strings.Contains(lowered, "target.com"):
		return models.VendorTarget
	case strings.Contains(lowered, "bestbuy.com"):
		return models.VendorBestBuy
	case strings.Contains(lowered, "walmart.com"):
		return models.VendorWalmart
	}
	return models.VendorLocalStore
}

func extractTitle(html string) string {
	match := titlePattern.FindStringSubmatch(html)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}

func extractPrice(html string) float64 {
	match := pricePattern.FindStringSubmatch(html)
	if match == nil {
		return 0
	}
	price, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", ""), 64)
	if err != nil {
		return 0
	}
	return price
}

func isInStock(html string) bool {
	lowered := strings.ToLower(html)
	for _, phrase := range []string{"currently unavailable", "out of stock", "sold out", "temporarily unavailable"} {
		if strings.Contains(lowered, phrase) {
			return false
		}
	}
	for _, phrase := range []string{"in stock", "pre-order", "add to cart"} {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}
