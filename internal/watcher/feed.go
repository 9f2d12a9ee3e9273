package watcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"stockwatch/internal/models"
)

// FeedWatcher polls partner JSON feeds (local store inventory exports) for
// product availability. Feeds publish the full current listing set per
// fetch; items that fail to parse are skipped without aborting the cycle.
type FeedWatcher struct {
	client   *resty.Client
	logger   zerolog.Logger
	feeds    []string
	interval time.Duration
	tracker  *tracker
}

type partnerFeed struct {
	Store      string        `json:"store"`
	ContactURL string        `json:"contact_url"`
	Products   []feedProduct `json:"products"`
}

type feedProduct struct {
	ID           string   `json:"id"`
	SKU          string   `json:"sku"`
	Name         string   `json:"name"`
	Price        float64  `json:"price"`
	Currency     string   `json:"currency"`
	Available    bool     `json:"available"`
	URL          string   `json:"url"`
	Finish       string   `json:"finish"`
	SetCode      string   `json:"set"`
	CollectorNum string   `json:"collector_number"`
	ContactURL   string   `json:"contact_url"`
	Tags         []string `json:"tags"`
}

// NewFeedWatcher builds a feed watcher over the given partner feed URLs.
func NewFeedWatcher(feeds []string, logger zerolog.Logger) *FeedWatcher {
	return &FeedWatcher{
		client:   resty.New().SetTimeout(30 * time.Second),
		logger:   logger.With().Str("watcher", "feed").Logger(),
		feeds:    feeds,
		interval: 10 * time.Minute,
		tracker:  newTracker(),
	}
}

func (w *FeedWatcher) Vendor() models.Vendor { return models.VendorLocalStore }

func (w *FeedWatcher) Interval() time.Duration { return w.interval }

// Poll drains buffered events first, then fetches every configured feed.
func (w *FeedWatcher) Poll(ctx context.Context) (*models.Event, error) {
	if event := w.tracker.next(); event != nil {
		return event, nil
	}

	for _, feedURL := range w.feeds {
		feed, err := w.fetchFeed(ctx, feedURL)
		if err != nil {
			w.logger.Warn().Err(err).Str("feed", feedURL).Msg("feed fetch failed")
			continue
		}
		for _, product := range feed.Products {
			snapshot, err := w.snapshotFromProduct(feedURL, feed, product)
			if err != nil {
				w.logger.Debug().Err(err).Str("feed", feedURL).Msg("skipping feed product")
				continue
			}
			w.tracker.observe(snapshot)
		}
	}
	return w.tracker.next(), nil
}

func (w *FeedWatcher) fetchFeed(ctx context.Context, url string) (*partnerFeed, error) {
	var feed partnerFeed
	resp, err := w.client.R().
		SetContext(ctx).
		SetResult(&feed).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode())
	}
	if feed.Store == "" {
		feed.Store = "partner"
	}
	return &feed, nil
}

func (w *FeedWatcher) snapshotFromProduct(feedURL string, feed *partnerFeed, product feedProduct) (models.Snapshot, error) {
	identifier := product.ID
	if identifier == "" {
		identifier = product.SKU
	}
	if identifier == "" {
		identifier = product.Name
	}
	if identifier == "" {
		return models.Snapshot{}, fmt.Errorf("product lacks identifier")
	}

	storeSlug := strings.ReplaceAll(strings.ToLower(feed.Store), " ", "-")
	url := product.URL
	if url == "" {
		url = feedURL
	}
	productCode := product.SKU
	if productCode == "" {
		productCode = identifier
	}
	finish := product.Finish
	if finish == "" {
		finish = "any"
	}
	currency := product.Currency
	if currency == "" {
		currency = "USD"
	}
	title := product.Name
	if title == "" {
		title = identifier
	}
	contact := product.ContactURL
	if contact == "" {
		contact = feed.ContactURL
	}
	if contact == "" {
		contact = url
	}

	return models.Snapshot{
		Vendor: models.VendorLocalStore,
		Key: models.ProductKey{
			ID:           storeSlug + "-" + identifier,
			ProductCode:  productCode,
			Finish:       finish,
			CollectorNum: product.CollectorNum,
			SetCode:      product.SetCode,
			VendorSKU:    identifier,
		},
		Title:      title,
		URL:        url,
		Price:      product.Price,
		Currency:   currency,
		Available:  product.Available,
		ObservedAt: time.Now().UTC(),
		Metadata: map[string]string{
			"store":       feed.Store,
			"tags":        strings.Join(product.Tags, ","),
			"contact_url": contact,
		},
	}, nil
}
