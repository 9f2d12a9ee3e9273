package watcher

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"stockwatch/internal/models"
)

const tokenExpiryMargin = 30 * time.Second

// MarketplaceWatcher polls a token-authenticated marketplace pricing API
// for a fixed allow-list of SKUs. Without credentials it stays idle and
// reports no events.
type MarketplaceWatcher struct {
	client     *resty.Client
	logger     zerolog.Logger
	authURL    string
	skuURL     string
	publicKey  string
	privateKey string
	skus       []string
	interval   time.Duration

	tracker *tracker

	token       string
	tokenExpiry time.Time
}

type marketplaceSKU struct {
	SKUID        string  `json:"skuId"`
	ProductID    int64   `json:"productId"`
	ProductName  string  `json:"productName"`
	ProductURL   string  `json:"productUrl"`
	Printing     string  `json:"printing"`
	SetCode      string  `json:"setCode"`
	Number       string  `json:"number"`
	MarketPrice  float64 `json:"marketPrice"`
	DirectLow    float64 `json:"directLowPrice"`
	LowestListed float64 `json:"lowestListingPrice"`
	Quantity     int     `json:"quantity"`
	CurrencyCode string  `json:"currencyCode"`
}

type marketplaceSKUResponse struct {
	Results []marketplaceSKU `json:"results"`
}

type marketplaceTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// NewMarketplaceWatcher builds a marketplace watcher against the given API
// base URL (e.g. "https://api.example.com").
func NewMarketplaceWatcher(baseURL, publicKey, privateKey string, skus []string, logger zerolog.Logger) *MarketplaceWatcher {
	return &MarketplaceWatcher{
		client:     resty.New().SetTimeout(30 * time.Second),
		logger:     logger.With().Str("watcher", "marketplace").Logger(),
		authURL:    baseURL + "/token",
		skuURL:     baseURL + "/pricing/sku/",
		publicKey:  publicKey,
		privateKey: privateKey,
		skus:       skus,
		interval:   2 * time.Minute,
		tracker:    newTracker(),
	}
}

func (w *MarketplaceWatcher) Vendor() models.Vendor { return models.VendorMarketplace }

func (w *MarketplaceWatcher) Interval() time.Duration { return w.interval }

// Poll drains buffered events first, then runs a fetch cycle across the SKU
// allow-list. A failure on one SKU skips it without aborting the cycle.
func (w *MarketplaceWatcher) Poll(ctx context.Context) (*models.Event, error) {
	if len(w.skus) == 0 || w.publicKey == "" || w.privateKey == "" {
		w.logger.Debug().Msg("marketplace watcher has no credentials or SKU allow-list")
		return nil, nil
	}
	if event := w.tracker.next(); event != nil {
		return event, nil
	}

	token, err := w.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	for _, sku := range w.skus {
		payload, err := w.fetchSKU(ctx, token, sku)
		if err != nil {
			w.logger.Debug().Err(err).Str("sku", sku).Msg("SKU fetch failed")
			continue
		}
		if payload == nil {
			continue
		}
		w.tracker.observe(w.snapshotFromPayload(sku, payload))
	}
	return w.tracker.next(), nil
}

func (w *MarketplaceWatcher) ensureToken(ctx context.Context) (string, error) {
	now := time.Now()
	if w.token != "" && now.Before(w.tokenExpiry) {
		return w.token, nil
	}

	var body marketplaceTokenResponse
	resp, err := w.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     w.publicKey,
			"client_secret": w.privateKey,
		}).
		SetResult(&body).
		Post(w.authURL)
	if err != nil {
		return "", fmt.Errorf("marketplace auth request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("marketplace auth returned status %d", resp.StatusCode())
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("marketplace auth response missing token")
	}

	w.token = body.AccessToken
	w.tokenExpiry = now.Add(time.Duration(body.ExpiresIn)*time.Second - tokenExpiryMargin)
	return w.token, nil
}

func (w *MarketplaceWatcher) fetchSKU(ctx context.Context, token, skuID string) (*marketplaceSKU, error) {
	var body marketplaceSKUResponse
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "bearer "+token).
		SetHeader("Accept", "application/json").
		SetResult(&body).
		Get(w.skuURL + skuID)
	if err != nil {
		return nil, fmt.Errorf("marketplace SKU request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("marketplace SKU %s returned status %d", skuID, resp.StatusCode())
	}
	if len(body.Results) == 0 {
		return nil, nil
	}
	return &body.Results[0], nil
}

func (w *MarketplaceWatcher) snapshotFromPayload(skuID string, payload *marketplaceSKU) models.Snapshot {
	price := payload.MarketPrice
	if price == 0 {
		price = payload.DirectLow
	}
	if price == 0 {
		price = payload.LowestListed
	}

	title := payload.ProductName
	if title == "" {
		title = "Marketplace SKU " + skuID
	}
	url := payload.ProductURL
	if url == "" && payload.ProductID != 0 {
		url = fmt.Sprintf("https://www.marketplace.example/product/%d", payload.ProductID)
	}

	productCode := payload.SKUID
	if productCode == "" {
		productCode = skuID
	}
	finish := payload.Printing
	if finish == "" {
		finish = "any"
	}
	currency := payload.CurrencyCode
	if currency == "" {
		currency = "USD"
	}

	return models.Snapshot{
		Vendor: models.VendorMarketplace,
		Key: models.ProductKey{
			ID:           skuID,
			ProductCode:  productCode,
			Finish:       finish,
			CollectorNum: payload.Number,
			SetCode:      payload.SetCode,
			VendorSKU:    productCode,
		},
		Title:      title,
		URL:        url,
		Price:      price,
		Currency:   currency,
		Available:  payload.Quantity > 0,
		ObservedAt: time.Now().UTC(),
		Metadata: map[string]string{
			"market_price": strconv.FormatFloat(payload.MarketPrice, 'f', 2, 64),
			"direct_low":   strconv.FormatFloat(payload.DirectLow, 'f', 2, 64),
			"quantity":     strconv.Itoa(payload.Quantity),
		},
	}
}
