package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/models"
)

func testSnapshot(id string, price float64, available bool) models.Snapshot {
	return models.Snapshot{
		Vendor:     models.VendorMarketplace,
		Key:        models.ProductKey{ID: id, ProductCode: id, Finish: "any"},
		Title:      "Test Product",
		Price:      price,
		Currency:   "USD",
		Available:  available,
		ObservedAt: time.Now().UTC(),
	}
}

func TestTrackerFirstSightingIsNewListing(t *testing.T) {
	tr := newTracker()
	tr.observe(testSnapshot("sku-1", 19.99, true))

	event := tr.next()
	require.NotNil(t, event)
	assert.Equal(t, models.EventNewListing, event.Type)
	assert.Nil(t, event.Previous)
	assert.Nil(t, tr.next())
}

func TestTrackerRestockBeatsPriceChange(t *testing.T) {
	tr := newTracker()
	tr.observe(testSnapshot("sku-1", 10.00, false))
	tr.next()

	// Back in stock and repriced in the same cycle: only the restock fires.
	tr.observe(testSnapshot("sku-1", 14.50, true))

	event := tr.next()
	require.NotNil(t, event)
	assert.Equal(t, models.EventRestock, event.Type)
	require.NotNil(t, event.Previous)
	assert.False(t, event.Previous.Available)
	assert.Nil(t, tr.next())
}

func TestTrackerOutOfStockIsAvailabilityChange(t *testing.T) {
	tr := newTracker()
	tr.observe(testSnapshot("sku-1", 10.00, true))
	tr.next()

	tr.observe(testSnapshot("sku-1", 10.00, false))

	event := tr.next()
	require.NotNil(t, event)
	assert.Equal(t, models.EventAvailabilityChange, event.Type)
}

func TestTrackerPriceChangeCarriesDelta(t *testing.T) {
	tr := newTracker()
	tr.observe(testSnapshot("sku-1", 19.99, true))
	tr.next()

	tr.observe(testSnapshot("sku-1", 25.49, true))

	event := tr.next()
	require.NotNil(t, event)
	assert.Equal(t, models.EventPriceChange, event.Type)
	require.NotNil(t, event.DeltaPrice)
	assert.InDelta(t, 5.50, *event.DeltaPrice, 0.001)
}

func TestTrackerSubEpsilonMoveIsSilent(t *testing.T) {
	tr := newTracker()
	tr.observe(testSnapshot("sku-1", 10.00, true))
	tr.next()

	tr.observe(testSnapshot("sku-1", 10.004, true))
	assert.Nil(t, tr.next())

	// The cache still advanced: the next diff runs against 10.004.
	tr.observe(testSnapshot("sku-1", 10.02, true))
	event := tr.next()
	require.NotNil(t, event)
	assert.Equal(t, models.EventPriceChange, event.Type)
}

func TestTrackerExactPennyMoveFires(t *testing.T) {
	tr := newTracker()
	tr.observe(testSnapshot("sku-1", 10.00, true))
	tr.next()

	// 10.01 - 10.00 lands a hair under 0.01 in float64; a one-cent move
	// still has to count as a price change.
	tr.observe(testSnapshot("sku-1", 10.01, true))
	event := tr.next()
	require.NotNil(t, event)
	assert.Equal(t, models.EventPriceChange, event.Type)
	require.NotNil(t, event.DeltaPrice)
	assert.InDelta(t, 0.01, *event.DeltaPrice, 1e-6)

	tr.observe(testSnapshot("sku-1", 10.019, true))
	assert.Nil(t, tr.next())
}

func TestTrackerNoChangeIsSilent(t *testing.T) {
	tr := newTracker()
	tr.observe(testSnapshot("sku-1", 10.00, true))
	tr.next()

	tr.observe(testSnapshot("sku-1", 10.00, true))
	assert.Nil(t, tr.next())
}

func TestTrackerDrainsInObservationOrder(t *testing.T) {
	tr := newTracker()
	tr.observe(testSnapshot("sku-1", 10.00, true))
	tr.observe(testSnapshot("sku-2", 20.00, true))
	tr.observe(testSnapshot("sku-3", 30.00, true))

	for _, want := range []string{"sku-1", "sku-2", "sku-3"} {
		event := tr.next()
		require.NotNil(t, event)
		assert.Equal(t, want, event.Snapshot.Key.ID)
	}
	assert.Nil(t, tr.next())
}

func TestVendorFromURL(t *testing.T) {
	assert.Equal(t, models.VendorAmazon, vendorFromURL("https://www.amazon.com/dp/B0ABC"))
	assert.Equal(t, models.VendorTarget, vendorFromURL("https://www.target.com/p/item"))
	assert.Equal(t, models.VendorBestBuy, vendorFromURL("https://www.bestbuy.com/site/item"))
	assert.Equal(t, models.VendorWalmart, vendorFromURL("https://www.walmart.com/ip/item"))
	assert.Equal(t, models.VendorLocalStore, vendorFromURL("https://shop.example.com/item"))
}

func TestExtractPrice(t *testing.T) {
	assert.InDelta(t, 59.99, extractPrice(`<span class="price">$59.99</span>`), 0.001)
	assert.InDelta(t, 1299.0, extractPrice(`now only $1,299 while stocks last`), 0.001)
	assert.Zero(t, extractPrice(`no price on this page`))
}

func TestExtractTitle(t *testing.T) {
	html := "<html><head><TITLE>\n  Booster Box | Example Store\n</TITLE></head></html>"
	assert.Equal(t, "Booster Box | Example Store", extractTitle(html))
	assert.Empty(t, extractTitle("<html><body>untitled</body></html>"))
}
