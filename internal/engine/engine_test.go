package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/models"
)

func entry(owner int64, product string) models.InterestEntry {
	return models.InterestEntry{
		OwnerID:   owner,
		ProductID: product,
		Action:    models.ActionNotify,
	}
}

func restockEvent(product string, vendor models.Vendor, price float64) models.Event {
	return models.Event{
		Snapshot: models.Snapshot{
			Vendor:    vendor,
			Key:       models.ProductKey{ID: product},
			Price:     price,
			Available: true,
		},
		Type: models.EventRestock,
	}
}

func TestEvaluateFansOutPerEntry(t *testing.T) {
	e := New()
	e.Register(entry(1, "prod-1"))
	e.Register(entry(2, "prod-1"))
	e.Register(entry(3, "prod-2"))

	decisions := e.Evaluate(restockEvent("prod-1", models.VendorMarketplace, 10))
	require.Len(t, decisions, 2)
	assert.Equal(t, int64(1), decisions[0].Entry.OwnerID)
	assert.Equal(t, int64(2), decisions[1].Entry.OwnerID)
	assert.NotEqual(t, decisions[0].ID, decisions[1].ID)
}

func TestEvaluateMaxPriceBoundaryIsInclusive(t *testing.T) {
	e := New()
	max := 20.00
	watched := entry(1, "prod-1")
	watched.MaxPrice = &max
	e.Register(watched)

	assert.Len(t, e.Evaluate(restockEvent("prod-1", models.VendorMarketplace, 20.00)), 1)
	assert.Empty(t, e.Evaluate(restockEvent("prod-1", models.VendorMarketplace, 20.01)))
}

func TestEvaluateVendorAllowList(t *testing.T) {
	e := New()
	watched := entry(1, "prod-1")
	watched.Vendors = models.JoinList([]string{"marketplace", "target"})
	e.Register(watched)

	assert.Len(t, e.Evaluate(restockEvent("prod-1", models.VendorTarget, 10)), 1)
	assert.Empty(t, e.Evaluate(restockEvent("prod-1", models.VendorWalmart, 10)))
}

func TestEvaluateNoThresholdMatchesAnyPrice(t *testing.T) {
	e := New()
	e.Register(entry(1, "prod-1"))

	decisions := e.Evaluate(restockEvent("prod-1", models.VendorMarketplace, 99999))
	require.Len(t, decisions, 1)
	assert.Equal(t, models.ActionNotify, decisions[0].Action)
}

func TestRegisterReplacesSameOwnerProduct(t *testing.T) {
	e := New()
	first := entry(1, "prod-1")
	max := 10.0
	first.MaxPrice = &max
	e.Register(first)

	// Re-registering loosens the threshold without duplicating the entry.
	e.Register(entry(1, "prod-1"))

	assert.Equal(t, 1, e.Size())
	assert.Len(t, e.Evaluate(restockEvent("prod-1", models.VendorMarketplace, 50)), 1)
}

func TestUnregister(t *testing.T) {
	e := New()
	e.Register(entry(1, "prod-1"))
	e.Register(entry(2, "prod-1"))

	assert.True(t, e.Unregister(1, "prod-1"))
	assert.False(t, e.Unregister(1, "prod-1"))
	assert.False(t, e.Unregister(9, "prod-9"))

	assert.Equal(t, 1, e.Size())
	assert.True(t, e.Unregister(2, "prod-1"))
	assert.Empty(t, e.Evaluate(restockEvent("prod-1", models.VendorMarketplace, 10)))
}

func TestResetReplacesIndex(t *testing.T) {
	e := New()
	e.Register(entry(1, "prod-1"))

	e.Reset([]models.InterestEntry{entry(2, "prod-2"), entry(3, "prod-3")})

	assert.Equal(t, 2, e.Size())
	assert.Empty(t, e.Evaluate(restockEvent("prod-1", models.VendorMarketplace, 10)))
	assert.Len(t, e.Evaluate(restockEvent("prod-2", models.VendorMarketplace, 10)), 1)
}
