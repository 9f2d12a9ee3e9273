package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Vendor identifies an inventory source.
type Vendor string

const (
	VendorMarketplace Vendor = "marketplace"
	VendorCardKingdom Vendor = "card_kingdom"
	VendorAmazon      Vendor = "amazon"
	VendorTarget      Vendor = "target"
	VendorBestBuy     Vendor = "best_buy"
	VendorWalmart     Vendor = "walmart"
	VendorLocalStore  Vendor = "local_store"
)

// ProductKey is the durable, source-stable identity of one sellable variant.
// It is the diffing and matching key: the same real-world item observed on
// the same source always yields the same key.
type ProductKey struct {
	ID           string `json:"id"`
	ProductCode  string `json:"product_code"`
	Finish       string `json:"finish"`
	CollectorNum string `json:"collector_num,omitempty"`
	SetCode      string `json:"set_code,omitempty"`
	VendorSKU    string `json:"vendor_sku,omitempty"`
}

// Snapshot is one immutable observation of a ProductKey at one source.
// Snapshots are created fresh on every poll and never mutated.
type Snapshot struct {
	Vendor     Vendor            `json:"vendor"`
	Key        ProductKey        `json:"key"`
	Title      string            `json:"title"`
	URL        string            `json:"url"`
	Price      float64           `json:"price"`
	Currency   string            `json:"currency"`
	Available  bool              `json:"available"`
	ObservedAt time.Time         `json:"observed_at"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// EventType classifies the change between two consecutive snapshots.
type EventType string

const (
	EventNewListing         EventType = "new_listing"
	EventRestock            EventType = "restock"
	EventAvailabilityChange EventType = "availability_change"
	EventPriceChange        EventType = "price_change"
)

// Event is the result of diffing a fresh snapshot against the previous one
// for the same key. Previous is nil on first sighting. DeltaPrice is set for
// price changes only.
type Event struct {
	Snapshot   Snapshot  `json:"snapshot"`
	Previous   *Snapshot `json:"previous,omitempty"`
	Type       EventType `json:"type"`
	DeltaPrice *float64  `json:"delta_price,omitempty"`
}

// ActionType is a user's preferred response to a matched event.
type ActionType string

const (
	ActionNotify  ActionType = "notify"
	ActionAcquire ActionType = "acquire"
)

// InterestEntry is one user's standing watch request for a product key,
// unique per (owner, key). Vendors and Tags are stored as comma-separated
// strings so the row round-trips through MySQL without a join table.
type InterestEntry struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	OwnerID      int64          `json:"owner_id" gorm:"not null;uniqueIndex:idx_owner_product"`
	ProductID    string         `json:"product_id" gorm:"not null;uniqueIndex:idx_owner_product"`
	ProductCode  string         `json:"product_code"`
	Finish       string         `json:"finish"`
	CollectorNum string         `json:"collector_num"`
	SetCode      string         `json:"set_code"`
	VendorSKU    string         `json:"vendor_sku"`
	MaxPrice     *float64       `json:"max_price"`
	Action       ActionType     `json:"action" gorm:"not null;default:'notify'"`
	Tags         string         `json:"tags"`
	Vendors      string         `json:"vendors"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// Key reconstructs the product identity this entry watches.
func (e *InterestEntry) Key() ProductKey {
	return ProductKey{
		ID:           e.ProductID,
		ProductCode:  e.ProductCode,
		Finish:       e.Finish,
		CollectorNum: e.CollectorNum,
		SetCode:      e.SetCode,
		VendorSKU:    e.VendorSKU,
	}
}

// TagList splits the comma-separated tag column.
func (e *InterestEntry) TagList() []string {
	return splitList(e.Tags)
}

// VendorList splits the comma-separated vendor allow-list column. Empty
// means no vendor constraint.
func (e *InterestEntry) VendorList() []Vendor {
	parts := splitList(e.Vendors)
	vendors := make([]Vendor, 0, len(parts))
	for _, p := range parts {
		vendors = append(vendors, Vendor(p))
	}
	return vendors
}

// Decision pairs a triggering event with a matched interest entry and the
// resolved action. Decisions are ephemeral: consumed once by the sink.
type Decision struct {
	ID        string        `json:"id"`
	Event     Event         `json:"event"`
	Entry     InterestEntry `json:"entry"`
	Action    ActionType    `json:"action"`
	Rationale string        `json:"rationale"`
}

// Milestone is one of the six one-shot alert points tied to a release date.
type Milestone string

const (
	MilestoneAnnouncement Milestone = "announcement"
	MilestoneTMinus30     Milestone = "t_minus_30"
	MilestoneTMinus14     Milestone = "t_minus_14"
	MilestoneTMinus7      Milestone = "t_minus_7"
	MilestoneTMinus1      Milestone = "t_minus_1"
	MilestoneReleaseDay   Milestone = "release_day"
)

// TrackedProduct is a release-worthy catalog item with per-milestone
// "already alerted" latches. Flags are flipped one at a time after confirmed
// delivery and never cleared.
type TrackedProduct struct {
	ProductID  string     `json:"product_id" gorm:"primaryKey;column:product_id"`
	Code       string     `json:"code" gorm:"not null"`
	Name       string     `json:"name" gorm:"not null"`
	Category   string     `json:"category" gorm:"not null"`
	ReleasedAt *time.Time `json:"released_at"`
	DetailURL  string     `json:"detail_url"`
	IconURL    string     `json:"icon_url"`
	ObservedAt time.Time  `json:"observed_at"`

	NotifiedAnnouncement bool `json:"notified_announcement" gorm:"column:notified_announcement;default:false"`
	NotifiedTMinus30     bool `json:"notified_t_minus_30" gorm:"column:notified_t_minus_30;default:false"`
	NotifiedTMinus14     bool `json:"notified_t_minus_14" gorm:"column:notified_t_minus_14;default:false"`
	NotifiedTMinus7      bool `json:"notified_t_minus_7" gorm:"column:notified_t_minus_7;default:false"`
	NotifiedTMinus1      bool `json:"notified_t_minus_1" gorm:"column:notified_t_minus_1;default:false"`
	NotifiedReleaseDay   bool `json:"notified_release_day" gorm:"column:notified_release_day;default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Notified reports whether the given milestone has already been sent.
func (p *TrackedProduct) Notified(m Milestone) bool {
	switch m {
	case MilestoneAnnouncement:
		return p.NotifiedAnnouncement
	case MilestoneTMinus30:
		return p.NotifiedTMinus30
	case MilestoneTMinus14:
		return p.NotifiedTMinus14
	case MilestoneTMinus7:
		return p.NotifiedTMinus7
	case MilestoneTMinus1:
		return p.NotifiedTMinus1
	case MilestoneReleaseDay:
		return p.NotifiedReleaseDay
	}
	return false
}

// MilestoneAlert is an ephemeral pairing of a tracked product, a milestone
// and a rendered message. After the sink accepts it the scheduler is told to
// mark the milestone sent.
type MilestoneAlert struct {
	ID           string         `json:"id"`
	Product      TrackedProduct `json:"product"`
	Milestone    Milestone      `json:"milestone"`
	ScheduledFor time.Time      `json:"scheduled_for"`
	Message      string         `json:"message"`
}

// TagRoute maps a notification-grouping tag to a delivery target on the
// sink side (channel, webhook, role; the sink decides).
type TagRoute struct {
	Tag      string `json:"tag" gorm:"primaryKey"`
	TargetID int64  `json:"target_id" gorm:"not null"`
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// JoinList is the inverse of the comma-separated list columns.
func JoinList(parts []string) string {
	return strings.Join(parts, ",")
}
