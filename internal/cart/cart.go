package cart

import (
	"errors"
	"math"
	"time"

	"github.com/lineup-studio/backend-lineup/internal/pricing"
)

// ErrDuplicateItem signals a policy rejection: the photo is already in the
// cart under the same category. The cart is left untouched.
var ErrDuplicateItem = errors.New("item already in cart")

// ErrPackAlreadyOwned signals that a session pack is already present. The
// second add is a no-op, reported distinctly from success so the UI can
// show a notice instead of failing.
var ErrPackAlreadyOwned = errors.New("session pack already in cart")

// ErrInvalidItem is returned for items that fail structural validation
// before reaching the collection.
var ErrInvalidItem = errors.New("invalid cart item")

// PackPhotoID is the sentinel photo reference carried by the session pack
// line item, which is not tied to a single photo.
const PackPhotoID = "session-pack"

// Item is one purchasable unit. UnitPrice and DeliveryFee are frozen at
// the moment the item is added and never recomputed afterwards.
type Item struct {
	PhotoID     string                 `json:"photoId"`
	Kind        pricing.ProductKind    `json:"kind"`
	DisplayName string                 `json:"displayName,omitempty"`
	PreviewURL  string                 `json:"previewUrl,omitempty"`
	UnitPrice   pricing.Money          `json:"unitPrice"`
	Delivery    pricing.DeliveryOption `json:"delivery,omitempty"`
	DeliveryFee pricing.Money          `json:"deliveryFee"`
	PackGranted bool                   `json:"packGranted,omitempty"`
	AddedAt     time.Time              `json:"addedAt"`
}

// Cart is the ordered collection of items for one shopping session. It is
// a plain value: mutation happens through its methods, persistence through
// the Store, and pricing through the Service. The aggregator itself never
// computes prices; it trusts the frozen values handed to it.
type Cart struct {
	ID        string    `json:"id"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summary is the display-only pricing projection derived on every read.
type Summary struct {
	Total   pricing.Money `json:"total"`
	Savings pricing.Money `json:"totalSavings"`
}

// Add appends an item carrying a pre-computed frozen price. Uniqueness of
// photoID+kind and the single-pack rule are enforced by rejection, never
// by overwriting.
func (c *Cart) Add(item Item) error {
	if item.PhotoID == "" || !item.Kind.Valid() {
		return ErrInvalidItem
	}
	if item.Kind == pricing.KindSessionPack {
		if c.HasPack() {
			return ErrPackAlreadyOwned
		}
	} else {
		for _, existing := range c.Items {
			if existing.PhotoID == item.PhotoID && existing.Kind == item.Kind {
				return ErrDuplicateItem
			}
		}
	}
	c.Items = append(c.Items, item)
	return nil
}

// Remove deletes the unique item matching photoID and kind. Removing an
// absent item is a no-op, not an error; the return value reports whether
// anything was deleted.
func (c *Cart) Remove(photoID string, kind pricing.ProductKind) bool {
	for i, item := range c.Items {
		if item.PhotoID == photoID && item.Kind == kind {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the collection unconditionally.
func (c *Cart) Clear() {
	c.Items = nil
}

// HasPack reports whether a session pack is present.
func (c *Cart) HasPack() bool {
	for _, item := range c.Items {
		if item.Kind == pricing.KindSessionPack {
			return true
		}
	}
	return false
}

// CountByKind returns how many units of the category are committed.
// Print formats count independently; nothing is pooled across kinds.
func (c *Cart) CountByKind(kind pricing.ProductKind) int {
	n := 0
	for _, item := range c.Items {
		if item.Kind == kind {
			n++
		}
	}
	return n
}

// TotalByKind returns the frozen spend accrued in the category.
func (c *Cart) TotalByKind(kind pricing.ProductKind) pricing.Money {
	var total pricing.Money
	for _, item := range c.Items {
		if item.Kind == kind {
			total += item.UnitPrice
		}
	}
	return total
}

// TotalPrice sums unit price plus delivery fee over all items.
func (c *Cart) TotalPrice() pricing.Money {
	var total pricing.Money
	for _, item := range c.Items {
		total += item.UnitPrice + item.DeliveryFee
	}
	return total
}

// ItemCount returns the number of line items. The session pack counts as
// one item no matter how many downloads it unlocks.
func (c *Cart) ItemCount() int {
	return len(c.Items)
}

// DynamicPricing derives the customer-facing total and the cumulative tier
// discount. Savings measure the gap between each item's first-tier
// reference price and its frozen price; the session pack itself and the
// free digital items it granted are excluded, so the figure reflects tier
// pricing only.
func (c *Cart) DynamicPricing(engine pricing.Engine) Summary {
	summary := Summary{Total: c.TotalPrice()}
	for _, item := range c.Items {
		if item.Kind == pricing.KindSessionPack || item.PackGranted {
			continue
		}
		ref, err := engine.ReferencePrice(item.Kind)
		if err != nil {
			continue
		}
		if diff := ref - item.UnitPrice; diff > 0 {
			summary.Savings += diff
		}
	}
	return summary
}

// legacyItem is the flat wire shape the older storefront kept in the
// browser, with free-form type strings and float euros. It enters through
// the cart-import path on Create and is normalized before it reaches the
// collection.
type legacyItem struct {
	PhotoID  string  `json:"photo_id"`
	Type     string  `json:"type"`
	Price    float64 `json:"price"`
	Name     string  `json:"name"`
	Thumb    string  `json:"thumb"`
	Shipping bool    `json:"shipping"`
}

// normalizeLegacy maps a legacy storefront payload into the canonical item.
// Float euros are rounded, not truncated; 19.90 must become 1990 cents.
func normalizeLegacy(raw legacyItem) (Item, error) {
	kind := pricing.ProductKind(raw.Type)
	switch raw.Type {
	case "numerique":
		kind = pricing.KindDigital
	case "pack":
		kind = pricing.KindSessionPack
	}
	if !kind.Valid() {
		return Item{}, ErrInvalidItem
	}
	item := Item{
		PhotoID:     raw.PhotoID,
		Kind:        kind,
		DisplayName: raw.Name,
		PreviewURL:  raw.Thumb,
		UnitPrice:   pricing.Money(math.Round(raw.Price * 100)),
	}
	if kind.IsPrint() {
		if raw.Shipping {
			item.Delivery = pricing.DeliveryShipped
		} else {
			item.Delivery = pricing.DeliveryPickup
		}
	}
	return item, nil
}
