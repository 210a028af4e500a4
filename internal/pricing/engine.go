package pricing

import (
	"errors"
	"fmt"
)

// ErrUnknownKind is returned when a kind outside the enumeration reaches the engine.
var ErrUnknownKind = errors.New("unknown product kind")

// ErrInvalidCount is returned for negative category counts, which no correct
// caller can produce.
var ErrInvalidCount = errors.New("category count must not be negative")

// Engine computes unit prices from the catalog's tier schedules.
//
// categoryTotal is accepted for interface compatibility with siblings that
// price on accrued spend; the published schedules are strictly count-based
// and the argument is not consulted.
type Engine struct {
	Catalog Catalog
}

// NewEngine constructs an engine over the provided catalog, falling back to
// the default price list when the catalog carries no tier schedules.
func NewEngine(cat Catalog) Engine {
	if len(cat.Tiers) == 0 {
		cat = DefaultCatalog()
	}
	return Engine{Catalog: cat}
}

// NextUnitPrice returns the price of the (categoryCount+1)-th unit of the
// given kind. packOwned indicates a session pack is already in the cart:
// it makes every further digital unit free, and makes a repeat pack
// request price at zero (already satisfied, not a failure).
func (e Engine) NextUnitPrice(kind ProductKind, categoryCount int, categoryTotal Money, packOwned bool) (Money, error) {
	_ = categoryTotal
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if categoryCount < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidCount, categoryCount)
	}
	if kind == KindSessionPack {
		if packOwned {
			return 0, nil
		}
		return e.Catalog.Pack, nil
	}
	if kind == KindDigital && packOwned {
		return 0, nil
	}
	schedule, ok := e.Catalog.Tiers[kind]
	if !ok {
		return 0, fmt.Errorf("%w: no tier schedule for %q", ErrUnknownKind, kind)
	}
	return schedule.PriceAt(categoryCount), nil
}

// ReferencePrice returns the undiscounted first-tier price of the kind.
// Savings shown to the customer are measured against this list, never
// against the boutique flat list.
func (e Engine) ReferencePrice(kind ProductKind) (Money, error) {
	if kind == KindSessionPack {
		return e.Catalog.Pack, nil
	}
	schedule, ok := e.Catalog.Tiers[kind]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return schedule[0], nil
}

// BoutiquePrice returns the flat product-card price used outside the
// gallery flow.
func (e Engine) BoutiquePrice(kind ProductKind) (Money, error) {
	price, ok := e.Catalog.Boutique[kind]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return price, nil
}

// DeliveryFee returns the shipping surcharge for one unit of the kind.
// Pickup is always free, and digital goods and the session pack never
// carry a fee regardless of the requested option.
func (e Engine) DeliveryFee(kind ProductKind, option DeliveryOption) (Money, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if !kind.IsPrint() {
		return 0, nil
	}
	if !option.Valid() {
		return 0, fmt.Errorf("unknown delivery option %q", option)
	}
	if option == DeliveryPickup {
		return 0, nil
	}
	fee, ok := e.Catalog.Shipping[kind]
	if !ok {
		return 0, fmt.Errorf("%w: no shipping fee for %q", ErrUnknownKind, kind)
	}
	return fee, nil
}
