package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lineup-studio/backend-lineup/internal/pricing"
)

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// AddInput describes a photo or print addition. The caller never supplies a
// price; the service freezes one at insertion time.
type AddInput struct {
	PhotoID     string
	Kind        pricing.ProductKind
	DisplayName string
	PreviewURL  string
	Delivery    pricing.DeliveryOption
}

// Service ties the session store to the pricing engine. Prices are
// computed exactly once, when an item enters the cart, and replayed
// verbatim at checkout; display totals are re-derived on every read.
type Service struct {
	Store  *Store
	Engine pricing.Engine
	Now    func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create opens a new empty cart.
func (s *Service) Create(ctx context.Context) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	return s.Store.Create(ctx, s.now())
}

// Import opens a new cart seeded from a legacy client-held cart. The old
// storefront froze prices in the browser, so the imported unit prices are
// kept as-is; delivery fees were never stored client-side and are derived
// from the current fee table.
func (s *Service) Import(ctx context.Context, raws []legacyItem) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	now := s.now()
	c := Cart{CreatedAt: now, UpdatedAt: now}
	hasPack := false
	for _, raw := range raws {
		if raw.Type == "pack" || pricing.ProductKind(raw.Type) == pricing.KindSessionPack {
			hasPack = true
			break
		}
	}
	for _, raw := range raws {
		item, err := normalizeLegacy(raw)
		if err != nil {
			return Cart{}, fmt.Errorf("import item %q: %w", raw.PhotoID, err)
		}
		if item.Kind == pricing.KindSessionPack && item.PhotoID == "" {
			item.PhotoID = PackPhotoID
		}
		if item.Kind.IsPrint() && item.Delivery == pricing.DeliveryShipped {
			fee, err := s.Engine.DeliveryFee(item.Kind, item.Delivery)
			if err != nil {
				return Cart{}, err
			}
			item.DeliveryFee = fee
		}
		item.PackGranted = hasPack && item.Kind == pricing.KindDigital && item.UnitPrice == 0
		item.AddedAt = now
		if err := c.Add(item); err != nil {
			return Cart{}, err
		}
	}
	created, err := s.Store.Create(ctx, now)
	if err != nil {
		return Cart{}, err
	}
	c.ID = created.ID
	if err := s.Store.Save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Get loads a cart by ID.
func (s *Service) Get(ctx context.Context, id string) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	return s.Store.Get(ctx, id)
}

// AddItem prices the next unit of the requested category against the
// current cart state and appends it with that frozen price. Items already
// in the cart are never re-priced, whatever happens afterwards.
func (s *Service) AddItem(ctx context.Context, cartID string, in AddInput) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	if in.PhotoID == "" {
		return Cart{}, fmt.Errorf("photoId is required: %w", ErrInvalidInput)
	}
	if in.Kind == pricing.KindSessionPack {
		return Cart{}, fmt.Errorf("session pack has a dedicated operation: %w", ErrInvalidInput)
	}
	if !in.Kind.Valid() {
		return Cart{}, fmt.Errorf("%w: %q", pricing.ErrUnknownKind, in.Kind)
	}

	c, err := s.Store.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}

	packOwned := c.HasPack()
	count := c.CountByKind(in.Kind)
	price, err := s.Engine.NextUnitPrice(in.Kind, count, c.TotalByKind(in.Kind), packOwned)
	if err != nil {
		return Cart{}, err
	}

	delivery := in.Delivery
	if in.Kind.IsPrint() && delivery == "" {
		delivery = pricing.DeliveryPickup
	}
	if !in.Kind.IsPrint() {
		delivery = ""
	}
	var fee pricing.Money
	if in.Kind.IsPrint() {
		fee, err = s.Engine.DeliveryFee(in.Kind, delivery)
		if err != nil {
			return Cart{}, err
		}
	}

	item := Item{
		PhotoID:     in.PhotoID,
		Kind:        in.Kind,
		DisplayName: in.DisplayName,
		PreviewURL:  in.PreviewURL,
		UnitPrice:   price,
		Delivery:    delivery,
		DeliveryFee: fee,
		PackGranted: packOwned && in.Kind == pricing.KindDigital,
		AddedAt:     s.now(),
	}
	if err := c.Add(item); err != nil {
		return c, err
	}
	c.UpdatedAt = s.now()
	if err := s.Store.Save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// AddSessionPack adds the unlimited-digital pack. A second call leaves the
// cart holding exactly one pack and reports ErrPackAlreadyOwned so the UI
// can acknowledge rather than fail. Digital items added before the pack
// keep their frozen prices.
func (s *Service) AddSessionPack(ctx context.Context, cartID string) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	c, err := s.Store.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	if c.HasPack() {
		return c, ErrPackAlreadyOwned
	}
	price, err := s.Engine.NextUnitPrice(pricing.KindSessionPack, 0, 0, false)
	if err != nil {
		return Cart{}, err
	}
	item := Item{
		PhotoID:     PackPhotoID,
		Kind:        pricing.KindSessionPack,
		DisplayName: "Session pack",
		UnitPrice:   price,
		AddedAt:     s.now(),
	}
	if err := c.Add(item); err != nil {
		return c, err
	}
	c.UpdatedAt = s.now()
	if err := s.Store.Save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// RemoveItem deletes the matching item if present. Absence is a no-op.
func (s *Service) RemoveItem(ctx context.Context, cartID, photoID string, kind pricing.ProductKind) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	c, err := s.Store.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	if c.Remove(photoID, kind) {
		c.UpdatedAt = s.now()
		if err := s.Store.Save(ctx, c); err != nil {
			return Cart{}, err
		}
	}
	return c, nil
}

// Clear empties the cart unconditionally.
func (s *Service) Clear(ctx context.Context, cartID string) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	c, err := s.Store.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	c.Clear()
	c.UpdatedAt = s.now()
	if err := s.Store.Save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}
