package cart

import (
	"errors"
	"testing"

	"github.com/lineup-studio/backend-lineup/internal/pricing"
)

func TestAddRejectsDuplicatePhotoInCategory(t *testing.T) {
	var c Cart
	item := Item{PhotoID: "p1", Kind: pricing.KindDigital, UnitPrice: 1000}
	if err := c.Add(item); err != nil {
		t.Fatal(err)
	}
	if err := c.Add(item); !errors.Is(err, ErrDuplicateItem) {
		t.Fatalf("expected ErrDuplicateItem, got %v", err)
	}
	if c.ItemCount() != 1 {
		t.Fatalf("cart length changed on rejected add: %d", c.ItemCount())
	}
	// Same photo in another category is a separate purchase.
	if err := c.Add(Item{PhotoID: "p1", Kind: pricing.KindPrintA4, UnitPrice: 1500}); err != nil {
		t.Fatal(err)
	}
}

func TestSinglePackInvariant(t *testing.T) {
	var c Cart
	pack := Item{PhotoID: PackPhotoID, Kind: pricing.KindSessionPack, UnitPrice: 4000}
	if err := c.Add(pack); err != nil {
		t.Fatal(err)
	}
	if err := c.Add(pack); !errors.Is(err, ErrPackAlreadyOwned) {
		t.Fatalf("expected ErrPackAlreadyOwned, got %v", err)
	}
	if c.ItemCount() != 1 {
		t.Fatalf("expected exactly one pack, got %d items", c.ItemCount())
	}
}

func TestRemoveIsNoOpWhenAbsent(t *testing.T) {
	var c Cart
	if c.Remove("ghost", pricing.KindDigital) {
		t.Fatal("removing from empty cart should report false")
	}
	_ = c.Add(Item{PhotoID: "p1", Kind: pricing.KindDigital, UnitPrice: 1000})
	if !c.Remove("p1", pricing.KindDigital) {
		t.Fatal("expected removal to succeed")
	}
	if c.ItemCount() != 0 {
		t.Fatalf("expected empty cart, got %d items", c.ItemCount())
	}
}

func TestTotalConsistency(t *testing.T) {
	var c Cart
	_ = c.Add(Item{PhotoID: "p1", Kind: pricing.KindDigital, UnitPrice: 1000})
	_ = c.Add(Item{PhotoID: "p2", Kind: pricing.KindPrintA4, UnitPrice: 1500, DeliveryFee: 490})
	_ = c.Add(Item{PhotoID: "p3", Kind: pricing.KindDigital, UnitPrice: 700})

	var want pricing.Money
	for _, item := range c.Items {
		want += item.UnitPrice + item.DeliveryFee
	}
	if got := c.TotalPrice(); got != want {
		t.Fatalf("total %d != sum of contributions %d", got, want)
	}

	before := c.TotalPrice()
	c.Remove("p2", pricing.KindPrintA4)
	if got := c.TotalPrice(); got != before-1500-490 {
		t.Fatalf("removal changed total by wrong amount: %d", before-got)
	}
}

func TestDynamicPricingSavings(t *testing.T) {
	engine := pricing.NewEngine(pricing.Catalog{})
	var c Cart
	// Three digital photos at the published tiers: 10, 7, 5 euros.
	_ = c.Add(Item{PhotoID: "p1", Kind: pricing.KindDigital, UnitPrice: 1000})
	_ = c.Add(Item{PhotoID: "p2", Kind: pricing.KindDigital, UnitPrice: 700})
	_ = c.Add(Item{PhotoID: "p3", Kind: pricing.KindDigital, UnitPrice: 500})

	summary := c.DynamicPricing(engine)
	if summary.Total != 2200 {
		t.Fatalf("total: got %d want 2200", summary.Total)
	}
	if summary.Savings != 800 {
		t.Fatalf("savings: got %d want 800", summary.Savings)
	}
	if c.ItemCount() != 3 {
		t.Fatalf("item count: got %d want 3", c.ItemCount())
	}
}

func TestDynamicPricingExcludesPackGrants(t *testing.T) {
	engine := pricing.NewEngine(pricing.Catalog{})
	var c Cart
	_ = c.Add(Item{PhotoID: "p1", Kind: pricing.KindDigital, UnitPrice: 1000})
	_ = c.Add(Item{PhotoID: "p2", Kind: pricing.KindDigital, UnitPrice: 700})
	_ = c.Add(Item{PhotoID: PackPhotoID, Kind: pricing.KindSessionPack, UnitPrice: 4000})
	_ = c.Add(Item{PhotoID: "p3", Kind: pricing.KindDigital, UnitPrice: 0, PackGranted: true})

	summary := c.DynamicPricing(engine)
	if summary.Total != 5700 {
		t.Fatalf("total: got %d want 5700", summary.Total)
	}
	// Only the second digital item earned a tier discount; the pack and
	// the free item it granted do not count as tier savings.
	if summary.Savings != 300 {
		t.Fatalf("savings: got %d want 300", summary.Savings)
	}
}

func TestCountsPerCategoryAreIndependent(t *testing.T) {
	var c Cart
	_ = c.Add(Item{PhotoID: "p1", Kind: pricing.KindPrintA5, UnitPrice: 1200})
	_ = c.Add(Item{PhotoID: "p2", Kind: pricing.KindPrintA5, UnitPrice: 900})
	_ = c.Add(Item{PhotoID: "p3", Kind: pricing.KindPrintA4, UnitPrice: 1500})
	if got := c.CountByKind(pricing.KindPrintA5); got != 2 {
		t.Fatalf("printA5 count: got %d want 2", got)
	}
	if got := c.CountByKind(pricing.KindPrintA4); got != 1 {
		t.Fatalf("printA4 count: got %d want 1", got)
	}
	if got := c.CountByKind(pricing.KindPrintA3); got != 0 {
		t.Fatalf("printA3 count: got %d want 0", got)
	}
}

func TestNormalizeLegacyShape(t *testing.T) {
	item, err := normalizeLegacy(legacyItem{PhotoID: "p9", Type: "numerique", Price: 15, Name: "Sunset left"})
	if err != nil {
		t.Fatal(err)
	}
	if item.Kind != pricing.KindDigital {
		t.Fatalf("kind: got %s", item.Kind)
	}
	if item.UnitPrice != 1500 {
		t.Fatalf("price: got %d want 1500", item.UnitPrice)
	}

	item, err = normalizeLegacy(legacyItem{PhotoID: "p9", Type: "printA3", Price: 25, Shipping: true})
	if err != nil {
		t.Fatal(err)
	}
	if item.Delivery != pricing.DeliveryShipped {
		t.Fatalf("delivery: got %q", item.Delivery)
	}

	if _, err := normalizeLegacy(legacyItem{PhotoID: "p9", Type: "mug"}); !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("expected ErrInvalidItem, got %v", err)
	}
}

func TestNormalizeLegacyRoundsFloatEuros(t *testing.T) {
	cases := []struct {
		price float64
		want  pricing.Money
	}{
		{19.90, 1990},
		{8.20, 820},
		{1.15, 115},
		{12.34, 1234},
		{0.01, 1},
		{0, 0},
	}
	for _, tc := range cases {
		item, err := normalizeLegacy(legacyItem{PhotoID: "p1", Type: "numerique", Price: tc.price})
		if err != nil {
			t.Fatal(err)
		}
		if item.UnitPrice != tc.want {
			t.Fatalf("%v euros: got %d cents want %d", tc.price, item.UnitPrice, tc.want)
		}
	}
}
