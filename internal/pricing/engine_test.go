package pricing

import (
	"errors"
	"testing"
)

func TestNextUnitPriceDescendsToFloor(t *testing.T) {
	e := NewEngine(Catalog{})
	for kind := range e.Catalog.Tiers {
		first, err := e.NextUnitPrice(kind, 0, 0, false)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		second, err := e.NextUnitPrice(kind, 1, first, false)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		third, err := e.NextUnitPrice(kind, 2, first+second, false)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if !(first > second && second > third) {
			t.Fatalf("%s: expected strictly descending tiers, got %d %d %d", kind, first, second, third)
		}
		for count := 3; count < 10; count++ {
			price, err := e.NextUnitPrice(kind, count, 0, false)
			if err != nil {
				t.Fatalf("%s: %v", kind, err)
			}
			if price != third {
				t.Fatalf("%s: floor not held at count %d: got %d want %d", kind, count, price, third)
			}
		}
	}
}

func TestNextUnitPriceDigitalTiers(t *testing.T) {
	e := NewEngine(Catalog{})
	want := []Money{1000, 700, 500, 500}
	for count, expected := range want {
		price, err := e.NextUnitPrice(KindDigital, count, 0, false)
		if err != nil {
			t.Fatalf("count %d: %v", count, err)
		}
		if price != expected {
			t.Fatalf("count %d: got %d want %d", count, price, expected)
		}
	}
}

func TestSessionPackPricing(t *testing.T) {
	e := NewEngine(Catalog{})
	price, err := e.NextUnitPrice(KindSessionPack, 0, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if price != 4000 {
		t.Fatalf("pack price: got %d want 4000", price)
	}
	again, err := e.NextUnitPrice(KindSessionPack, 1, price, true)
	if err != nil {
		t.Fatalf("repeat pack request must not fail: %v", err)
	}
	if again != 0 {
		t.Fatalf("repeat pack request: got %d want 0", again)
	}
}

func TestDigitalFreeWhenPackOwned(t *testing.T) {
	e := NewEngine(Catalog{})
	for count := 0; count < 5; count++ {
		price, err := e.NextUnitPrice(KindDigital, count, 0, true)
		if err != nil {
			t.Fatal(err)
		}
		if price != 0 {
			t.Fatalf("count %d: got %d want 0", count, price)
		}
	}
	// Prints keep their tier price even with the pack in the cart.
	price, err := e.NextUnitPrice(KindPrintA4, 0, 0, true)
	if err != nil {
		t.Fatal(err)
	}
	if price != 1500 {
		t.Fatalf("printA4 with pack: got %d want 1500", price)
	}
}

func TestNextUnitPriceRejectsBadInput(t *testing.T) {
	e := NewEngine(Catalog{})
	if _, err := e.NextUnitPrice(ProductKind("poster"), 0, 0, false); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	if _, err := e.NextUnitPrice(KindDigital, -1, 0, false); !errors.Is(err, ErrInvalidCount) {
		t.Fatalf("expected ErrInvalidCount, got %v", err)
	}
}

func TestCategoryTotalDoesNotAffectPrice(t *testing.T) {
	e := NewEngine(Catalog{})
	a, err := e.NextUnitPrice(KindPrintA3, 1, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.NextUnitPrice(KindPrintA3, 1, 99_999, false)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("price varied with category total: %d vs %d", a, b)
	}
}
