package pricing

import (
	"testing"
)

func TestDeliveryFeePickupIsFree(t *testing.T) {
	e := NewEngine(Catalog{})
	for _, kind := range PrintKinds {
		fee, err := e.DeliveryFee(kind, DeliveryPickup)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if fee != 0 {
			t.Fatalf("%s: pickup fee must be 0, got %d", kind, fee)
		}
	}
}

func TestDeliveryFeeMonotoneWithSize(t *testing.T) {
	e := NewEngine(Catalog{})
	var prev Money = -1
	for _, kind := range PrintKinds {
		fee, err := e.DeliveryFee(kind, DeliveryShipped)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if fee < prev {
			t.Fatalf("%s: fee %d decreased below %d", kind, fee, prev)
		}
		prev = fee
	}
}

func TestDeliveryFeeZeroForNonPrints(t *testing.T) {
	e := NewEngine(Catalog{})
	for _, kind := range []ProductKind{KindDigital, KindSessionPack} {
		fee, err := e.DeliveryFee(kind, DeliveryShipped)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if fee != 0 {
			t.Fatalf("%s: expected 0 fee, got %d", kind, fee)
		}
	}
}

func TestDeliveryFeeRejectsUnknownOption(t *testing.T) {
	e := NewEngine(Catalog{})
	if _, err := e.DeliveryFee(KindPrintA4, DeliveryOption("courier")); err == nil {
		t.Fatal("expected error for unknown delivery option")
	}
}
