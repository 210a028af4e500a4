package promo

import (
	"testing"
	"time"
)

func TestComputePercent(t *testing.T) {
	percent := int32(2000)
	rule := Rule{Kind: "percent", PercentBps: &percent}
	discount := Compute(10_000, rule)
	if discount != 2_000 {
		t.Fatalf("expected 2000 discount, got %d", discount)
	}
}

func TestComputeFixedCappedAtTotal(t *testing.T) {
	rule := Rule{Kind: "fixed", Value: 5_000}
	if got := Compute(3_000, rule); got != 3_000 {
		t.Fatalf("fixed discount should cap at total, got %d", got)
	}
}

func TestValidateWindow(t *testing.T) {
	from := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC)
	rule := Rule{ValidFrom: &from, ValidTo: &to}

	if err := rule.Validate(from.Add(-time.Hour), 1000); err != ErrCodeInactive {
		t.Fatalf("expected ErrCodeInactive, got %v", err)
	}
	if err := rule.Validate(to.Add(time.Hour), 1000); err != ErrCodeExpired {
		t.Fatalf("expected ErrCodeExpired, got %v", err)
	}
	if err := rule.Validate(from.Add(time.Hour), 1000); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestValidateUsageLimit(t *testing.T) {
	limit := int32(2)
	rule := Rule{UsageLimit: &limit, UsedCount: 2}
	if err := rule.Validate(time.Now(), 1000); err != ErrUsageLimitReached {
		t.Fatalf("expected ErrUsageLimitReached, got %v", err)
	}
}

func TestEvaluateFullDiscountIsFree(t *testing.T) {
	percent := int32(10000)
	rule := Rule{Kind: "percent", PercentBps: &percent}
	result := Evaluate(rule, time.Now(), 5_700)
	if !result.Valid {
		t.Fatal("expected a valid result")
	}
	if !result.IsFree {
		t.Fatal("a 100% code must mark the order free")
	}
	if result.DiscountAmount != 5_700 {
		t.Fatalf("discount: got %d want 5700", result.DiscountAmount)
	}
	if result.DiscountPercent != 100 {
		t.Fatalf("percent: got %d want 100", result.DiscountPercent)
	}
}

func TestEvaluatePolicyFailureIsInvalidNotError(t *testing.T) {
	rule := Rule{MinSpend: 10_000}
	result := Evaluate(rule, time.Now(), 100)
	if result.Valid {
		t.Fatal("expected invalid result for unmet minimum spend")
	}
	if result.DiscountAmount != 0 {
		t.Fatalf("discount must be 0, got %d", result.DiscountAmount)
	}
}
