package promo

import (
	"errors"
	"strings"
	"time"

	"github.com/lineup-studio/backend-lineup/internal/pricing"
)

var (
	// ErrCodeNotFound is returned when the code does not exist.
	ErrCodeNotFound = errors.New("promo code not found")
	// ErrCodeInactive is returned when the code is used before its window opens.
	ErrCodeInactive = errors.New("promo code not active")
	// ErrCodeExpired is returned when the code's window has closed.
	ErrCodeExpired = errors.New("promo code expired")
	// ErrUsageLimitReached indicates the code exhausted its redemption quota.
	ErrUsageLimitReached = errors.New("promo code usage limit reached")
	// ErrMinimumSpendUnmet indicates the cart total is below the code's threshold.
	ErrMinimumSpendUnmet = errors.New("promo minimum spend not met")
)

// Rule captures the runtime constraints of a discount code.
type Rule struct {
	Code       string
	Kind       string
	Value      pricing.Money
	PercentBps *int32
	MinSpend   pricing.Money
	UsageLimit *int32
	UsedCount  int32
	ValidFrom  *time.Time
	ValidTo    *time.Time
}

// Validate ensures the rule can be redeemed at the provided instant and
// cart total.
func (r Rule) Validate(now time.Time, total pricing.Money) error {
	if total < r.MinSpend {
		return ErrMinimumSpendUnmet
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return ErrCodeInactive
	}
	if r.ValidTo != nil && now.After(*r.ValidTo) {
		return ErrCodeExpired
	}
	if r.UsageLimit != nil && *r.UsageLimit >= 0 && r.UsedCount >= *r.UsageLimit {
		return ErrUsageLimitReached
	}
	return nil
}

// Compute determines the discount amount the rule grants on the total.
func Compute(total pricing.Money, r Rule) pricing.Money {
	if total <= 0 {
		return 0
	}
	discount := r.Value
	if strings.EqualFold(r.Kind, "percent") {
		if r.PercentBps == nil || *r.PercentBps <= 0 {
			return 0
		}
		discount = (total * pricing.Money(*r.PercentBps)) / 10000
	}
	if discount > total {
		discount = total
	}
	if discount < 0 {
		return 0
	}
	return discount
}

// Result is the outcome handed back to the cart and checkout surfaces.
// IsFree marks a code that wipes the entire total, which lets checkout
// skip the payment provider.
type Result struct {
	Valid           bool          `json:"valid"`
	IsFree          bool          `json:"isFree"`
	DiscountPercent int32         `json:"discountPercent"`
	DiscountAmount  pricing.Money `json:"discountAmount"`
}

// Evaluate validates the rule and folds the outcome into a Result.
// Policy failures produce a Valid=false result, not an error; only
// infrastructure problems surface as errors at the service layer.
func Evaluate(r Rule, now time.Time, total pricing.Money) Result {
	if err := r.Validate(now, total); err != nil {
		return Result{}
	}
	discount := Compute(total, r)
	result := Result{
		Valid:          true,
		DiscountAmount: discount,
		IsFree:         total > 0 && discount >= total,
	}
	if strings.EqualFold(r.Kind, "percent") && r.PercentBps != nil {
		result.DiscountPercent = *r.PercentBps / 100
	}
	return result
}
