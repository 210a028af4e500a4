package payment

import (
	"context"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lineup-studio/backend-lineup/internal/common"
	"github.com/lineup-studio/backend-lineup/internal/obs"
)

// ErrProviderUnavailable is returned while the breaker refuses calls to the
// payment provider.
var ErrProviderUnavailable = &common.AppError{
	Code:       "PAYMENT_UNAVAILABLE",
	Message:    "payment provider temporarily unavailable",
	HTTPStatus: http.StatusServiceUnavailable,
}

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateClosed:
		return "closed"
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerProvider wraps a Provider with a failure-ratio circuit breaker so a
// struggling payment backend does not drag every checkout into a timeout.
// Webhook verification is purely local and is never gated.
type BreakerProvider struct {
	Inner Provider
	Log   zerolog.Logger

	// Name labels intent metrics; defaults to "unknown".
	Name string

	// MinRequests is how many outcomes must be observed before the ratio
	// is evaluated. FailureRatio opens the breaker once exceeded, OpenFor
	// is the cool-off before a half-open trial call. Zero values pick defaults.
	MinRequests  int
	FailureRatio float64
	OpenFor      time.Duration

	mu        sync.Mutex
	state     breakerState
	failures  int
	successes int
	openedAt  time.Time

	now func() time.Time
}

func (b *BreakerProvider) CreateIntent(ctx context.Context, req IntentRequest) (IntentResponse, error) {
	if b.Inner == nil {
		b.countIntent("not_configured")
		return IntentResponse{}, ErrProviderUnavailable
	}
	if !b.allow() {
		b.countIntent("breaker_open")
		return IntentResponse{}, ErrProviderUnavailable
	}
	resp, err := b.Inner.CreateIntent(ctx, req)
	b.report(err == nil)
	if err != nil {
		b.countIntent("error")
	} else {
		b.countIntent("ok")
	}
	return resp, err
}

func (b *BreakerProvider) countIntent(result string) {
	if obs.PaymentIntentTotal == nil {
		return
	}
	name := b.Name
	if name == "" {
		name = "unknown"
	}
	obs.PaymentIntentTotal.WithLabelValues(name, result).Inc()
}

func (b *BreakerProvider) VerifyWebhook(r *http.Request, body []byte) (WebhookVerifyResult, error) {
	if b.Inner == nil {
		return WebhookVerifyResult{}, ErrProviderUnavailable
	}
	return b.Inner.VerifyWebhook(r, body)
}

func (b *BreakerProvider) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != stateOpen {
		return true
	}
	if b.clock().Sub(b.openedAt) >= b.openFor() {
		b.transitionLocked(stateHalfOpen)
		return true
	}
	return false
}

func (b *BreakerProvider) report(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateOpen:
		return
	case stateHalfOpen:
		if success {
			b.transitionLocked(stateClosed)
		} else {
			b.transitionLocked(stateOpen)
		}
		return
	}

	if success {
		b.successes++
	} else {
		b.failures++
	}
	total := b.failures + b.successes
	if total < b.minRequests() {
		return
	}
	if float64(b.failures)/float64(total) >= b.failureRatio() {
		b.transitionLocked(stateOpen)
	} else if total > b.minRequests()*2 {
		// keep counters from growing unbounded
		b.successes = int(math.Ceil(float64(b.successes) * 0.5))
		b.failures = int(math.Ceil(float64(b.failures) * 0.5))
	}
}

func (b *BreakerProvider) transitionLocked(next breakerState) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	if next == stateOpen {
		b.openedAt = b.clock()
	} else {
		b.openedAt = time.Time{}
	}
	b.failures = 0
	b.successes = 0
	b.Log.Info().
		Str("from_state", prev.String()).
		Str("to_state", next.String()).
		Msg("payment breaker transition")
}

func (b *BreakerProvider) minRequests() int {
	if b.MinRequests <= 0 {
		return 5
	}
	return b.MinRequests
}

func (b *BreakerProvider) failureRatio() float64 {
	if b.FailureRatio <= 0 || b.FailureRatio > 1 {
		return 0.5
	}
	return b.FailureRatio
}

func (b *BreakerProvider) openFor() time.Duration {
	if b.OpenFor <= 0 {
		return 30 * time.Second
	}
	return b.OpenFor
}

func (b *BreakerProvider) clock() time.Time {
	if b.now != nil {
		return b.now()
	}
	return time.Now()
}
