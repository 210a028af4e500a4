package promo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lineup-studio/backend-lineup/internal/pricing"
)

// Service loads promo rules from Postgres and evaluates them against cart
// totals. The cart core never sees discount logic; it only supplies the
// pre-discount total.
type Service struct {
	Pool *pgxpool.Pool
	Now  func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

const ruleByCodeSQL = `
SELECT code, kind, value_cents, percent_bps, min_spend_cents, usage_limit, used_count, valid_from, valid_to
FROM promo_codes
WHERE code = $1`

// Validate returns the evaluation of the code against the total. An
// unknown code yields a Valid=false result rather than an error so the
// storefront can show an inline notice.
func (s *Service) Validate(ctx context.Context, code string, total pricing.Money) (Result, error) {
	if s == nil || s.Pool == nil {
		return Result{}, errors.New("promo service not configured")
	}
	rule, err := s.ruleByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return Result{}, nil
		}
		return Result{}, err
	}
	return Evaluate(rule, s.now(), total), nil
}

// MarkUsed increments the redemption counter after a successful checkout.
func (s *Service) MarkUsed(ctx context.Context, code string) error {
	if s == nil || s.Pool == nil {
		return errors.New("promo service not configured")
	}
	_, err := s.Pool.Exec(ctx,
		`UPDATE promo_codes SET used_count = used_count + 1 WHERE code = $1`,
		strings.ToUpper(strings.TrimSpace(code)))
	return err
}

func (s *Service) ruleByCode(ctx context.Context, code string) (Rule, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return Rule{}, ErrCodeNotFound
	}
	var (
		rule       Rule
		percentBps pgtype.Int4
		usageLimit pgtype.Int4
		validFrom  pgtype.Timestamptz
		validTo    pgtype.Timestamptz
	)
	row := s.Pool.QueryRow(ctx, ruleByCodeSQL, normalized)
	err := row.Scan(&rule.Code, &rule.Kind, &rule.Value, &percentBps,
		&rule.MinSpend, &usageLimit, &rule.UsedCount, &validFrom, &validTo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rule{}, ErrCodeNotFound
		}
		return Rule{}, err
	}
	if percentBps.Valid {
		v := percentBps.Int32
		rule.PercentBps = &v
	}
	if usageLimit.Valid {
		v := usageLimit.Int32
		rule.UsageLimit = &v
	}
	if validFrom.Valid {
		t := validFrom.Time
		rule.ValidFrom = &t
	}
	if validTo.Valid {
		t := validTo.Time
		rule.ValidTo = &t
	}
	return rule, nil
}
