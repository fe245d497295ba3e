/*
store.go - Contract to the governed rate-table store

PURPOSE:
  Defines the narrow read-only interface the engine consumes from the
  governed rate configuration (the rate_code / rate_amount tables kept
  under HR change control). The engine owns nothing behind this
  interface; it only reads.

FALLBACK CONTRACT:
  Absence is not an error. A nil store, an empty result set, or a read
  failure all mean the same thing to the provider: use the embedded
  default catalogue for that lookup. The engine must keep producing
  EA-correct figures while the seed data is being prepared.

IMPLEMENTATIONS:
  - store/sqlite: production store over SQLite
  - schedule1/store: in-memory store for tests and development
*/
package schedule1

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RATE STORE - Read-only access to governed rate configuration
// =============================================================================

// RateStore exposes the two reads the engine relies on. Implementations
// must be safe for concurrent use.
type RateStore interface {
	// FindRateCode returns the rate-code definition for the given code,
	// or (nil, nil) when the code is not configured.
	FindRateCode(ctx context.Context, code string) (*RateCodeRow, error)

	// FindRateCodesByCategory returns every rate code configured for a
	// task category. An empty slice is a valid answer.
	FindRateCodesByCategory(ctx context.Context, category TaskCategory) ([]RateCodeRow, error)

	// FindActiveAmounts returns the rate-amount rows for a rate code that
	// are effective around the given date, most recently started first.
	FindActiveAmounts(ctx context.Context, rateCodeID int64, at time.Time) ([]RateAmountRow, error)
}

// RateCodeRow is the stored definition of an EA rate code: the regulatory
// identifier plus its defaults and flags.
type RateCodeRow struct {
	ID                     int64
	Code                   string
	TaskCategory           TaskCategory
	Description            string
	DefaultDeliveryHours   decimal.Decimal
	DefaultAssociatedHours decimal.Decimal
	RequiresPhD            bool
	Repeatable             bool
	ClauseReference        string
}

// RateAmountRow is a year-specific amount for a rate code, bounded by an
// effectivity window. Optional per-row caps override the code defaults;
// a nil Qualification means the row applies at the STANDARD tier.
type RateAmountRow struct {
	ID                 int64
	RateCodeID         int64
	YearLabel          string
	EffectiveFrom      time.Time
	EffectiveTo        *time.Time // exclusive; nil = open-ended
	SessionAmount      decimal.Decimal
	MaxAssociatedHours *decimal.Decimal
	MaxPayableHours    *decimal.Decimal
	Qualification      *Qualification
	Notes              string
}

// EffectiveOn reports whether the row's window covers the target date.
// The window is inclusive of EffectiveFrom and exclusive of EffectiveTo.
func (r RateAmountRow) EffectiveOn(at time.Time) bool {
	if at.IsZero() {
		return false
	}
	starts := !at.Before(r.EffectiveFrom)
	ends := r.EffectiveTo == nil || at.Before(*r.EffectiveTo)
	return starts && ends
}
