package schedule1

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CALCULATION RESULT - Immutable output with full provenance
// =============================================================================

// CalculationResult is the outcome of a Schedule 1 calculation. It is a
// pure value: produced fresh per request, equal by value, safe to
// serialize and persist. The engine never stores it.
//
// Rounding contract: DeliveryHours, AssociatedHours and PayableHours are
// expressed to one decimal place; Amount to two; HourlyRate to six (as
// derived at policy load time). All rounding is half-up.
type CalculationResult struct {
	SessionDate     time.Time       `json:"session_date"`
	RateCode        string          `json:"rate_code"`
	Qualification   Qualification   `json:"qualification"`
	Repeat          bool            `json:"repeat"`
	DeliveryHours   decimal.Decimal `json:"delivery_hours"`
	AssociatedHours decimal.Decimal `json:"associated_hours"`
	PayableHours    decimal.Decimal `json:"payable_hours"`
	HourlyRate      decimal.Decimal `json:"hourly_rate"`
	Amount          decimal.Decimal `json:"amount"`
	Formula         string          `json:"formula"`
	ClauseReference string          `json:"clause_reference"`
}
