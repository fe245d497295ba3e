package schedule1

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CALCULATION REQUEST - Caller-owned input, one per work session
// =============================================================================

// CalculationRequest describes a single work session to be priced.
// Constructed by the caller per session and discarded after use.
//
// Required fields: TaskCategory, SessionDate, DeliveryHours. A nil
// DeliveryHours or zero SessionDate fails with ErrInvalidRequest before
// any policy lookup. Everything else is normalized, not rejected:
// negative hours clamp to zero and an empty Qualification means STANDARD.
type CalculationRequest struct {
	TaskCategory  TaskCategory
	SessionDate   time.Time
	DeliveryHours *decimal.Decimal
	Repeat        bool
	Qualification Qualification
}

// NewCalculationRequest builds a request with all required fields set.
func NewCalculationRequest(category TaskCategory, sessionDate time.Time, deliveryHours decimal.Decimal, repeat bool, qualification Qualification) CalculationRequest {
	return CalculationRequest{
		TaskCategory:  category,
		SessionDate:   sessionDate,
		DeliveryHours: &deliveryHours,
		Repeat:        repeat,
		Qualification: qualification.Normalize(),
	}
}

// validate enforces the required-field contract. This is deliberately not
// a business-rule check: business normalization (clamping, defaulting)
// happens silently inside Calculate.
func (r CalculationRequest) validate() error {
	if r.TaskCategory == "" {
		return &InvalidRequestError{Field: "taskCategory"}
	}
	if r.SessionDate.IsZero() {
		return &InvalidRequestError{Field: "sessionDate"}
	}
	if r.DeliveryHours == nil {
		return &InvalidRequestError{Field: "deliveryHours"}
	}
	return nil
}
