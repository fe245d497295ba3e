/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing
  field renaming, API-specific validation, and version evolution without
  touching the engine's value types.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *DTO: Response types returned to clients

VALIDATION:
  Request bodies carry go-playground/validator struct tags and are
  checked in decodeAndValidate before any domain call. The engine still
  applies its own normalization afterwards; the tags only reject
  requests that could never be priced.
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/casualpay/schedule1-engine/schedule1"
	"github.com/casualpay/schedule1-engine/timesheet"
)

// =============================================================================
// CALCULATION
// =============================================================================

// CalculationRequestDTO is the body of POST /api/calculations.
type CalculationRequestDTO struct {
	TaskCategory  string `json:"task_category" validate:"required"`
	SessionDate   string `json:"session_date" validate:"required"` // YYYY-MM-DD
	DeliveryHours string `json:"delivery_hours" validate:"required"`
	Repeat        bool   `json:"repeat"`
	Qualification string `json:"qualification,omitempty"`
}

// CalculationResultDTO mirrors schedule1.CalculationResult on the wire.
type CalculationResultDTO struct {
	SessionDate     string `json:"session_date"`
	RateCode        string `json:"rate_code"`
	Qualification   string `json:"qualification"`
	Repeat          bool   `json:"repeat"`
	DeliveryHours   string `json:"delivery_hours"`
	AssociatedHours string `json:"associated_hours"`
	PayableHours    string `json:"payable_hours"`
	HourlyRate      string `json:"hourly_rate"`
	Amount          string `json:"amount"`
	Formula         string `json:"formula"`
	ClauseReference string `json:"clause_reference"`
}

func toCalculationResultDTO(result schedule1.CalculationResult) CalculationResultDTO {
	return CalculationResultDTO{
		SessionDate:     result.SessionDate.Format("2006-01-02"),
		RateCode:        result.RateCode,
		Qualification:   string(result.Qualification),
		Repeat:          result.Repeat,
		DeliveryHours:   result.DeliveryHours.String(),
		AssociatedHours: result.AssociatedHours.String(),
		PayableHours:    result.PayableHours.String(),
		HourlyRate:      result.HourlyRate.String(),
		Amount:          result.Amount.String(),
		Formula:         result.Formula,
		ClauseReference: result.ClauseReference,
	}
}

// =============================================================================
// RATE POLICY
// =============================================================================

// RatePolicyDTO is the response of GET /api/rates/{code}.
type RatePolicyDTO struct {
	RateCode           string `json:"rate_code"`
	TaskCategory       string `json:"task_category"`
	Qualification      string `json:"qualification"`
	Repeat             bool   `json:"repeat"`
	DeliveryHours      string `json:"delivery_hours"`
	AssociatedHoursCap string `json:"associated_hours_cap"`
	PayableHoursCap    string `json:"payable_hours_cap"`
	SessionAmount      string `json:"session_amount"`
	HourlyRate         string `json:"hourly_rate"`
	ClauseReference    string `json:"clause_reference"`
	ResolvedForDate    string `json:"resolved_for_date"`
}

func toRatePolicyDTO(policy schedule1.RatePolicy) RatePolicyDTO {
	return RatePolicyDTO{
		RateCode:           policy.RateCode,
		TaskCategory:       string(policy.TaskCategory),
		Qualification:      string(policy.Qualification),
		Repeat:             policy.Repeat,
		DeliveryHours:      policy.DeliveryHours.String(),
		AssociatedHoursCap: policy.AssociatedHoursCap.String(),
		PayableHoursCap:    policy.PayableHoursCap.String(),
		SessionAmount:      policy.SessionAmount.String(),
		HourlyRate:         policy.HourlyRate.String(),
		ClauseReference:    policy.ClauseReference,
		ResolvedForDate:    policy.ResolvedForDate.Format("2006-01-02"),
	}
}

// =============================================================================
// TIMESHEETS
// =============================================================================

// TimesheetRequestDTO is the body of POST and PUT /api/timesheets.
type TimesheetRequestDTO struct {
	TutorID       string `json:"tutor_id" validate:"required"`
	CourseID      string `json:"course_id" validate:"required"`
	TaskCategory  string `json:"task_category" validate:"required"`
	SessionDate   string `json:"session_date" validate:"required"`
	DeliveryHours string `json:"delivery_hours" validate:"required"`
	Repeat        bool   `json:"repeat"`
	Qualification string `json:"qualification,omitempty"`
	Description   string `json:"description,omitempty"`
}

// TimesheetDTO is a timesheet in API responses.
type TimesheetDTO struct {
	ID              string `json:"id"`
	TutorID         string `json:"tutor_id"`
	CourseID        string `json:"course_id"`
	TaskCategory    string `json:"task_category"`
	SessionDate     string `json:"session_date"`
	DeliveryHours   string `json:"delivery_hours"`
	Repeat          bool   `json:"repeat"`
	Qualification   string `json:"qualification"`
	Description     string `json:"description,omitempty"`
	RateCode        string `json:"rate_code"`
	AssociatedHours string `json:"associated_hours"`
	PayableHours    string `json:"payable_hours"`
	HourlyRate      string `json:"hourly_rate"`
	Amount          string `json:"amount"`
	Formula         string `json:"formula"`
	ClauseReference string `json:"clause_reference"`
	Status          string `json:"status"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func toTimesheetDTO(ts timesheet.Timesheet) TimesheetDTO {
	return TimesheetDTO{
		ID:              ts.ID.String(),
		TutorID:         ts.TutorID,
		CourseID:        ts.CourseID,
		TaskCategory:    string(ts.TaskCategory),
		SessionDate:     ts.SessionDate.Format("2006-01-02"),
		DeliveryHours:   ts.DeliveryHours.String(),
		Repeat:          ts.Repeat,
		Qualification:   string(ts.Qualification),
		Description:     ts.Description,
		RateCode:        ts.RateCode,
		AssociatedHours: ts.AssociatedHours.String(),
		PayableHours:    ts.PayableHours.String(),
		HourlyRate:      ts.HourlyRate.String(),
		Amount:          ts.Amount.String(),
		Formula:         ts.Formula,
		ClauseReference: ts.ClauseReference,
		Status:          string(ts.Status),
		CreatedAt:       ts.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       ts.UpdatedAt.Format(time.RFC3339),
	}
}

func toTimesheetDTOs(timesheets []timesheet.Timesheet) []TimesheetDTO {
	dtos := make([]TimesheetDTO, 0, len(timesheets))
	for _, ts := range timesheets {
		dtos = append(dtos, toTimesheetDTO(ts))
	}
	return dtos
}

// ApprovalRequestDTO is the body of POST /api/timesheets/{id}/approvals.
type ApprovalRequestDTO struct {
	Action  string `json:"action" validate:"required"`
	ActorID string `json:"actor_id" validate:"required"`
	Comment string `json:"comment,omitempty"`
}

// ApprovalDTO is one workflow step in API responses.
type ApprovalDTO struct {
	ID          string `json:"id"`
	TimesheetID string `json:"timesheet_id"`
	Action      string `json:"action"`
	FromStatus  string `json:"from_status"`
	ToStatus    string `json:"to_status"`
	ActorID     string `json:"actor_id,omitempty"`
	Comment     string `json:"comment,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toApprovalDTOs(approvals []timesheet.Approval) []ApprovalDTO {
	dtos := make([]ApprovalDTO, 0, len(approvals))
	for _, a := range approvals {
		dtos = append(dtos, ApprovalDTO{
			ID:          a.ID.String(),
			TimesheetID: a.TimesheetID.String(),
			Action:      string(a.Action),
			FromStatus:  string(a.FromStatus),
			ToStatus:    string(a.ToStatus),
			ActorID:     a.ActorID,
			Comment:     a.Comment,
			CreatedAt:   a.CreatedAt.Format(time.RFC3339),
		})
	}
	return dtos
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorDTO is the uniform error envelope.
type ErrorDTO struct {
	Error string `json:"error"`
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

// parseSessionDate accepts the API's YYYY-MM-DD date form, in UTC.
func parseSessionDate(s string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func parseHours(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
