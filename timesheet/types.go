/*
Package timesheet holds casual-staff timesheet records and drives their
confirmation workflow.

PURPOSE:
  A timesheet captures the facts of one work session plus the pay
  figures computed for it by the schedule1 engine. Every timesheet moves
  through a fixed confirmation lifecycle: the tutor confirms the facts,
  the lecturer confirms the claim, HR gives final confirmation for
  payroll. This file defines the records and the status/action enums;
  service.go enforces the transitions.

WORKFLOW:
  DRAFT -> PENDING_TUTOR_CONFIRMATION -> TUTOR_CONFIRMED
        -> LECTURER_CONFIRMED -> FINAL_CONFIRMED (terminal)

  Any pending state may be REJECTED or sent back as
  MODIFICATION_REQUESTED; both are editable and resubmittable.
*/
package timesheet

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/casualpay/schedule1-engine/schedule1"
)

// =============================================================================
// APPROVAL STATUS - Confirmation lifecycle states
// =============================================================================

// ApprovalStatus is the timesheet's position in the confirmation
// lifecycle.
type ApprovalStatus string

const (
	StatusDraft                    ApprovalStatus = "DRAFT"
	StatusPendingTutorConfirmation ApprovalStatus = "PENDING_TUTOR_CONFIRMATION"
	StatusTutorConfirmed           ApprovalStatus = "TUTOR_CONFIRMED"
	StatusLecturerConfirmed        ApprovalStatus = "LECTURER_CONFIRMED"
	StatusFinalConfirmed           ApprovalStatus = "FINAL_CONFIRMED"
	StatusRejected                 ApprovalStatus = "REJECTED"
	StatusModificationRequested    ApprovalStatus = "MODIFICATION_REQUESTED"
)

// ApprovalStatuses lists every lifecycle state.
func ApprovalStatuses() []ApprovalStatus {
	return []ApprovalStatus{
		StatusDraft, StatusPendingTutorConfirmation, StatusTutorConfirmed,
		StatusLecturerConfirmed, StatusFinalConfirmed, StatusRejected,
		StatusModificationRequested,
	}
}

// ParseApprovalStatus converts a string (case-insensitive) into a status.
func ParseApprovalStatus(s string) (ApprovalStatus, bool) {
	candidate := ApprovalStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, status := range ApprovalStatuses() {
		if candidate == status {
			return status, true
		}
	}
	return "", false
}

// IsPending reports whether the status awaits someone's confirmation.
func (s ApprovalStatus) IsPending() bool {
	return s == StatusPendingTutorConfirmation ||
		s == StatusTutorConfirmed ||
		s == StatusLecturerConfirmed
}

// IsFinal reports whether the lifecycle has ended. Only FINAL_CONFIRMED
// is terminal; REJECTED allows editing and resubmission.
func (s ApprovalStatus) IsFinal() bool {
	return s == StatusFinalConfirmed
}

// IsEditable reports whether the timesheet's facts may be changed.
func (s ApprovalStatus) IsEditable() bool {
	return s == StatusDraft || s == StatusModificationRequested || s == StatusRejected
}

// CanTransitionTo reports whether the workflow permits moving from this
// status to the target.
func (s ApprovalStatus) CanTransitionTo(target ApprovalStatus) bool {
	switch s {
	case StatusDraft:
		return target == StatusPendingTutorConfirmation
	case StatusPendingTutorConfirmation:
		return target == StatusTutorConfirmed ||
			target == StatusRejected ||
			target == StatusModificationRequested
	case StatusTutorConfirmed:
		return target == StatusLecturerConfirmed ||
			target == StatusRejected ||
			target == StatusModificationRequested
	case StatusLecturerConfirmed:
		return target == StatusFinalConfirmed ||
			target == StatusRejected ||
			target == StatusModificationRequested
	case StatusModificationRequested, StatusRejected:
		return target == StatusPendingTutorConfirmation
	default:
		// FINAL_CONFIRMED and unknown states go nowhere.
		return false
	}
}

// =============================================================================
// APPROVAL ACTION - Verbs performed against a timesheet
// =============================================================================

// ApprovalAction is a workflow verb. The action plus the current status
// determine the target status; an action with no target for the current
// status is an illegal transition.
type ApprovalAction string

const (
	ActionSubmitForApproval   ApprovalAction = "SUBMIT_FOR_APPROVAL"
	ActionApprove             ApprovalAction = "APPROVE"
	ActionReject              ApprovalAction = "REJECT"
	ActionRequestModification ApprovalAction = "REQUEST_MODIFICATION"
)

// ParseApprovalAction converts a string (case-insensitive) into an action.
func ParseApprovalAction(s string) (ApprovalAction, bool) {
	switch ApprovalAction(strings.ToUpper(strings.TrimSpace(s))) {
	case ActionSubmitForApproval:
		return ActionSubmitForApproval, true
	case ActionApprove:
		return ActionApprove, true
	case ActionReject:
		return ActionReject, true
	case ActionRequestModification:
		return ActionRequestModification, true
	default:
		return "", false
	}
}

// TargetStatus returns the status this action moves a timesheet to from
// the given current status, or false when the action does not apply.
func (a ApprovalAction) TargetStatus(current ApprovalStatus) (ApprovalStatus, bool) {
	switch a {
	case ActionSubmitForApproval:
		if current.IsEditable() {
			return StatusPendingTutorConfirmation, true
		}
	case ActionApprove:
		switch current {
		case StatusPendingTutorConfirmation:
			return StatusTutorConfirmed, true
		case StatusTutorConfirmed:
			return StatusLecturerConfirmed, true
		case StatusLecturerConfirmed:
			return StatusFinalConfirmed, true
		}
	case ActionReject:
		if current.IsPending() {
			return StatusRejected, true
		}
	case ActionRequestModification:
		if current.IsPending() {
			return StatusModificationRequested, true
		}
	}
	return "", false
}

// =============================================================================
// TIMESHEET RECORD
// =============================================================================

// Timesheet is one priced work-session claim. The calculation fields are
// stamped by the service from the engine's result and never edited by
// hand; changing the session facts re-stamps them.
type Timesheet struct {
	ID       uuid.UUID `json:"id"`
	TutorID  string    `json:"tutor_id"`
	CourseID string    `json:"course_id"`

	// Session facts (engine inputs)
	TaskCategory  schedule1.TaskCategory  `json:"task_category"`
	SessionDate   time.Time               `json:"session_date"`
	DeliveryHours decimal.Decimal         `json:"delivery_hours"`
	Repeat        bool                    `json:"repeat"`
	Qualification schedule1.Qualification `json:"qualification"`
	Description   string                  `json:"description,omitempty"`

	// Calculation provenance (engine outputs, stamped on create/update)
	RateCode        string          `json:"rate_code"`
	AssociatedHours decimal.Decimal `json:"associated_hours"`
	PayableHours    decimal.Decimal `json:"payable_hours"`
	HourlyRate      decimal.Decimal `json:"hourly_rate"`
	Amount          decimal.Decimal `json:"amount"`
	Formula         string          `json:"formula"`
	ClauseReference string          `json:"clause_reference"`

	Status    ApprovalStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Approval is one recorded workflow step: who did what, when, and the
// status the timesheet landed in.
type Approval struct {
	ID          uuid.UUID      `json:"id"`
	TimesheetID uuid.UUID      `json:"timesheet_id"`
	Action      ApprovalAction `json:"action"`
	FromStatus  ApprovalStatus `json:"from_status"`
	ToStatus    ApprovalStatus `json:"to_status"`
	ActorID     string         `json:"actor_id"`
	Comment     string         `json:"comment,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
