/*
service.go - Timesheet service: pricing on write, workflow on action

PURPOSE:
  The service is the only writer of timesheets. Create and Update run
  the schedule1 calculator over the session facts and stamp the result
  onto the record, so persisted pay figures are always consistent with
  the facts that produced them. PerformAction drives the confirmation
  state machine and records an Approval entry per step.

RULES ENFORCED HERE:
  - Session facts may only change while the status is editable
    (DRAFT, MODIFICATION_REQUESTED, REJECTED).
  - Every status change must be a transition both the action table and
    the status graph allow; anything else is ErrIllegalTransition.
  - Resubmission after rejection or a modification request re-enters at
    PENDING_TUTOR_CONFIRMATION; the full history stays in the approvals
    log.
*/
package timesheet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/casualpay/schedule1-engine/schedule1"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrTimesheetNotFound is returned when no timesheet exists for the ID.
	ErrTimesheetNotFound = errors.New("timesheet not found")

	// ErrNotEditable is returned when an update targets a timesheet whose
	// status forbids changing the session facts.
	ErrNotEditable = errors.New("timesheet is not editable in its current status")

	// ErrIllegalTransition is returned when an approval action does not
	// apply to the timesheet's current status.
	ErrIllegalTransition = errors.New("illegal approval transition")
)

// IllegalTransitionError reports the action/status pair that was refused.
type IllegalTransitionError struct {
	Action ApprovalAction
	Status ApprovalStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot perform %s on a timesheet in status %s", e.Action, e.Status)
}

func (e *IllegalTransitionError) Unwrap() error { return ErrIllegalTransition }

// =============================================================================
// STORE CONTRACT
// =============================================================================

// Store persists timesheets and their approval history. Implemented by
// store/sqlite for production and by memoryStore in tests.
type Store interface {
	// SaveTimesheet inserts or fully replaces the record by ID.
	SaveTimesheet(ctx context.Context, ts Timesheet) error

	// GetTimesheet returns the record, or (nil, nil) when absent.
	GetTimesheet(ctx context.Context, id uuid.UUID) (*Timesheet, error)

	// ListTimesheets returns records filtered by tutor; an empty tutorID
	// lists everything. Ordered newest session first.
	ListTimesheets(ctx context.Context, tutorID string) ([]Timesheet, error)

	// SaveApproval appends one workflow step to the history.
	SaveApproval(ctx context.Context, approval Approval) error

	// ListApprovals returns a timesheet's workflow history, oldest first.
	ListApprovals(ctx context.Context, timesheetID uuid.UUID) ([]Approval, error)
}

// =============================================================================
// SERVICE
// =============================================================================

// Service owns all timesheet writes. Safe for concurrent use if the
// Store is.
type Service struct {
	store Store
	calc  *schedule1.Calculator
	log   *zap.Logger
	now   func() time.Time
	newID func() uuid.UUID
}

// NewService wires a service. A nil logger disables logging.
func NewService(store Store, calc *schedule1.Calculator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store: store,
		calc:  calc,
		log:   logger,
		now:   time.Now,
		newID: uuid.New,
	}
}

// CreateInput carries the session facts for a new timesheet.
type CreateInput struct {
	TutorID       string
	CourseID      string
	TaskCategory  schedule1.TaskCategory
	SessionDate   time.Time
	DeliveryHours decimal.Decimal
	Repeat        bool
	Qualification schedule1.Qualification
	Description   string
}

// Create prices the session and persists a new DRAFT timesheet.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Timesheet, error) {
	result, err := s.calculate(ctx, in.TaskCategory, in.SessionDate, in.DeliveryHours, in.Repeat, in.Qualification)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	ts := Timesheet{
		ID:            s.newID(),
		TutorID:       in.TutorID,
		CourseID:      in.CourseID,
		TaskCategory:  in.TaskCategory,
		SessionDate:   in.SessionDate,
		DeliveryHours: result.DeliveryHours,
		Repeat:        in.Repeat,
		Qualification: in.Qualification.Normalize(),
		Description:   in.Description,
		Status:        StatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	stampCalculation(&ts, result)

	if err := s.store.SaveTimesheet(ctx, ts); err != nil {
		return nil, fmt.Errorf("save timesheet: %w", err)
	}
	s.log.Info("timesheet created",
		zap.String("timesheet_id", ts.ID.String()),
		zap.String("rate_code", ts.RateCode),
		zap.String("amount", ts.Amount.String()))
	return &ts, nil
}

// UpdateInput carries replacement session facts for an editable timesheet.
type UpdateInput struct {
	TaskCategory  schedule1.TaskCategory
	SessionDate   time.Time
	DeliveryHours decimal.Decimal
	Repeat        bool
	Qualification schedule1.Qualification
	Description   string
}

// Update replaces the session facts and re-prices the timesheet. Only
// editable statuses accept updates.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Timesheet, error) {
	ts, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ts.Status.IsEditable() {
		return nil, fmt.Errorf("%w: status %s", ErrNotEditable, ts.Status)
	}

	result, err := s.calculate(ctx, in.TaskCategory, in.SessionDate, in.DeliveryHours, in.Repeat, in.Qualification)
	if err != nil {
		return nil, err
	}

	ts.TaskCategory = in.TaskCategory
	ts.SessionDate = in.SessionDate
	ts.DeliveryHours = result.DeliveryHours
	ts.Repeat = in.Repeat
	ts.Qualification = in.Qualification.Normalize()
	ts.Description = in.Description
	ts.UpdatedAt = s.now().UTC()
	stampCalculation(ts, result)

	if err := s.store.SaveTimesheet(ctx, *ts); err != nil {
		return nil, fmt.Errorf("save timesheet: %w", err)
	}
	return ts, nil
}

// Get returns a timesheet by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Timesheet, error) {
	return s.mustGet(ctx, id)
}

// List returns timesheets, optionally filtered by tutor.
func (s *Service) List(ctx context.Context, tutorID string) ([]Timesheet, error) {
	return s.store.ListTimesheets(ctx, tutorID)
}

// History returns the approval log for a timesheet, oldest step first.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]Approval, error) {
	if _, err := s.mustGet(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListApprovals(ctx, id)
}

// PerformAction applies a workflow verb to the timesheet, records the
// step, and returns the updated record.
func (s *Service) PerformAction(ctx context.Context, id uuid.UUID, action ApprovalAction, actorID, comment string) (*Timesheet, error) {
	ts, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}

	target, ok := action.TargetStatus(ts.Status)
	if !ok || !ts.Status.CanTransitionTo(target) {
		return nil, &IllegalTransitionError{Action: action, Status: ts.Status}
	}

	now := s.now().UTC()
	approval := Approval{
		ID:          s.newID(),
		TimesheetID: ts.ID,
		Action:      action,
		FromStatus:  ts.Status,
		ToStatus:    target,
		ActorID:     actorID,
		Comment:     comment,
		CreatedAt:   now,
	}

	ts.Status = target
	ts.UpdatedAt = now
	if err := s.store.SaveTimesheet(ctx, *ts); err != nil {
		return nil, fmt.Errorf("save timesheet: %w", err)
	}
	if err := s.store.SaveApproval(ctx, approval); err != nil {
		return nil, fmt.Errorf("save approval: %w", err)
	}

	s.log.Info("timesheet transitioned",
		zap.String("timesheet_id", ts.ID.String()),
		zap.String("action", string(action)),
		zap.String("from", string(approval.FromStatus)),
		zap.String("to", string(approval.ToStatus)))
	return ts, nil
}

// =============================================================================
// INTERNAL
// =============================================================================

func (s *Service) mustGet(ctx context.Context, id uuid.UUID) (*Timesheet, error) {
	ts, err := s.store.GetTimesheet(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load timesheet: %w", err)
	}
	if ts == nil {
		return nil, fmt.Errorf("%w: %s", ErrTimesheetNotFound, id)
	}
	return ts, nil
}

func (s *Service) calculate(ctx context.Context, category schedule1.TaskCategory, sessionDate time.Time, delivery decimal.Decimal, repeat bool, qualification schedule1.Qualification) (schedule1.CalculationResult, error) {
	req := schedule1.NewCalculationRequest(category, sessionDate, delivery, repeat, qualification)
	return s.calc.Calculate(ctx, req)
}

func stampCalculation(ts *Timesheet, result schedule1.CalculationResult) {
	ts.RateCode = result.RateCode
	ts.AssociatedHours = result.AssociatedHours
	ts.PayableHours = result.PayableHours
	ts.HourlyRate = result.HourlyRate
	ts.Amount = result.Amount
	ts.Formula = result.Formula
	ts.ClauseReference = result.ClauseReference
}
