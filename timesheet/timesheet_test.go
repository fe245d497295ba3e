/*
timesheet_test.go - Confirmation workflow and pricing-on-write behavior

The state machine tests enumerate the documented transition table; the
service tests check that pay figures are stamped from the engine on
every write and that edits are refused outside editable statuses.
*/
package timesheet_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/casualpay/schedule1-engine/schedule1"
	"github.com/casualpay/schedule1-engine/timesheet"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

// memoryStore is a minimal in-process Store for service tests.
type memoryStore struct {
	mu         sync.Mutex
	timesheets map[uuid.UUID]timesheet.Timesheet
	approvals  []timesheet.Approval
}

func newMemoryStore() *memoryStore {
	return &memoryStore{timesheets: make(map[uuid.UUID]timesheet.Timesheet)}
}

func (m *memoryStore) SaveTimesheet(_ context.Context, ts timesheet.Timesheet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timesheets[ts.ID] = ts
	return nil
}

func (m *memoryStore) GetTimesheet(_ context.Context, id uuid.UUID) (*timesheet.Timesheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts, ok := m.timesheets[id]
	if !ok {
		return nil, nil
	}
	return &ts, nil
}

func (m *memoryStore) ListTimesheets(_ context.Context, tutorID string) ([]timesheet.Timesheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []timesheet.Timesheet
	for _, ts := range m.timesheets {
		if tutorID == "" || ts.TutorID == tutorID {
			out = append(out, ts)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionDate.After(out[j].SessionDate) })
	return out, nil
}

func (m *memoryStore) SaveApproval(_ context.Context, a timesheet.Approval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.approvals = append(m.approvals, a)
	return nil
}

func (m *memoryStore) ListApprovals(_ context.Context, id uuid.UUID) ([]timesheet.Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []timesheet.Approval
	for _, a := range m.approvals {
		if a.TimesheetID == id {
			out = append(out, a)
		}
	}
	return out, nil
}

func newService(t *testing.T) (*timesheet.Service, *memoryStore) {
	t.Helper()
	provider := schedule1.NewPolicyProvider(context.Background(), nil, nil)
	calc := schedule1.NewCalculator(provider)
	store := newMemoryStore()
	return timesheet.NewService(store, calc, nil), store
}

func tutorialInput() timesheet.CreateInput {
	return timesheet.CreateInput{
		TutorID:       "tutor-1",
		CourseID:      "COMP1000",
		TaskCategory:  schedule1.TaskTutorial,
		SessionDate:   time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		DeliveryHours: decimal.NewFromInt(1),
		Qualification: schedule1.QualificationStandard,
	}
}

// =============================================================================
// STATE MACHINE - Transition table
// =============================================================================

func TestApprovalStatusTransitionTable(t *testing.T) {
	allowed := map[timesheet.ApprovalStatus][]timesheet.ApprovalStatus{
		timesheet.StatusDraft: {timesheet.StatusPendingTutorConfirmation},
		timesheet.StatusPendingTutorConfirmation: {
			timesheet.StatusTutorConfirmed, timesheet.StatusRejected, timesheet.StatusModificationRequested,
		},
		timesheet.StatusTutorConfirmed: {
			timesheet.StatusLecturerConfirmed, timesheet.StatusRejected, timesheet.StatusModificationRequested,
		},
		timesheet.StatusLecturerConfirmed: {
			timesheet.StatusFinalConfirmed, timesheet.StatusRejected, timesheet.StatusModificationRequested,
		},
		timesheet.StatusModificationRequested: {timesheet.StatusPendingTutorConfirmation},
		timesheet.StatusRejected:              {timesheet.StatusPendingTutorConfirmation},
		timesheet.StatusFinalConfirmed:        {},
	}

	for _, from := range timesheet.ApprovalStatuses() {
		for _, to := range timesheet.ApprovalStatuses() {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s = %t, want %t", from, to, got, want)
			}
		}
	}
}

func TestStatusPredicates(t *testing.T) {
	// Pending means awaiting someone's confirmation.
	for _, s := range []timesheet.ApprovalStatus{
		timesheet.StatusPendingTutorConfirmation,
		timesheet.StatusTutorConfirmed,
		timesheet.StatusLecturerConfirmed,
	} {
		if !s.IsPending() {
			t.Errorf("%s should be pending", s)
		}
		if s.IsEditable() {
			t.Errorf("%s should not be editable", s)
		}
	}
	// Editable means the facts may still change.
	for _, s := range []timesheet.ApprovalStatus{
		timesheet.StatusDraft,
		timesheet.StatusModificationRequested,
		timesheet.StatusRejected,
	} {
		if !s.IsEditable() {
			t.Errorf("%s should be editable", s)
		}
	}
	// Only final confirmation is terminal.
	if !timesheet.StatusFinalConfirmed.IsFinal() {
		t.Error("FINAL_CONFIRMED should be final")
	}
	if timesheet.StatusRejected.IsFinal() {
		t.Error("REJECTED should not be final; it allows resubmission")
	}
}

// =============================================================================
// SERVICE - Pricing on write
// =============================================================================

func TestCreateStampsCalculation(t *testing.T) {
	// GIVEN a new one-hour standard tutorial claim
	svc, _ := newService(t)

	// WHEN creating the timesheet
	ts, err := svc.Create(context.Background(), tutorialInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// THEN the engine's figures are stamped on the record
	if ts.Status != timesheet.StatusDraft {
		t.Errorf("status = %s, want DRAFT", ts.Status)
	}
	if ts.RateCode != "TU2" {
		t.Errorf("rate code = %s, want TU2", ts.RateCode)
	}
	if !ts.Amount.Equal(decimal.RequireFromString("175.94")) {
		t.Errorf("amount = %s, want 175.94", ts.Amount)
	}
	if !ts.PayableHours.Equal(decimal.RequireFromString("3")) {
		t.Errorf("payable hours = %s, want 3.0", ts.PayableHours)
	}
	if ts.Formula == "" || ts.ClauseReference == "" {
		t.Error("provenance fields must be stamped")
	}
}

func TestUpdateRepricesTheClaim(t *testing.T) {
	// GIVEN a draft tutorial timesheet
	svc, _ := newService(t)
	ts, err := svc.Create(context.Background(), tutorialInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// WHEN the facts change to a PhD repeat tutorial
	updated, err := svc.Update(context.Background(), ts.ID, timesheet.UpdateInput{
		TaskCategory:  schedule1.TaskTutorial,
		SessionDate:   ts.SessionDate,
		DeliveryHours: decimal.NewFromInt(1),
		Repeat:        true,
		Qualification: schedule1.QualificationPhD,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	// THEN the pay figures are recomputed for the new facts
	if updated.RateCode != "TU3" {
		t.Errorf("rate code = %s, want TU3", updated.RateCode)
	}
	if !updated.PayableHours.Equal(decimal.RequireFromString("2")) {
		t.Errorf("payable hours = %s, want 2.0", updated.PayableHours)
	}
}

func TestUpdateRefusedOutsideEditableStatus(t *testing.T) {
	// GIVEN a timesheet submitted for confirmation
	svc, _ := newService(t)
	ts, err := svc.Create(context.Background(), tutorialInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.PerformAction(context.Background(), ts.ID, timesheet.ActionSubmitForApproval, "tutor-1", ""); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// WHEN editing the submitted timesheet
	_, err = svc.Update(context.Background(), ts.ID, timesheet.UpdateInput{
		TaskCategory:  schedule1.TaskTutorial,
		SessionDate:   ts.SessionDate,
		DeliveryHours: decimal.NewFromInt(2),
	})

	// THEN the edit is refused
	if !errors.Is(err, timesheet.ErrNotEditable) {
		t.Fatalf("error = %v, want ErrNotEditable", err)
	}
}

// =============================================================================
// SERVICE - Workflow actions
// =============================================================================

func TestFullConfirmationFlow(t *testing.T) {
	// GIVEN a draft timesheet
	svc, _ := newService(t)
	ts, err := svc.Create(context.Background(), tutorialInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// WHEN walking the happy path: submit, then three approvals
	steps := []struct {
		action timesheet.ApprovalAction
		actor  string
		want   timesheet.ApprovalStatus
	}{
		{timesheet.ActionSubmitForApproval, "tutor-1", timesheet.StatusPendingTutorConfirmation},
		{timesheet.ActionApprove, "tutor-1", timesheet.StatusTutorConfirmed},
		{timesheet.ActionApprove, "lecturer-1", timesheet.StatusLecturerConfirmed},
		{timesheet.ActionApprove, "hr-1", timesheet.StatusFinalConfirmed},
	}
	for _, step := range steps {
		updated, err := svc.PerformAction(context.Background(), ts.ID, step.action, step.actor, "")
		if err != nil {
			t.Fatalf("%s by %s failed: %v", step.action, step.actor, err)
		}
		if updated.Status != step.want {
			t.Fatalf("%s: status = %s, want %s", step.action, updated.Status, step.want)
		}
	}

	// THEN the history records every step in order
	history, err := svc.History(context.Background(), ts.ID)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != len(steps) {
		t.Fatalf("history length = %d, want %d", len(history), len(steps))
	}
	for i, step := range steps {
		if history[i].Action != step.action || history[i].ToStatus != step.want {
			t.Errorf("step %d = %s -> %s, want %s -> %s",
				i, history[i].Action, history[i].ToStatus, step.action, step.want)
		}
	}
}

func TestRejectionAllowsResubmission(t *testing.T) {
	// GIVEN a submitted timesheet rejected by the lecturer
	svc, _ := newService(t)
	ts, err := svc.Create(context.Background(), tutorialInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	ctx := context.Background()
	if _, err := svc.PerformAction(ctx, ts.ID, timesheet.ActionSubmitForApproval, "tutor-1", ""); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	rejected, err := svc.PerformAction(ctx, ts.ID, timesheet.ActionReject, "lecturer-1", "wrong course")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rejected.Status != timesheet.StatusRejected {
		t.Fatalf("status = %s, want REJECTED", rejected.Status)
	}

	// WHEN the tutor corrects and resubmits
	if _, err := svc.Update(ctx, ts.ID, timesheet.UpdateInput{
		TaskCategory:  schedule1.TaskTutorial,
		SessionDate:   ts.SessionDate,
		DeliveryHours: decimal.NewFromInt(1),
	}); err != nil {
		t.Fatalf("post-rejection edit failed: %v", err)
	}
	resubmitted, err := svc.PerformAction(ctx, ts.ID, timesheet.ActionSubmitForApproval, "tutor-1", "")

	// THEN the workflow re-enters at tutor confirmation
	if err != nil {
		t.Fatalf("resubmit failed: %v", err)
	}
	if resubmitted.Status != timesheet.StatusPendingTutorConfirmation {
		t.Fatalf("status = %s, want PENDING_TUTOR_CONFIRMATION", resubmitted.Status)
	}
}

func TestIllegalActionIsRefused(t *testing.T) {
	// GIVEN a draft timesheet
	svc, _ := newService(t)
	ts, err := svc.Create(context.Background(), tutorialInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// WHEN approving a timesheet that was never submitted
	_, err = svc.PerformAction(context.Background(), ts.ID, timesheet.ActionApprove, "lecturer-1", "")

	// THEN the action is refused with the transition sentinel
	if !errors.Is(err, timesheet.ErrIllegalTransition) {
		t.Fatalf("error = %v, want ErrIllegalTransition", err)
	}
	var illegal *timesheet.IllegalTransitionError
	if !errors.As(err, &illegal) || illegal.Status != timesheet.StatusDraft {
		t.Fatalf("error = %v, want IllegalTransitionError{DRAFT}", err)
	}
}

func TestActionOnUnknownTimesheet(t *testing.T) {
	// GIVEN no timesheets at all
	svc, _ := newService(t)

	// WHEN acting on a random ID
	_, err := svc.PerformAction(context.Background(), uuid.New(), timesheet.ActionApprove, "hr-1", "")

	// THEN the not-found sentinel surfaces
	if !errors.Is(err, timesheet.ErrTimesheetNotFound) {
		t.Fatalf("error = %v, want ErrTimesheetNotFound", err)
	}
}
