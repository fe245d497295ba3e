package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casualpay/schedule1-engine/schedule1"
	"github.com/casualpay/schedule1-engine/store/sqlite"
	"github.com/casualpay/schedule1-engine/timesheet"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func decp(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// =============================================================================
// RATE TABLES
// =============================================================================

func TestRateCodeRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	id, err := store.InsertRateCode(ctx, schedule1.RateCodeRow{
		Code:                   "TU2",
		TaskCategory:           schedule1.TaskTutorial,
		Description:            "Tutorial, standard rate",
		DefaultDeliveryHours:   decimal.NewFromInt(1),
		DefaultAssociatedHours: decimal.RequireFromString("2.0"),
		ClauseReference:        "Schedule 1 Clause 2.1",
	})
	require.NoError(t, err)
	require.Positive(t, id)

	found, err := store.FindRateCode(ctx, "TU2")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, id, found.ID)
	assert.Equal(t, schedule1.TaskTutorial, found.TaskCategory)
	assert.True(t, found.DefaultAssociatedHours.Equal(decimal.RequireFromString("2.0")))

	missing, err := store.FindRateCode(ctx, "ZZ9")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInsertRateCodeIsIdempotentByCode(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	first, err := store.InsertRateCode(ctx, schedule1.RateCodeRow{
		Code:                 "TU2",
		TaskCategory:         schedule1.TaskTutorial,
		DefaultDeliveryHours: decimal.NewFromInt(1),
		Description:          "old description",
	})
	require.NoError(t, err)

	// Re-seeding replaces the definition under the same ID.
	second, err := store.InsertRateCode(ctx, schedule1.RateCodeRow{
		Code:                 "TU2",
		TaskCategory:         schedule1.TaskTutorial,
		DefaultDeliveryHours: decimal.NewFromInt(1),
		Description:          "new description",
	})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	found, err := store.FindRateCode(ctx, "TU2")
	require.NoError(t, err)
	assert.Equal(t, "new description", found.Description)
}

func TestRateAmountsOrderedMostRecentFirst(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	codeID, err := store.InsertRateCode(ctx, schedule1.RateCodeRow{
		Code:                 "TU2",
		TaskCategory:         schedule1.TaskTutorial,
		DefaultDeliveryHours: decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	cutover := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	qual := schedule1.QualificationStandard
	_, err = store.InsertRateAmount(ctx, schedule1.RateAmountRow{
		RateCodeID:      codeID,
		YearLabel:       "2024-25",
		EffectiveFrom:   time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
		EffectiveTo:     &cutover,
		SessionAmount:   decimal.RequireFromString("175.94"),
		MaxPayableHours: decp("3.0"),
		Qualification:   &qual,
	})
	require.NoError(t, err)
	_, err = store.InsertRateAmount(ctx, schedule1.RateAmountRow{
		RateCodeID:    codeID,
		YearLabel:     "2025-26",
		EffectiveFrom: cutover,
		SessionAmount: decimal.RequireFromString("180.00"),
	})
	require.NoError(t, err)

	amounts, err := store.FindActiveAmounts(ctx, codeID, time.Now())
	require.NoError(t, err)
	require.Len(t, amounts, 2)

	// Newest window first; optional fields survive the round trip.
	assert.Equal(t, "2025-26", amounts[0].YearLabel)
	assert.Nil(t, amounts[0].EffectiveTo)
	assert.Equal(t, "2024-25", amounts[1].YearLabel)
	require.NotNil(t, amounts[1].EffectiveTo)
	assert.True(t, amounts[1].EffectiveTo.Equal(cutover))
	require.NotNil(t, amounts[1].MaxPayableHours)
	assert.True(t, amounts[1].MaxPayableHours.Equal(decimal.RequireFromString("3.0")))
	require.NotNil(t, amounts[1].Qualification)
	assert.Equal(t, schedule1.QualificationStandard, *amounts[1].Qualification)
}

func TestSeededRatesResolveThroughProvider(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	codeID, err := store.InsertRateCode(ctx, schedule1.RateCodeRow{
		Code:                   "TU2",
		TaskCategory:           schedule1.TaskTutorial,
		DefaultDeliveryHours:   decimal.NewFromInt(1),
		DefaultAssociatedHours: decimal.RequireFromString("2.0"),
	})
	require.NoError(t, err)
	_, err = store.InsertRateAmount(ctx, schedule1.RateAmountRow{
		RateCodeID:      codeID,
		EffectiveFrom:   time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
		SessionAmount:   decimal.RequireFromString("175.94"),
		MaxPayableHours: decp("3.0"),
	})
	require.NoError(t, err)

	provider := schedule1.NewPolicyProvider(ctx, store, nil)
	policy, err := provider.ResolveTutorialPolicy(
		schedule1.QualificationStandard, false,
		time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "TU2", policy.RateCode)
	assert.True(t, policy.SessionAmount.Equal(decimal.RequireFromString("175.94")))
}

// =============================================================================
// TIMESHEETS
// =============================================================================

func sampleTimesheet() timesheet.Timesheet {
	now := time.Date(2025, time.March, 12, 9, 30, 0, 0, time.UTC)
	return timesheet.Timesheet{
		ID:              uuid.New(),
		TutorID:         "tutor-1",
		CourseID:        "COMP1000",
		TaskCategory:    schedule1.TaskTutorial,
		SessionDate:     time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		DeliveryHours:   decimal.RequireFromString("1.0"),
		Qualification:   schedule1.QualificationStandard,
		RateCode:        "TU2",
		AssociatedHours: decimal.RequireFromString("2.0"),
		PayableHours:    decimal.RequireFromString("3.0"),
		HourlyRate:      decimal.RequireFromString("58.646667"),
		Amount:          decimal.RequireFromString("175.94"),
		Formula:         "1h delivery + 2h associated (EA Schedule 1 Clause 2.1)",
		ClauseReference: "Schedule 1 Clause 2.1",
		Status:          timesheet.StatusDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestTimesheetRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	ts := sampleTimesheet()
	require.NoError(t, store.SaveTimesheet(ctx, ts))

	found, err := store.GetTimesheet(ctx, ts.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, ts.ID, found.ID)
	assert.Equal(t, ts.RateCode, found.RateCode)
	assert.Equal(t, ts.Formula, found.Formula)
	assert.True(t, found.Amount.Equal(ts.Amount))
	assert.True(t, found.HourlyRate.Equal(ts.HourlyRate))
	assert.True(t, found.SessionDate.Equal(ts.SessionDate))
	assert.Equal(t, timesheet.StatusDraft, found.Status)

	missing, err := store.GetTimesheet(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSaveTimesheetUpsertsByID(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	ts := sampleTimesheet()
	require.NoError(t, store.SaveTimesheet(ctx, ts))

	ts.Status = timesheet.StatusPendingTutorConfirmation
	ts.UpdatedAt = ts.UpdatedAt.Add(time.Minute)
	require.NoError(t, store.SaveTimesheet(ctx, ts))

	found, err := store.GetTimesheet(ctx, ts.ID)
	require.NoError(t, err)
	assert.Equal(t, timesheet.StatusPendingTutorConfirmation, found.Status)

	all, err := store.ListTimesheets(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestListTimesheetsFiltersByTutor(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	mine := sampleTimesheet()
	require.NoError(t, store.SaveTimesheet(ctx, mine))

	other := sampleTimesheet()
	other.ID = uuid.New()
	other.TutorID = "tutor-2"
	require.NoError(t, store.SaveTimesheet(ctx, other))

	listed, err := store.ListTimesheets(ctx, "tutor-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "tutor-1", listed[0].TutorID)

	all, err := store.ListTimesheets(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestApprovalHistoryRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	ts := sampleTimesheet()
	require.NoError(t, store.SaveTimesheet(ctx, ts))

	base := time.Date(2025, time.March, 12, 10, 0, 0, 0, time.UTC)
	steps := []timesheet.Approval{
		{
			ID: uuid.New(), TimesheetID: ts.ID,
			Action:     timesheet.ActionSubmitForApproval,
			FromStatus: timesheet.StatusDraft,
			ToStatus:   timesheet.StatusPendingTutorConfirmation,
			ActorID:    "tutor-1",
			CreatedAt:  base,
		},
		{
			ID: uuid.New(), TimesheetID: ts.ID,
			Action:     timesheet.ActionApprove,
			FromStatus: timesheet.StatusPendingTutorConfirmation,
			ToStatus:   timesheet.StatusTutorConfirmed,
			ActorID:    "tutor-1",
			Comment:    "hours confirmed",
			CreatedAt:  base.Add(time.Hour),
		},
	}
	for _, step := range steps {
		require.NoError(t, store.SaveApproval(ctx, step))
	}

	history, err := store.ListApprovals(ctx, ts.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, timesheet.ActionSubmitForApproval, history[0].Action)
	assert.Equal(t, timesheet.ActionApprove, history[1].Action)
	assert.Equal(t, "hours confirmed", history[1].Comment)
}

func TestCountRateCodes(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	count, err := store.CountRateCodes(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = store.InsertRateCode(ctx, schedule1.RateCodeRow{
		Code:                 "TU2",
		TaskCategory:         schedule1.TaskTutorial,
		DefaultDeliveryHours: decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	count, err = store.CountRateCodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
