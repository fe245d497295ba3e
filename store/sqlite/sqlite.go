/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  One store for both persistence concerns: the governed rate tables the
  engine reads (schedule1.RateStore) and the timesheet records the
  workflow writes (timesheet.Store). In production the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  schedule1.RateStore: rate_codes / rate_amounts reads
  timesheet.Store:     timesheets / approvals persistence
  factory.RateSeeder:  rate catalogue seeding

KEY TABLES:
  rate_codes:   EA rate-code definitions (TU2, P03, M05, ...)
  rate_amounts: Date-windowed session amounts per code, per year
  timesheets:   Priced work-session claims with stamped calculations
  approvals:    Append-only workflow history

NUMERIC STORAGE:
  Money and hours are stored as TEXT and parsed with shopspring/decimal,
  never as REAL. Binary floats cannot represent the agreement's figures.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

USAGE:
  store, err := sqlite.New("./data/schedule1.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  provider := schedule1.NewPolicyProvider(ctx, store, logger)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - schedule1/store.go: RateStore interface definition
  - timesheet/service.go: Store interface definition
  - schedule1/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/casualpay/schedule1-engine/schedule1"
	"github.com/casualpay/schedule1-engine/timesheet"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Rate codes (governed EA Schedule 1 definitions)
	CREATE TABLE IF NOT EXISTS rate_codes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		task_category TEXT NOT NULL,
		description TEXT,
		default_delivery_hours TEXT NOT NULL DEFAULT '1',
		default_associated_hours TEXT NOT NULL DEFAULT '0',
		requires_phd BOOLEAN DEFAULT FALSE,
		repeatable BOOLEAN DEFAULT FALSE,
		clause_reference TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_rate_codes_category
		ON rate_codes(task_category);

	-- Rate amounts (date-windowed session figures per code)
	CREATE TABLE IF NOT EXISTS rate_amounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rate_code_id INTEGER NOT NULL REFERENCES rate_codes(id),
		year_label TEXT,
		effective_from TEXT NOT NULL,
		effective_to TEXT,
		session_amount TEXT NOT NULL,
		max_associated_hours TEXT,
		max_payable_hours TEXT,
		qualification TEXT,
		notes TEXT
	);

	-- Hot path: per-code resolution ordered by window start
	CREATE INDEX IF NOT EXISTS idx_rate_amounts_code_from
		ON rate_amounts(rate_code_id, effective_from DESC);

	-- Timesheets (priced work-session claims)
	CREATE TABLE IF NOT EXISTS timesheets (
		id TEXT PRIMARY KEY,
		tutor_id TEXT NOT NULL,
		course_id TEXT NOT NULL,
		task_category TEXT NOT NULL,
		session_date TEXT NOT NULL,
		delivery_hours TEXT NOT NULL,
		repeat BOOLEAN DEFAULT FALSE,
		qualification TEXT NOT NULL,
		description TEXT,
		rate_code TEXT NOT NULL,
		associated_hours TEXT NOT NULL,
		payable_hours TEXT NOT NULL,
		hourly_rate TEXT NOT NULL,
		amount TEXT NOT NULL,
		formula TEXT,
		clause_reference TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_timesheets_tutor
		ON timesheets(tutor_id, session_date DESC);
	CREATE INDEX IF NOT EXISTS idx_timesheets_status
		ON timesheets(status);

	-- Approvals (append-only workflow history)
	CREATE TABLE IF NOT EXISTS approvals (
		id TEXT PRIMARY KEY,
		timesheet_id TEXT NOT NULL REFERENCES timesheets(id),
		action TEXT NOT NULL,
		from_status TEXT NOT NULL,
		to_status TEXT NOT NULL,
		actor_id TEXT,
		comment TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_approvals_timesheet
		ON approvals(timesheet_id, created_at ASC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RATE STORE (schedule1.RateStore interface)
// =============================================================================

const rateCodeColumns = `id, code, task_category, description,
	default_delivery_hours, default_associated_hours,
	requires_phd, repeatable, clause_reference`

// FindRateCode returns the rate-code definition, or (nil, nil) when the
// code is not configured.
func (s *Store) FindRateCode(ctx context.Context, code string) (*schedule1.RateCodeRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+rateCodeColumns+" FROM rate_codes WHERE code = ?", code)

	rc, err := scanRateCode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rc, nil
}

// FindRateCodesByCategory returns every rate code for a task category.
func (s *Store) FindRateCodesByCategory(ctx context.Context, category schedule1.TaskCategory) ([]schedule1.RateCodeRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+rateCodeColumns+" FROM rate_codes WHERE task_category = ? ORDER BY code",
		string(category))
	if err != nil {
		return nil, fmt.Errorf("failed to query rate codes: %w", err)
	}
	defer rows.Close()

	var codes []schedule1.RateCodeRow
	for rows.Next() {
		rc, err := scanRateCode(rows)
		if err != nil {
			return nil, err
		}
		codes = append(codes, rc)
	}
	return codes, rows.Err()
}

// FindActiveAmounts returns the amount rows for a rate code, most
// recently started first. All rows come back; effectivity selection is
// the provider's job so out-of-window rows stay available as fallbacks.
func (s *Store) FindActiveAmounts(ctx context.Context, rateCodeID int64, _ time.Time) ([]schedule1.RateAmountRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rate_code_id, year_label, effective_from, effective_to,
		       session_amount, max_associated_hours, max_payable_hours,
		       qualification, notes
		FROM rate_amounts
		WHERE rate_code_id = ?
		ORDER BY effective_from DESC
	`, rateCodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rate amounts: %w", err)
	}
	defer rows.Close()

	var amounts []schedule1.RateAmountRow
	for rows.Next() {
		amount, err := scanRateAmount(rows)
		if err != nil {
			return nil, err
		}
		amounts = append(amounts, amount)
	}
	return amounts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRateCode(row rowScanner) (schedule1.RateCodeRow, error) {
	var (
		rc          schedule1.RateCodeRow
		category    string
		description sql.NullString
		delivery    string
		associated  string
		clause      sql.NullString
	)
	err := row.Scan(&rc.ID, &rc.Code, &category, &description,
		&delivery, &associated, &rc.RequiresPhD, &rc.Repeatable, &clause)
	if err != nil {
		return rc, err
	}

	rc.TaskCategory = schedule1.TaskCategory(category)
	rc.Description = description.String
	rc.ClauseReference = clause.String
	if rc.DefaultDeliveryHours, err = decimal.NewFromString(delivery); err != nil {
		return rc, fmt.Errorf("rate code %s: delivery hours %q: %w", rc.Code, delivery, err)
	}
	if rc.DefaultAssociatedHours, err = decimal.NewFromString(associated); err != nil {
		return rc, fmt.Errorf("rate code %s: associated hours %q: %w", rc.Code, associated, err)
	}
	return rc, nil
}

func scanRateAmount(row rowScanner) (schedule1.RateAmountRow, error) {
	var (
		amount        schedule1.RateAmountRow
		yearLabel     sql.NullString
		effectiveFrom string
		effectiveTo   sql.NullString
		session       string
		maxAssociated sql.NullString
		maxPayable    sql.NullString
		qualification sql.NullString
		notes         sql.NullString
	)
	err := row.Scan(&amount.ID, &amount.RateCodeID, &yearLabel,
		&effectiveFrom, &effectiveTo, &session,
		&maxAssociated, &maxPayable, &qualification, &notes)
	if err != nil {
		return amount, err
	}

	amount.YearLabel = yearLabel.String
	amount.Notes = notes.String
	if amount.EffectiveFrom, err = time.Parse(time.RFC3339, effectiveFrom); err != nil {
		return amount, fmt.Errorf("rate amount %d: effective_from %q: %w", amount.ID, effectiveFrom, err)
	}
	if effectiveTo.Valid {
		t, err := time.Parse(time.RFC3339, effectiveTo.String)
		if err != nil {
			return amount, fmt.Errorf("rate amount %d: effective_to %q: %w", amount.ID, effectiveTo.String, err)
		}
		amount.EffectiveTo = &t
	}
	if amount.SessionAmount, err = decimal.NewFromString(session); err != nil {
		return amount, fmt.Errorf("rate amount %d: session amount %q: %w", amount.ID, session, err)
	}
	if maxAssociated.Valid {
		d, err := decimal.NewFromString(maxAssociated.String)
		if err != nil {
			return amount, fmt.Errorf("rate amount %d: max associated %q: %w", amount.ID, maxAssociated.String, err)
		}
		amount.MaxAssociatedHours = &d
	}
	if maxPayable.Valid {
		d, err := decimal.NewFromString(maxPayable.String)
		if err != nil {
			return amount, fmt.Errorf("rate amount %d: max payable %q: %w", amount.ID, maxPayable.String, err)
		}
		amount.MaxPayableHours = &d
	}
	if qualification.Valid && qualification.String != "" {
		q := schedule1.Qualification(qualification.String)
		amount.Qualification = &q
	}
	return amount, nil
}

// =============================================================================
// RATE SEEDING (factory.RateSeeder interface)
// =============================================================================

// InsertRateCode stores a rate-code definition and returns its ID.
// Re-seeding an existing code replaces the definition in place.
func (s *Store) InsertRateCode(ctx context.Context, code schedule1.RateCodeRow) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO rate_codes
		(code, task_category, description, default_delivery_hours,
		 default_associated_hours, requires_phd, repeatable, clause_reference)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			task_category = excluded.task_category,
			description = excluded.description,
			default_delivery_hours = excluded.default_delivery_hours,
			default_associated_hours = excluded.default_associated_hours,
			requires_phd = excluded.requires_phd,
			repeatable = excluded.repeatable,
			clause_reference = excluded.clause_reference
	`
	if _, err := s.db.ExecContext(ctx, query,
		code.Code, string(code.TaskCategory), code.Description,
		code.DefaultDeliveryHours.String(), code.DefaultAssociatedHours.String(),
		code.RequiresPhD, code.Repeatable, code.ClauseReference,
	); err != nil {
		return 0, fmt.Errorf("failed to insert rate code: %w", err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx,
		"SELECT id FROM rate_codes WHERE code = ?", code.Code).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to read back rate code id: %w", err)
	}
	return id, nil
}

// InsertRateAmount stores one amount row under its rate code.
func (s *Store) InsertRateAmount(ctx context.Context, amount schedule1.RateAmountRow) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var effectiveTo *string
	if amount.EffectiveTo != nil {
		t := amount.EffectiveTo.UTC().Format(time.RFC3339)
		effectiveTo = &t
	}
	var maxAssociated, maxPayable, qualification *string
	if amount.MaxAssociatedHours != nil {
		v := amount.MaxAssociatedHours.String()
		maxAssociated = &v
	}
	if amount.MaxPayableHours != nil {
		v := amount.MaxPayableHours.String()
		maxPayable = &v
	}
	if amount.Qualification != nil {
		v := string(*amount.Qualification)
		qualification = &v
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO rate_amounts
		(rate_code_id, year_label, effective_from, effective_to, session_amount,
		 max_associated_hours, max_payable_hours, qualification, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		amount.RateCodeID, amount.YearLabel,
		amount.EffectiveFrom.UTC().Format(time.RFC3339), effectiveTo,
		amount.SessionAmount.String(),
		maxAssociated, maxPayable, qualification, amount.Notes,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert rate amount: %w", err)
	}
	return result.LastInsertId()
}

// =============================================================================
// TIMESHEET STORE (timesheet.Store interface)
// =============================================================================

const timesheetColumns = `id, tutor_id, course_id, task_category, session_date,
	delivery_hours, repeat, qualification, description,
	rate_code, associated_hours, payable_hours, hourly_rate, amount,
	formula, clause_reference, status, created_at, updated_at`

// SaveTimesheet inserts or fully replaces the record by ID.
func (s *Store) SaveTimesheet(ctx context.Context, ts timesheet.Timesheet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO timesheets (` + timesheetColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tutor_id = excluded.tutor_id,
			course_id = excluded.course_id,
			task_category = excluded.task_category,
			session_date = excluded.session_date,
			delivery_hours = excluded.delivery_hours,
			repeat = excluded.repeat,
			qualification = excluded.qualification,
			description = excluded.description,
			rate_code = excluded.rate_code,
			associated_hours = excluded.associated_hours,
			payable_hours = excluded.payable_hours,
			hourly_rate = excluded.hourly_rate,
			amount = excluded.amount,
			formula = excluded.formula,
			clause_reference = excluded.clause_reference,
			status = excluded.status,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		ts.ID.String(), ts.TutorID, ts.CourseID,
		string(ts.TaskCategory), ts.SessionDate.UTC().Format(time.RFC3339),
		ts.DeliveryHours.String(), ts.Repeat, string(ts.Qualification), ts.Description,
		ts.RateCode, ts.AssociatedHours.String(), ts.PayableHours.String(),
		ts.HourlyRate.String(), ts.Amount.String(),
		ts.Formula, ts.ClauseReference, string(ts.Status),
		ts.CreatedAt.UTC().Format(time.RFC3339), ts.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save timesheet: %w", err)
	}
	return nil
}

// GetTimesheet returns the record, or (nil, nil) when absent.
func (s *Store) GetTimesheet(ctx context.Context, id uuid.UUID) (*timesheet.Timesheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+timesheetColumns+" FROM timesheets WHERE id = ?", id.String())

	ts, err := scanTimesheet(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

// ListTimesheets returns records filtered by tutor; an empty tutorID
// lists everything. Ordered newest session first.
func (s *Store) ListTimesheets(ctx context.Context, tutorID string) ([]timesheet.Timesheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + timesheetColumns + " FROM timesheets"
	var args []any
	if tutorID != "" {
		query += " WHERE tutor_id = ?"
		args = append(args, tutorID)
	}
	query += " ORDER BY session_date DESC, created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query timesheets: %w", err)
	}
	defer rows.Close()

	var timesheets []timesheet.Timesheet
	for rows.Next() {
		ts, err := scanTimesheet(rows)
		if err != nil {
			return nil, err
		}
		timesheets = append(timesheets, ts)
	}
	return timesheets, rows.Err()
}

// SaveApproval appends one workflow step. Append-only.
func (s *Store) SaveApproval(ctx context.Context, a timesheet.Approval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO approvals
		(id, timesheet_id, action, from_status, to_status, actor_id, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID.String(), a.TimesheetID.String(), string(a.Action),
		string(a.FromStatus), string(a.ToStatus),
		a.ActorID, a.Comment, a.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save approval: %w", err)
	}
	return nil
}

// ListApprovals returns a timesheet's workflow history, oldest first.
func (s *Store) ListApprovals(ctx context.Context, timesheetID uuid.UUID) ([]timesheet.Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timesheet_id, action, from_status, to_status, actor_id, comment, created_at
		FROM approvals
		WHERE timesheet_id = ?
		ORDER BY created_at ASC
	`, timesheetID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query approvals: %w", err)
	}
	defer rows.Close()

	var approvals []timesheet.Approval
	for rows.Next() {
		var (
			a                         timesheet.Approval
			id, tsID                  string
			action, from, to          string
			actor, comment, createdAt sql.NullString
		)
		if err := rows.Scan(&id, &tsID, &action, &from, &to, &actor, &comment, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}
		if a.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("approval id %q: %w", id, err)
		}
		if a.TimesheetID, err = uuid.Parse(tsID); err != nil {
			return nil, fmt.Errorf("approval timesheet id %q: %w", tsID, err)
		}
		a.Action = timesheet.ApprovalAction(action)
		a.FromStatus = timesheet.ApprovalStatus(from)
		a.ToStatus = timesheet.ApprovalStatus(to)
		a.ActorID = actor.String
		a.Comment = comment.String
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt.String)
		approvals = append(approvals, a)
	}
	return approvals, rows.Err()
}

func scanTimesheet(row rowScanner) (timesheet.Timesheet, error) {
	var (
		ts                      timesheet.Timesheet
		id                      string
		category, qualification string
		sessionDate             string
		delivery, associated    string
		payable, rate, amount   string
		description             sql.NullString
		formula, clause         sql.NullString
		status                  string
		createdAt, updatedAt    string
	)
	err := row.Scan(&id, &ts.TutorID, &ts.CourseID, &category, &sessionDate,
		&delivery, &ts.Repeat, &qualification, &description,
		&ts.RateCode, &associated, &payable, &rate, &amount,
		&formula, &clause, &status, &createdAt, &updatedAt)
	if err != nil {
		return ts, err
	}

	if ts.ID, err = uuid.Parse(id); err != nil {
		return ts, fmt.Errorf("timesheet id %q: %w", id, err)
	}
	ts.TaskCategory = schedule1.TaskCategory(category)
	ts.Qualification = schedule1.Qualification(qualification)
	ts.Description = description.String
	ts.Formula = formula.String
	ts.ClauseReference = clause.String
	ts.Status = timesheet.ApprovalStatus(status)

	if ts.SessionDate, err = time.Parse(time.RFC3339, sessionDate); err != nil {
		return ts, fmt.Errorf("timesheet %s: session date %q: %w", id, sessionDate, err)
	}
	ts.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	ts.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	for _, field := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&ts.DeliveryHours, delivery},
		{&ts.AssociatedHours, associated},
		{&ts.PayableHours, payable},
		{&ts.HourlyRate, rate},
		{&ts.Amount, amount},
	} {
		d, err := decimal.NewFromString(field.src)
		if err != nil {
			return ts, fmt.Errorf("timesheet %s: decimal %q: %w", id, field.src, err)
		}
		*field.dst = d
	}
	return ts, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"approvals", "timesheets", "rate_amounts", "rate_codes"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// CountRateCodes reports how many rate codes are seeded. Used at startup
// to decide whether seeding is needed.
func (s *Store) CountRateCodes(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rate_codes").Scan(&count)
	return count, err
}
