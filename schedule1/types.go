/*
Package schedule1 implements the EA Schedule 1 pay calculation engine for
casual academic work.

PURPOSE:
  Given the facts of a work session (task category, date, delivery hours,
  repeat flag, qualification tier), resolve the applicable Enterprise
  Agreement rate policy and compute the payable hours and dollar amount,
  with full provenance (rate code, formula string, clause reference) so
  that every figure on a timesheet can be audited back to the agreement.

KEY CONCEPTS IN THIS FILE (types.go):
  - TaskCategory: The kind of academic work being paid (tutorial, lecture...)
  - Qualification: Seniority tier driving the high/low pay band split

DESIGN PRINCIPLES:
  1. Precision: All hours and money use decimal.Decimal, never float64
  2. Immutability: Policies and results are values, never mutated
  3. Determinism: Same request in, same result out - no hidden state
  4. Graceful degradation: A missing governed rate table falls back to
     the embedded Schedule 1 catalogue, never to a zero amount

SEE ALSO:
  - provider.go: Rate policy resolution with layered fallback
  - calculator.go: Payable hours and amount computation
  - catalogue.go: Embedded default Schedule 1 catalogue
*/
package schedule1

import "strings"

// =============================================================================
// TASK CATEGORY - Closed enumeration of payable academic activities
// =============================================================================

// TaskCategory identifies the kind of academic work session. Each category
// maps to a family of EA Schedule 1 rate codes and selects how the policy
// provider is queried.
type TaskCategory string

const (
	TaskTutorial TaskCategory = "TUTORIAL"
	TaskLecture  TaskCategory = "LECTURE"
	TaskORAA     TaskCategory = "ORAA" // other required academic activity
	TaskDemo     TaskCategory = "DEMO"
	TaskMarking  TaskCategory = "MARKING"
	TaskOther    TaskCategory = "OTHER"
)

// TaskCategories lists every known category, in display order.
func TaskCategories() []TaskCategory {
	return []TaskCategory{TaskTutorial, TaskLecture, TaskORAA, TaskDemo, TaskMarking, TaskOther}
}

// ParseTaskCategory converts a string (case-insensitive) into a TaskCategory.
// Returns false for anything outside the closed set.
func ParseTaskCategory(s string) (TaskCategory, bool) {
	switch TaskCategory(strings.ToUpper(strings.TrimSpace(s))) {
	case TaskTutorial:
		return TaskTutorial, true
	case TaskLecture:
		return TaskLecture, true
	case TaskORAA:
		return TaskORAA, true
	case TaskDemo:
		return TaskDemo, true
	case TaskMarking:
		return TaskMarking, true
	case TaskOther:
		return TaskOther, true
	default:
		return "", false
	}
}

// =============================================================================
// QUALIFICATION - Tutor seniority tier
// =============================================================================

// Qualification is the casual staff member's seniority classification.
// PHD and COORDINATOR are paid at the higher band; STANDARD at the lower.
type Qualification string

const (
	QualificationStandard    Qualification = "STANDARD"
	QualificationPhD         Qualification = "PHD"
	QualificationCoordinator Qualification = "COORDINATOR"
)

// Normalize returns the qualification itself, or STANDARD when absent.
// An absent qualification is never an error; the agreement's base band applies.
func (q Qualification) Normalize() Qualification {
	if q == "" {
		return QualificationStandard
	}
	return q
}

// IsHighBand reports whether the qualification attracts the higher
// Schedule 1 rate variant.
func (q Qualification) IsHighBand() bool {
	n := q.Normalize()
	return n == QualificationPhD || n == QualificationCoordinator
}

// ParseQualification converts a string (case-insensitive) into a
// Qualification. Empty input maps to STANDARD.
func ParseQualification(s string) (Qualification, bool) {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	if trimmed == "" {
		return QualificationStandard, true
	}
	switch Qualification(trimmed) {
	case QualificationStandard:
		return QualificationStandard, true
	case QualificationPhD:
		return QualificationPhD, true
	case QualificationCoordinator:
		return QualificationCoordinator, true
	default:
		return "", false
	}
}
