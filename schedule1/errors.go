/*
errors.go - Centralized error types for the Schedule 1 engine

PURPOSE:
  All engine error types in one place. Callers branch with errors.Is()
  against the sentinels; the structured types carry the lookup context
  for diagnostics.

ERROR CATEGORIES:
  1. Policy resolution - no rate policy exists for the requested combination
  2. Request validation - a required field is missing from the request

Both categories abort the single calculation that raised them. Neither is
transient: retrying the identical request yields the identical error.
*/
package schedule1

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPolicyNotFound is returned when no rate policy could be resolved
	// for the requested combination after exhausting every fallback
	// strategy. Deterministic: not retried internally.
	ErrPolicyNotFound = errors.New("rate policy not found")

	// ErrInvalidRequest is returned when a required calculation field
	// (task category, session date, delivery hours) is absent. Raised
	// before any policy resolution is attempted.
	ErrInvalidRequest = errors.New("invalid calculation request")
)

// =============================================================================
// STRUCTURED ERRORS - Carry lookup context
// =============================================================================

// PolicyNotFoundError reports which lookup exhausted its fallbacks.
type PolicyNotFoundError struct {
	Category      TaskCategory
	RateCode      string
	Qualification Qualification
	Repeat        bool
}

func (e *PolicyNotFoundError) Error() string {
	if e.RateCode != "" {
		return fmt.Sprintf("no Schedule 1 policy found for rate code %s", e.RateCode)
	}
	return fmt.Sprintf("no %s policy configured (qualification=%s, repeat=%t)",
		e.Category, e.Qualification, e.Repeat)
}

func (e *PolicyNotFoundError) Unwrap() error { return ErrPolicyNotFound }

// InvalidRequestError names the missing required field.
type InvalidRequestError struct {
	Field string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid calculation request: %s is required", e.Field)
}

func (e *InvalidRequestError) Unwrap() error { return ErrInvalidRequest }
