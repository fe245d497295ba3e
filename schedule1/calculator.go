/*
calculator.go - EA-compliant payable hours and amount computation

PURPOSE:
  The single entry point callers use: feed it a CalculationRequest, get
  back a CalculationResult or an error. The calculator normalizes the
  inputs, dispatches on the task category to pick the rate code and
  resolution path, asks the PolicyProvider for the applicable policy,
  and applies the agreement's caps and rounding.

CATEGORY DISPATCH:
  The rate-code table is a closed mapping over the TaskCategory sum
  type; the switch below is exhaustive so a new category cannot slip
  through without a resolution rule.

    TUTORIAL  repeat ? (high band ? TU3 : TU4) : (high band ? TU1 : TU2)
    LECTURE   repeat ? P04 : developed ? P02 : P03
    ORAA      high band ? AO1_DE1 : AO2_DE2   (displayed as AO1/AO2)
    DEMO      high band ? DE1 : DE2
    MARKING   high band ? M04 : M05
    OTHER     same codes as ORAA (miscellaneous academic activity)

  High-band resolutions use PHD as the canonical policy qualification
  unless the requester is specifically a COORDINATOR.

FAILURE SEMANTICS:
  An unresolved policy surfaces as ErrPolicyNotFound and aborts the
  calculation; there is no default amount. Missing required fields fail
  with ErrInvalidRequest before any provider call. Everything else is
  normalized silently: negative hours clamp to zero, absent
  qualification means STANDARD.
*/
package schedule1

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator computes EA Schedule 1 outcomes. Stateless per call; safe
// for concurrent use once constructed.
type Calculator struct {
	provider *PolicyProvider
}

// NewCalculator wires a calculator to a policy provider. A nil provider
// gets a catalogue-only provider so the calculator always operates.
func NewCalculator(provider *PolicyProvider) *Calculator {
	if provider == nil {
		provider = NewPolicyProvider(context.Background(), nil, nil)
	}
	return &Calculator{provider: provider}
}

// Provider exposes the underlying policy provider, e.g. for direct rate
// lookups in read-only API surfaces.
func (c *Calculator) Provider() *PolicyProvider { return c.provider }

// Calculate resolves the applicable rate policy for the request and
// computes the payable outcome under it.
func (c *Calculator) Calculate(ctx context.Context, req CalculationRequest) (CalculationResult, error) {
	if err := req.validate(); err != nil {
		return CalculationResult{}, err
	}

	policy, err := c.resolvePolicy(ctx, req)
	if err != nil {
		return CalculationResult{}, err
	}

	delivery := normalizeHours(req.DeliveryHours)
	associated := policy.DetermineAssociatedHours(delivery)

	payable := delivery.Add(associated)
	if policy.PayableHoursCap.Sign() > 0 {
		payable = decimal.Min(payable, policy.PayableHoursCap)
	}
	payable = payable.Round(1)

	amount := policy.HourlyRate.Mul(payable).Round(2)

	clause := policy.ClauseReference
	if clause == "" {
		clause = "Schedule 1"
	}
	formula := fmt.Sprintf("%s delivery + %s associated (EA %s)",
		formatHours(delivery), formatHours(associated), clause)

	return CalculationResult{
		SessionDate:     req.SessionDate,
		RateCode:        displayRateCode(req.TaskCategory, policy.RateCode),
		Qualification:   policy.Qualification,
		Repeat:          policy.Repeat,
		DeliveryHours:   delivery,
		AssociatedHours: associated,
		PayableHours:    payable,
		HourlyRate:      policy.HourlyRate,
		Amount:          amount,
		Formula:         formula,
		ClauseReference: policy.ClauseReference,
	}, nil
}

// =============================================================================
// POLICY RESOLUTION - Exhaustive category dispatch
// =============================================================================

func (c *Calculator) resolvePolicy(ctx context.Context, req CalculationRequest) (RatePolicy, error) {
	qualification := req.Qualification.Normalize()
	highBand := qualification.IsHighBand()
	sessionDate := req.SessionDate

	switch req.TaskCategory {
	case TaskTutorial:
		rateCode := tutorialRateCode(highBand, req.Repeat)
		policyQual := QualificationStandard
		if highBand {
			policyQual = highBandPolicyQualification(qualification)
		}
		fallbackQual := policyQual
		if highBand && qualification == QualificationCoordinator {
			fallbackQual = QualificationPhD
		}

		policy, err := c.provider.ResolvePolicyByRateCode(ctx, rateCode, &policyQual, sessionDate)
		if err == nil {
			return policy, nil
		}
		if !errors.Is(err, ErrPolicyNotFound) {
			return RatePolicy{}, err
		}
		policy, err = c.provider.ResolveTutorialPolicy(policyQual, req.Repeat, sessionDate)
		if err == nil {
			return policy, nil
		}
		if errors.Is(err, ErrPolicyNotFound) && policyQual != fallbackQual {
			return c.provider.ResolveTutorialPolicy(fallbackQual, req.Repeat, sessionDate)
		}
		return RatePolicy{}, err

	case TaskLecture:
		delivery := normalizeHours(req.DeliveryHours)
		var rateCode string
		switch {
		case req.Repeat:
			rateCode = "P04"
		case isDevelopedLecture(delivery, qualification):
			rateCode = "P02"
		default:
			rateCode = "P03"
		}
		// Lecturing rates are not qualification-scoped in the table.
		return c.provider.ResolvePolicyByRateCode(ctx, rateCode, nil, sessionDate)

	case TaskORAA, TaskOther:
		// OTHER is priced as miscellaneous academic activity under the
		// ORAA codes.
		rateCode := "AO2_DE2"
		if highBand {
			rateCode = "AO1_DE1"
		}
		policyQual := bandPolicyQualification(highBand, qualification)
		return c.provider.ResolvePolicyByRateCode(ctx, rateCode, &policyQual, sessionDate)

	case TaskDemo:
		rateCode := "DE2"
		if highBand {
			rateCode = "DE1"
		}
		policyQual := bandPolicyQualification(highBand, qualification)
		return c.provider.ResolvePolicyByRateCode(ctx, rateCode, &policyQual, sessionDate)

	case TaskMarking:
		rateCode := "M05"
		if highBand {
			rateCode = "M04"
		}
		policyQual := bandPolicyQualification(highBand, qualification)
		return c.provider.ResolvePolicyByRateCode(ctx, rateCode, &policyQual, sessionDate)

	default:
		return RatePolicy{}, &InvalidRequestError{Field: "taskCategory"}
	}
}

func tutorialRateCode(highBand, repeat bool) string {
	if repeat {
		if highBand {
			return "TU3"
		}
		return "TU4"
	}
	if highBand {
		return "TU1"
	}
	return "TU2"
}

// isDevelopedLecture reports whether the session attracts the developed
// lecture rate: more than one delivery hour, or a coordinator presenting.
func isDevelopedLecture(delivery decimal.Decimal, qualification Qualification) bool {
	if delivery.GreaterThan(decimal.NewFromInt(1)) {
		return true
	}
	return qualification == QualificationCoordinator
}

// highBandPolicyQualification picks the canonical qualification used to
// filter policy rows for a high-band requester: COORDINATOR stays
// COORDINATOR, everything else high-band resolves as PHD.
func highBandPolicyQualification(qualification Qualification) Qualification {
	if qualification == QualificationCoordinator {
		return QualificationCoordinator
	}
	return QualificationPhD
}

func bandPolicyQualification(highBand bool, qualification Qualification) Qualification {
	if highBand {
		return highBandPolicyQualification(qualification)
	}
	return QualificationStandard
}

// displayRateCode strips the shared DEMO storage suffix from the ORAA
// codes for display. The suffix exists so ORAA and demonstration rows can
// share rate storage; it is not part of the public code. OTHER reuses the
// same internal codes but keeps them verbatim.
func displayRateCode(category TaskCategory, rawRateCode string) string {
	if category == TaskORAA {
		switch rawRateCode {
		case "AO1_DE1":
			return "AO1"
		case "AO2_DE2":
			return "AO2"
		}
	}
	return rawRateCode
}

// =============================================================================
// NUMERIC NORMALIZATION
// =============================================================================

// normalizeHours clamps negative hours to zero and expresses the value
// to one decimal place, half-up.
func normalizeHours(hours *decimal.Decimal) decimal.Decimal {
	if hours == nil {
		return decimal.Zero
	}
	return decimal.Max(*hours, decimal.Zero).Round(1)
}

// formatHours renders an hour figure for the formula string with
// trailing zeros stripped: 3.0 -> "3h", 2.5 -> "2.5h".
func formatHours(hours decimal.Decimal) string {
	s := hours.StringFixed(1)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s + "h"
}
