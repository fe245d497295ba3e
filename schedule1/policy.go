/*
policy.go - Rate policies and their date-bounded snapshots

PURPOSE:
  A RatePolicy is the resolved, per-request view of an EA rule: the rate
  code, the hour caps, the session amount, and the hourly rate derived
  from them. A rateSnapshot is the provider-internal, time-bounded
  version of the same data, keyed by (category, qualification, repeat)
  and carrying an effectivity window.

INVARIANTS:
  - The payable-hours cap is always positive. A stored non-positive cap
    is repaired to (associated cap + delivery baseline), and to 1 if
    that is still non-positive.
  - The hourly rate is session amount / payable cap, rounded to six
    decimal places half-up, fixed at load time.
  - Snapshots are never mutated after the index is built.
*/
package schedule1

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RATE POLICY - Resolved rule handed to the calculator
// =============================================================================

// RatePolicy is the single applicable EA rule for one work session.
// Provider-owned, immutable; one instance is produced per resolution.
type RatePolicy struct {
	TaskCategory       TaskCategory
	Qualification      Qualification
	Repeat             bool
	RateCode           string
	DeliveryHours      decimal.Decimal // nominal delivery baseline
	AssociatedHoursCap decimal.Decimal
	PayableHoursCap    decimal.Decimal
	SessionAmount      decimal.Decimal // AUD for a full session at the caps
	HourlyRate         decimal.Decimal // SessionAmount / PayableHoursCap, 6 dp
	ClauseReference    string
	ResolvedForDate    time.Time
}

// DetermineAssociatedHours returns the associated-hours entitlement for
// the requested delivery portion. The entitlement is the EA cap, clamped
// so that delivery + associated can never exceed the payable cap, floored
// at zero, and expressed to one decimal place.
func (p RatePolicy) DetermineAssociatedHours(deliveryRequested decimal.Decimal) decimal.Decimal {
	entitlement := p.AssociatedHoursCap
	if p.PayableHoursCap.Sign() > 0 {
		headroom := p.PayableHoursCap.Sub(deliveryRequested)
		entitlement = decimal.Min(entitlement, decimal.Max(headroom, decimal.Zero))
	}
	return decimal.Max(entitlement, decimal.Zero).Round(1)
}

// =============================================================================
// POLICY KEY + SNAPSHOT - Internal index entries
// =============================================================================

// policyKey scopes snapshot lookup by task category, qualification tier
// and repeat status.
type policyKey struct {
	category      TaskCategory
	qualification Qualification
	repeat        bool
}

// rateSnapshot is a date-bounded version of a rate policy as loaded from
// the governed table or the embedded catalogue.
type rateSnapshot struct {
	key                policyKey
	rateCode           string
	deliveryHours      decimal.Decimal
	associatedHoursCap decimal.Decimal
	payableHoursCap    decimal.Decimal
	sessionAmount      decimal.Decimal
	hourlyRate         decimal.Decimal
	clauseReference    string
	effectiveFrom      time.Time
	effectiveTo        *time.Time // exclusive; nil = open-ended
}

// effectiveOn reports whether the snapshot's window covers the date.
func (s rateSnapshot) effectiveOn(at time.Time) bool {
	starts := !at.Before(s.effectiveFrom)
	ends := s.effectiveTo == nil || at.Before(*s.effectiveTo)
	return starts && ends
}

// toPolicy stamps the snapshot into a RatePolicy for the target date.
func (s rateSnapshot) toPolicy(targetDate time.Time) RatePolicy {
	return RatePolicy{
		TaskCategory:       s.key.category,
		Qualification:      s.key.qualification,
		Repeat:             s.key.repeat,
		RateCode:           s.rateCode,
		DeliveryHours:      s.deliveryHours,
		AssociatedHoursCap: s.associatedHoursCap,
		PayableHoursCap:    s.payableHoursCap,
		SessionAmount:      s.sessionAmount,
		HourlyRate:         s.hourlyRate,
		ClauseReference:    s.clauseReference,
		ResolvedForDate:    targetDate,
	}
}

// snapshotFromRows merges a rate-code definition with one of its amount
// rows. Per-row caps win over code defaults; a missing payable cap is
// derived, and a non-positive one repaired, per the invariants above.
func snapshotFromRows(code RateCodeRow, amount RateAmountRow) rateSnapshot {
	qualification := QualificationStandard
	if amount.Qualification != nil {
		qualification = amount.Qualification.Normalize()
	}

	// An unset delivery baseline means one nominal hour of delivery.
	delivery := code.DefaultDeliveryHours
	if delivery.Sign() <= 0 {
		delivery = decimal.NewFromInt(1)
	}

	associatedCap := code.DefaultAssociatedHours
	if amount.MaxAssociatedHours != nil {
		associatedCap = *amount.MaxAssociatedHours
	}

	payableCap := associatedCap.Add(delivery)
	if amount.MaxPayableHours != nil {
		payableCap = *amount.MaxPayableHours
	}
	if payableCap.Sign() <= 0 {
		payableCap = associatedCap.Add(delivery)
	}
	if payableCap.Sign() <= 0 {
		payableCap = decimal.NewFromInt(1)
	}

	return rateSnapshot{
		key:                policyKey{category: code.TaskCategory, qualification: qualification, repeat: code.Repeatable},
		rateCode:           code.Code,
		deliveryHours:      delivery,
		associatedHoursCap: associatedCap,
		payableHoursCap:    payableCap,
		sessionAmount:      amount.SessionAmount,
		hourlyRate:         amount.SessionAmount.DivRound(payableCap, 6),
		clauseReference:    code.ClauseReference,
		effectiveFrom:      amount.EffectiveFrom,
		effectiveTo:        amount.EffectiveTo,
	}
}
