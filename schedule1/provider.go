/*
provider.go - Rate policy resolution with layered fallback

PURPOSE:
  Resolves the single applicable RatePolicy for a lookup. The provider
  prefers the governed, date-versioned rate table and transparently
  falls back to the embedded catalogue so the calculator keeps working
  while seed data is being prepared.

TWO LOOKUP PATHS:
  ResolveTutorialPolicy  - shape-first lookup by (qualification, repeat).
    Only tutorials need it: they have four codes crossing qualification
    and repeat. A miss on the exact key broadens to any snapshot sharing
    (TUTORIAL, repeat).
  ResolvePolicyByRateCode - the general mechanism. Every other category
    routes to a single code chosen by the calculator, so the code itself
    already encodes category and repeat status.

FALLBACK ORDER (rate-code path):
  The candidate filters are an ordered strategy list, evaluated in
  sequence until one matches:
    1. exact qualification, effective on the date
    2. cross-tier qualification (COORDINATOR<->PHD), effective
    3. any qualification, effective
    4. first known snapshot for the code
  Only an empty snapshot set fails; time-window and qualification misses
  degrade to the nearest definition.

CONCURRENCY:
  The snapshot index is built once in the constructor and read-only
  thereafter. Resolutions share no mutable state and need no locking.
*/
package schedule1

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
)

// RepeatEligibilityWindowDays is the EA Schedule 1 window within which a
// delivery may be claimed as a repeat of previously prepared material.
// Validation of repeat claims happens upstream; the constant lives here
// because the agreement defines it alongside the rates.
const RepeatEligibilityWindowDays = 7

// =============================================================================
// POLICY PROVIDER
// =============================================================================

// PolicyProvider resolves EA Schedule 1 rate policies. Construct once and
// share: the provider is safe for concurrent use.
type PolicyProvider struct {
	store RateStore // nil is valid: catalogue-only operation
	log   *zap.Logger
	now   func() time.Time
	index map[policyKey][]rateSnapshot
}

// NewPolicyProvider builds a provider over the given rate store. The
// snapshot index is loaded eagerly; if the store is nil, errors, or holds
// no tutorial rate codes, the embedded catalogue takes its place.
// A nil logger disables logging.
func NewPolicyProvider(ctx context.Context, store RateStore, logger *zap.Logger) *PolicyProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &PolicyProvider{
		store: store,
		log:   logger,
		now:   time.Now,
	}
	p.index = p.buildSnapshotIndex(ctx)
	return p
}

// buildSnapshotIndex loads tutorial rate codes from the governed table,
// grouping snapshots by (category, qualification, repeat). Zero rows, or
// any store failure, swaps in the full default catalogue.
func (p *PolicyProvider) buildSnapshotIndex(ctx context.Context) map[policyKey][]rateSnapshot {
	index := make(map[policyKey][]rateSnapshot)

	if p.store != nil {
		codes, err := p.store.FindRateCodesByCategory(ctx, TaskTutorial)
		if err != nil {
			p.log.Warn("rate table read failed; continuing with built-in catalogue", zap.Error(err))
		}
		for _, code := range codes {
			for _, snap := range p.loadSnapshots(ctx, code) {
				index[snap.key] = append(index[snap.key], snap)
			}
		}
	}

	if len(index) == 0 {
		p.log.Warn("falling back to built-in EA tutorial catalogue; seed the rate tables for full coverage")
		return defaultCatalogue()
	}

	sortSnapshotIndex(index)
	return index
}

// loadSnapshots expands one rate-code definition into snapshots, one per
// active amount row. Read failures yield an empty slice, never an error:
// store trouble is a fallback condition.
func (p *PolicyProvider) loadSnapshots(ctx context.Context, code RateCodeRow) []rateSnapshot {
	amounts, err := p.store.FindActiveAmounts(ctx, code.ID, p.now())
	if err != nil {
		p.log.Warn("rate amounts read failed",
			zap.String("rate_code", code.Code), zap.Error(err))
		return nil
	}
	snapshots := make([]rateSnapshot, 0, len(amounts))
	for _, amount := range amounts {
		snapshots = append(snapshots, snapshotFromRows(code, amount))
	}
	return snapshots
}

// =============================================================================
// TUTORIAL SHAPE LOOKUP
// =============================================================================

// ResolveTutorialPolicy returns the EA rule applicable to a tutorial
// session given the tutor's qualification, repeat status and session
// date. A miss on the exact key broadens to any tutorial snapshot with
// the same repeat status; only a fully empty candidate set fails.
func (p *PolicyProvider) ResolveTutorialPolicy(qualification Qualification, repeat bool, targetDate time.Time) (RatePolicy, error) {
	if targetDate.IsZero() {
		targetDate = p.now()
	}
	qualification = qualification.Normalize()

	key := policyKey{category: TaskTutorial, qualification: qualification, repeat: repeat}
	snapshots := append([]rateSnapshot(nil), p.index[key]...)
	if len(snapshots) == 0 {
		for candidate, list := range p.index {
			if candidate.category == TaskTutorial && candidate.repeat == repeat {
				snapshots = append(snapshots, list...)
			}
		}
		// Map iteration order is not stable; impose one so identical
		// requests always resolve to the identical snapshot.
		sort.SliceStable(snapshots, func(i, j int) bool {
			if !snapshots[i].effectiveFrom.Equal(snapshots[j].effectiveFrom) {
				return snapshots[i].effectiveFrom.After(snapshots[j].effectiveFrom)
			}
			return snapshots[i].rateCode < snapshots[j].rateCode
		})
	}

	if len(snapshots) == 0 {
		return RatePolicy{}, &PolicyNotFoundError{
			Category:      TaskTutorial,
			Qualification: qualification,
			Repeat:        repeat,
		}
	}

	return selectEffective(snapshots, targetDate).toPolicy(targetDate), nil
}

// =============================================================================
// RATE CODE LOOKUP
// =============================================================================

// ResolvePolicyByRateCode resolves a policy for the supplied rate code
// and optional qualification. Pass a nil qualification to accept any
// tier (lecturing rates are qualification-free, for example).
func (p *PolicyProvider) ResolvePolicyByRateCode(ctx context.Context, rateCode string, qualification *Qualification, targetDate time.Time) (RatePolicy, error) {
	if targetDate.IsZero() {
		targetDate = p.now()
	}

	snapshots := p.snapshotsForRateCode(ctx, rateCode)
	if len(snapshots) == 0 {
		return RatePolicy{}, &PolicyNotFoundError{RateCode: rateCode}
	}

	// Ordered fallback strategies: first non-empty match wins.
	strategies := []func() []rateSnapshot{
		func() []rateSnapshot {
			return filterSnapshots(snapshots, func(s rateSnapshot) bool {
				matchesQual := qualification == nil || s.key.qualification == *qualification
				return matchesQual && s.effectiveOn(targetDate)
			})
		},
		func() []rateSnapshot {
			crossTier := crossTierQualification(qualification)
			if crossTier == nil {
				return nil
			}
			return filterSnapshots(snapshots, func(s rateSnapshot) bool {
				return s.key.qualification == *crossTier && s.effectiveOn(targetDate)
			})
		},
		func() []rateSnapshot {
			return filterSnapshots(snapshots, func(s rateSnapshot) bool {
				return s.effectiveOn(targetDate)
			})
		},
		func() []rateSnapshot {
			return snapshots[:1]
		},
	}

	for _, resolve := range strategies {
		if matches := resolve(); len(matches) > 0 {
			return matches[0].toPolicy(targetDate), nil
		}
	}

	// Unreachable: the last strategy always yields a snapshot.
	return RatePolicy{}, &PolicyNotFoundError{RateCode: rateCode}
}

// snapshotsForRateCode gathers candidates for a code: governed table
// first, then the in-memory index filtered by code.
func (p *PolicyProvider) snapshotsForRateCode(ctx context.Context, rateCode string) []rateSnapshot {
	var snapshots []rateSnapshot
	if p.store != nil {
		code, err := p.store.FindRateCode(ctx, rateCode)
		switch {
		case err != nil:
			p.log.Warn("rate code read failed",
				zap.String("rate_code", rateCode), zap.Error(err))
		case code != nil:
			snapshots = p.loadSnapshots(ctx, *code)
		}
	}
	if len(snapshots) == 0 {
		for _, list := range p.index {
			for _, snap := range list {
				if snap.rateCode == rateCode {
					snapshots = append(snapshots, snap)
				}
			}
		}
		sort.SliceStable(snapshots, func(i, j int) bool {
			if !snapshots[i].effectiveFrom.Equal(snapshots[j].effectiveFrom) {
				return snapshots[i].effectiveFrom.After(snapshots[j].effectiveFrom)
			}
			return snapshots[i].key.qualification < snapshots[j].key.qualification
		})
	}
	return snapshots
}

// =============================================================================
// HELPERS
// =============================================================================

// crossTierQualification returns the opposite high-band tier, if any.
// The EA treats COORDINATOR and PHD rows as interchangeable when one of
// them is missing from the table; STANDARD never crosses.
func crossTierQualification(q *Qualification) *Qualification {
	if q == nil {
		return nil
	}
	switch *q {
	case QualificationCoordinator:
		phd := QualificationPhD
		return &phd
	case QualificationPhD:
		coordinator := QualificationCoordinator
		return &coordinator
	default:
		return nil
	}
}

func filterSnapshots(snapshots []rateSnapshot, keep func(rateSnapshot) bool) []rateSnapshot {
	var out []rateSnapshot
	for _, s := range snapshots {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// selectEffective picks the first snapshot effective on the date,
// degrading to the first snapshot when no window covers it. Lists are
// sorted most-recently-started first, so "first effective" is also the
// newest applicable version.
func selectEffective(snapshots []rateSnapshot, targetDate time.Time) rateSnapshot {
	for _, s := range snapshots {
		if s.effectiveOn(targetDate) {
			return s
		}
	}
	return snapshots[0]
}

// sortSnapshotIndex orders every list most-recently-started first.
func sortSnapshotIndex(index map[policyKey][]rateSnapshot) {
	for _, list := range index {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].effectiveFrom.After(list[j].effectiveFrom)
		})
	}
}
