/*
catalogue.go - Embedded default Schedule 1 catalogue

PURPOSE:
  A frozen, hand-authored copy of the EA Schedule 1 rates used whenever
  the governed rate table is unavailable or holds no tutorial rows. This
  is a correctness safety net, not a cache: the provider swaps in the
  whole catalogue at construction time, or not at all, so governed data
  is never silently shadowed for individual keys.

COVERAGE:
  Tutorials at both bands and both repeat variants (TU1-TU4), lecturing
  (P02-P04), ORAA and demonstrations at both bands (AO1_DE1/AO2_DE2,
  DE1/DE2), and marking (M04/M05). The OTHER category is served through
  the ORAA codes and needs no entries of its own.

  All snapshots are effective from 1 July 2024, open-ended. Amounts are
  the 2024-25 Schedule 1 session figures in AUD.
*/
package schedule1

import (
	"time"

	"github.com/shopspring/decimal"
)

// catalogueEffectiveFrom is the effective start of the embedded rates.
var catalogueEffectiveFrom = time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

// defaultCatalogue builds the embedded snapshot index.
func defaultCatalogue() map[policyKey][]rateSnapshot {
	index := make(map[policyKey][]rateSnapshot)

	// Tutorials
	addCatalogueSnapshot(index, TaskTutorial, QualificationStandard, false,
		"TU2", "1", "2.0", "3.0", "175.94", "Schedule 1 Clause 2.1")
	addCatalogueSnapshot(index, TaskTutorial, QualificationStandard, true,
		"TU4", "1", "1", "2.0", "117.29", "Schedule 1 Clause 2.2")
	addCatalogueSnapshot(index, TaskTutorial, QualificationPhD, false,
		"TU1", "1", "2.0", "3.0", "210.19", "Schedule 1 Clause 2.1")
	addCatalogueSnapshot(index, TaskTutorial, QualificationPhD, true,
		"TU3", "1", "1", "2.0", "140.14", "Schedule 1 Clause 2.2")

	// Lectures
	addCatalogueSnapshot(index, TaskLecture, QualificationStandard, false,
		"P03", "1", "2.0", "3.0", "245.08", "Schedule 1 – Lecturing")
	addCatalogueSnapshot(index, TaskLecture, QualificationCoordinator, false,
		"P02", "1", "3.0", "4.0", "326.78", "Schedule 1 – Lecturing")
	addCatalogueSnapshot(index, TaskLecture, QualificationStandard, true,
		"P04", "1", "1", "2.0", "163.41", "Schedule 1 – Lecturing")

	// Other required academic activity
	addCatalogueSnapshot(index, TaskORAA, QualificationPhD, false,
		"AO1_DE1", "1", "0", "1", "69.72", "Schedule 1 Clause 3.1(a)")
	addCatalogueSnapshot(index, TaskORAA, QualificationStandard, false,
		"AO2_DE2", "1", "0", "1", "58.32", "Schedule 1 Clause 3.1(a)")

	// Demonstrations
	addCatalogueSnapshot(index, TaskDemo, QualificationPhD, false,
		"DE1", "1", "0", "1", "69.72", "Schedule 1 Clause 3.1(a)")
	addCatalogueSnapshot(index, TaskDemo, QualificationStandard, false,
		"DE2", "1", "0", "1", "58.32", "Schedule 1 Clause 3.1(a)")

	// Marking
	addCatalogueSnapshot(index, TaskMarking, QualificationPhD, false,
		"M04", "1", "0", "1", "69.72", "Schedule 1 – Marking")
	addCatalogueSnapshot(index, TaskMarking, QualificationStandard, false,
		"M05", "1", "0", "1", "58.32", "Schedule 1 – Marking")

	sortSnapshotIndex(index)
	return index
}

// addCatalogueSnapshot appends one hand-authored snapshot. Figures are
// given as strings so the catalogue reads like the agreement's tables.
func addCatalogueSnapshot(index map[policyKey][]rateSnapshot,
	category TaskCategory, qualification Qualification, repeat bool,
	rateCode, deliveryHours, associatedCap, payableCap, sessionAmount, clause string) {

	delivery := decimal.RequireFromString(deliveryHours)
	associated := decimal.RequireFromString(associatedCap)
	payable := decimal.RequireFromString(payableCap)
	session := decimal.RequireFromString(sessionAmount)

	hourlyRate := session
	if payable.Sign() > 0 {
		hourlyRate = session.DivRound(payable, 6)
	}

	key := policyKey{category: category, qualification: qualification, repeat: repeat}
	index[key] = append(index[key], rateSnapshot{
		key:                key,
		rateCode:           rateCode,
		deliveryHours:      delivery,
		associatedHoursCap: associated,
		payableHoursCap:    payable,
		sessionAmount:      session,
		hourlyRate:         hourlyRate,
		clauseReference:    clause,
		effectiveFrom:      catalogueEffectiveFrom,
		effectiveTo:        nil,
	})
}
