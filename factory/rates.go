/*
Package factory converts YAML rate-catalogue definitions into governed
rate-table rows.

PURPOSE:
  HR maintains the EA Schedule 1 rates as YAML files under change
  control. The factory parses and validates those files and produces the
  RateCodeRow / RateAmountRow seeds that a RateSeeder (the SQLite store,
  or the in-memory store in tests) loads at startup. Rates change per
  agreement year without a code change.

YAML SCHEMA:
  rates:
    - code: TU2
      category: TUTORIAL
      description: Tutorial, standard rate
      clause: Schedule 1 Clause 2.1
      delivery_hours: "1"
      associated_hours: "2.0"
      repeatable: false
      amounts:
        - year: "2024-25"
          effective_from: 2024-07-01
          effective_to: 2025-07-01   # optional, exclusive
          session_amount: "175.94"
          max_associated_hours: "2.0"  # optional, overrides code default
          max_payable_hours: "3.0"     # optional
          qualification: STANDARD      # optional, default STANDARD

  Money and hour figures are YAML strings so they parse losslessly into
  decimals; a bare float would round-trip through binary floating point.

VALIDATION:
  Unknown categories or qualifications, malformed dates, non-positive
  session amounts, and codes without amounts are all errors. A catalogue
  that parses is safe to seed.
*/
package factory

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/casualpay/schedule1-engine/schedule1"
)

// =============================================================================
// YAML SCHEMA TYPES
// =============================================================================

// CatalogueYAML is the root of a rate-catalogue file.
type CatalogueYAML struct {
	Rates []RateYAML `yaml:"rates"`
}

// RateYAML is one rate-code definition with its year-specific amounts.
type RateYAML struct {
	Code            string       `yaml:"code"`
	Category        string       `yaml:"category"`
	Description     string       `yaml:"description,omitempty"`
	Clause          string       `yaml:"clause,omitempty"`
	DeliveryHours   string       `yaml:"delivery_hours,omitempty"`
	AssociatedHours string       `yaml:"associated_hours,omitempty"`
	RequiresPhD     bool         `yaml:"requires_phd,omitempty"`
	Repeatable      bool         `yaml:"repeatable,omitempty"`
	Amounts         []AmountYAML `yaml:"amounts"`
}

// AmountYAML is one date-windowed amount row.
type AmountYAML struct {
	Year               string `yaml:"year,omitempty"`
	EffectiveFrom      string `yaml:"effective_from"`
	EffectiveTo        string `yaml:"effective_to,omitempty"`
	SessionAmount      string `yaml:"session_amount"`
	MaxAssociatedHours string `yaml:"max_associated_hours,omitempty"`
	MaxPayableHours    string `yaml:"max_payable_hours,omitempty"`
	Qualification      string `yaml:"qualification,omitempty"`
	Notes              string `yaml:"notes,omitempty"`
}

// =============================================================================
// PARSED CATALOGUE
// =============================================================================

// RateSeed pairs a rate-code row with its amount rows, ready to insert.
type RateSeed struct {
	Code    schedule1.RateCodeRow
	Amounts []schedule1.RateAmountRow
}

// RateCatalogue is a validated set of rate seeds.
type RateCatalogue struct {
	Seeds []RateSeed
}

// RateSeeder receives seeds. Implemented by store/sqlite and by the
// in-memory rate store.
type RateSeeder interface {
	InsertRateCode(ctx context.Context, code schedule1.RateCodeRow) (int64, error)
	InsertRateAmount(ctx context.Context, amount schedule1.RateAmountRow) (int64, error)
}

// Seed inserts every rate code and its amounts, wiring the store-assigned
// code IDs into the amount rows.
func (c *RateCatalogue) Seed(ctx context.Context, seeder RateSeeder) error {
	for _, seed := range c.Seeds {
		id, err := seeder.InsertRateCode(ctx, seed.Code)
		if err != nil {
			return fmt.Errorf("seed rate code %s: %w", seed.Code.Code, err)
		}
		for _, amount := range seed.Amounts {
			amount.RateCodeID = id
			if _, err := seeder.InsertRateAmount(ctx, amount); err != nil {
				return fmt.Errorf("seed amount for %s: %w", seed.Code.Code, err)
			}
		}
	}
	return nil
}

// =============================================================================
// PARSING
// =============================================================================

// LoadCatalogue reads and parses a catalogue file.
func LoadCatalogue(path string) (*RateCatalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rate catalogue: %w", err)
	}
	return ParseCatalogue(data)
}

// ParseCatalogue parses and validates YAML catalogue bytes.
func ParseCatalogue(data []byte) (*RateCatalogue, error) {
	var doc CatalogueYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rate catalogue: %w", err)
	}
	if len(doc.Rates) == 0 {
		return nil, fmt.Errorf("rate catalogue defines no rates")
	}

	catalogue := &RateCatalogue{}
	for _, rate := range doc.Rates {
		seed, err := parseRate(rate)
		if err != nil {
			return nil, err
		}
		catalogue.Seeds = append(catalogue.Seeds, seed)
	}
	return catalogue, nil
}

func parseRate(rate RateYAML) (RateSeed, error) {
	if rate.Code == "" {
		return RateSeed{}, fmt.Errorf("rate entry missing code")
	}
	category, ok := schedule1.ParseTaskCategory(rate.Category)
	if !ok {
		return RateSeed{}, fmt.Errorf("rate %s: unknown category %q", rate.Code, rate.Category)
	}
	if len(rate.Amounts) == 0 {
		return RateSeed{}, fmt.Errorf("rate %s: no amounts defined", rate.Code)
	}

	delivery, err := parseDecimal(rate.DeliveryHours, "1")
	if err != nil {
		return RateSeed{}, fmt.Errorf("rate %s: delivery_hours: %w", rate.Code, err)
	}
	associated, err := parseDecimal(rate.AssociatedHours, "0")
	if err != nil {
		return RateSeed{}, fmt.Errorf("rate %s: associated_hours: %w", rate.Code, err)
	}

	seed := RateSeed{
		Code: schedule1.RateCodeRow{
			Code:                   rate.Code,
			TaskCategory:           category,
			Description:            rate.Description,
			DefaultDeliveryHours:   delivery,
			DefaultAssociatedHours: associated,
			RequiresPhD:            rate.RequiresPhD,
			Repeatable:             rate.Repeatable,
			ClauseReference:        rate.Clause,
		},
	}

	for i, amount := range rate.Amounts {
		row, err := parseAmount(amount)
		if err != nil {
			return RateSeed{}, fmt.Errorf("rate %s: amount %d: %w", rate.Code, i, err)
		}
		seed.Amounts = append(seed.Amounts, row)
	}
	return seed, nil
}

func parseAmount(amount AmountYAML) (schedule1.RateAmountRow, error) {
	from, err := parseDate(amount.EffectiveFrom)
	if err != nil {
		return schedule1.RateAmountRow{}, fmt.Errorf("effective_from: %w", err)
	}

	var to *time.Time
	if amount.EffectiveTo != "" {
		t, err := parseDate(amount.EffectiveTo)
		if err != nil {
			return schedule1.RateAmountRow{}, fmt.Errorf("effective_to: %w", err)
		}
		if !t.After(from) {
			return schedule1.RateAmountRow{}, fmt.Errorf("effective_to %s is not after effective_from %s",
				amount.EffectiveTo, amount.EffectiveFrom)
		}
		to = &t
	}

	session, err := decimal.NewFromString(amount.SessionAmount)
	if err != nil {
		return schedule1.RateAmountRow{}, fmt.Errorf("session_amount %q: %w", amount.SessionAmount, err)
	}
	if session.Sign() <= 0 {
		return schedule1.RateAmountRow{}, fmt.Errorf("session_amount %s must be positive", amount.SessionAmount)
	}

	row := schedule1.RateAmountRow{
		YearLabel:     amount.Year,
		EffectiveFrom: from,
		EffectiveTo:   to,
		SessionAmount: session,
		Notes:         amount.Notes,
	}

	if amount.MaxAssociatedHours != "" {
		d, err := decimal.NewFromString(amount.MaxAssociatedHours)
		if err != nil {
			return schedule1.RateAmountRow{}, fmt.Errorf("max_associated_hours %q: %w", amount.MaxAssociatedHours, err)
		}
		row.MaxAssociatedHours = &d
	}
	if amount.MaxPayableHours != "" {
		d, err := decimal.NewFromString(amount.MaxPayableHours)
		if err != nil {
			return schedule1.RateAmountRow{}, fmt.Errorf("max_payable_hours %q: %w", amount.MaxPayableHours, err)
		}
		row.MaxPayableHours = &d
	}
	if amount.Qualification != "" {
		qual, ok := schedule1.ParseQualification(amount.Qualification)
		if !ok {
			return schedule1.RateAmountRow{}, fmt.Errorf("unknown qualification %q", amount.Qualification)
		}
		row.Qualification = &qual
	}
	return row, nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseDecimal(s, fallback string) (decimal.Decimal, error) {
	if s == "" {
		s = fallback
	}
	return decimal.NewFromString(s)
}

// parseDate accepts the catalogue's YYYY-MM-DD date form, in UTC.
func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: want YYYY-MM-DD", s)
	}
	return t.UTC(), nil
}
