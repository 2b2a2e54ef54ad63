package pricing

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"pricing-table-api/internal/models"
)

// openEndedThreshold marks a tier upper bound that is effectively "no limit"
// even when no maximum order quantity is configured.
const openEndedThreshold = 1_000_000

// PriceFormatter renders money amounts and grouped integers for table cells.
type PriceFormatter interface {
	Price(amount float64) string
	GroupInt(n int64) string
}

// Labels holds the nouns used in quantity labels.
type Labels struct {
	CartonSingular string
	CartonPlural   string
	UnitSingular   string
	UnitPlural     string
}

// DefaultLabels returns the stock English labels.
func DefaultLabels() Labels {
	return Labels{
		CartonSingular: "carton",
		CartonPlural:   "cartons",
		UnitSingular:   "unit",
		UnitPlural:     "units",
	}
}

// TableBuilder computes pricing table rows from a rule set's tiers. It holds
// no per-request state and is safe for concurrent use.
type TableBuilder struct {
	Format PriceFormatter
	Labels Labels

	// Logf receives diagnostics for tiers that had to be skipped. May be nil.
	Logf func(format string, args ...any)
}

// PieceFactor resolves the cartons-to-units conversion factor from a product
// attribute. Absent, non-numeric or non-positive values default to 1; the
// stored value is truncated to an integer.
func PieceFactor(product *models.Product, attributeKey string) int {
	if product == nil {
		return 1
	}
	raw, ok := product.Attributes[attributeKey]
	if !ok {
		return 1
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 1
	}
	factor := int(value)
	if factor < 1 {
		return 1
	}
	return factor
}

// BuildRows computes one row per tier, in storage order. Tiers with a missing
// amount or an unknown discount kind are skipped with a diagnostic; the
// remaining tiers still render. maxOrder is the external order-quantity cap,
// 0 meaning unbounded.
func (b *TableBuilder) BuildRows(basePrice float64, pieceFactor, maxOrder int, tiers []models.Tier) []models.TierRow {
	if pieceFactor < 1 {
		pieceFactor = 1
	}

	rows := make([]models.TierRow, 0, len(tiers))
	for i, tier := range tiers {
		if tier.Amount == nil {
			b.logf("skipping tier %d: missing amount", i)
			continue
		}

		discount, unitPrice, ok := b.tierPricing(tier.Type, *tier.Amount, basePrice, pieceFactor)
		if !ok {
			b.logf("skipping tier %d: unknown discount kind %q", i, tier.Type)
			continue
		}

		cartonLabel, unitLabel := b.quantityLabels(tier.From, tier.To, pieceFactor, maxOrder)

		rows = append(rows, models.TierRow{
			From:        tier.From,
			To:          tier.To,
			Type:        tier.Type,
			Amount:      *tier.Amount,
			CartonLabel: cartonLabel,
			UnitLabel:   unitLabel,
			Discount:    discount,
			UnitPrice:   unitPrice,
		})
	}

	return rows
}

// tierPricing computes the discount cell and the per-unit price cell for one
// tier. The discount percentage rounds half away from zero; derived
// percentages collapse to 0 when the base price is not positive.
func (b *TableBuilder) tierPricing(tierType string, amount, basePrice float64, pieceFactor int) (string, string, bool) {
	factor := float64(pieceFactor)

	switch tierType {
	case models.TierPercentageDiscount:
		discounted := basePrice - (basePrice*amount)/100
		return formatNumber(amount) + "%", b.Format.Price(discounted / factor), true

	case models.TierFixedPrice:
		pct := 0
		if basePrice > 0 {
			pct = roundPercent((basePrice - amount) / basePrice * 100)
		}
		return strconv.Itoa(pct) + "%", b.Format.Price(amount / factor), true

	case models.TierPriceDiscount:
		pct := 0
		if basePrice > 0 {
			pct = roundPercent(amount / basePrice * 100)
		}
		return strconv.Itoa(pct) + "%", b.Format.Price((basePrice - amount) / factor), true
	}

	return "", "", false
}

// quantityLabels formats the carton-count and unit-count labels for one tier.
// Three shapes: a single quantity, an open-ended "and above" tier (upper bound
// reaches the order cap or is absurdly large), or a bounded range.
func (b *TableBuilder) quantityLabels(from float64, to *float64, pieceFactor, maxOrder int) (string, string) {
	fromUnits := int64(math.Round(from * float64(pieceFactor)))

	switch {
	case to == nil || *to == from:
		carton := fmt.Sprintf("%s %s", formatNumber(from), b.pluralCarton(from))
		unit := fmt.Sprintf("%s %s", b.Format.GroupInt(fromUnits), b.pluralUnit(fromUnits))
		return carton, unit

	case (maxOrder > 0 && *to >= float64(maxOrder)) || *to > openEndedThreshold:
		carton := fmt.Sprintf("From %s+", formatNumber(from))
		unit := fmt.Sprintf("from %s+ %s", b.Format.GroupInt(fromUnits), b.Labels.UnitPlural)
		return carton, unit

	default:
		toUnits := int64(math.Round(*to * float64(pieceFactor)))
		carton := fmt.Sprintf("From %s to %s", formatNumber(from), formatNumber(*to))
		unit := fmt.Sprintf("from %s to %s %s", b.Format.GroupInt(fromUnits), b.Format.GroupInt(toUnits), b.Labels.UnitPlural)
		return carton, unit
	}
}

func (b *TableBuilder) pluralCarton(count float64) string {
	if count == 1 {
		return b.Labels.CartonSingular
	}
	return b.Labels.CartonPlural
}

func (b *TableBuilder) pluralUnit(count int64) string {
	if count == 1 {
		return b.Labels.UnitSingular
	}
	return b.Labels.UnitPlural
}

func (b *TableBuilder) logf(format string, args ...any) {
	if b.Logf != nil {
		b.Logf(format, args...)
	}
}

// roundPercent rounds half away from zero to the nearest whole percent.
func roundPercent(pct float64) int {
	return int(math.Round(pct))
}

// formatNumber renders a tier bound or amount without trailing zeros.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
