package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"pricing-table-api/internal/models"
)

var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

const dateLayout = "2006-01-02"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ValidateProduct checks the fields the pricing table depends on.
func ValidateProduct(product models.Product) error {
	if product.ID <= 0 {
		return &ValidationError{
			Field:   "id",
			Message: "must be a positive integer",
		}
	}

	if strings.TrimSpace(product.Name) == "" {
		return &ValidationError{
			Field:   "name",
			Message: "is required",
		}
	}

	if product.RegularPrice < 0 {
		return &ValidationError{
			Field:   "regular_price",
			Message: "must be non-negative",
		}
	}

	return nil
}

// ValidateRuleSet checks what can be checked at write time. Tier discount
// kinds and amounts are deliberately left loose: the renderer skips tiers it
// cannot price, so legacy records with unknown kinds stay storable.
func ValidateRuleSet(rs models.RuleSet) error {
	if rs.ID != "" {
		if err := ValidateUUID(rs.ID, "id"); err != nil {
			return err
		}
	}

	if rs.Mode == "" {
		return &ValidationError{
			Field:   "mode",
			Message: "is required",
		}
	}

	if err := validateDate(rs.DateFrom, "date_from"); err != nil {
		return err
	}
	if err := validateDate(rs.DateTo, "date_to"); err != nil {
		return err
	}

	if rs.DateFrom != "" && rs.DateTo != "" && rs.DateTo < rs.DateFrom {
		return &ValidationError{
			Field:   "date_to",
			Message: "must not be before date_from",
		}
	}

	switch rs.ConditionsType {
	case "", models.ConditionsAll, models.ConditionsAny:
	default:
		return &ValidationError{
			Field:   "conditions_type",
			Message: "must be 'all' or 'any'",
		}
	}

	for i, cond := range rs.Conditions {
		if cond.Type == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("conditions[%d].type", i),
				Message: "is required",
			}
		}
	}

	for i, tier := range rs.Tiers {
		if tier.From < 0 {
			return &ValidationError{
				Field:   fmt.Sprintf("tiers[%d].from", i),
				Message: "must be non-negative",
			}
		}
		if tier.To != nil && *tier.To < tier.From {
			return &ValidationError{
				Field:   fmt.Sprintf("tiers[%d].to", i),
				Message: "must not be below from",
			}
		}
		if tier.Amount != nil && *tier.Amount < 0 {
			return &ValidationError{
				Field:   fmt.Sprintf("tiers[%d].amount", i),
				Message: "must be non-negative",
			}
		}
	}

	return nil
}

func validateDate(value, fieldName string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse(dateLayout, value); err != nil {
		return &ValidationError{
			Field:   fieldName,
			Message: "must be a calendar date in YYYY-MM-DD format",
		}
	}
	return nil
}

// SanitizeString strips control characters and surrounding whitespace.
func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

// ValidateUUID checks a lowercase UUID v4.
func ValidateUUID(id, fieldName string) error {
	if id == "" {
		return &ValidationError{
			Field:   fieldName,
			Message: "is required",
		}
	}

	id = SanitizeString(id)

	if !uuidRegex.MatchString(strings.ToLower(id)) {
		return &ValidationError{
			Field:   fieldName,
			Message: "must be a valid UUID v4",
		}
	}

	return nil
}

// ValidateTimeString parses an RFC3339 timestamp.
func ValidateTimeString(timeStr string) (time.Time, error) {
	if timeStr == "" {
		return time.Time{}, &ValidationError{
			Field:   "time",
			Message: "is required",
		}
	}

	t, err := time.Parse(time.RFC3339, timeStr)
	if err != nil {
		return time.Time{}, &ValidationError{
			Field:   "time",
			Message: "must be a valid RFC3339 timestamp",
		}
	}

	return t, nil
}
