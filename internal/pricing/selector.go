package pricing

import (
	"time"

	"pricing-table-api/internal/models"
)

// dateLayout is the calendar-day format rule-set windows are stored in.
const dateLayout = "2006-01-02"

// Selector picks the rule set that applies to a render request. It is
// stateless; the caller supplies the stored rule sets, the viewer and the
// current time on every call.
type Selector struct {
	conditions *Registry
	location   *time.Location
}

// NewSelector creates a selector evaluating date windows in the given
// location. A nil location falls back to time.Local.
func NewSelector(conditions *Registry, location *time.Location) *Selector {
	if location == nil {
		location = time.Local
	}
	return &Selector{conditions: conditions, location: location}
}

// SelectActive returns the first rule set, in storage order, that is not
// category-scoped and whose date window and audience conditions hold.
// Returns nil when no rule set is active. Simultaneously active rule sets
// are not merged; later ones are ignored.
func (s *Selector) SelectActive(ruleSets []models.RuleSet, viewer Viewer, now time.Time) *models.RuleSet {
	for i := range ruleSets {
		rs := &ruleSets[i]
		if rs.ScopeType == models.ScopeCategory {
			continue
		}
		if !s.DateWindowHolds(rs, now) {
			continue
		}
		if !s.ConditionsHold(rs, viewer) {
			continue
		}
		return rs
	}
	return nil
}

// DateWindowHolds reports whether now falls inside the rule set's validity
// window. Both bounds are normalized to midnight of their calendar day in the
// site location and compared inclusively against the full timestamp, so a
// to-date stops matching immediately after midnight of that day. An
// unparseable date behaves like an absent bound.
func (s *Selector) DateWindowHolds(rs *models.RuleSet, now time.Time) bool {
	from, hasFrom := s.parseDay(rs.DateFrom)
	to, hasTo := s.parseDay(rs.DateTo)

	if hasFrom && now.Before(from) {
		return false
	}
	if hasTo && now.After(to) {
		return false
	}
	return true
}

// ConditionsHold evaluates the rule set's conditions against the viewer.
// Zero conditions always hold; conditions_type "any" needs one true
// condition, anything else requires all of them.
func (s *Selector) ConditionsHold(rs *models.RuleSet, viewer Viewer) bool {
	if len(rs.Conditions) == 0 {
		return true
	}

	met := 0
	for _, cond := range rs.Conditions {
		if s.conditions.Evaluate(cond, viewer) {
			met++
		}
	}

	if rs.ConditionsType == models.ConditionsAny {
		return met > 0
	}
	return met == len(rs.Conditions)
}

func (s *Selector) parseDay(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	day, err := time.ParseInLocation(dateLayout, value, s.location)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}
