package pricing

import (
	"pricing-table-api/internal/models"
)

// Audience targets understood by the built-in apply_to condition.
const (
	AppliesToEveryone        = "everyone"
	AppliesToUnauthenticated = "unauthenticated"
	AppliesToAuthenticated   = "authenticated"
	AppliesToRoles           = "roles"
)

// Evaluator decides whether a single condition holds for a viewer.
type Evaluator func(cond models.Condition, viewer Viewer) bool

// Registry maps condition types to evaluators. Conditions with an
// unregistered type evaluate to false, so an unknown condition can only
// narrow an audience, never widen it.
type Registry struct {
	evaluators map[string]Evaluator
}

// NewRegistry creates a registry with the built-in apply_to evaluator.
func NewRegistry() *Registry {
	r := &Registry{evaluators: make(map[string]Evaluator)}
	r.Register("apply_to", evaluateApplyTo)
	return r
}

// Register adds or replaces the evaluator for a condition type.
func (r *Registry) Register(conditionType string, evaluator Evaluator) {
	r.evaluators[conditionType] = evaluator
}

// Evaluate resolves one condition to a boolean.
func (r *Registry) Evaluate(cond models.Condition, viewer Viewer) bool {
	evaluator, ok := r.evaluators[cond.Type]
	if !ok {
		return false
	}
	return evaluator(cond, viewer)
}

func evaluateApplyTo(cond models.Condition, viewer Viewer) bool {
	if viewer == nil {
		viewer = Anonymous
	}

	switch cond.Args.AppliesTo {
	case AppliesToEveryone:
		return true
	case AppliesToUnauthenticated:
		return !viewer.Authenticated()
	case AppliesToAuthenticated:
		return viewer.Authenticated()
	case AppliesToRoles:
		if !viewer.Authenticated() {
			return false
		}
		for _, role := range cond.Args.Roles {
			if viewer.HasRole(role) {
				return true
			}
		}
		return false
	}

	return false
}
