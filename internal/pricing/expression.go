package pricing

import (
	"bytes"
	"encoding/json"

	"github.com/diegoholiveira/jsonlogic/v3"
	"pricing-table-api/internal/models"
)

// ExpressionEvaluator evaluates "expression" conditions: the condition's expr
// field holds a JsonLogic document applied against a viewer data document
//
//	{"viewer": {"authenticated": <bool>, "roles": [...]}}
//
// Anything other than a clean boolean true result fails the condition.
func ExpressionEvaluator() Evaluator {
	return func(cond models.Condition, viewer Viewer) bool {
		if len(cond.Args.Expr) == 0 {
			return false
		}

		ruleJSON, err := json.Marshal(cond.Args.Expr)
		if err != nil {
			return false
		}
		dataJSON, err := json.Marshal(viewerDocument(viewer))
		if err != nil {
			return false
		}

		var result bytes.Buffer
		if err := jsonlogic.Apply(bytes.NewReader(ruleJSON), bytes.NewReader(dataJSON), &result); err != nil {
			return false
		}

		var verdict bool
		if err := json.Unmarshal(result.Bytes(), &verdict); err != nil {
			return false
		}
		return verdict
	}
}

func viewerDocument(viewer Viewer) map[string]any {
	if viewer == nil {
		viewer = Anonymous
	}

	roles := []string{}
	if lister, ok := viewer.(RoleLister); ok {
		roles = lister.Roles()
	}

	return map[string]any{
		"viewer": map[string]any{
			"authenticated": viewer.Authenticated(),
			"roles":         roles,
		},
	}
}
