package pricing

import (
	"sort"
	"strings"
)

// Viewer is the identity a pricing table is rendered for. Audience conditions
// only need to know whether the viewer is authenticated and which roles they hold.
type Viewer interface {
	Authenticated() bool
	HasRole(role string) bool
}

// RoleLister is optionally implemented by viewers that can enumerate their
// roles, used for cache keys and expression conditions.
type RoleLister interface {
	Roles() []string
}

type anonymousViewer struct{}

func (anonymousViewer) Authenticated() bool { return false }
func (anonymousViewer) HasRole(string) bool { return false }

// Anonymous is the viewer used when no authenticated identity is present.
var Anonymous Viewer = anonymousViewer{}

// Fingerprint returns a stable string identifying the audience a viewer
// belongs to. Two viewers with the same fingerprint always see the same table.
func Fingerprint(v Viewer) string {
	if v == nil || !v.Authenticated() {
		return "anon"
	}
	lister, ok := v.(RoleLister)
	if !ok {
		return "auth"
	}
	roles := append([]string(nil), lister.Roles()...)
	sort.Strings(roles)
	return "auth:" + strings.Join(roles, ",")
}
