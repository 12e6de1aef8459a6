package api

import (
	"net/http"
	"strings"
)

// Roles recognised by the dashboard. Anything else degrades to viewer.
const (
	RoleViewer  = "viewer"
	RoleAnalyst = "analyst"
	RoleAdmin   = "admin"
)

var validRoles = map[string]struct{}{
	RoleViewer:  {},
	RoleAnalyst: {},
	RoleAdmin:   {},
}

var roleCapabilities = map[string][]string{
	RoleViewer:  {"read"},
	RoleAnalyst: {"read", "write_evidence", "generate_playbook", "feedback"},
	RoleAdmin:   {"read", "write_evidence", "generate_playbook", "feedback", "admin"},
}

// writerRoles gate mutating endpoints.
var writerRoles = map[string]struct{}{
	RoleAnalyst: {},
	RoleAdmin:   {},
}

// UserRole resolves the caller's role from the X-User-Role header, the
// user_role cookie, or the role query parameter, in that order. Unknown
// roles fall back to viewer.
func UserRole(r *http.Request) string {
	role := r.Header.Get("X-User-Role")
	if role == "" {
		if cookie, err := r.Cookie("user_role"); err == nil {
			role = cookie.Value
		}
	}
	if role == "" {
		role = r.URL.Query().Get("role")
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if _, ok := validRoles[role]; !ok {
		role = RoleViewer
	}
	return role
}

// Capabilities lists the actions a role may perform.
func Capabilities(role string) []string {
	caps, ok := roleCapabilities[role]
	if !ok {
		return []string{"read"}
	}
	return caps
}
