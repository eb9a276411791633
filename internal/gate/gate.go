// Package gate decides which SPA pages a visitor may open. It is a
// navigation convenience; the API middleware remains the authorization
// control.
package gate

import (
	"strings"

	"minimart/internal/model"
)

// Decision is the outcome for one page navigation.
type Decision struct {
	Allow      bool
	RedirectTo string
}

const (
	LoginPath    = "/login"
	AdminHome    = "/admin"
	ResidentHome = "/resident"
)

var publicPages = map[string]bool{
	"/":                  true,
	LoginPath:            true,
	"/register":          true,
	"/forgot-password":   true,
	"/accept-invitation": true,
}

// Home is the landing page for role.
func Home(role string) string {
	if role == model.RoleAdmin {
		return AdminHome
	}
	return ResidentHome
}

// Evaluate applies the page rules. role is ignored when authenticated is
// false. Paths outside the public pages and the two role areas are allowed.
func Evaluate(role string, authenticated bool, path string) Decision {
	path = cleanPath(path)

	if publicPages[path] {
		if authenticated {
			return Decision{RedirectTo: Home(role)}
		}
		return Decision{Allow: true}
	}

	var required string
	switch {
	case within(path, AdminHome):
		required = model.RoleAdmin
	case within(path, ResidentHome):
		required = model.RoleResident
	default:
		return Decision{Allow: true}
	}

	if !authenticated {
		return Decision{RedirectTo: LoginPath}
	}
	if role != required {
		return Decision{RedirectTo: Home(role)}
	}
	return Decision{Allow: true}
}

func within(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func cleanPath(path string) string {
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return "/"
		}
	}
	return path
}
