// Package guard decides, from the request path and the presence of a
// session indicator alone, whether a request may proceed.
package guard

import "strings"

// Default routes.
const (
	SignInPath  = "/login"
	SignUpPath  = "/register"
	LandingPath = "/dashboard"
)

// Decision is the outcome of Decide. Target is empty when the request is
// allowed.
type Decision struct {
	Target string
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool { return d.Target == "" }

// Allow lets the request proceed.
var Allow = Decision{}

// Redirect sends the request to target.
func Redirect(target string) Decision { return Decision{Target: target} }

// Rules is the static route configuration.
type Rules struct {
	// Public paths are reachable with or without a session.
	Public []string
	// Entry paths are the sign-in and sign-up pages. They are reachable
	// without a session, and redirect to Landing when one is present.
	Entry []string
	// SignIn is where requests without a session are sent.
	SignIn string
	// Landing is where signed-in users are sent from entry paths.
	Landing string
}

// DefaultRules matches the web front end's routes.
func DefaultRules() Rules {
	return Rules{
		Public:  []string{"/"},
		Entry:   []string{SignInPath, SignUpPath},
		SignIn:  SignInPath,
		Landing: LandingPath,
	}
}

// Decide applies the rules in order:
//  1. a public path is allowed regardless of session;
//  2. without a session indicator, entry paths are allowed and everything
//     else redirects to SignIn;
//  3. an entry path with a session indicator redirects to Landing;
//  4. anything else is allowed.
//
// Decide performs no I/O. The indicator is presence only; validating the
// session happens later, when it is resolved.
func (r Rules) Decide(path string, hasSession bool) Decision {
	path = normalize(path)
	entry := contains(r.Entry, path)

	if !entry && contains(r.Public, path) {
		return Allow
	}
	if !hasSession {
		if entry {
			return Allow
		}
		return Redirect(r.SignIn)
	}
	if entry {
		return Redirect(r.Landing)
	}
	return Allow
}

func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
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

func contains(paths []string, path string) bool {
	for _, p := range paths {
		if normalize(p) == path {
			return true
		}
	}
	return false
}
