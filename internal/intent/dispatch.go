// File: internal/intent/dispatch.go
package intent

import (
	"strings"

	"github.com/xkilldash9x/casepilot/api/schemas"
)

// Route names the UI flow that executes a test case.
type Route string

const (
	RouteForgotPassword Route = "forgot_password"
	RouteLogin          Route = "login"
	RouteFormSubmit     Route = "form_submit"
	RouteResponsive     Route = "responsive"
	RouteElement        Route = "element"
)

// Signal is the lowercased text dispatch decisions are made on.
type Signal struct {
	Description string
	Action      string
}

// SignalFor extracts the dispatch signal from a test case.
func SignalFor(tc schemas.TestCase) Signal {
	return Signal{
		Description: strings.ToLower(tc.Description),
		Action:      strings.ToLower(strings.TrimSpace(tc.Action)),
	}
}

// DispatchRule selects Route when Match returns true.
type DispatchRule struct {
	Route Route
	Match func(Signal) bool
}

// formActions are the explicit action values that request a form submission.
var formActions = map[string]bool{"formsubmit": true, "submit": true, "form": true}

// DispatchRules is evaluated top to bottom; the first match wins and anything
// left over is an element check.
var DispatchRules = []DispatchRule{
	{RouteForgotPassword, func(s Signal) bool {
		return strings.Contains(s.Description, "forgot") && strings.Contains(s.Description, "password")
	}},
	{RouteLogin, func(s Signal) bool {
		return s.Action == "login" ||
			strings.Contains(s.Description, "login") ||
			strings.Contains(s.Description, "sign in")
	}},
	{RouteFormSubmit, func(s Signal) bool {
		return formActions[s.Action] ||
			(strings.Contains(s.Description, "form") && strings.Contains(s.Description, "submit"))
	}},
	{RouteResponsive, func(s Signal) bool {
		return strings.Contains(s.Description, "responsive") || strings.Contains(s.Description, "mobile")
	}},
}

// Dispatch picks the route for a signal using DispatchRules.
func Dispatch(s Signal) Route {
	return DispatchWith(DispatchRules, s)
}

// DispatchWith picks the route using a custom rule table.
func DispatchWith(rules []DispatchRule, s Signal) Route {
	for _, r := range rules {
		if r.Match(s) {
			return r.Route
		}
	}
	return RouteElement
}
