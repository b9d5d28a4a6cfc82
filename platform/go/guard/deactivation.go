package guard

import "net/http"

// mutatingMethods classifies the HTTP verbs that count as writes for the
// deactivation gate. Everything else (GET, HEAD, OPTIONS) reads.
var mutatingMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// mayMutate decides whether a request may proceed against a possibly
// deactivated club. Reads always pass, exempt writes always pass, and
// requests with no club context are outside this gate's jurisdiction.
func mayMutate(deactivated, isWrite, isExempt bool) bool {
	if !isWrite || isExempt {
		return true
	}
	return !deactivated
}
