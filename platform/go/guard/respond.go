package guard

import (
	"encoding/json"
	"net/http"
)

// Denial codes carried in the response body. Several map onto the same HTTP
// class on purpose: clients branch on the code, proxies on the status.
const (
	CodeUnauthenticated     = "UNAUTHENTICATED"
	CodeNotFound            = "NOT_FOUND"
	CodeForbidden           = "FORBIDDEN"
	CodeSuperAdminRequired  = "SUPER_ADMIN_REQUIRED"
	CodeFeatureNotAvailable = "FEATURE_NOT_AVAILABLE"
	CodeClubDeactivated     = "CLUB_DEACTIVATED"
	CodeInternal            = "INTERNAL"
)

// Denial is the terminal response body for any pipeline rejection.
type Denial struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

func writeDenial(w http.ResponseWriter, status int, code, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Denial{
		Title:  title,
		Status: status,
		Code:   code,
		Detail: detail,
	})
}

func denyUnauthenticated(w http.ResponseWriter) {
	writeDenial(w, http.StatusUnauthorized, CodeUnauthenticated, "Authentication required", "")
}

// denyNotFound is deliberately ambiguous: a club that does not exist and a
// club the caller cannot see produce byte-identical responses.
func denyNotFound(w http.ResponseWriter) {
	writeDenial(w, http.StatusNotFound, CodeNotFound, "Resource not found", "")
}

func denyForbidden(w http.ResponseWriter, code, detail string) {
	writeDenial(w, http.StatusForbidden, code, "Forbidden", detail)
}

func denyInternal(w http.ResponseWriter) {
	writeDenial(w, http.StatusInternalServerError, CodeInternal, "Internal server error", "")
}
