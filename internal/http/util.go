package httpx

import "net/http"

// parseBoolQuery reports whether a query param carries a truthy value.
// Absent or unrecognised values are false.
func parseBoolQuery(r *http.Request, key string) bool {
	switch r.URL.Query().Get(key) {
	case "1", "true", "yes":
		return true
	}
	return false
}
