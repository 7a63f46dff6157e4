package http

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"notaspese/internal/core"
	"notaspese/internal/query"
)

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError sends a uniform JSON error envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// extractClientIP returns the originating client address, honoring
// X-Forwarded-For when present.
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// parseFilterSpec builds a filter spec from query parameters. Empty
// parameters are simply absent criteria; malformed dates and unknown
// categories are reported as errors rather than silently ignored.
func parseFilterSpec(values url.Values) (query.Spec, error) {
	spec := query.Spec{Search: values.Get("search")}

	if v := strings.TrimSpace(values.Get("start_date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return query.Spec{}, fmt.Errorf("invalid start_date %q", v)
		}
		spec.StartDate = &d
	}
	if v := strings.TrimSpace(values.Get("end_date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return query.Spec{}, fmt.Errorf("invalid end_date %q", v)
		}
		spec.EndDate = &d
	}
	if v := strings.TrimSpace(values.Get("type")); v != "" {
		c, ok := core.ParseCategory(v)
		if !ok {
			return query.Spec{}, fmt.Errorf("unknown category %q", v)
		}
		spec.Type = c
	}

	return spec, nil
}
