package server

import (
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// sameOrigin reports whether r comes from a page served by this host, or
// from a client that sends no Origin at all (curl, scripts, gorilla).
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// isJSON reports whether r declares a JSON body. Cross-site pages cannot
// send one without a CORS preflight, and none is ever granted.
func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}
