package media

import (
	"strings"
)

// Resolver converts raw backend media values into references the view layer
// can render directly.
type Resolver struct {
	baseURL string
	apiKey  string
}

func NewResolver(baseURL, apiKey string) *Resolver {
	return &Resolver{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

// DisplayRef turns a raw wire media value into a fetchable reference.
// Absolute URLs, data URIs and local device URIs pass through unchanged.
// Purely numeric values are backend media ids and expand to a URL that embeds
// the transport credentials, because the rendering widget cannot attach
// headers.
func (r *Resolver) DisplayRef(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if hasDirectScheme(raw) {
		return raw
	}
	if isNumeric(raw) {
		return r.baseURL + "/media/image/" + raw + "?api_key=" + r.apiKey
	}
	return raw
}

// IsLocalRef reports whether ref points at a file on the device rather than
// a remote resource.
func IsLocalRef(ref string) bool {
	return strings.HasPrefix(ref, "file://") || strings.HasPrefix(ref, "content://")
}

func hasDirectScheme(ref string) bool {
	for _, p := range []string{"http://", "https://", "data:", "file://", "content://"} {
		if strings.HasPrefix(ref, p) {
			return true
		}
	}
	return false
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
