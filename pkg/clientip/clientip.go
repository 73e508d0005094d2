package clientip

import (
	"net"
	"net/http"
	"strings"
)

// DefaultHeaders is the lookup order used by GetIP. Headers set by the edge
// proxy come first, RemoteAddr is the final fallback.
var DefaultHeaders = []string{
	"CF-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// Extractor resolves the client address of a request from a fixed list of
// proxy headers.
type Extractor struct {
	headers []string
}

// New returns an Extractor consulting headers in order. With no headers it
// uses DefaultHeaders.
func New(headers ...string) *Extractor {
	if len(headers) == 0 {
		headers = DefaultHeaders
	}
	return &Extractor{headers: headers}
}

// IP returns the normalized client address, or "" when nothing valid is found.
func (e *Extractor) IP(r *http.Request) string {
	for _, h := range e.headers {
		v := r.Header.Get(h)
		if v == "" {
			continue
		}
		// X-Forwarded-For carries a chain; the left-most valid entry is the client.
		for candidate := range strings.SplitSeq(v, ",") {
			if ip := normalize(candidate); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return normalize(r.RemoteAddr)
	}
	return normalize(host)
}

var defaultExtractor = New()

// GetIP resolves the client address using DefaultHeaders.
func GetIP(r *http.Request) string {
	return defaultExtractor.IP(r)
}

func normalize(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}
