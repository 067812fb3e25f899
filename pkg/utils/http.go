// Package utils provides common utility functions.
package utils

import (
	"net/http"
	"net/url"
	"strings"
)

// HTTPHelper provides HTTP utility functions.
type HTTPHelper struct{}

// NewHTTPHelper creates a new HTTP helper.
func NewHTTPHelper() *HTTPHelper {
	return &HTTPHelper{}
}

// IsValidURL reports whether raw is an absolute http or https URL with a host.
func (h *HTTPHelper) IsValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	scheme := strings.ToLower(u.Scheme)

	return (scheme == "http" || scheme == "https") && u.Host != ""
}

// BuildHeaders creates HTTP headers with defaults.
func (h *HTTPHelper) BuildHeaders(customHeaders map[string]string) http.Header {
	headers := http.Header{}

	// Add default headers
	headers.Add("User-Agent", "wikimd/1.0 (+dump converter)")
	headers.Add("Accept", "application/xml, application/x-bzip2, application/gzip, */*")

	// Add custom headers
	for key, value := range customHeaders {
		headers.Add(key, value)
	}

	return headers
}

// ArticleURL joins a wiki base URL and a page title the way wiki links are
// written: spaces become underscores and the rest is path-escaped.
func (h *HTTPHelper) ArticleURL(baseURL, title string) string {
	escaped := url.PathEscape(strings.ReplaceAll(title, " ", "_"))

	return baseURL + strings.ReplaceAll(escaped, "%2F", "/")
}
