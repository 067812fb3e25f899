// Package models defines the records exchanged between the dump reader, the normalizer and the corpus writer.
package models

// Page is one record extracted from a wiki dump.
type Page struct {
	Title     string `json:"title"`
	Namespace string `json:"namespace"`
	Text      string `json:"text"`
	// Index is the 1-based position of the page in the dump, counted before filtering.
	Index int `json:"index"`
}

// Status describes what happened to a page.
type Status string

// Page statuses.
const (
	StatusConverted Status = "converted"
	StatusSkipped   Status = "skipped"
)

// Skip reasons reported by the normalizer.
const (
	ReasonEmpty     = "empty"
	ReasonRedirect  = "redirect"
	ReasonNoContent = "no content after cleaning"
)

// Result is the outcome of converting one page.
type Result struct {
	Title       string       `json:"title"`
	Markdown    string       `json:"markdown,omitempty"`
	Status      Status       `json:"status"`
	Reason      string       `json:"reason,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	Index       int          `json:"index"`
}

// OK returns true if the page produced Markdown.
func (r *Result) OK() bool {
	return r.Status == StatusConverted
}
