package dump

import (
	"strings"

	"wikimd/internal/models"
)

// Filter reasons.
const (
	FilteredTalk      = "talk page"
	FilteredNamespace = "excluded namespace"
)

// Filter keeps talk pages and excluded namespaces away from the converter.
type Filter struct {
	excluded []string
}

// NewFilter creates a filter. Each excluded entry is a namespace name
// such as "Template" or "File:", matched case-insensitively against the
// page namespace and the title prefix.
func NewFilter(excluded []string) *Filter {
	f := &Filter{}

	for _, ns := range excluded {
		ns = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(ns), ":"))
		if ns != "" {
			f.excluded = append(f.excluded, ns)
		}
	}

	return f
}

// Check reports whether the page may be converted, and why not otherwise.
func (f *Filter) Check(p models.Page) (bool, string) {
	title := strings.ToLower(p.Title)
	namespace := strings.ToLower(p.Namespace)

	if strings.Contains(title, "talk:") || strings.HasSuffix(namespace, "talk") {
		return false, FilteredTalk
	}

	for _, ns := range f.excluded {
		if namespace == ns || strings.HasPrefix(title, ns+":") {
			return false, FilteredNamespace
		}
	}

	return true, ""
}
