package normalizer

import (
	"errors"
	"regexp"
	"strings"

	"wikimd/internal/models"
)

// Page rejection errors.
var (
	ErrMissingTitle = errors.New("page has no title")
	ErrEmptyPage    = errors.New("page has no text")
	ErrRedirectPage = errors.New("page is a redirect")
)

var redirectPattern = regexp.MustCompile(`(?i)^\s*#\s*redirect\b`)

// Validator decides whether a page is worth running through the passes.
type Validator struct{}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate returns an error for pages that carry no article content.
func (v *Validator) Validate(page models.Page) error {
	if strings.TrimSpace(page.Title) == "" {
		return ErrMissingTitle
	}

	if strings.TrimSpace(page.Text) == "" {
		return ErrEmptyPage
	}

	if redirectPattern.MatchString(page.Text) {
		return ErrRedirectPage
	}

	return nil
}

// SkipReason maps a validation error to the reason reported for the page.
func SkipReason(err error) string {
	switch {
	case errors.Is(err, ErrRedirectPage):
		return models.ReasonRedirect
	case errors.Is(err, ErrEmptyPage), errors.Is(err, ErrMissingTitle):
		return models.ReasonEmpty
	default:
		return err.Error()
	}
}
