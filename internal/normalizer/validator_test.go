package normalizer

import (
	"errors"
	"testing"

	"wikimd/internal/models"
)

func TestValidator_Validate(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		page    models.Page
		wantErr error
	}{
		{"article", models.Page{Title: "Dragon", Text: "Dragons fly."}, nil},
		{"missing title", models.Page{Text: "orphan"}, ErrMissingTitle},
		{"blank text", models.Page{Title: "Void", Text: "\n\t "}, ErrEmptyPage},
		{"redirect", models.Page{Title: "Drake", Text: "#REDIRECT [[Dragon]]"}, ErrRedirectPage},
		{"spaced redirect", models.Page{Title: "Drake", Text: "# Redirect [[Dragon]]"}, ErrRedirectPage},
		{"ordered list is not a redirect", models.Page{Title: "Steps", Text: "# redirection of rivers"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.page)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSkipReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrRedirectPage, models.ReasonRedirect},
		{ErrEmptyPage, models.ReasonEmpty},
		{ErrMissingTitle, models.ReasonEmpty},
		{errors.New("other"), "other"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := SkipReason(tt.err); got != tt.want {
				t.Errorf("SkipReason(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
