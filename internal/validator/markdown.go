// Package validator checks converted Markdown by parsing it as CommonMark with GFM tables.
package validator

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"wikimd/internal/config"
	"wikimd/internal/models"
	"wikimd/pkg/metadata"
	"wikimd/pkg/utils"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// leftoverMarkup lists wikitext delimiters that must not survive conversion.
var leftoverMarkup = []string{"{{", "}}", "[[", "]]", "'''", "{|", "|}"}

// ValidationError represents a validation error with context.
type ValidationError struct {
	Field   string
	Value   string
	Message string
	Line    int
}

// ValidationResult contains validation results.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []string
	Stats    ValidationStats
	IsValid  bool
}

// ValidationStats counts the block structures found in the document.
type ValidationStats struct {
	Headings   int
	Paragraphs int
	Lists      int
	ListItems  int
	Tables     int
	TableRows  int
}

// MarkdownValidator parses Markdown and reports structures the converter
// should never produce.
type MarkdownValidator struct {
	md        goldmark.Markdown
	maxErrors int
}

// NewMarkdownValidator creates a validator. A zero MaxDiagnosticsPerPage keeps every error.
func NewMarkdownValidator(cfg config.ValidationConfig) *MarkdownValidator {
	return &MarkdownValidator{
		md:        goldmark.New(goldmark.WithExtensions(extension.Table)),
		maxErrors: cfg.MaxDiagnosticsPerPage,
	}
}

type check struct {
	src         []byte
	lineStarts  []int
	result      *ValidationResult
	tableLines  []int
	lastHeading int
}

// ValidateMarkdown validates the structure of one Markdown document.
func (v *MarkdownValidator) ValidateMarkdown(markdown string) *ValidationResult {
	result := &ValidationResult{
		IsValid:  true,
		Errors:   []ValidationError{},
		Warnings: []string{},
	}

	_, clean := metadata.Extract(markdown)

	c := &check{
		src:        []byte(clean),
		lineStarts: lineStarts(clean),
		result:     result,
	}

	doc := v.md.Parser().Parse(text.NewReader(c.src))

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		return c.visit(n), nil
	})

	c.checkTableRuns(clean)

	sort.SliceStable(result.Errors, func(i, j int) bool {
		return result.Errors[i].Line < result.Errors[j].Line
	})

	if v.maxErrors > 0 && len(result.Errors) > v.maxErrors {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d more errors not shown", len(result.Errors)-v.maxErrors))
		result.Errors = result.Errors[:v.maxErrors]
	}

	result.IsValid = len(result.Errors) == 0

	return result
}

func (c *check) visit(n ast.Node) ast.WalkStatus {
	switch n.Kind() {
	case ast.KindHeading:
		c.result.Stats.Headings++
		c.checkHeading(n.(*ast.Heading))
		c.checkLeftovers(n)

		return ast.WalkSkipChildren
	case ast.KindParagraph, ast.KindTextBlock:
		if n.Kind() == ast.KindParagraph {
			c.result.Stats.Paragraphs++
		}

		c.checkLeftovers(n)

		return ast.WalkSkipChildren
	case ast.KindList:
		c.result.Stats.Lists++
	case ast.KindListItem:
		c.result.Stats.ListItems++
	case extast.KindTable:
		c.result.Stats.Tables++
		c.tableLines = append(c.tableLines, c.line(n))
	case extast.KindTableHeader, extast.KindTableRow:
		c.result.Stats.TableRows++
	case extast.KindTableCell:
		c.checkLeftovers(n)

		return ast.WalkSkipChildren
	case ast.KindCodeBlock, ast.KindFencedCodeBlock:
		c.addError("code", c.line(n), "text parsed as a code block, list nesting or indentation is broken")

		return ast.WalkSkipChildren
	case ast.KindHTMLBlock, ast.KindRawHTML:
		c.result.Warnings = append(c.result.Warnings,
			fmt.Sprintf("line %d: raw HTML left in output", c.line(n)))
	}

	return ast.WalkContinue
}

func (c *check) checkHeading(h *ast.Heading) {
	line := c.line(h)

	if strings.TrimSpace(c.plainText(h)) == "" {
		c.addError("heading", line, "empty heading")
	}

	if c.lastHeading > 0 && h.Level > c.lastHeading+1 {
		c.result.Warnings = append(c.result.Warnings,
			fmt.Sprintf("line %d: heading level jumps from %d to %d", line, c.lastHeading, h.Level))
	}

	c.lastHeading = h.Level
}

func (c *check) checkLeftovers(n ast.Node) {
	content := c.plainText(n)

	for _, marker := range leftoverMarkup {
		if strings.Contains(content, marker) {
			c.result.Errors = append(c.result.Errors, ValidationError{
				Line:    c.line(n),
				Field:   "markup",
				Value:   utils.NewStringHelper().TruncateString(content, 50),
				Message: fmt.Sprintf("leftover wiki markup %q", marker),
			})

			return
		}
	}
}

// checkTableRuns reports runs of pipe rows that did not parse as a table.
func (c *check) checkTableRuns(content string) {
	runStart := 0

	lines := strings.Split(content, "\n")
	for i := 0; i <= len(lines); i++ {
		isRow := i < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[i]), "|")

		if isRow {
			if runStart == 0 {
				runStart = i + 1
			}

			continue
		}

		if runStart > 0 && !c.tableWithin(runStart, i) {
			c.addError("table", runStart, "table rows did not parse as a table")
		}

		runStart = 0
	}
}

func (c *check) tableWithin(first, last int) bool {
	for _, line := range c.tableLines {
		if line >= first && line <= last {
			return true
		}
	}

	return false
}

func (c *check) addError(field string, line int, msg string) {
	c.result.Errors = append(c.result.Errors, ValidationError{
		Field:   field,
		Line:    line,
		Message: msg,
	})
}

// plainText concatenates the text segments below n.
func (c *check) plainText(n ast.Node) string {
	var sb strings.Builder

	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch t := child.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(c.src))
		case *ast.String:
			sb.Write(t.Value)
		}

		return ast.WalkContinue, nil
	})

	return sb.String()
}

// line returns the 1-based source line of n, or 0 when it has no position.
func (c *check) line(n ast.Node) int {
	offset := -1

	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		offset = n.Lines().At(0).Start
	} else {
		_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
			if t, ok := child.(*ast.Text); ok && entering {
				offset = t.Segment.Start
				return ast.WalkStop, nil
			}

			if entering && child != n && child.Type() == ast.TypeBlock && child.Lines().Len() > 0 {
				offset = child.Lines().At(0).Start
				return ast.WalkStop, nil
			}

			return ast.WalkContinue, nil
		})
	}

	if offset < 0 {
		return 0
	}

	return sort.SearchInts(c.lineStarts, offset+1)
}

func lineStarts(s string) []int {
	starts := []int{0}

	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			starts = append(starts, i+1)
		}
	}

	return starts
}

// ValidateIntegrity checks the integrity of the content using its metadata block.
func (v *MarkdownValidator) ValidateIntegrity(content string) *ValidationResult {
	result := &ValidationResult{IsValid: true}

	if _, err := metadata.Verify(content); err != nil {
		result.IsValid = false
		result.Errors = append(result.Errors, ValidationError{
			Field:   "metadata",
			Message: fmt.Sprintf("integrity check failed: %v", err),
		})
	}

	return result
}

// Diagnostics converts the errors into page diagnostics.
func (r *ValidationResult) Diagnostics(title string) []models.Diagnostic {
	diags := make([]models.Diagnostic, 0, len(r.Errors))

	for _, err := range r.Errors {
		msg := err.Message
		if err.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", err.Line, msg)
		}

		diags = append(diags, models.Diagnostic{
			PageTitle: title,
			Component: models.ComponentValidator,
			Message:   msg,
		})
	}

	return diags
}

// String returns string representation of validation result.
func (r *ValidationResult) String() string {
	status := "✅ VALID"
	if !r.IsValid {
		status = "❌ INVALID"
	}

	return fmt.Sprintf(
		"%s | Headings: %d | Lists: %d | Tables: %d | Errors: %d | Warnings: %d",
		status,
		r.Stats.Headings,
		r.Stats.Lists,
		r.Stats.Tables,
		len(r.Errors),
		len(r.Warnings),
	)
}

// PrintErrors prints validation errors in readable format.
func (r *ValidationResult) PrintErrors(w io.Writer) {
	if len(r.Errors) == 0 {
		return
	}

	fmt.Fprintln(w, "❌ Validation Errors:")

	for _, err := range r.Errors {
		if err.Line > 0 {
			fmt.Fprintf(w, "  Line %d", err.Line)

			if err.Field != "" {
				fmt.Fprintf(w, " [%s]", err.Field)
			}

			fmt.Fprintf(w, ": %s\n", err.Message)

			if err.Value != "" {
				fmt.Fprintf(w, "    Found: %q\n", err.Value)
			}
		} else {
			fmt.Fprintf(w, "  %s\n", err.Message)
		}
	}
}

// PrintWarnings prints validation warnings.
func (r *ValidationResult) PrintWarnings(w io.Writer) {
	if len(r.Warnings) == 0 {
		return
	}

	fmt.Fprintln(w, "⚠️  Validation Warnings:")

	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "  %s\n", warn)
	}
}
