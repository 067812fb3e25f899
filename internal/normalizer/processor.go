// Package normalizer turns the raw wikitext of one page into clean Markdown
// through six ordered passes.
package normalizer

import (
	"fmt"
	"strings"

	"wikimd/internal/config"
	"wikimd/internal/models"
)

// Options configures every pass of the Processor.
type Options struct {
	RemovedSections      []string
	NoiseTemplates       []string
	InfoboxMarkers       []string
	DropUnknownTemplates bool
	Lines                LineOptions
}

// OptionsFromConfig builds Options from the cleaning section of the configuration.
func OptionsFromConfig(c config.CleaningConfig) Options {
	return Options{
		RemovedSections:      c.RemovedSections,
		NoiseTemplates:       c.NoiseTemplates,
		InfoboxMarkers:       c.InfoboxMarkers,
		DropUnknownTemplates: c.DropUnknownTemplates,
		Lines: LineOptions{
			PseudoHeadings: PseudoHeadingOptions{
				Enabled:            c.PseudoHeadings.Enabled,
				RequireBlankBefore: c.PseudoHeadings.RequireBlankBefore,
				RequireBlankAfter:  c.PseudoHeadings.RequireBlankAfter,
				MaxLength:          c.PseudoHeadings.MaxLength,
			},
			PromoteSingleItemLists: c.PromoteSingleItemLists,
		},
	}
}

// DefaultOptions returns the options of the default configuration.
func DefaultOptions() Options {
	return OptionsFromConfig(config.DefaultCleaningConfig())
}

// PageReport collects what each pass did to one page.
type PageReport struct {
	Templates ExtractReport
	Sections  PruneReport
	Tables    TableReport
	Lines     LineReport
}

// Processor runs the passes over single pages. It holds no per-page
// state and is safe for concurrent use.
type Processor struct {
	validator *Validator
	templates *TemplateExtractor
	sections  *SectionPruner
	tables    *TableConverter
	lines     *LineTransformer
	blocks    *BlockAssembler
	final     *FinalNormalizer
}

// NewProcessor creates a new processor instance.
func NewProcessor(opts Options) *Processor {
	// Templates that survive pruning must also survive the repairs.
	keepTemplates := !opts.DropUnknownTemplates

	lineOpts := opts.Lines
	lineOpts.KeepTemplates = keepTemplates

	return &Processor{
		validator: NewValidator(),
		templates: NewTemplateExtractor(opts.InfoboxMarkers),
		sections:  NewSectionPruner(opts.RemovedSections, opts.NoiseTemplates, opts.DropUnknownTemplates),
		tables:    NewTableConverter(),
		lines:     NewLineTransformer(lineOpts),
		blocks:    NewBlockAssembler(),
		final:     NewFinalNormalizer(keepTemplates),
	}
}

// Process converts one page. It never fails: pages that cannot be
// converted come back skipped with a reason.
func (p *Processor) Process(page models.Page) models.Result {
	result, _ := p.ProcessWithReport(page)

	return result
}

// ProcessWithReport converts one page and also returns the per-pass report.
func (p *Processor) ProcessWithReport(page models.Page) (result models.Result, report PageReport) {
	result = models.Result{Title: page.Title, Index: page.Index}

	if err := p.validator.Validate(page); err != nil {
		result.Status = models.StatusSkipped
		result.Reason = SkipReason(err)

		return result, report
	}

	defer func() {
		if r := recover(); r != nil {
			result.Status = models.StatusSkipped
			result.Markdown = ""
			result.Reason = fmt.Sprintf("conversion failed: %v", r)
			result.Diagnostics = append(result.Diagnostics, models.Diagnostic{
				PageTitle: page.Title,
				Component: models.ComponentProcessor,
				Message:   result.Reason,
			})
		}
	}()

	markdown, report := p.Convert(page.Text)
	result.Diagnostics = Diagnostics(page.Title, report)

	if strings.TrimSpace(markdown) == "" {
		result.Status = models.StatusSkipped
		result.Reason = models.ReasonNoContent

		return result, report
	}

	result.Status = models.StatusConverted
	result.Markdown = markdown

	return result, report
}

// Convert runs the six passes over raw wikitext.
func (p *Processor) Convert(text string) (string, PageReport) {
	var report PageReport

	text = strings.ReplaceAll(text, "\r\n", "\n")

	text, report.Templates = p.templates.Extract(text)
	text, report.Sections = p.sections.Prune(text)
	text, report.Tables = p.tables.Convert(text)

	lines, lineReport := p.lines.Transform(text)
	report.Lines = lineReport

	text = p.blocks.Render(lines)

	return p.final.Normalize(text), report
}

// Renormalize runs the block and final passes over Markdown this package
// produced. The result equals the input for already normalized text.
func (p *Processor) Renormalize(markdown string) string {
	return p.final.Normalize(p.blocks.Render(Reassemble(markdown)))
}

// Diagnostics turns a page report into the non-fatal events worth logging.
func Diagnostics(title string, report PageReport) []models.Diagnostic {
	var out []models.Diagnostic

	add := func(component models.Component, format string, args ...any) {
		out = append(out, models.Diagnostic{
			PageTitle: title,
			Component: component,
			Message:   fmt.Sprintf(format, args...),
		})
	}

	for _, name := range report.Templates.Invalid {
		add(models.ComponentTemplates, "template {{%s}} has unusable arguments; left as text", name)
	}

	if n := report.Templates.Unbalanced; n > 0 {
		add(models.ComponentTemplates, "%d unclosed template opening(s) left as text", n)
	}

	for _, t := range report.Tables.Dropped() {
		add(models.ComponentTables, "table dropped at line %d: %v", t.Line, t.Err)
	}

	return out
}
