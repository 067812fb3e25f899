package normalizer

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"wikimd/internal/models"
)

// lookAround bounds how far the single-item rule looks for neighbouring list lines.
const lookAround = 3

var (
	listMarkerPattern = regexp.MustCompile(`^([*#;:]+)\s*(.*)$`)
	boldOnlyPattern   = regexp.MustCompile(`^\*\*([^*]+)\*\*$`)
	bulletOnlyPattern = regexp.MustCompile(`^[\s•·]+$`)
	ruleLinePattern   = regexp.MustCompile(`^-{4,}$`)

	orderedLookalike   = regexp.MustCompile(`^(\d+)([.)])(\s)`)
	unorderedLookalike = regexp.MustCompile(`^([-+*])(\s)`)
	setextLookalike    = regexp.MustCompile(`^[=-]+$`)
)

// PseudoHeadingOptions controls promotion of stand-alone bold lines to headings.
type PseudoHeadingOptions struct {
	Enabled            bool
	RequireBlankBefore bool
	RequireBlankAfter  bool
	// MaxLength caps the promoted text in runes; 0 disables the cap.
	MaxLength int
}

// LineOptions configures the LineTransformer.
type LineOptions struct {
	PseudoHeadings         PseudoHeadingOptions
	PromoteSingleItemLists bool
	// KeepTemplates leaves "{{" and "}}" in place when repairing text.
	KeepTemplates bool
}

// LineReport counts the non-trivial decisions made by the line pass.
type LineReport struct {
	Filtered       int
	PseudoHeadings int
	PromotedItems  int
	Merged         int
}

// lineState is the classifier state carried from one line to the next.
type lineState struct {
	depth            int
	inList           bool
	inTable          bool
	lastHeadingLevel int
}

func initialLineState() lineState {
	return lineState{lastHeadingLevel: 1}
}

// LineTransformer classifies wikitext lines into Markdown lines.
type LineTransformer struct {
	opts   LineOptions
	repair repairer
}

// NewLineTransformer creates a transformer.
func NewLineTransformer(opts LineOptions) *LineTransformer {
	return &LineTransformer{opts: opts, repair: newRepairer(opts.KeepTemplates)}
}

// Transform classifies every line of text. Each line is judged on its own
// content, its immediate neighbours and the state left by earlier lines.
func (t *LineTransformer) Transform(text string) ([]models.MarkdownLine, LineReport) {
	var (
		report LineReport
		out    []models.MarkdownLine
	)

	raw := strings.Split(text, "\n")
	state := initialLineState()

	for i := range raw {
		if item, ok := t.continueItem(out, raw[i]); ok {
			out[len(out)-1] = t.tidy(item)
			report.Merged++

			continue
		}

		var emitted []models.MarkdownLine

		emitted, state = t.classify(raw, i, state, &report)

		for _, line := range emitted {
			line = t.tidy(line)

			if merged, ok := mergeColon(out, line); ok {
				out[len(out)-1] = t.tidy(merged)
				report.Merged++

				continue
			}

			out = append(out, line)
		}
	}

	return out, report
}

// classify returns the Markdown lines produced by raw[i] and the next state.
func (t *LineTransformer) classify(raw []string, i int, st lineState, report *LineReport) ([]models.MarkdownLine, lineState) {
	trimmed := strings.TrimSpace(raw[i])
	blank := []models.MarkdownLine{{Kind: models.KindBlank}}

	if trimmed == "" {
		return blank, st
	}

	if isFilteredLine(trimmed) {
		report.Filtered++
		return blank, st
	}

	if len(trimmed) > 1 && trimmed[0] == '|' && trimmed[len(trimmed)-1] == '|' {
		st.inList, st.inTable, st.depth = false, true, 0
		return []models.MarkdownLine{{Kind: models.KindTableRow, Content: trimmed}}, st
	}

	if level, title, ok := parseHeading(trimmed); ok {
		title = headingText(title)
		if title == "" {
			return blank, st
		}

		st = lineState{lastHeadingLevel: level}

		return []models.MarkdownLine{{Kind: models.KindHeading, Level: level, Content: title}}, st
	}

	if m := listMarkerPattern.FindStringSubmatch(trimmed); m != nil {
		return t.classifyList(raw, i, m[1], m[2], st, report)
	}

	content := strings.TrimSpace(convertInline(trimmed))
	if content == "" {
		return blank, st
	}

	if inner, ok := t.pseudoHeading(raw, i, content, st); ok {
		report.PseudoHeadings++
		st.inList, st.inTable, st.depth = false, false, 0

		return []models.MarkdownLine{{Kind: models.KindHeading, Level: min(st.lastHeadingLevel+1, 6), Content: inner}}, st
	}

	st.inList, st.inTable, st.depth = false, false, 0

	return []models.MarkdownLine{{Kind: models.KindParagraph, Content: escapeParagraph(content)}}, st
}

// tidy applies the textual repairs to a classified or merged line.
// Whatever the final pass would still remove is removed here, before the
// line is rendered, so the output reads back as the same kind of line.
func (t *LineTransformer) tidy(line models.MarkdownLine) models.MarkdownLine {
	if line.Kind == models.KindBlank || line.Kind == models.KindTableRow {
		return line
	}

	content := strings.TrimSpace(t.repair.text(line.Content))
	if content == "" {
		return models.MarkdownLine{Kind: models.KindBlank}
	}

	if line.Kind == models.KindParagraph {
		content = escapeParagraph(content)
	}

	line.Content = content

	return line
}

// continueItem folds a "#:" or "*:" line into the list item directly
// above it when that item sits at the continued depth.
func (t *LineTransformer) continueItem(out []models.MarkdownLine, raw string) (models.MarkdownLine, bool) {
	m := listMarkerPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil || len(out) == 0 {
		return models.MarkdownLine{}, false
	}

	markers := m[1]
	if markers[0] == ';' || markers[0] == ':' || !strings.HasSuffix(markers, ":") {
		return models.MarkdownLine{}, false
	}

	prev := out[len(out)-1]
	if !prev.Kind.IsList() || prev.Depth != len(strings.TrimRight(markers, ":;"))-1 {
		return models.MarkdownLine{}, false
	}

	if content := strings.TrimSpace(convertInline(m[2])); content != "" {
		prev.Content += " " + content
	}

	return prev, true
}

func (t *LineTransformer) classifyList(raw []string, i int, markers, rest string, st lineState, report *LineReport) ([]models.MarkdownLine, lineState) {
	depth := len(markers) - 1
	content := strings.TrimSpace(convertInline(rest))

	// ";" and ":" only define terms and indents at the start of a run.
	// Trailing ones continue the item the rest of the run opens.
	lead := markers[0]
	if lead == ':' && strings.ContainsAny(markers, "*#") {
		lead = markers[strings.LastIndexAny(markers, "*#")]
	} else if lead == '*' || lead == '#' {
		markers = strings.TrimRight(markers, ":;")
		depth = len(markers) - 1
	}

	switch lead {
	case ';':
		term, def := splitDefinition(rest)
		if term == "" {
			return []models.MarkdownLine{{Kind: models.KindBlank}}, st
		}

		content = "**" + term + ":**"
		if def != "" {
			content += " " + def
		}

		st.inList, st.inTable, st.depth = false, false, 0

		return []models.MarkdownLine{{Kind: models.KindParagraph, Content: content}}, st
	case ':':
		if strings.Contains(content, "•") {
			var items []models.MarkdownLine

			for _, part := range strings.Split(content, "•") {
				if part = strings.TrimSpace(part); part != "" {
					items = append(items, models.MarkdownLine{Kind: models.KindUnorderedItem, Depth: depth, Content: part})
				}
			}

			if len(items) > 0 {
				st.inList, st.inTable, st.depth = true, false, depth
				return items, st
			}
		}

		if content == "" {
			return []models.MarkdownLine{{Kind: models.KindBlank}}, st
		}

		st.inList, st.inTable, st.depth = false, false, 0

		return []models.MarkdownLine{{Kind: models.KindParagraph, Content: escapeParagraph(content)}}, st
	}

	if content == "" {
		return []models.MarkdownLine{{Kind: models.KindBlank}}, st
	}

	if t.opts.PromoteSingleItemLists && markers == "*" && isSingleItem(raw, i, content) {
		report.PromotedItems++
		st.inList, st.inTable, st.depth = false, false, 0

		return []models.MarkdownLine{{Kind: models.KindParagraph, Content: "**" + strings.TrimSuffix(content, ":") + ":**"}}, st
	}

	kind := models.KindUnorderedItem
	if markers[strings.LastIndexAny(markers, "*#")] == '#' {
		kind = models.KindOrderedItem
	}

	st.inList, st.inTable, st.depth = true, false, depth

	return []models.MarkdownLine{{Kind: kind, Depth: depth, Content: content}}, st
}

// pseudoHeading reports whether content is a bold-only line that stands
// alone, returning the heading text.
func (t *LineTransformer) pseudoHeading(raw []string, i int, content string, st lineState) (string, bool) {
	opts := t.opts.PseudoHeadings
	if !opts.Enabled || st.inList || st.inTable {
		return "", false
	}

	m := boldOnlyPattern.FindStringSubmatch(strings.TrimSuffix(content, ":"))
	if m == nil {
		return "", false
	}

	inner := strings.TrimSuffix(strings.TrimSpace(m[1]), ":")
	if inner == "" {
		return "", false
	}

	if opts.MaxLength > 0 && utf8.RuneCountInString(inner) > opts.MaxLength {
		return "", false
	}

	if opts.RequireBlankBefore && i > 0 && strings.TrimSpace(raw[i-1]) != "" {
		return "", false
	}

	if opts.RequireBlankAfter && i+1 < len(raw) && strings.TrimSpace(raw[i+1]) != "" {
		return "", false
	}

	return inner, true
}

// isSingleItem reports whether the "*" item at raw[i] has no list item
// among its nearest non-blank neighbours and reads like a label.
func isSingleItem(raw []string, i int, content string) bool {
	if strings.Contains(content, "**") || strings.Contains(strings.TrimSuffix(content, ":"), ":") {
		return false
	}

	return !isListLine(nearestNonBlank(raw, i, -1)) && !isListLine(nearestNonBlank(raw, i, 1))
}

func nearestNonBlank(raw []string, i, step int) string {
	for j, n := i+step, 0; j >= 0 && j < len(raw) && n < lookAround; j, n = j+step, n+1 {
		if trimmed := strings.TrimSpace(raw[j]); trimmed != "" {
			return trimmed
		}
	}

	return ""
}

func isListLine(trimmed string) bool {
	return trimmed != "" && (trimmed[0] == '*' || trimmed[0] == '#')
}

// mergeColon joins a paragraph line to a directly preceding paragraph that
// ends with a colon.
func mergeColon(out []models.MarkdownLine, line models.MarkdownLine) (models.MarkdownLine, bool) {
	if len(out) == 0 || line.Kind != models.KindParagraph {
		return line, false
	}

	prev := out[len(out)-1]
	if prev.Kind != models.KindParagraph || !strings.HasSuffix(prev.Content, ":") || strings.HasSuffix(prev.Content, ":**") {
		return line, false
	}

	prev.Content += " " + strings.TrimPrefix(line.Content, `\`)

	return prev, true
}

// splitDefinition splits ";term: definition" content at the first top-level colon.
func splitDefinition(rest string) (string, string) {
	parts := splitTopLevel(rest, ":")
	term := plainInline(parts[0])

	def := ""
	if len(parts) > 1 {
		def = strings.TrimSpace(convertInline(strings.Join(parts[1:], ":")))
	}

	return strings.TrimSpace(term), def
}

func headingText(title string) string {
	title = convertInline(title)
	title = strings.ReplaceAll(title, "**", "")
	title = strings.TrimSpace(title)

	return strings.TrimSpace(strings.TrimSuffix(title, ":"))
}

// isFilteredLine reports lines that carry only navigation or category noise.
func isFilteredLine(trimmed string) bool {
	if bulletOnlyPattern.MatchString(trimmed) || ruleLinePattern.MatchString(trimmed) {
		return true
	}

	lower := strings.ToLower(trimmed)
	if strings.Contains(lower, "[[:category:") {
		return true
	}

	lower = strings.ToLower(plainInline(strings.TrimLeft(trimmed, ":*#; ")))
	lower = strings.TrimLeft(lower, "* ")

	return strings.HasPrefix(lower, "category:") ||
		strings.HasPrefix(lower, "main article:") ||
		strings.HasPrefix(lower, "for a list of")
}

// escapeParagraph keeps paragraph text from being read as other Markdown.
func escapeParagraph(content string) string {
	switch {
	case orderedLookalike.MatchString(content):
		return orderedLookalike.ReplaceAllString(content, `$1\$2$3`)
	case unorderedLookalike.MatchString(content):
		return `\` + content
	case setextLookalike.MatchString(content):
		return `\` + content
	case strings.HasPrefix(content, "|"), strings.HasPrefix(content, "#"):
		return `\` + content
	}

	return content
}
