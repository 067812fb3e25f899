package normalizer

import (
	"fmt"
	"sort"
	"strings"
)

// maxTemplateNesting bounds recursion into template arguments.
const maxTemplateNesting = 32

// renderFunc renders a recognized template. It returns false when the
// arguments are unusable, in which case the invocation is left untouched.
type renderFunc func(t Template) (string, bool)

// ExtractReport describes what the template pass did to a page.
type ExtractReport struct {
	// Rendered counts rendered invocations by template name.
	Rendered map[string]int
	// Invalid lists recognized templates left untouched because of bad arguments.
	Invalid []string
	// Unbalanced counts "{{" openings with no matching "}}".
	Unbalanced int
}

// Total returns the number of rendered invocations.
func (r ExtractReport) Total() int {
	total := 0
	for _, n := range r.Rendered {
		total += n
	}

	return total
}

// TemplateExtractor renders data-carrying templates (measurements,
// fractions, quotes, infoboxes) as plain text before any structural pass
// runs. Unrecognized templates are passed through unchanged.
type TemplateExtractor struct {
	renderers      map[string]renderFunc
	infoboxMarkers []string
}

// NewTemplateExtractor creates an extractor. Templates whose name contains
// one of infoboxMarkers are rendered as key/value lists.
func NewTemplateExtractor(infoboxMarkers []string) *TemplateExtractor {
	e := &TemplateExtractor{
		infoboxMarkers: lowerAll(infoboxMarkers),
	}

	e.renderers = map[string]renderFunc{
		"si":        renderMeasure,
		"sirange":   renderRange,
		"convert":   renderConvert,
		"cvt":       renderConvert,
		"frac":      renderFrac,
		"pronounce": renderFirst,
		"nowrap":    renderFirst,
		"abbr":      renderFirst,
		"lang":      renderSecond,
		"singpl":    renderEmpty,
		"quote":     renderQuote,
		"cquote":    renderQuote,
		"!":         renderConst("|"),
		"!!":        renderConst("||"),
	}

	return e
}

// Recognizes reports whether name (already normalized) is rendered by this pass.
func (e *TemplateExtractor) Recognizes(name string) bool {
	if _, ok := e.renderers[name]; ok {
		return true
	}

	return e.isInfobox(name)
}

// Extract returns text with every recognized invocation replaced by its rendering.
func (e *TemplateExtractor) Extract(text string) (string, ExtractReport) {
	report := ExtractReport{Rendered: make(map[string]int)}
	out := e.extract(text, &report, 0)

	sort.Strings(report.Invalid)

	return out, report
}

func (e *TemplateExtractor) extract(text string, report *ExtractReport, depth int) string {
	if depth > maxTemplateNesting || !strings.Contains(text, "{{") {
		return text
	}

	spans, unmatched := scanTemplates(text)
	report.Unbalanced += unmatched

	return replaceSpans(text, spans, func(raw string) string {
		return e.renderSpan(raw, report, depth)
	})
}

func (e *TemplateExtractor) renderSpan(raw string, report *ExtractReport, depth int) string {
	tpl, ok := parseTemplate(raw)
	if !ok || !e.Recognizes(tpl.Name) {
		// Keep the braces but still look for recognized templates inside.
		return "{{" + e.extract(raw[2:len(raw)-2], report, depth+1) + "}}"
	}

	for i := range tpl.Params {
		tpl.Params[i].Value = e.extract(tpl.Params[i].Value, report, depth+1)
	}

	var (
		rendered string
		valid    bool
	)

	if e.isInfobox(tpl.Name) {
		rendered, valid = renderInfobox(tpl)
	} else {
		rendered, valid = e.renderers[tpl.Name](tpl)
	}

	if !valid {
		report.Invalid = append(report.Invalid, tpl.Name)
		return raw
	}

	report.Rendered[tpl.Name]++

	return rendered
}

func (e *TemplateExtractor) isInfobox(name string) bool {
	for _, marker := range e.infoboxMarkers {
		if marker != "" && strings.Contains(name, marker) {
			return true
		}
	}

	return false
}

// nonEmptyArgs returns trimmed positional arguments up to the first empty one.
func nonEmptyArgs(t Template) []string {
	var out []string

	for _, v := range t.Positional() {
		v = strings.TrimSpace(v)
		if v == "" {
			break
		}

		out = append(out, v)
	}

	return out
}

// renderMeasure renders {{SI|value|unit}} as "value unit".
func renderMeasure(t Template) (string, bool) {
	args := nonEmptyArgs(t)
	switch len(args) {
	case 0:
		return "", false
	case 1:
		return args[0], true
	default:
		return args[0] + " " + args[1], true
	}
}

// renderRange renders {{SIrange|low|high|unit}} as "low–high unit".
func renderRange(t Template) (string, bool) {
	args := nonEmptyArgs(t)
	switch len(args) {
	case 0, 1:
		return "", false
	case 2:
		return args[0] + "–" + args[1], true
	default:
		return args[0] + "–" + args[1] + " " + args[2], true
	}
}

var rangeWords = map[string]bool{"to": true, "-": true, "–": true, "and": true, "or": true, "by": true, "x": true, "×": true}

// renderConvert renders {{convert|10|mi|km}} as "10 mi" and
// {{convert|1|to|3|mi}} as "1 to 3 mi"; target units are dropped.
func renderConvert(t Template) (string, bool) {
	args := nonEmptyArgs(t)
	if len(args) == 0 {
		return "", false
	}

	if len(args) >= 4 && rangeWords[strings.ToLower(args[1])] {
		return fmt.Sprintf("%s %s %s %s", args[0], args[1], args[2], args[3]), true
	}

	if len(args) == 1 {
		return args[0], true
	}

	return args[0] + " " + args[1], true
}

// renderFrac renders {{frac|1|2}} as "1/2" and {{frac|1|1|2}} as "1 1/2".
func renderFrac(t Template) (string, bool) {
	args := nonEmptyArgs(t)
	switch len(args) {
	case 0:
		return "", false
	case 1:
		return "1/" + args[0], true
	case 2:
		return args[0] + "/" + args[1], true
	default:
		return args[0] + " " + args[1] + "/" + args[2], true
	}
}

func renderFirst(t Template) (string, bool) {
	if v := t.Arg(0); v != "" {
		return v, true
	}

	return "", false
}

func renderSecond(t Template) (string, bool) {
	if v := t.Arg(1); v != "" {
		return v, true
	}

	return "", false
}

func renderEmpty(Template) (string, bool) {
	return "", true
}

func renderConst(s string) renderFunc {
	return func(Template) (string, bool) {
		return s, true
	}
}

// renderQuote renders a quote template as its own blockquote paragraph.
func renderQuote(t Template) (string, bool) {
	text := t.Arg(0)
	if text == "" {
		if v, ok := t.Named("text"); ok {
			text = v
		} else if v, ok := t.Named("quote"); ok {
			text = v
		}
	}

	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "", true
	}

	author := t.Arg(1)
	if author == "" {
		author, _ = t.Named("author")
	}

	if author = strings.Join(strings.Fields(author), " "); author != "" {
		text += " — " + author
	}

	return "\n\n> " + text + "\n\n", true
}

// renderInfobox renders named arguments as wiki list items so the
// line pass emits them as "- **key:** value".
func renderInfobox(t Template) (string, bool) {
	var lines []string

	for _, p := range t.Params {
		if p.Name == "" {
			continue
		}

		value := plainInline(stripTemplates(p.Value))
		value = strings.Join(strings.Fields(value), " ")

		if value == "" {
			continue
		}

		lines = append(lines, "* '''"+strings.TrimSpace(p.Name)+":''' "+value)
	}

	if len(lines) == 0 {
		return "", true
	}

	return "\n" + strings.Join(lines, "\n") + "\n", true
}

// stripTemplates removes every complete template invocation from s.
func stripTemplates(s string) string {
	spans, _ := scanTemplates(s)

	return replaceSpans(s, spans, func(string) string { return "" })
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}

	return out
}
