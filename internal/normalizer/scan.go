package normalizer

import (
	"strings"
)

// span is a half-open byte range [start, end) in a string.
type span struct {
	start int
	end   int
}

// Param is one template argument. Name is empty for positional arguments.
type Param struct {
	Name  string
	Value string
}

// Template is a parsed {{name|...}} invocation.
type Template struct {
	// Name is lower-cased with the namespace prefix and underscores removed.
	Name   string
	Params []Param
}

// Positional returns the unnamed arguments in order.
func (t Template) Positional() []string {
	var out []string

	for _, p := range t.Params {
		if p.Name == "" {
			out = append(out, p.Value)
		}
	}

	return out
}

// Arg returns the i-th positional argument, trimmed, or "" when absent.
func (t Template) Arg(i int) string {
	pos := t.Positional()
	if i < 0 || i >= len(pos) {
		return ""
	}

	return strings.TrimSpace(pos[i])
}

// Named returns the value of a named argument.
func (t Template) Named(key string) (string, bool) {
	for _, p := range t.Params {
		if p.Name != "" && strings.EqualFold(p.Name, key) {
			return p.Value, true
		}
	}

	return "", false
}

// scanTemplates returns the spans of every outermost {{...}} in s.
// An opening "{{" with no matching close is left alone and scanning
// resumes inside it, so complete templates nested in a broken one are
// still found. The second result counts such unmatched openings.
func scanTemplates(s string) ([]span, int) {
	var spans []span

	unmatched := 0
	offset := 0

	for offset < len(s) {
		found, open := scanBalanced(s[offset:])
		for _, sp := range found {
			spans = append(spans, span{sp.start + offset, sp.end + offset})
		}

		if open < 0 {
			break
		}

		unmatched++
		offset += open + 2
	}

	return spans, unmatched
}

// scanBalanced walks s tracking "{{"/"}}" depth. It returns the complete
// top-level spans and the position of an opening left unclosed at EOF (-1 if none).
func scanBalanced(s string) ([]span, int) {
	var spans []span

	depth := 0
	start := -1

	for i := 0; i < len(s)-1; {
		switch {
		case s[i] == '{' && s[i+1] == '{':
			if depth == 0 {
				start = i
			}

			depth++
			i += 2
		case s[i] == '}' && s[i+1] == '}' && depth > 0:
			depth--
			i += 2

			if depth == 0 {
				spans = append(spans, span{start, i})
			}
		default:
			i++
		}
	}

	if depth > 0 {
		return spans, start
	}

	return spans, -1
}

// splitTopLevel splits s at sep occurrences that are not nested inside
// {{...}} or [[...]].
func splitTopLevel(s, sep string) []string {
	var parts []string

	braces, brackets := 0, 0
	last := 0

	for i := 0; i < len(s); i++ {
		if i+1 < len(s) {
			pair := s[i : i+2]
			switch {
			case pair == "{{":
				braces++
				i++

				continue
			case pair == "}}" && braces > 0:
				braces--
				i++

				continue
			case pair == "[[":
				brackets++
				i++

				continue
			case pair == "]]" && brackets > 0:
				brackets--
				i++

				continue
			}
		}

		if braces == 0 && brackets == 0 && strings.HasPrefix(s[i:], sep) {
			parts = append(parts, s[last:i])
			last = i + len(sep)
			i += len(sep) - 1
		}
	}

	return append(parts, s[last:])
}

// parseTemplate parses the text of one {{...}} span.
func parseTemplate(raw string) (Template, bool) {
	if !strings.HasPrefix(raw, "{{") || !strings.HasSuffix(raw, "}}") || len(raw) < 4 {
		return Template{}, false
	}

	inner := raw[2 : len(raw)-2]
	// Template parameters ({{{1}}}) are not invocations.
	if strings.HasPrefix(inner, "{") {
		return Template{}, false
	}

	parts := splitTopLevel(inner, "|")

	name := normalizeTemplateName(parts[0])
	if name == "" {
		return Template{}, false
	}

	tpl := Template{Name: name}

	for _, part := range parts[1:] {
		tpl.Params = append(tpl.Params, parseParam(part))
	}

	return tpl, true
}

func parseParam(part string) Param {
	kv := splitTopLevel(part, "=")
	if len(kv) > 1 {
		key := strings.TrimSpace(kv[0])
		if key != "" && !strings.ContainsAny(key, "\n[]{}<>") {
			return Param{Name: key, Value: strings.Join(kv[1:], "=")}
		}
	}

	return Param{Value: part}
}

func normalizeTemplateName(name string) string {
	name = strings.TrimSpace(name)
	// {{#if:...}} and friends carry the first argument after a colon.
	if i := strings.IndexByte(name, ':'); i > 0 {
		prefix := strings.ToLower(strings.TrimSpace(name[:i]))
		if prefix == "template" || prefix == "msgnw" || prefix == "subst" || prefix == "safesubst" {
			name = name[i+1:]
		}
	}

	name = strings.ReplaceAll(name, "_", " ")
	name = strings.Join(strings.Fields(name), " ")

	return strings.ToLower(name)
}

// replaceSpans rebuilds s with each span replaced by fn's output.
// Spans must be sorted and non-overlapping.
func replaceSpans(s string, spans []span, fn func(raw string) string) string {
	if len(spans) == 0 {
		return s
	}

	var sb strings.Builder

	sb.Grow(len(s))

	last := 0
	for _, sp := range spans {
		sb.WriteString(s[last:sp.start])
		sb.WriteString(fn(s[sp.start:sp.end]))
		last = sp.end
	}

	sb.WriteString(s[last:])

	return sb.String()
}

// balanced reports whether "{{"/"}}" and "[["/"]]" pairs in s are matched.
func balanced(s string) bool {
	braces, brackets := 0, 0

	for i := 0; i < len(s)-1; i++ {
		switch s[i : i+2] {
		case "{{":
			braces++
			i++
		case "}}":
			braces--
			i++
		case "[[":
			brackets++
			i++
		case "]]":
			brackets--
			i++
		}

		if braces < 0 || brackets < 0 {
			return false
		}
	}

	return braces == 0 && brackets == 0
}
