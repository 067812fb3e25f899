package normalizer

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"wikimd/internal/models"
)

var (
	strayDelimiters  = regexp.MustCompile(`'{2,}|\[{2,}|\]{2,}|\{{2,}|\}{2,}`)
	strayLinkMarkup  = regexp.MustCompile(`'{2,}|\[{2,}|\]{2,}`)
	emptyParentheses = regexp.MustCompile(`\(\s*[;,]*\s*\)`)
	spaceAfterParen  = regexp.MustCompile(`\([ \t]+`)
	spaceBeforePunct = regexp.MustCompile(`(\S)[ \t]+([,.!?;)])`)
	orderedItemLine  = regexp.MustCompile(`^( *)(\d+)\. `)
	structuralPrefix = regexp.MustCompile(`^ *(?:- |\d+\. |#{1,6} )?`)
)

// FinalNormalizer renumbers ordered lists and repairs small textual
// artifacts. It is purely textual and idempotent.
type FinalNormalizer struct {
	repair repairer
}

// NewFinalNormalizer creates a normalizer. With keepTemplates set, "{{"
// and "}}" are not treated as stray delimiters.
func NewFinalNormalizer(keepTemplates bool) *FinalNormalizer {
	return &FinalNormalizer{repair: newRepairer(keepTemplates)}
}

// Normalize applies every repair and renumbers ordered list runs.
func (f *FinalNormalizer) Normalize(text string) string {
	lines := strings.Split(norm.NFC.String(text), "\n")

	for i, line := range lines {
		lines[i] = f.repair.line(line)
	}

	lines = collapseBlankLines(lines)
	renumber(lines)

	return strings.Join(lines, "\n")
}

// repairer applies the textual repairs shared by the line pass and the
// final pass. Every rule only removes text, so repeating them until
// nothing changes always terminates.
type repairer struct {
	stray *regexp.Regexp
}

func newRepairer(keepTemplates bool) repairer {
	if keepTemplates {
		return repairer{stray: strayLinkMarkup}
	}

	return repairer{stray: strayDelimiters}
}

// text repairs content that carries no list or heading marker.
func (r repairer) text(s string) string {
	for {
		before := s

		s = r.stray.ReplaceAllString(s, "")
		s = emptyParentheses.ReplaceAllString(s, "")
		s = spaceAfterParen.ReplaceAllString(s, "(")
		s = spaceRun.ReplaceAllString(s, " ")
		s = spaceBeforePunct.ReplaceAllString(s, "$1$2")
		s = strings.TrimRight(s, " \t")

		if s == before {
			return s
		}
	}
}

// line repairs one rendered Markdown line. The list or heading marker is
// never rewritten, and table rows only lose stray delimiters.
func (r repairer) line(line string) string {
	if isTableRow(line) {
		for {
			before := line

			line = strings.TrimRight(r.stray.ReplaceAllString(line, ""), " \t")
			if line == before {
				break
			}
		}
	} else {
		indent := len(structuralPrefix.FindString(line))
		line = strings.TrimRight(line[:indent]+r.text(line[indent:]), " \t")
	}

	if strings.TrimSpace(line) == "" {
		return ""
	}

	return line
}

func isTableRow(line string) bool {
	trimmed := strings.TrimSpace(line)

	return len(trimmed) > 1 && trimmed[0] == '|' && trimmed[len(trimmed)-1] == '|'
}

// collapseBlankLines removes leading and trailing blank lines and keeps at
// most one blank line between content lines.
func collapseBlankLines(lines []string) []string {
	out := lines[:0]

	for _, line := range lines {
		if line == "" && (len(out) == 0 || out[len(out)-1] == "") {
			continue
		}

		out = append(out, line)
	}

	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}

	return out
}

// renumber rewrites ordered item numbers as 1, 2, 3 per run. A run is a
// stretch of ordered items at one depth; a change of depth or any other
// line starts a new run.
func renumber(lines []string) {
	depth, n := -1, 0

	for i, line := range lines {
		m := orderedItemLine.FindStringSubmatch(line)
		if m == nil {
			depth = -1

			continue
		}

		if d := len(m[1]) / models.IndentWidth; d != depth {
			depth, n = d, 0
		}

		n++
		lines[i] = m[1] + strconv.Itoa(n) + ". " + line[len(m[0]):]
	}
}
