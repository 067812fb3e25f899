package normalizer

import (
	"regexp"
	"strings"
)

var (
	commentPattern    = regexp.MustCompile(`(?s)<!--.*?(?:-->|$)`)
	selfClosingRef    = regexp.MustCompile(`(?i)<ref\b[^<>]*/>`)
	refElement        = regexp.MustCompile(`(?is)<ref\b[^<>]*>.*?</ref\s*>`)
	galleryElement    = regexp.MustCompile(`(?is)<gallery\b[^<>]*>.*?</gallery\s*>`)
	referencesElement = regexp.MustCompile(`(?i)<references\s*/?>`)
	magicWordPattern  = regexp.MustCompile(`__[A-Z]+__`)
	headingPattern    = regexp.MustCompile(`^(=+)\s*(.*?)\s*=+\s*$`)
)

// PruneReport lists what the section pass removed.
type PruneReport struct {
	// Sections holds the headings of removed sections, as written.
	Sections []string
	// Templates counts removed noise templates by name.
	Templates map[string]int
	// Unknown counts unrecognized templates dropped as a whole.
	Unknown int
	// Elements counts removed comments, references, galleries and magic words.
	Elements int
}

// SectionPruner removes sections and templates that carry no article content.
type SectionPruner struct {
	removed     map[string]bool
	noise       []string
	dropUnknown bool
}

// NewSectionPruner creates a pruner. Section titles and template names are
// matched case-insensitively.
func NewSectionPruner(removedSections, noiseTemplates []string, dropUnknown bool) *SectionPruner {
	removed := make(map[string]bool, len(removedSections))
	for _, s := range removedSections {
		removed[sectionKey(s)] = true
	}

	return &SectionPruner{
		removed:     removed,
		noise:       lowerAll(noiseTemplates),
		dropUnknown: dropUnknown,
	}
}

// Prune applies the pass and reports what it removed.
func (p *SectionPruner) Prune(text string) (string, PruneReport) {
	report := PruneReport{Templates: make(map[string]int)}

	text = p.removeElements(text, &report)
	text = p.removeSections(text, &report)
	text = p.removeTemplates(text, &report)

	return text, report
}

func (p *SectionPruner) removeElements(text string, report *PruneReport) string {
	for _, re := range []*regexp.Regexp{commentPattern, refElement, selfClosingRef, referencesElement, galleryElement, magicWordPattern} {
		report.Elements += len(re.FindAllStringIndex(text, -1))
		text = re.ReplaceAllString(text, "")
	}

	return text
}

func (p *SectionPruner) removeSections(text string, report *PruneReport) string {
	if len(p.removed) == 0 {
		return text
	}

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	skipLevel := 0

	for _, line := range lines {
		level, title, ok := parseHeading(line)
		if ok && skipLevel > 0 && level <= skipLevel {
			skipLevel = 0
		}

		if ok && skipLevel == 0 && p.removed[sectionKey(title)] {
			report.Sections = append(report.Sections, title)
			skipLevel = level

			continue
		}

		if skipLevel > 0 {
			continue
		}

		kept = append(kept, line)
	}

	return strings.Join(kept, "\n")
}

func (p *SectionPruner) removeTemplates(text string, report *PruneReport) string {
	spans, _ := scanTemplates(text)

	return replaceSpans(text, spans, func(raw string) string {
		tpl, ok := parseTemplate(raw)
		if ok && p.isNoise(tpl.Name) {
			report.Templates[tpl.Name]++
			return ""
		}

		if p.dropUnknown {
			report.Unknown++
			return ""
		}

		return raw
	})
}

func (p *SectionPruner) isNoise(name string) bool {
	for _, n := range p.noise {
		if name == n || strings.HasPrefix(name, n+" ") {
			return true
		}
	}

	return false
}

// parseHeading recognizes "== Title ==" lines. Level is the length of the
// leading marker run, clamped to 6.
func parseHeading(line string) (int, string, bool) {
	m := headingPattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil || m[2] == "" {
		return 0, "", false
	}

	return min(len(m[1]), 6), m[2], true
}

// sectionKey normalizes a heading title for matching against the removal set.
func sectionKey(title string) string {
	title = plainInline(title)
	title = strings.ReplaceAll(title, "*", "")
	title = strings.TrimSuffix(strings.TrimSpace(title), ":")

	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}
