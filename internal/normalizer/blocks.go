package normalizer

import (
	"regexp"
	"strconv"
	"strings"

	"wikimd/internal/models"
)

var (
	mdHeadingPattern   = regexp.MustCompile(`^(#{1,6}) (.*)$`)
	mdOrderedPattern   = regexp.MustCompile(`^( *)(\d+)\. (.*)$`)
	mdUnorderedPattern = regexp.MustCompile(`^( *)- (.*)$`)
)

type blockCategory int

const (
	categoryNone blockCategory = iota
	categoryHeading
	categoryParagraph
	categoryList
	categoryTable
)

func categoryOf(kind models.LineKind) blockCategory {
	switch {
	case kind == models.KindHeading:
		return categoryHeading
	case kind == models.KindTableRow:
		return categoryTable
	case kind.IsList():
		return categoryList
	case kind == models.KindParagraph:
		return categoryParagraph
	default:
		return categoryNone
	}
}

// BlockAssembler groups classified lines into blocks and serializes them
// with exactly one blank line between blocks.
type BlockAssembler struct{}

// NewBlockAssembler creates an assembler.
func NewBlockAssembler() *BlockAssembler {
	return &BlockAssembler{}
}

// Assemble groups lines into blocks. A blank line or a change of category
// ends a block; every heading is a block of its own.
func (a *BlockAssembler) Assemble(lines []models.MarkdownLine) []models.Block {
	var (
		blocks  []models.Block
		current []models.MarkdownLine
	)

	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, models.Block{Lines: current})
		}

		current = nil
	}

	for _, line := range lines {
		cat := categoryOf(line.Kind)

		switch {
		case cat == categoryNone:
			flush()
		case cat == categoryHeading:
			flush()

			current = []models.MarkdownLine{line}

			flush()
		default:
			if len(current) > 0 && categoryOf(current[0].Kind) != cat {
				flush()
			}

			current = append(current, line)
		}
	}

	flush()

	return blocks
}

// Serialize renders blocks as Markdown text without a trailing newline.
func (a *BlockAssembler) Serialize(blocks []models.Block) string {
	parts := make([]string, 0, len(blocks))

	for _, b := range blocks {
		rendered := make([]string, 0, len(b.Lines))
		for _, l := range b.Lines {
			rendered = append(rendered, l.String())
		}

		parts = append(parts, strings.Join(rendered, "\n"))
	}

	return strings.Join(parts, "\n\n")
}

// Render assembles and serializes lines in one step.
func (a *BlockAssembler) Render(lines []models.MarkdownLine) string {
	return a.Serialize(a.Assemble(lines))
}

// Reassemble parses Markdown produced by this package back into
// classified lines, so output can be fed through the assembler again.
func Reassemble(markdown string) []models.MarkdownLine {
	raw := strings.Split(markdown, "\n")
	out := make([]models.MarkdownLine, 0, len(raw))

	for _, line := range raw {
		out = append(out, parseMarkdownLine(line))
	}

	return out
}

func parseMarkdownLine(line string) models.MarkdownLine {
	if strings.TrimSpace(line) == "" {
		return models.MarkdownLine{Kind: models.KindBlank}
	}

	if m := mdHeadingPattern.FindStringSubmatch(line); m != nil {
		return models.MarkdownLine{Kind: models.KindHeading, Level: len(m[1]), Content: m[2]}
	}

	if m := mdOrderedPattern.FindStringSubmatch(line); m != nil {
		n, _ := strconv.Atoi(m[2])

		return models.MarkdownLine{
			Kind:    models.KindOrderedItem,
			Depth:   len(m[1]) / models.IndentWidth,
			Number:  n,
			Content: m[3],
		}
	}

	if m := mdUnorderedPattern.FindStringSubmatch(line); m != nil {
		return models.MarkdownLine{Kind: models.KindUnorderedItem, Depth: len(m[1]) / models.IndentWidth, Content: m[2]}
	}

	if trimmed := strings.TrimSpace(line); len(trimmed) > 1 && trimmed[0] == '|' && trimmed[len(trimmed)-1] == '|' {
		return models.MarkdownLine{Kind: models.KindTableRow, Content: trimmed}
	}

	return models.MarkdownLine{Kind: models.KindParagraph, Content: line}
}
