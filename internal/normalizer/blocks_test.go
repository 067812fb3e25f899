package normalizer

import (
	"testing"

	"wikimd/internal/models"
)

func TestBlockAssembler_Assemble(t *testing.T) {
	lines := []models.MarkdownLine{
		{Kind: models.KindHeading, Level: 2, Content: "H"},
		{Kind: models.KindParagraph, Content: "A"},
		{Kind: models.KindParagraph, Content: "B"},
		{Kind: models.KindBlank},
		{Kind: models.KindBlank},
		{Kind: models.KindUnorderedItem, Content: "x"},
		{Kind: models.KindOrderedItem, Depth: 1, Content: "y"},
		{Kind: models.KindTableRow, Content: "| a |"},
		{Kind: models.KindParagraph, Content: "C"},
		{Kind: models.KindHeading, Level: 3, Content: "I"},
		{Kind: models.KindHeading, Level: 3, Content: "J"},
	}

	a := NewBlockAssembler()

	blocks := a.Assemble(lines)

	wantKinds := []models.LineKind{
		models.KindHeading,
		models.KindParagraph,
		models.KindUnorderedItem,
		models.KindTableRow,
		models.KindParagraph,
		models.KindHeading,
		models.KindHeading,
	}

	if len(blocks) != len(wantKinds) {
		t.Fatalf("Assemble() returned %d blocks, want %d", len(blocks), len(wantKinds))
	}

	for i, b := range blocks {
		if b.Kind() != wantKinds[i] {
			t.Errorf("block %d kind = %v, want %v", i, b.Kind(), wantKinds[i])
		}
	}

	want := "## H\n\nA\nB\n\n- x\n    1. y\n\n| a |\n\nC\n\n### I\n\n### J"
	if got := a.Serialize(blocks); got != want {
		t.Errorf("Serialize() = %q, want %q", got, want)
	}
}

func TestReassemble_RoundTrip(t *testing.T) {
	inputs := []string{
		"## H\n\nA\nB\n\n- x\n    1. y\n\n| a |\n\nC",
		"# Title\n\n1\\. escaped\n\n\\- also escaped",
		"> quoted line\n\n- a\n- b\n    - c",
	}

	a := NewBlockAssembler()

	for _, input := range inputs {
		if got := a.Render(Reassemble(input)); got != input {
			t.Errorf("Render(Reassemble(%q)) = %q", input, got)
		}
	}
}

func TestReassemble_Kinds(t *testing.T) {
	tests := []struct {
		line string
		want models.MarkdownLine
	}{
		{"### T", models.MarkdownLine{Kind: models.KindHeading, Level: 3, Content: "T"}},
		{"    7. x", models.MarkdownLine{Kind: models.KindOrderedItem, Depth: 1, Number: 7, Content: "x"}},
		{"- y", models.MarkdownLine{Kind: models.KindUnorderedItem, Content: "y"}},
		{"| a | b |", models.MarkdownLine{Kind: models.KindTableRow, Content: "| a | b |"}},
		{"1\\. z", models.MarkdownLine{Kind: models.KindParagraph, Content: "1\\. z"}},
		{"   ", models.MarkdownLine{Kind: models.KindBlank}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := Reassemble(tt.line)
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("Reassemble(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}
