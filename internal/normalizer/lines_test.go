package normalizer

import (
	"reflect"
	"testing"

	"wikimd/internal/models"
)

func defaultLineOptions() LineOptions {
	return DefaultOptions().Lines
}

// nonBlank drops blank lines to keep expectations short.
func nonBlank(lines []models.MarkdownLine) []models.MarkdownLine {
	var out []models.MarkdownLine

	for _, l := range lines {
		if l.Kind != models.KindBlank {
			out = append(out, l)
		}
	}

	return out
}

func TestLineTransformer_Transform(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []models.MarkdownLine
	}{
		{
			name:  "headings",
			input: "== Habitat ==\n======= Deep =======\n== Diet: ==",
			want: []models.MarkdownLine{
				{Kind: models.KindHeading, Level: 2, Content: "Habitat"},
				{Kind: models.KindHeading, Level: 6, Content: "Deep"},
				{Kind: models.KindHeading, Level: 2, Content: "Diet"},
			},
		},
		{
			name:  "nested lists",
			input: "* a\n** b\n# c\n#* d",
			want: []models.MarkdownLine{
				{Kind: models.KindUnorderedItem, Content: "a"},
				{Kind: models.KindUnorderedItem, Depth: 1, Content: "b"},
				{Kind: models.KindOrderedItem, Content: "c"},
				{Kind: models.KindUnorderedItem, Depth: 1, Content: "d"},
			},
		},
		{
			name:  "definition",
			input: ";Size: large",
			want: []models.MarkdownLine{
				{Kind: models.KindParagraph, Content: "**Size:** large"},
			},
		},
		{
			name:  "bullet separated indent",
			input: ": fire • ice • stone",
			want: []models.MarkdownLine{
				{Kind: models.KindUnorderedItem, Content: "fire"},
				{Kind: models.KindUnorderedItem, Content: "ice"},
				{Kind: models.KindUnorderedItem, Content: "stone"},
			},
		},
		{
			name:  "table rows",
			input: "| A | B |\n| --- | --- |",
			want: []models.MarkdownLine{
				{Kind: models.KindTableRow, Content: "| A | B |"},
				{Kind: models.KindTableRow, Content: "| --- | --- |"},
			},
		},
		{
			name:  "colon merge",
			input: "Diet:\nMeat and fish.",
			want: []models.MarkdownLine{
				{Kind: models.KindParagraph, Content: "Diet: Meat and fish."},
			},
		},
		{
			name:  "list lookalike escaped",
			input: "1. Not a list\n- nor this",
			want: []models.MarkdownLine{
				{Kind: models.KindParagraph, Content: `1\. Not a list`},
				{Kind: models.KindParagraph, Content: `\- nor this`},
			},
		},
		{
			name:  "markup removal exposes lookalikes",
			input: "''- a\n}}<br>- b\n''|x|\n'' c''",
			want: []models.MarkdownLine{
				{Kind: models.KindParagraph, Content: `\- a`},
				{Kind: models.KindParagraph, Content: `\- b`},
				{Kind: models.KindParagraph, Content: `\|x|`},
				{Kind: models.KindParagraph, Content: `\* c*`},
			},
		},
		{
			name:  "colon merge repairs the join",
			input: "Intro:\n, and more",
			want: []models.MarkdownLine{
				{Kind: models.KindParagraph, Content: "Intro:, and more"},
			},
		},
		{
			name:  "continuation joins ordered item",
			input: "# first step\n#: note on first\n# second step",
			want: []models.MarkdownLine{
				{Kind: models.KindOrderedItem, Content: "first step note on first"},
				{Kind: models.KindOrderedItem, Content: "second step"},
			},
		},
		{
			name:  "continuation joins nested item",
			input: "* a\n** b\n**: more\n* c",
			want: []models.MarkdownLine{
				{Kind: models.KindUnorderedItem, Content: "a"},
				{Kind: models.KindUnorderedItem, Depth: 1, Content: "b more"},
				{Kind: models.KindUnorderedItem, Content: "c"},
			},
		},
		{
			name:  "continuation without item above",
			input: "Text\n\n#: x",
			want: []models.MarkdownLine{
				{Kind: models.KindParagraph, Content: "Text"},
				{Kind: models.KindOrderedItem, Content: "x"},
			},
		},
		{
			name:  "filtered lines",
			input: "Category:Dragons\n:''Main article: [[Dragon]]''\n• •\n----\nFor a list of dragons, see below\nkept",
			want: []models.MarkdownLine{
				{Kind: models.KindParagraph, Content: "kept"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := NewLineTransformer(defaultLineOptions()).Transform(tt.input)
			if got := nonBlank(got); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Transform() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLineTransformer_PseudoHeadings(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  func(*LineOptions)
		want  models.MarkdownLine
	}{
		{
			name:  "promoted below implicit top level",
			input: "Intro\n\n'''Behaviour'''\n\nText",
			want:  models.MarkdownLine{Kind: models.KindHeading, Level: 2, Content: "Behaviour"},
		},
		{
			name:  "one deeper than the enclosing section",
			input: "=== Lore ===\n\n'''Origins:'''\n\nText",
			want:  models.MarkdownLine{Kind: models.KindHeading, Level: 4, Content: "Origins"},
		},
		{
			name:  "not standalone",
			input: "Intro\n\n'''Bold'''\ntext after",
			want:  models.MarkdownLine{Kind: models.KindParagraph, Content: "**Bold**"},
		},
		{
			name:  "standalone check relaxed",
			input: "Intro\n\n'''Bold'''\ntext after",
			opts:  func(o *LineOptions) { o.PseudoHeadings.RequireBlankAfter = false },
			want:  models.MarkdownLine{Kind: models.KindHeading, Level: 2, Content: "Bold"},
		},
		{
			name:  "after a list",
			input: "* a\n* b\n\n'''Bold'''\n\nx",
			want:  models.MarkdownLine{Kind: models.KindParagraph, Content: "**Bold**"},
		},
		{
			name:  "disabled",
			input: "x\n\n'''Bold'''\n\ny",
			opts:  func(o *LineOptions) { o.PseudoHeadings.Enabled = false },
			want:  models.MarkdownLine{Kind: models.KindParagraph, Content: "**Bold**"},
		},
		{
			name:  "too long",
			input: "x\n\n'''A rather long bold sentence'''\n\ny",
			opts:  func(o *LineOptions) { o.PseudoHeadings.MaxLength = 10 },
			want:  models.MarkdownLine{Kind: models.KindParagraph, Content: "**A rather long bold sentence**"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := defaultLineOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}

			lines, _ := NewLineTransformer(opts).Transform(tt.input)

			found := false

			for _, l := range lines {
				if l == tt.want {
					found = true
				}
			}

			if !found {
				t.Errorf("Transform() = %+v, want a line %+v", nonBlank(lines), tt.want)
			}
		})
	}
}

func TestLineTransformer_SingleItemLists(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		promote bool
		want    models.MarkdownLine
	}{
		{
			name:    "lone item promoted",
			input:   "Intro\n\n* Habitat\n\nCaves.",
			promote: true,
			want:    models.MarkdownLine{Kind: models.KindParagraph, Content: "**Habitat:**"},
		},
		{
			name:    "item with neighbours kept",
			input:   "* Habitat\n* Diet",
			promote: true,
			want:    models.MarkdownLine{Kind: models.KindUnorderedItem, Content: "Habitat"},
		},
		{
			name:    "item with a colon kept",
			input:   "x\n\n* Range: north\n\ny",
			promote: true,
			want:    models.MarkdownLine{Kind: models.KindUnorderedItem, Content: "Range: north"},
		},
		{
			name:    "promotion disabled",
			input:   "Intro\n\n* Habitat\n\nCaves.",
			promote: false,
			want:    models.MarkdownLine{Kind: models.KindUnorderedItem, Content: "Habitat"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := defaultLineOptions()
			opts.PromoteSingleItemLists = tt.promote

			lines, report := NewLineTransformer(opts).Transform(tt.input)

			found := false

			for _, l := range lines {
				if l == tt.want {
					found = true
				}
			}

			if !found {
				t.Errorf("Transform() = %+v, want a line %+v", nonBlank(lines), tt.want)
			}

			if tt.promote && tt.want.Kind == models.KindParagraph && report.PromotedItems != 1 {
				t.Errorf("PromotedItems = %d, want 1", report.PromotedItems)
			}
		})
	}
}
