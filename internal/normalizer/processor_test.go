package normalizer

import (
	"strings"
	"sync"
	"testing"

	"wikimd/internal/config"
	"wikimd/internal/models"
)

const geographyPage = "== Geography ==\n{{SI|10|mi}} north.\n{|\n! A !! B\n|-\n| 1 || 2\n|}\n* item one\n* item two"

func TestNewProcessor(t *testing.T) {
	p := NewProcessor(DefaultOptions())
	if p == nil {
		t.Fatal("NewProcessor returned nil")
	}
}

func TestProcessor_Process(t *testing.T) {
	p := NewProcessor(DefaultOptions())

	result := p.Process(models.Page{Title: "Geography", Text: geographyPage, Index: 4})
	if !result.OK() {
		t.Fatalf("Process() status = %s (%s), want converted", result.Status, result.Reason)
	}

	want := "## Geography\n\n10 mi north.\n\n| A | B |\n| --- | --- |\n| 1 | 2 |\n\n- item one\n- item two"
	if result.Markdown != want {
		t.Errorf("Markdown = %q, want %q", result.Markdown, want)
	}

	if result.Index != 4 || result.Title != "Geography" {
		t.Errorf("Result = %+v, want title and index carried over", result)
	}

	if len(result.Diagnostics) != 0 {
		t.Errorf("Diagnostics = %v, want none", result.Diagnostics)
	}
}

func TestProcessor_Process_Skipped(t *testing.T) {
	p := NewProcessor(DefaultOptions())

	tests := []struct {
		name   string
		page   models.Page
		reason string
	}{
		{"redirect", models.Page{Title: "Drake", Text: "#REDIRECT [[Dragon]]"}, models.ReasonRedirect},
		{"lower case redirect", models.Page{Title: "Wyrm", Text: "  #redirect [[Dragon]]"}, models.ReasonRedirect},
		{"empty", models.Page{Title: "Void", Text: " \n "}, models.ReasonEmpty},
		{"no content after cleaning", models.Page{Title: "Stub", Text: "{{stub}}\n[[Category:Dragons]]"}, models.ReasonNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := p.Process(tt.page)
			if result.Status != models.StatusSkipped {
				t.Fatalf("Status = %s, want skipped", result.Status)
			}

			if result.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", result.Reason, tt.reason)
			}

			if result.Markdown != "" {
				t.Errorf("Markdown = %q, want empty", result.Markdown)
			}
		})
	}
}

func TestProcessor_MalformedTableDiagnostic(t *testing.T) {
	p := NewProcessor(DefaultOptions())

	page := models.Page{
		Title: "Broken Table",
		Text:  "Intro text.\n{|\n! Secret !! Column\n|-\n| 41 || 42\n\nOutro text.",
	}

	result, report := p.ProcessWithReport(page)
	if !result.OK() {
		t.Fatalf("Status = %s, want converted", result.Status)
	}

	if result.Markdown != "Intro text.\n\nOutro text." {
		t.Errorf("Markdown = %q", result.Markdown)
	}

	for _, leaked := range []string{"Secret", "Column", "41", "42"} {
		if strings.Contains(result.Markdown, leaked) {
			t.Errorf("Markdown leaks dropped table content %q", leaked)
		}
	}

	if len(report.Tables.Dropped()) != 1 {
		t.Errorf("Dropped() = %v, want one table", report.Tables.Dropped())
	}

	if len(result.Diagnostics) != 1 {
		t.Fatalf("Diagnostics = %v, want one", result.Diagnostics)
	}

	d := result.Diagnostics[0]
	if d.PageTitle != "Broken Table" || d.Component != models.ComponentTables || !strings.Contains(d.Message, "table dropped") {
		t.Errorf("Diagnostic = %+v", d)
	}
}

func TestProcessor_FullPage(t *testing.T) {
	p := NewProcessor(DefaultOptions())

	text := strings.Join([]string{
		"{{Infobox creature",
		"| name = Dragon",
		"| diet = Meat",
		"}}",
		"The '''dragon''' is a [[reptile]] of {{SI|20|m}}.<ref>Bestiary</ref>",
		"",
		"== Habitat ==",
		"Dragons live in [[Mountain|mountains]]{{citation needed}}.",
		"",
		"'''Lairs'''",
		"",
		"# first",
		"# second",
		"",
		"== References ==",
		"<references/>",
		"[[Category:Creatures]]",
	}, "\n")

	result := p.Process(models.Page{Title: "Dragon", Text: text})
	if !result.OK() {
		t.Fatalf("Status = %s (%s)", result.Status, result.Reason)
	}

	want := strings.Join([]string{
		"- **name:** Dragon",
		"- **diet:** Meat",
		"",
		"The **dragon** is a reptile of 20 m.",
		"",
		"## Habitat",
		"",
		"Dragons live in mountains.",
		"",
		"### Lairs",
		"",
		"1. first",
		"2. second",
	}, "\n")

	if result.Markdown != want {
		t.Errorf("Markdown =\n%s\nwant\n%s", result.Markdown, want)
	}
}

func TestProcessor_ListStructure(t *testing.T) {
	p := NewProcessor(DefaultOptions())

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "sublist between items",
			input: "# a\n## b\n# c",
			want:  "1. a\n    1. b\n1. c",
		},
		{
			name:  "continuation line",
			input: "# first step\n#: note on first\n# second step\n# third step",
			want:  "1. first step note on first\n2. second step\n3. third step",
		},
		{
			name:  "nested continuation",
			input: "* a\n** b\n**: more\n* c",
			want:  "- a\n    - b more\n- c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := p.Convert(tt.input); got != tt.want {
				t.Errorf("Convert(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestProcessor_Renormalize(t *testing.T) {
	keep := config.DefaultCleaningConfig()
	keep.DropUnknownTemplates = false

	processors := map[string]*Processor{
		"drop templates": NewProcessor(DefaultOptions()),
		"keep templates": NewProcessor(OptionsFromConfig(keep)),
	}

	inputs := []string{
		geographyPage,
		"}}<br>- a",
		"[[|-||\n•<br>(",
		"''|x|\n''1. y\n'' c''",
		"Intro:\n, and more",
		"# a\n## b\n# c",
		"# first step\n#: note on first\n# second step",
		";Term: def\n: fire • ice\n:* nested",
		"== ''' ==\nText ( ; ) here .",
		"{|\n! A\n|-\n| [[x]] ]]\n|}\nAfter",
		"Uses {{custom}} text. '' }}\n* {{x}}",
	}

	for name, p := range processors {
		for _, input := range inputs {
			out, _ := p.Convert(input)
			if again := p.Renormalize(out); again != out {
				t.Errorf("%s: Renormalize() of %q = %q, want fixed point %q", name, input, again, out)
			}
		}
	}
}

func TestProcessor_KeepUnknownTemplates(t *testing.T) {
	cleaning := config.DefaultCleaningConfig()
	cleaning.DropUnknownTemplates = false

	p := NewProcessor(OptionsFromConfig(cleaning))

	markdown, report := p.Convert("Text {{custom}} here{{stub}}.")
	if report.Sections.Templates["stub"] != 1 || report.Sections.Unknown != 0 {
		t.Errorf("Sections report = %+v", report.Sections)
	}

	if markdown != "Text {{custom}} here." {
		t.Errorf("Convert() = %q, want %q", markdown, "Text {{custom}} here.")
	}
}

func TestProcessor_ConcurrentUse(t *testing.T) {
	p := NewProcessor(DefaultOptions())

	var wg sync.WaitGroup

	results := make([]models.Result, 16)
	for i := range results {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			results[i] = p.Process(models.Page{Title: "Geography", Text: geographyPage, Index: i})
		}(i)
	}

	wg.Wait()

	for i, r := range results {
		if r.Markdown != results[0].Markdown || r.Index != i {
			t.Errorf("result %d differs: %+v", i, r)
		}
	}
}
