package normalizer

import (
	"strings"
	"testing"
)

func TestTemplateExtractor_Extract(t *testing.T) {
	e := NewTemplateExtractor([]string{"infobox", "sidebar", "creature"})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"measurement", "{{SI|10|mi}} north.", "10 mi north."},
		{"measurement without unit", "about {{SI|7}}", "about 7"},
		{"range", "{{SIrange|5|10|m}} long", "5–10 m long"},
		{"fraction", "{{frac|1|2}} inch", "1/2 inch"},
		{"mixed fraction", "{{frac|2|1|2}}", "2 1/2"},
		{"convert", "{{convert|10|mi|km}}", "10 mi"},
		{"convert range", "{{convert|1|to|3|mi}}", "1 to 3 mi"},
		{"pronounce", "{{pronounce|dray-gun}}", "dray-gun"},
		{"plural marker", "Dragon{{singpl}}", "Dragon"},
		{"pipe escape", "a {{!}} b", "a | b"},
		{"template prefix", "{{Template:SI|3|kg}}", "3 kg"},
		{"nested in argument", "{{SI|{{frac|1|2}}|in}}", "1/2 in"},
		{"unknown passthrough", "{{Navbox|dragons}}", "{{Navbox|dragons}}"},
		{"recognized inside unknown", "{{foo|{{SI|3|kg}}}}", "{{foo|3 kg}}"},
		{"quote", "{{quote|Fire is life.|Old Saying}}", "\n\n> Fire is life. — Old Saying\n\n"},
		{"template parameter", "{{{1}}}", "{{{1}}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, report := e.Extract(tt.input)
			if got != tt.want {
				t.Errorf("Extract(%q) = %q, want %q", tt.input, got, tt.want)
			}

			if len(report.Invalid) != 0 {
				t.Errorf("Invalid = %v, want none", report.Invalid)
			}
		})
	}
}

func TestTemplateExtractor_NoTemplateSyntaxLeft(t *testing.T) {
	e := NewTemplateExtractor(nil)

	got, report := e.Extract("{{SI|1|m}}, {{SIrange|1|2|kg}} and {{frac|3|4}}")
	if strings.Contains(got, "{{") || strings.Contains(got, "}}") {
		t.Errorf("rendered text still holds template syntax: %q", got)
	}

	if report.Total() != 3 {
		t.Errorf("Total() = %d, want 3", report.Total())
	}

	if report.Rendered["si"] != 1 || report.Rendered["sirange"] != 1 || report.Rendered["frac"] != 1 {
		t.Errorf("Rendered = %v", report.Rendered)
	}
}

func TestTemplateExtractor_Infobox(t *testing.T) {
	e := NewTemplateExtractor([]string{"infobox"})

	input := "{{Infobox creature\n| name = Dragon\n| habitat = [[Mountain Range|Mountains]]\n| image = \n| size = {{SI|20|m}}\n}}"

	got, _ := e.Extract(input)

	want := "\n* '''name:''' Dragon\n* '''habitat:''' Mountains\n* '''size:''' 20 m\n"
	if got != want {
		t.Errorf("Extract() = %q, want %q", got, want)
	}
}

func TestTemplateExtractor_InvalidAndUnbalanced(t *testing.T) {
	e := NewTemplateExtractor(nil)

	t.Run("invalid arguments", func(t *testing.T) {
		got, report := e.Extract("size {{SI}} here")
		if got != "size {{SI}} here" {
			t.Errorf("Extract() = %q, want input unchanged", got)
		}

		if len(report.Invalid) != 1 || report.Invalid[0] != "si" {
			t.Errorf("Invalid = %v, want [si]", report.Invalid)
		}
	})

	t.Run("unclosed opening", func(t *testing.T) {
		got, report := e.Extract("{{SI|5|kg")
		if got != "{{SI|5|kg" {
			t.Errorf("Extract() = %q, want input unchanged", got)
		}

		if report.Unbalanced != 1 {
			t.Errorf("Unbalanced = %d, want 1", report.Unbalanced)
		}
	})

	t.Run("complete template after unclosed opening", func(t *testing.T) {
		got, report := e.Extract("{{broken {{SI|1|m}}")
		if got != "{{broken 1 m" {
			t.Errorf("Extract() = %q, want %q", got, "{{broken 1 m")
		}

		if report.Unbalanced != 1 {
			t.Errorf("Unbalanced = %d, want 1", report.Unbalanced)
		}
	})
}

func TestParseTemplate(t *testing.T) {
	tpl, ok := parseTemplate("{{Cite web|url=http://a.b/?x=1|title=[[A|B]]|plain}}")
	if !ok {
		t.Fatal("parseTemplate returned false")
	}

	if tpl.Name != "cite web" {
		t.Errorf("Name = %q, want %q", tpl.Name, "cite web")
	}

	if v, _ := tpl.Named("url"); v != "http://a.b/?x=1" {
		t.Errorf("url = %q", v)
	}

	if v, _ := tpl.Named("TITLE"); v != "[[A|B]]" {
		t.Errorf("title = %q", v)
	}

	if tpl.Arg(0) != "plain" {
		t.Errorf("Arg(0) = %q, want plain", tpl.Arg(0))
	}
}
