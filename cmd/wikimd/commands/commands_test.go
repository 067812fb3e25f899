package commands

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fixtureDump = "../../../test/fixtures/sample_dump.xml.bz2"

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.Execute()

	return stdout.String(), stderr.String(), err
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "wikimd.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "corpus.md")
	cfg := writeConfig(t, dir, `
parser:
  excluded_namespaces: ["Template", "File"]
output:
  license_text: "Text is available under CC BY-SA."
  base_url: "https://dragons.example.org/wiki/"
`)

	_, stderr, err := run(t, "", "convert", "-c", cfg, "-i", fixtureDump, "-o", out, "-w", "2", "--sign", "--validate")
	if err != nil {
		t.Fatalf("convert failed: %v\n%s", err, stderr)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}

	corpus := string(data)

	for _, want := range []string{
		"Text is available under CC BY-SA.\n\n---\n\n# Red Dragon\n\n> Article source: https://dragons.example.org/wiki/Red_Dragon\n\n",
		"## Geography",
		"They live 10 mi north of the river.",
		"| Age | Length |\n| --- | --- |\n| Wyrmling | 5 ft |\n| Adult | 40 ft |",
		"- Sheep\n- Cattle",
		"# Lair\n\n> Article source: https://dragons.example.org/wiki/Lair\n\nA **lair** is where a dragon sleeps.\n\n1. Find a cave\n2. Fill it with gold\n\n---\n\n",
		"VALIDATION: TRUE",
		"PAGES: 2",
	} {
		if !strings.Contains(corpus, want) {
			t.Errorf("corpus missing %q:\n%s", want, corpus)
		}
	}

	for _, unwanted := range []string{"References", "Drake", "Talk:", "Template:Stub", "citation", "<ref"} {
		if strings.Contains(corpus, unwanted) {
			t.Errorf("corpus contains %q", unwanted)
		}
	}

	if !strings.Contains(stderr, "Conversion finished") {
		t.Errorf("summary not logged:\n%s", stderr)
	}

	stdout, _, err := run(t, "", "verify", out)
	if err != nil || !strings.Contains(stdout, "2 pages, validated=true") {
		t.Errorf("verify = %q, %v", stdout, err)
	}
}

func TestConvertCommand_InvalidConfig(t *testing.T) {
	_, _, err := run(t, "", "convert", "-o", filepath.Join(t.TempDir(), "x.md"))
	if err == nil || !strings.Contains(err.Error(), "input.path is required") {
		t.Errorf("convert error = %v", err)
	}
}

func TestPageCommand(t *testing.T) {
	wikitext := "== Geography ==\nThey live {{convert|10|mi}} north.\n\n{|\n! A !! B\n|-\n| 1 || 2\n|}\n* item one\n* item two\n"

	stdout, _, err := run(t, wikitext, "page", "-", "--title", "Dragon")
	if err != nil {
		t.Fatalf("page failed: %v", err)
	}

	want := "## Geography\n\nThey live 10 mi north.\n\n| A | B |\n| --- | --- |\n| 1 | 2 |\n\n- item one\n- item two\n"
	if stdout != want {
		t.Errorf("page output = %q, want %q", stdout, want)
	}
}

func TestPageCommand_Skipped(t *testing.T) {
	_, _, err := run(t, "#REDIRECT [[Dragon]]", "page", "-")
	if !errors.Is(err, ErrPageSkipped) {
		t.Errorf("page error = %v, want ErrPageSkipped", err)
	}
}

func TestFormatCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.md")
	original := "# T\n\n| a | bbb |\n| --- | --- |\n| long cell | x |\n"

	if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := run(t, "", "format", dir); !errors.Is(err, ErrUnformatted) {
		t.Errorf("dry run error = %v, want ErrUnformatted", err)
	}

	if data, _ := os.ReadFile(path); string(data) != original {
		t.Error("dry run modified the file")
	}

	if _, _, err := run(t, "", "format", "--write", dir); err != nil {
		t.Fatalf("format --write failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "| a         | bbb |\n| --------- | --- |\n| long cell | x   |") {
		t.Errorf("formatted = %q", data)
	}

	if _, _, err := run(t, "", "format", dir); err != nil {
		t.Errorf("second dry run error = %v, want nil", err)
	}
}

func TestSignVerifyValidateCommands(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.md")
	bad := filepath.Join(dir, "bad.md")

	if err := os.WriteFile(good, []byte("# Title\n\nBody.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(bad, []byte("# Title\n\nLeft {{over}}.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := run(t, "", "verify", good); err == nil {
		t.Error("verify passed on an unsigned file")
	}

	if _, _, err := run(t, "", "sign", good, bad); err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	stdout, _, err := run(t, "", "verify", good, bad)
	if err != nil {
		t.Fatalf("verify failed: %v\n%s", err, stdout)
	}

	if !strings.Contains(stdout, "validated=true") || !strings.Contains(stdout, "validated=false") {
		t.Errorf("verify output = %q", stdout)
	}

	stdout, _, err = run(t, "", "validate", bad)
	if err == nil || !strings.Contains(stdout, "leftover wiki markup") {
		t.Errorf("validate = %q, %v", stdout, err)
	}
}

func TestFormatCommand_Normalize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.md")

	if err := os.WriteFile(path, []byte("# T\n\n\n\nBody.   \n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := run(t, "", "format", dir); err != nil {
		t.Errorf("plain dry run error = %v, want nil", err)
	}

	if _, _, err := run(t, "", "format", "--normalize", "--write", dir); err != nil {
		t.Fatalf("format --normalize failed: %v", err)
	}

	if data, _ := os.ReadFile(path); string(data) != "# T\n\nBody.\n" {
		t.Errorf("normalized = %q", data)
	}
}

func TestValidateCommand_TamperedSignature(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.md")

	if err := os.WriteFile(path, []byte("# Title\n\nBody.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := run(t, "", "sign", path); err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if err := os.WriteFile(path, []byte(strings.Replace(string(data), "Body.", "Forged.", 1)), 0o644); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := run(t, "", "validate", path)
	if err == nil || !strings.Contains(stdout, "integrity check failed") {
		t.Errorf("validate = %q, %v", stdout, err)
	}
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wikimd.yaml")

	if _, _, err := run(t, "", "config", "init", path); err != nil {
		t.Fatalf("config init failed: %v", err)
	}

	if _, _, err := run(t, "", "config", "init", path); !errors.Is(err, ErrConfigExists) {
		t.Errorf("second init error = %v, want ErrConfigExists", err)
	}

	// The defaults leave the input unset.
	if _, _, err := run(t, "", "config", "check", path); err == nil || !strings.Contains(err.Error(), "input.path is required") {
		t.Errorf("check error = %v", err)
	}

	valid := writeConfig(t, dir, "input:\n  path: dump.xml\n")

	stdout, _, err := run(t, "", "config", "check", valid)
	if err != nil || !strings.Contains(stdout, "Input: dump.xml") {
		t.Errorf("check = %q, %v", stdout, err)
	}
}
