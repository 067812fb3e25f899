// Package corpus writes converted pages to a single Markdown or JSONL corpus file.
package corpus

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"wikimd/internal/config"
	"wikimd/internal/formatter"
	"wikimd/internal/models"
	"wikimd/pkg/metadata"
	"wikimd/pkg/utils"
)

// pageSeparator follows the license header and every page in Markdown output.
const pageSeparator = "\n\n---\n\n"

// Writer errors.
var (
	ErrWriterClosed      = errors.New("corpus writer is closed")
	ErrUnsupportedFormat = errors.New("unsupported corpus format")
)

// Options controls the corpus layout.
type Options struct {
	Format      string
	LicenseText string
	// BaseURL, when set, adds an article source line to every page.
	BaseURL     string
	AlignTables bool
	Sign        bool
}

// OptionsFromConfig maps the output section of the configuration.
func OptionsFromConfig(cfg config.OutputConfig) Options {
	return Options{
		Format:      cfg.Format,
		LicenseText: cfg.LicenseText,
		BaseURL:     cfg.BaseURL,
		AlignTables: cfg.AlignTables,
		Sign:        cfg.Sign,
	}
}

// Record is one JSONL line.
type Record struct {
	Title    string `json:"title"`
	Index    int    `json:"index"`
	URL      string `json:"url,omitempty"`
	Markdown string `json:"markdown"`
}

// Writer appends converted pages in the order they are given.
type Writer struct {
	buf    *bufio.Writer
	out    io.Writer
	signer *metadata.Signer
	file   *os.File
	// tmpPath is renamed to path on a successful Close.
	tmpPath string
	path    string
	opts    Options
	http    *utils.HTTPHelper
	strings *utils.StringHelper
	pages   int
	bytes   int64
	started bool
	closed  bool
}

// Create opens a corpus file at path. The content is staged in a
// temporary file next to it and only replaces path on Close.
func Create(path string, opts Options) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	w, err := newWriter(file, opts)
	if err != nil {
		_ = file.Close()
		_ = os.Remove(file.Name())

		return nil, err
	}

	w.file = file
	w.tmpPath = file.Name()
	w.path = path

	return w, nil
}

// NewWriter creates a corpus writer over an arbitrary stream.
func NewWriter(out io.Writer, opts Options) (*Writer, error) {
	return newWriter(out, opts)
}

func newWriter(out io.Writer, opts Options) (*Writer, error) {
	if opts.Format == "" {
		opts.Format = config.FormatMarkdown
	}

	if opts.Format != config.FormatMarkdown && opts.Format != config.FormatJSONL {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, opts.Format)
	}

	if opts.Sign && opts.Format != config.FormatMarkdown {
		return nil, config.ErrSignRequiresMarkdown
	}

	w := &Writer{
		buf:     bufio.NewWriter(out),
		opts:    opts,
		http:    utils.NewHTTPHelper(),
		strings: utils.NewStringHelper(),
	}

	w.out = w.buf
	if opts.Sign {
		w.signer = metadata.NewSigner(w.buf)
		w.out = w.signer
	}

	return w, nil
}

// Pages returns the number of pages written.
func (w *Writer) Pages() int {
	return w.pages
}

// Bytes returns the number of content bytes written, excluding the metadata block.
func (w *Writer) Bytes() int64 {
	return w.bytes
}

func (w *Writer) write(s string) error {
	n, err := io.WriteString(w.out, s)
	w.bytes += int64(n)

	if err != nil {
		return fmt.Errorf("failed to write corpus: %w", err)
	}

	return nil
}

func (w *Writer) start() error {
	if w.started {
		return nil
	}

	w.started = true

	license := strings.TrimSpace(w.opts.LicenseText)
	if license == "" || w.opts.Format != config.FormatMarkdown {
		return nil
	}

	return w.write(license + pageSeparator)
}

// Write appends one page result. Skipped pages are ignored.
func (w *Writer) Write(r models.Result) error {
	if w.closed {
		return ErrWriterClosed
	}

	if !r.OK() {
		return nil
	}

	if err := w.start(); err != nil {
		return err
	}

	content := r.Markdown
	if w.opts.AlignTables {
		content = formatter.AlignTables(content)
	}

	var url string
	if w.opts.BaseURL != "" {
		url = w.http.ArticleURL(w.opts.BaseURL, r.Title)
	}

	var err error

	switch w.opts.Format {
	case config.FormatJSONL:
		err = w.writeRecord(Record{Title: r.Title, Index: r.Index, URL: url, Markdown: content})
	default:
		err = w.writePage(r.Title, url, content)
	}

	if err != nil {
		return err
	}

	w.pages++

	return nil
}

func (w *Writer) writePage(title, url, content string) error {
	var sb strings.Builder

	sb.WriteString("# " + w.strings.NormalizeWhitespace(title) + "\n\n")

	if url != "" {
		sb.WriteString("> Article source: " + url + "\n\n")
	}

	sb.WriteString(content)
	sb.WriteString(pageSeparator)

	return w.write(sb.String())
}

func (w *Writer) writeRecord(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", rec.Title, err)
	}

	return w.write(string(data) + "\n")
}

// Close finishes the corpus. The validated flag is recorded in the
// metadata block when signing. An empty corpus still gets its license header.
func (w *Writer) Close(validated bool) error {
	if w.closed {
		return ErrWriterClosed
	}

	err := w.finish(validated)
	w.closed = true

	if w.file == nil {
		return err
	}

	if closeErr := w.file.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close output file: %w", closeErr)
	}

	if err != nil {
		_ = os.Remove(w.tmpPath)
		return err
	}

	if err := os.Chmod(w.tmpPath, 0o644); err != nil {
		_ = os.Remove(w.tmpPath)
		return fmt.Errorf("failed to set output permissions: %w", err)
	}

	if err := os.Rename(w.tmpPath, w.path); err != nil {
		_ = os.Remove(w.tmpPath)
		return fmt.Errorf("failed to move output into place: %w", err)
	}

	return nil
}

// Abort discards a file-backed corpus without replacing the target.
func (w *Writer) Abort() {
	if w.closed {
		return
	}

	w.closed = true

	if w.file != nil {
		_ = w.file.Close()
		_ = os.Remove(w.tmpPath)
	}
}

func (w *Writer) finish(validated bool) error {
	if err := w.start(); err != nil {
		return err
	}

	if w.signer != nil {
		if err := w.signer.Close(validated, w.pages); err != nil {
			return err
		}
	}

	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush corpus: %w", err)
	}

	return nil
}
