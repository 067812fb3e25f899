// Package dump reads pages out of MediaWiki XML export files.
package dump

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"wikimd/internal/models"

	"github.com/dustin/go-wikiparse"
)

// ErrNotADump is returned when the stream does not start with a
// <mediawiki> root followed by its <siteinfo>.
var ErrNotADump = errors.New("input is not a MediaWiki XML dump")

// SiteInfo describes the wiki the dump was exported from.
type SiteInfo struct {
	Name string
	Base string
	// Namespaces maps the namespace key, as written in the dump, to its name.
	Namespaces map[string]string
}

// Reader streams pages from a dump one at a time. Only the current page
// is held in memory.
type Reader struct {
	src    io.Reader
	parser wikiparse.Parser
	site   SiteInfo
	count  int
}

// NewReader creates a reader over an uncompressed XML stream. The dump
// header is read on the first call to Next.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		src:  r,
		site: SiteInfo{Namespaces: make(map[string]string)},
	}
}

// SiteInfo returns the site description read so far.
func (r *Reader) SiteInfo() SiteInfo {
	return r.site
}

// Count returns the number of pages read so far.
func (r *Reader) Count() int {
	return r.count
}

// Next returns the next page. It returns io.EOF after the last page.
func (r *Reader) Next() (models.Page, error) {
	if r.parser == nil {
		if err := r.open(); err != nil {
			return models.Page{}, err
		}
	}

	p, err := r.parser.Next()
	if errors.Is(err, io.EOF) {
		return models.Page{}, io.EOF
	}

	if err != nil {
		return models.Page{}, fmt.Errorf("failed to read dump after %d pages: %w", r.count, err)
	}

	r.count++

	return r.toPage(p), nil
}

func (r *Reader) open() error {
	parser, err := wikiparse.NewParser(r.src)
	if errors.Is(err, io.EOF) {
		return ErrNotADump
	}

	if err != nil {
		return fmt.Errorf("failed to read dump header: %w", err)
	}

	info := parser.SiteInfo()
	if info.SiteName == "" && info.Base == "" && len(info.Namespaces) == 0 {
		return ErrNotADump
	}

	r.site.Name = strings.TrimSpace(info.SiteName)
	r.site.Base = strings.TrimSpace(info.Base)

	for _, ns := range info.Namespaces {
		r.site.Namespaces[fmt.Sprint(ns.Key)] = strings.TrimSpace(ns.Value)
	}

	r.parser = parser

	return nil
}

func (r *Reader) toPage(p *wikiparse.Page) models.Page {
	page := models.Page{
		Title:     strings.TrimSpace(p.Title),
		Namespace: r.namespaceName(p),
		Index:     r.count,
	}

	// Full-history dumps list revisions oldest first.
	if n := len(p.Revisions); n > 0 {
		page.Text = p.Revisions[n-1].Text
	}

	return page
}

func (r *Reader) namespaceName(p *wikiparse.Page) string {
	key := fmt.Sprint(p.Ns)
	if key == "0" {
		return ""
	}

	if name, ok := r.site.Namespaces[key]; ok {
		return name
	}

	if i := strings.IndexByte(p.Title, ':'); i > 0 {
		return p.Title[:i]
	}

	return ""
}
