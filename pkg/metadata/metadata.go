// Package metadata appends and checks the integrity block carried at the end of a corpus file.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// TagStart is the start of the metadata block.
	TagStart = "<!-- METADATA_START"
	// TagEnd is the end of the metadata block.
	TagEnd = "METADATA_END -->"
)

// Metadata verification errors.
var (
	ErrNoMetadataBlock = errors.New("no metadata block found")
	ErrNoHashFound     = errors.New("no hash found in metadata")
	ErrHashMismatch    = errors.New("hash mismatch")
	ErrSignerClosed    = errors.New("signer already closed")
)

// Metadata contains the corpus status information.
type Metadata struct {
	LastModify time.Time
	Hash       string
	// Pages is the number of converted pages, zero when unknown.
	Pages      int
	Validation bool
}

// metadataRegex matches the entire metadata block including tags.
var metadataRegex = regexp.MustCompile(`(?s)<!--\s*METADATA_START\s*\n(.*?)\n\s*METADATA_END\s*-->`)

// Extract removes the metadata block from content and returns both the metadata and the cleaned content.
// The cleaned content is what gets hashed.
func Extract(content string) (*Metadata, string) {
	match := metadataRegex.FindStringSubmatch(content)
	cleanContent := metadataRegex.ReplaceAllString(content, "")
	// Trailing newlines never take part in the hash
	cleanContent = strings.TrimRight(cleanContent, "\n")

	if len(match) < 2 {
		return nil, cleanContent
	}

	meta := &Metadata{}

	for line := range strings.SplitSeq(match[1], "\n") {
		key, val, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}

		val = strings.TrimSpace(val)

		switch strings.TrimSpace(key) {
		case "VALIDATION":
			meta.Validation = strings.EqualFold(val, "TRUE")
		case "LAST_MODIFY":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				meta.LastModify = t
			}
		case "HASH":
			meta.Hash = val
		case "PAGES":
			if n, err := strconv.Atoi(val); err == nil {
				meta.Pages = n
			}
		}
	}

	return meta, cleanContent
}

// CalculateHash computes the SHA-256 hash of the content, excluding any metadata block.
func CalculateHash(content string) string {
	_, clean := Extract(content)
	sum := sha256.Sum256([]byte(clean))

	return hex.EncodeToString(sum[:])
}

// Sign replaces any metadata block with one carrying a fresh hash and timestamp.
func Sign(content string, validated bool) string {
	_, clean := Extract(content)

	return clean + "\n\n" + block(CalculateHash(clean), validated, 0)
}

// Resign replaces the block of content with a fresh one that keeps the
// validation flag and page count of meta.
func Resign(content string, meta *Metadata) string {
	_, clean := Extract(content)

	return clean + "\n\n" + block(CalculateHash(clean), meta.Validation, meta.Pages)
}

func block(hash string, validated bool, pages int) string {
	valStr := "FALSE"
	if validated {
		valStr = "TRUE"
	}

	var sb strings.Builder

	sb.WriteString(TagStart + "\n")
	fmt.Fprintf(&sb, "VALIDATION: %s\n", valStr)
	fmt.Fprintf(&sb, "LAST_MODIFY: %s\n", time.Now().UTC().Format(time.RFC3339))

	if pages > 0 {
		fmt.Fprintf(&sb, "PAGES: %d\n", pages)
	}

	fmt.Fprintf(&sb, "HASH: %s\n", hash)
	sb.WriteString(TagEnd)

	return sb.String()
}

// Verify checks if the content matches the hash in its metadata.
func Verify(content string) (*Metadata, error) {
	meta, clean := Extract(content)
	if meta == nil {
		return nil, ErrNoMetadataBlock
	}

	if meta.Hash == "" {
		return meta, ErrNoHashFound
	}

	calculated := CalculateHash(clean)
	if calculated != meta.Hash {
		return meta, fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, meta.Hash, calculated)
	}

	return meta, nil
}

// VerifyFile reads the file at path and verifies its metadata block.
func VerifyFile(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return Verify(string(data))
}

// Signer passes a stream through to w while hashing it, so a corpus can
// be signed without holding it in memory. Trailing newlines are held
// back from the hash until more content follows, which keeps the result
// equal to CalculateHash over the whole stream.
type Signer struct {
	w       io.Writer
	hash    hash.Hash
	pending int
	closed  bool
}

// NewSigner creates a signer writing to w.
func NewSigner(w io.Writer) *Signer {
	return &Signer{w: w, hash: sha256.New()}
}

// Write implements io.Writer.
func (s *Signer) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrSignerClosed
	}

	n, err := s.w.Write(p)
	s.digest(p[:n])

	return n, err
}

func (s *Signer) digest(p []byte) {
	last := len(p) - 1
	for last >= 0 && p[last] == '\n' {
		last--
	}

	if last < 0 {
		s.pending += len(p)
		return
	}

	if s.pending > 0 {
		s.hash.Write([]byte(strings.Repeat("\n", s.pending)))
	}

	s.hash.Write(p[:last+1])
	s.pending = len(p) - last - 1
}

// Sum returns the hash of everything written so far.
func (s *Signer) Sum() string {
	return hex.EncodeToString(s.hash.Sum(nil))
}

// Close appends the metadata block. It does not close the underlying writer.
func (s *Signer) Close(validated bool, pages int) error {
	if s.closed {
		return ErrSignerClosed
	}

	s.closed = true

	sep := ""
	if s.pending < 2 {
		sep = strings.Repeat("\n", 2-s.pending)
	}

	if _, err := io.WriteString(s.w, sep+block(s.Sum(), validated, pages)+"\n"); err != nil {
		return fmt.Errorf("failed to write metadata block: %w", err)
	}

	return nil
}
