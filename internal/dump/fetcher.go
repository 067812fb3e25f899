package dump

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"wikimd/internal/config"
	"wikimd/pkg/utils"
)

// sniffBufferSize is the read buffer placed in front of every source.
const sniffBufferSize = 64 * 1024

// ErrUnexpectedStatusCode indicates an HTTP response with unexpected status.
var ErrUnexpectedStatusCode = errors.New("unexpected status code")

var (
	bzip2Magic = []byte("BZh")
	gzipMagic  = []byte{0x1f, 0x8b}
)

// Source is an open, decompressed dump stream.
type Source struct {
	io.Reader

	// Name is the path or URL the stream was opened from.
	Name string
	// Size is the compressed size in bytes, or -1 when unknown.
	Size int64
	// Compression is "bzip2", "gzip" or "" for plain XML.
	Compression string
	StatusCode  int
	Attempts    int
	Duration    time.Duration

	closer io.Closer
}

// Close releases the underlying file or response body.
func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}

	return s.closer.Close()
}

// Fetcher opens dumps from local files or http(s) URLs with config-driven retry logic.
type Fetcher struct {
	client      *http.Client
	retryPolicy *config.RetryPolicy
	http        *utils.HTTPHelper
}

// NewFetcher creates a fetcher with the default retry policy.
func NewFetcher() *Fetcher {
	policy := config.DefaultRetryPolicy()

	return NewFetcherWithConfig(&policy)
}

// NewFetcherWithConfig creates a fetcher with a custom retry policy. The
// timeout bounds the wait for response headers only, since dump bodies
// can take far longer to stream.
func NewFetcherWithConfig(retryPolicy *config.RetryPolicy) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: retryPolicy.GetTimeout(),
			},
		},
		retryPolicy: retryPolicy,
		http:        utils.NewHTTPHelper(),
	}
}

// Open returns a decompressed stream of the dump at path.
func (f *Fetcher) Open(ctx context.Context, path string) (*Source, error) {
	var (
		src *Source
		err error
	)

	if f.http.IsValidURL(path) {
		src, err = f.openURL(ctx, path)
	} else {
		src, err = openFile(path)
	}

	if err != nil {
		return nil, err
	}

	if err := src.decompress(); err != nil {
		_ = src.Close()
		return nil, err
	}

	return src, nil
}

func openFile(path string) (*Source, error) {
	startTime := time.Now()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump %s: %w", path, err)
	}

	size := int64(-1)
	if info, err := file.Stat(); err == nil {
		size = info.Size()
	}

	return &Source{
		Reader:   file,
		Name:     path,
		Size:     size,
		Attempts: 1,
		Duration: time.Since(startTime),
		closer:   file,
	}, nil
}

func (f *Fetcher) openURL(ctx context.Context, url string) (*Source, error) {
	var (
		lastErr        error
		lastStatusCode int
	)

	totalDuration := time.Duration(0)

	for attempt := 1; attempt <= f.retryPolicy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepContext(ctx, f.retryPolicy.GetRetryDelay(attempt)); err != nil {
				return nil, err
			}
		}

		startTime := time.Now()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header = f.http.BuildHeaders(nil)

		resp, err := f.client.Do(req)
		totalDuration += time.Since(startTime)

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			lastErr = fmt.Errorf("request failed (attempt %d/%d): %w", attempt, f.retryPolicy.MaxAttempts, err)

			continue
		}

		lastStatusCode = resp.StatusCode

		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)

			// Only retry on specific status codes
			if !isRetryableStatus(resp.StatusCode) {
				break
			}

			continue
		}

		return &Source{
			Reader:     resp.Body,
			Name:       url,
			Size:       resp.ContentLength,
			StatusCode: resp.StatusCode,
			Attempts:   attempt,
			Duration:   totalDuration,
			closer:     resp.Body,
		}, nil
	}

	return nil, fmt.Errorf("failed to fetch %s (last status %d): %w", url, lastStatusCode, lastErr)
}

// decompress wraps the stream in a decompressor chosen by its magic bytes.
func (s *Source) decompress() error {
	buffered := bufio.NewReaderSize(s.Reader, sniffBufferSize)

	head, err := buffered.Peek(3)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read dump header: %w", err)
	}

	switch {
	case bytes.HasPrefix(head, bzip2Magic):
		s.Reader = bzip2.NewReader(buffered)
		s.Compression = "bzip2"
	case bytes.HasPrefix(head, gzipMagic):
		gz, err := gzip.NewReader(buffered)
		if err != nil {
			return fmt.Errorf("failed to open gzip stream: %w", err)
		}

		s.Reader = gz
		s.Compression = "gzip"
	default:
		s.Reader = buffered
	}

	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isRetryableStatus determines if we should retry based on HTTP status code.
func isRetryableStatus(statusCode int) bool {
	// Retry on temporary failures
	switch statusCode {
	case http.StatusServiceUnavailable: // 503
		return true
	case http.StatusGatewayTimeout: // 504
		return true
	case http.StatusTooManyRequests: // 429
		return true
	case http.StatusRequestTimeout: // 408
		return true
	case http.StatusBadGateway: // 502
		return true
	}

	return false
}
