// Package runner fans pages out to a worker pool and writes the results back in dump order.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"wikimd/internal/config"
	"wikimd/internal/dump"
	"wikimd/internal/logger"
	"wikimd/internal/models"
	"wikimd/internal/normalizer"
	"wikimd/internal/validator"

	"golang.org/x/sync/errgroup"
)

// progressEvery is the page interval between progress log lines.
const progressEvery = 1000

// Source yields pages in dump order until io.EOF.
type Source interface {
	Next() (models.Page, error)
}

// Sink receives results in dump order.
type Sink interface {
	Write(models.Result) error
}

// Runner converts a stream of pages with a bounded number of pages in flight.
type Runner struct {
	processor *normalizer.Processor
	filter    *dump.Filter
	validator *validator.MarkdownValidator
	parser    config.ParserConfig
	workers   int
	log       *logger.Logger
}

// New creates a runner from the configuration.
func New(cfg *config.Config, log *logger.Logger) *Runner {
	workers := cfg.Parser.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	r := &Runner{
		processor: normalizer.NewProcessor(normalizer.OptionsFromConfig(cfg.Cleaning)),
		filter:    dump.NewFilter(cfg.Parser.ExcludedNamespaces),
		parser:    cfg.Parser,
		workers:   workers,
		log:       log.With("component", "runner"),
	}

	if cfg.Validation.Enabled {
		r.validator = validator.NewMarkdownValidator(cfg.Validation)
	}

	return r
}

// Workers returns the size of the worker pool.
func (r *Runner) Workers() int {
	return r.workers
}

type job struct {
	page models.Page
	seq  int
}

type outcome struct {
	result  models.Result
	report  normalizer.PageReport
	invalid bool
	seq     int
}

// Run reads every page from src, converts the selected ones and writes
// them to sink in source order. It stops at the first read or write error.
func (r *Runner) Run(ctx context.Context, src Source, sink Sink) (*Report, error) {
	report := newReport()
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)

	jobs := make(chan job, r.workers)
	results := make(chan outcome, r.workers)
	window := make(chan struct{}, 2*r.workers)

	g.Go(func() error {
		defer close(jobs)

		return r.produce(ctx, src, jobs, window, report)
	})

	var wg sync.WaitGroup

	for range r.workers {
		wg.Add(1)

		g.Go(func() error {
			defer wg.Done()

			return r.work(ctx, jobs, results)
		})
	}

	g.Go(func() error {
		wg.Wait()
		close(results)

		return nil
	})

	g.Go(func() error {
		return r.collect(ctx, results, window, sink, report)
	})

	err := g.Wait()
	report.Elapsed = time.Since(start)

	return report, err
}

func (r *Runner) produce(ctx context.Context, src Source, jobs chan<- job, window chan struct{}, report *Report) error {
	seq := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("failed to read page: %w", err)
		}

		report.Seen++
		report.BytesIn += int64(len(page.Text))

		if report.Seen%progressEvery == 0 {
			r.log.Info("Reading dump", "pages", report.Seen)
		}

		if r.parser.PastEnd(page.Index) {
			return nil
		}

		if !r.parser.InRange(page.Index) {
			report.OutOfRange++
			continue
		}

		if keep, reason := r.filter.Check(page); !keep {
			report.Filtered[reason]++
			r.log.Debug("Page filtered", "title", page.Title, "reason", reason)

			continue
		}

		select {
		case window <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}

		select {
		case jobs <- job{page: page, seq: seq}:
			seq++
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Runner) work(ctx context.Context, jobs <-chan job, results chan<- outcome) error {
	for j := range jobs {
		res, pageReport := r.processor.ProcessWithReport(j.page)
		out := outcome{result: res, report: pageReport, seq: j.seq}

		if r.validator != nil && res.OK() {
			check := r.validator.ValidateMarkdown(res.Markdown)
			if !check.IsValid {
				out.invalid = true
				out.result.Diagnostics = append(out.result.Diagnostics, check.Diagnostics(res.Title)...)
			}
		}

		select {
		case results <- out:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

func (r *Runner) collect(ctx context.Context, results <-chan outcome, window <-chan struct{}, sink Sink, report *Report) error {
	pending := make(map[int]outcome)
	next := 0

	for out := range results {
		pending[out.seq] = out

		for {
			o, ok := pending[next]
			if !ok {
				break
			}

			delete(pending, next)
			next++

			if err := r.emit(o, sink, report); err != nil {
				return err
			}

			select {
			case <-window:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return nil
}

func (r *Runner) emit(o outcome, sink Sink, report *Report) error {
	res := o.result
	report.add(o)

	for _, d := range res.Diagnostics {
		r.log.Warn("Conversion diagnostic", "page", d.PageTitle, "component", string(d.Component), "message", d.Message)
	}

	if !res.OK() {
		if res.Reason == models.ReasonRedirect || res.Reason == models.ReasonEmpty {
			r.log.Info("Page skipped", "title", res.Title, "reason", res.Reason)
		} else {
			r.log.Warn("Page skipped", "title", res.Title, "reason", res.Reason)
		}
	}

	if err := sink.Write(res); err != nil {
		return fmt.Errorf("failed to write %q: %w", res.Title, err)
	}

	return nil
}
