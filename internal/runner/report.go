package runner

import (
	"maps"
	"slices"
	"time"

	"wikimd/internal/logger"
	"wikimd/internal/models"

	"github.com/dustin/go-humanize"
)

// Report summarizes one run.
type Report struct {
	// Filtered counts pages rejected by the namespace filter, by reason.
	Filtered map[string]int
	// Skipped counts pages the converter skipped, by reason.
	Skipped map[string]int
	// Templates counts rendered data templates by name.
	Templates       map[string]int
	Diagnostics     []models.Diagnostic
	Seen            int
	OutOfRange      int
	Converted       int
	Invalid         int
	SectionsRemoved int
	TablesConverted int
	TablesDropped   int
	BytesIn         int64
	BytesOut        int64
	Elapsed         time.Duration
}

func newReport() *Report {
	return &Report{
		Filtered:  make(map[string]int),
		Skipped:   make(map[string]int),
		Templates: make(map[string]int),
	}
}

func (r *Report) add(o outcome) {
	res := o.result

	if res.OK() {
		r.Converted++
	} else {
		r.Skipped[res.Reason]++
	}

	if o.invalid {
		r.Invalid++
	}

	for name, n := range o.report.Templates.Rendered {
		r.Templates[name] += n
	}

	r.SectionsRemoved += len(o.report.Sections.Sections)
	r.TablesDropped += len(o.report.Tables.Dropped())
	r.TablesConverted += len(o.report.Tables.Tables) - len(o.report.Tables.Dropped())
	r.Diagnostics = append(r.Diagnostics, res.Diagnostics...)
}

// SkippedTotal returns the number of skipped pages across all reasons.
func (r *Report) SkippedTotal() int {
	total := 0
	for _, n := range r.Skipped {
		total += n
	}

	return total
}

// FilteredTotal returns the number of filtered pages across all reasons.
func (r *Report) FilteredTotal() int {
	total := 0
	for _, n := range r.Filtered {
		total += n
	}

	return total
}

// Log writes the summary at info level.
func (r *Report) Log(log *logger.Logger) {
	log.Info("Conversion finished",
		"pages_seen", humanize.Comma(int64(r.Seen)),
		"converted", humanize.Comma(int64(r.Converted)),
		"skipped", humanize.Comma(int64(r.SkippedTotal())),
		"filtered", humanize.Comma(int64(r.FilteredTotal())),
		"out_of_range", humanize.Comma(int64(r.OutOfRange)),
		"tables_converted", r.TablesConverted,
		"tables_dropped", r.TablesDropped,
		"sections_removed", r.SectionsRemoved,
		"diagnostics", len(r.Diagnostics),
		"bytes_in", humanize.Bytes(uint64(r.BytesIn)),
		"bytes_out", humanize.Bytes(uint64(r.BytesOut)),
		"elapsed", r.Elapsed.Round(time.Millisecond).String(),
	)

	for _, reason := range slices.Sorted(maps.Keys(r.Skipped)) {
		log.Info("Skipped pages", "reason", reason, "count", r.Skipped[reason])
	}

	if r.Invalid > 0 {
		log.Warn("Pages failed Markdown validation", "count", r.Invalid)
	}
}
