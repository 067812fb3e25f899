package normalizer

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// maxSpan caps colspan/rowspan values taken from markup.
const maxSpan = 64

// Reasons a table is dropped.
var (
	ErrUnterminatedTable = errors.New("unterminated table")
	ErrNestedTable       = errors.New("nested table")
	ErrMalformedCell     = errors.New("unbalanced markup in cell")
	ErrEmptyHeader       = errors.New("table has no header cells")
	ErrNoRows            = errors.New("table has no rows")
)

var (
	cellAttrPattern = regexp.MustCompile(`^\s*(?:[a-zA-Z][\w-]*\s*(?:=\s*(?:"[^"]*"|'[^']*'|[^\s"']+))?\s*)*$`)
	spanAttrPattern = regexp.MustCompile(`(?i)\b(colspan|rowspan)\s*=\s*["']?(\d+)`)
)

// Cell is one table cell. Colspan and Rowspan are at least 1.
type Cell struct {
	Text    string
	Header  bool
	Colspan int
	Rowspan int
}

// Row is an ordered sequence of cells.
type Row []Cell

// Table is a parsed wikitext table. The first row is the header.
type Table struct {
	Caption string
	Rows    []Row
}

// TableResult is the outcome of converting one table block.
type TableResult struct {
	// Line is the 1-based line of the "{|" opening in the pass input.
	Line    int
	Outcome Outcome
	Err     error
	Columns int
}

// TableReport lists every table block found on a page.
type TableReport struct {
	Tables []TableResult
}

// Dropped returns the tables that were removed from the output.
func (r TableReport) Dropped() []TableResult {
	var out []TableResult

	for _, t := range r.Tables {
		if t.Outcome == Dropped {
			out = append(out, t)
		}
	}

	return out
}

// TableConverter replaces wikitext tables with Markdown tables.
type TableConverter struct{}

// NewTableConverter creates a converter.
func NewTableConverter() *TableConverter {
	return &TableConverter{}
}

// Convert replaces every table block in text. A table that cannot be
// parsed into a rectangular shape is removed entirely.
func (c *TableConverter) Convert(text string) (string, TableReport) {
	var (
		report TableReport
		out    []string
	)

	lines := strings.Split(text, "\n")

	for i := 0; i < len(lines); {
		trimmed := strings.TrimSpace(lines[i])

		switch {
		case isTableOpen(trimmed):
			end, nested := findTableEnd(lines, i)
			if end < 0 {
				end = tableRunEnd(lines, i)
				report.Tables = append(report.Tables, TableResult{Line: i + 1, Outcome: Dropped, Err: ErrUnterminatedTable})
				i = end

				continue
			}

			result := TableResult{Line: i + 1, Outcome: Converted}

			var rendered []string
			if nested {
				result.Outcome, result.Err = Dropped, ErrNestedTable
			} else if table, err := parseTable(lines[i : end+1]); err != nil {
				result.Outcome, result.Err = Dropped, err
			} else {
				rendered, result.Columns = renderTable(table)
			}

			report.Tables = append(report.Tables, result)

			if result.Outcome == Converted {
				out = append(out, "")
				out = append(out, rendered...)
				out = append(out, "")
			}

			i = end + 1
		case strings.HasPrefix(trimmed, "|}"):
			// Closing marker with no opening.
			i++
		default:
			out = append(out, lines[i])
			i++
		}
	}

	return strings.Join(out, "\n"), report
}

func isTableOpen(trimmed string) bool {
	return strings.HasPrefix(strings.TrimLeft(trimmed, ":"), "{|")
}

// findTableEnd returns the index of the "|}" closing the table opened at
// start, or -1. nested reports whether another table opens inside it.
func findTableEnd(lines []string, start int) (int, bool) {
	depth := 0
	nested := false

	for j := start; j < len(lines); j++ {
		trimmed := strings.TrimSpace(lines[j])

		switch {
		case isTableOpen(trimmed):
			depth++
			if depth > 1 {
				nested = true
			}
		case strings.HasPrefix(trimmed, "|}"):
			depth--
			if depth == 0 {
				return j, nested
			}
		}
	}

	return -1, nested
}

// tableRunEnd returns the index just past the contiguous run of table
// syntax lines beginning at start. A blank line ends the run, so table
// syntax after it is kept as text even though no "|}" follows.
func tableRunEnd(lines []string, start int) int {
	j := start + 1
	for ; j < len(lines); j++ {
		trimmed := strings.TrimSpace(lines[j])
		if trimmed == "" || !strings.ContainsAny(trimmed[:1], "|!{") {
			break
		}
	}

	return j
}

// parseTable parses the lines of one table block, "{|" and "|}" included.
func parseTable(lines []string) (Table, error) {
	var (
		table   Table
		current Row
	)

	flush := func() {
		if len(current) > 0 {
			table.Rows = append(table.Rows, current)
		}

		current = nil
	}

	for _, line := range lines[1 : len(lines)-1] {
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, "|-"):
			flush()
		case strings.HasPrefix(trimmed, "|+"):
			table.Caption = cellContent(trimmed[2:])
		case strings.HasPrefix(trimmed, "!"):
			for _, raw := range splitHeaderCells(trimmed[1:]) {
				current = append(current, parseCell(raw, true))
			}
		case strings.HasPrefix(trimmed, "|"):
			for _, raw := range splitTopLevel(trimmed[1:], "||") {
				current = append(current, parseCell(raw, false))
			}
		default:
			// Continuation of the previous cell.
			if n := len(current); n > 0 {
				current[n-1].Text = strings.TrimSpace(current[n-1].Text + " " + trimmed)
			}
		}
	}

	flush()

	if len(table.Rows) == 0 {
		return table, ErrNoRows
	}

	for _, row := range table.Rows {
		for _, cell := range row {
			if !balanced(cell.Text) {
				return table, ErrMalformedCell
			}
		}
	}

	if headerWidth(table.Rows[0]) == 0 {
		return table, ErrEmptyHeader
	}

	return table, nil
}

func splitHeaderCells(s string) []string {
	var out []string

	for _, part := range splitTopLevel(s, "!!") {
		out = append(out, splitTopLevel(part, "||")...)
	}

	return out
}

func parseCell(raw string, header bool) Cell {
	cell := Cell{Header: header, Colspan: 1, Rowspan: 1}

	parts := splitTopLevel(raw, "|")
	if len(parts) > 1 && cellAttrPattern.MatchString(parts[0]) {
		for _, m := range spanAttrPattern.FindAllStringSubmatch(parts[0], -1) {
			n, err := strconv.Atoi(m[2])
			if err != nil || n < 1 {
				continue
			}

			n = min(n, maxSpan)
			if strings.EqualFold(m[1], "colspan") {
				cell.Colspan = n
			} else {
				cell.Rowspan = n
			}
		}

		raw = strings.Join(parts[1:], "|")
	}

	cell.Text = strings.TrimSpace(raw)

	return cell
}

// cellContent strips a leading attribute section from caption text.
func cellContent(raw string) string {
	return parseCell(raw, false).Text
}

func headerWidth(row Row) int {
	width := 0
	for _, c := range row {
		width += c.Colspan
	}

	return width
}

type pendingCell struct {
	text      string
	remaining int
}

// expandSpans flattens colspan and rowspan by repeating cell text into
// every grid position the cell covers.
func expandSpans(rows []Row) [][]string {
	grid := make([][]string, 0, len(rows))
	pending := make(map[int]pendingCell)

	for _, row := range rows {
		var out []string

		col := 0
		takePending := func() {
			for {
				p, ok := pending[col]
				if !ok {
					return
				}

				out = append(out, p.text)
				if p.remaining--; p.remaining == 0 {
					delete(pending, col)
				} else {
					pending[col] = p
				}

				col++
			}
		}

		for _, cell := range row {
			takePending()

			for k := 0; k < cell.Colspan; k++ {
				out = append(out, cell.Text)
				if cell.Rowspan > 1 {
					pending[col] = pendingCell{text: cell.Text, remaining: cell.Rowspan - 1}
				}

				col++
			}
		}

		takePending()

		grid = append(grid, out)
	}

	return grid
}

// renderTable renders the table as Markdown lines and returns its column count.
func renderTable(t Table) ([]string, int) {
	grid := expandSpans(t.Rows)
	width := len(grid[0])

	var lines []string

	if caption := markdownCell(t.Caption); caption != "" {
		// Left as wiki italics for the line pass to render.
		lines = append(lines, "''"+caption+"''", "")
	}

	for i, row := range grid {
		cells := make([]string, width)
		for j := 0; j < width && j < len(row); j++ {
			cells[j] = markdownCell(row[j])
		}

		lines = append(lines, "| "+strings.Join(cells, " | ")+" |")

		if i == 0 {
			sep := make([]string, width)
			for j := range sep {
				sep[j] = "---"
			}

			lines = append(lines, "| "+strings.Join(sep, " | ")+" |")
		}
	}

	return lines, width
}

func markdownCell(text string) string {
	text = convertInline(text)
	text = strings.Join(strings.Fields(text), " ")

	return strings.ReplaceAll(text, "|", `\|`)
}

// String describes the result for diagnostics.
func (r TableResult) String() string {
	if r.Err != nil {
		return fmt.Sprintf("table at line %d %s: %v", r.Line, r.Outcome, r.Err)
	}

	return fmt.Sprintf("table at line %d %s (%d columns)", r.Line, r.Outcome, r.Columns)
}
