// Package formatter aligns the columns of Markdown tables in converted pages.
package formatter

import (
	"strings"

	"wikimd/pkg/metadata"

	"github.com/mattn/go-runewidth"
)

// minColumnWidth keeps room for the "---" separator.
const minColumnWidth = 3

// FormatMarkdown runs passes over content in order, then aligns every
// table. A metadata block, when present, is re-signed over the result.
func FormatMarkdown(content string, passes ...func(string) string) (string, error) {
	meta, cleanContent := metadata.Extract(content)

	for _, pass := range passes {
		cleanContent = pass(cleanContent)
	}

	formatted := AlignTables(cleanContent)

	if meta == nil {
		return formatted, nil
	}

	return metadata.Resign(formatted, meta), nil
}

// AlignTables pads the cells of each run of table rows so the pipes line
// up in a monospace view. Widths are measured in display columns.
func AlignTables(content string) string {
	lines := strings.Split(content, "\n")

	var (
		formattedLines []string
		tableBuffer    []string
	)

	for _, line := range lines {
		if isTableRow(line) {
			tableBuffer = append(tableBuffer, line)

			continue
		}

		// A non-table line ends the buffered table
		if len(tableBuffer) > 0 {
			formattedLines = append(formattedLines, processTable(tableBuffer)...)
			tableBuffer = nil
		}

		formattedLines = append(formattedLines, line)
	}

	if len(tableBuffer) > 0 {
		formattedLines = append(formattedLines, processTable(tableBuffer)...)
	}

	return strings.Join(formattedLines, "\n")
}

func isTableRow(line string) bool {
	trimmed := strings.TrimSpace(line)

	return len(trimmed) >= 2 && strings.HasPrefix(trimmed, "|") && strings.HasSuffix(trimmed, "|")
}

// splitRow splits a table row on unescaped pipes, dropping the outer ones.
func splitRow(row string) []string {
	row = strings.TrimSpace(row)
	row = strings.TrimPrefix(row, "|")

	if strings.HasSuffix(row, "|") && !strings.HasSuffix(row, `\|`) {
		row = row[:len(row)-1]
	}

	var (
		cells []string
		cell  strings.Builder
	)

	for i := 0; i < len(row); i++ {
		switch {
		case row[i] == '\\' && i+1 < len(row) && row[i+1] == '|':
			cell.WriteString(`\|`)
			i++
		case row[i] == '|':
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		default:
			cell.WriteByte(row[i])
		}
	}

	return append(cells, strings.TrimSpace(cell.String()))
}

func isSeparatorRow(cells []string) bool {
	for _, cell := range cells {
		trim := strings.Trim(cell, "-: ")
		if trim != "" || !strings.Contains(cell, "-") {
			return false
		}
	}

	return len(cells) > 0
}

func processTable(rows []string) []string {
	// A header needs a separator row below it
	if len(rows) < 2 {
		return rows
	}

	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		table = append(table, splitRow(row))
	}

	colCount := 0
	for _, row := range table {
		colCount = max(colCount, len(row))
	}

	separatorRowIdx := -1
	if isSeparatorRow(table[1]) {
		separatorRowIdx = 1
	}

	colWidths := make([]int, colCount)

	for rIdx, row := range table {
		if rIdx == separatorRowIdx {
			continue
		}

		for i, cell := range row {
			colWidths[i] = max(colWidths[i], runewidth.StringWidth(cell))
		}
	}

	for i := range colWidths {
		colWidths[i] = max(colWidths[i], minColumnWidth)
	}

	result := make([]string, 0, len(table))

	for i, row := range table {
		var sb strings.Builder

		sb.WriteString("|")

		for j := range colCount {
			sb.WriteString(" ")

			if i == separatorRowIdx {
				sb.WriteString(separatorCell(cellAt(row, j), colWidths[j]))
			} else {
				content := cellAt(row, j)
				sb.WriteString(content)
				sb.WriteString(strings.Repeat(" ", colWidths[j]-runewidth.StringWidth(content)))
			}

			sb.WriteString(" |")
		}

		result = append(result, sb.String())
	}

	return result
}

func cellAt(row []string, j int) string {
	if j < len(row) {
		return row[j]
	}

	return ""
}

// separatorCell widens a separator cell, keeping its alignment colons.
func separatorCell(cell string, width int) string {
	left := strings.HasPrefix(cell, ":")
	right := strings.HasSuffix(cell, ":")

	dashes := width
	if left {
		dashes--
	}

	if right {
		dashes--
	}

	var sb strings.Builder

	if left {
		sb.WriteString(":")
	}

	sb.WriteString(strings.Repeat("-", max(dashes, 1)))

	if right {
		sb.WriteString(":")
	}

	return sb.String()
}
