package models

import (
	"strconv"
	"strings"
)

// IndentWidth is the number of spaces per list nesting level. Four spaces
// nest correctly under both "- " and "10. " markers.
const IndentWidth = 4

// LineKind classifies an output Markdown line.
type LineKind int

// Line kinds.
const (
	KindBlank LineKind = iota
	KindParagraph
	KindHeading
	KindOrderedItem
	KindUnorderedItem
	KindTableRow
)

var lineKindNames = map[LineKind]string{
	KindBlank:         "blank",
	KindParagraph:     "paragraph",
	KindHeading:       "heading",
	KindOrderedItem:   "ordered-item",
	KindUnorderedItem: "unordered-item",
	KindTableRow:      "table-row",
}

func (k LineKind) String() string {
	if name, ok := lineKindNames[k]; ok {
		return name
	}

	return "unknown"
}

// IsList reports whether the kind is a list item.
func (k LineKind) IsList() bool {
	return k == KindOrderedItem || k == KindUnorderedItem
}

// MarkdownLine is one classified output line.
type MarkdownLine struct {
	Content string
	Kind    LineKind
	// Level is the heading level (1-6), zero for other kinds.
	Level int
	// Depth is the list nesting depth, zero for non-list kinds.
	Depth int
	// Number is the literal ordinal of an ordered item; rendered as 1 when unset.
	Number int
}

// String renders the line as Markdown.
func (l MarkdownLine) String() string {
	switch l.Kind {
	case KindHeading:
		return strings.Repeat("#", l.Level) + " " + l.Content
	case KindOrderedItem:
		n := l.Number
		if n < 1 {
			n = 1
		}

		return strings.Repeat(" ", IndentWidth*l.Depth) + strconv.Itoa(n) + ". " + l.Content
	case KindUnorderedItem:
		return strings.Repeat(" ", IndentWidth*l.Depth) + "- " + l.Content
	case KindBlank:
		return ""
	default:
		return l.Content
	}
}

// Block is a run of lines rendered as one visual unit.
type Block struct {
	Lines []MarkdownLine
}

// Kind returns the kind of the block's first line.
func (b Block) Kind() LineKind {
	if len(b.Lines) == 0 {
		return KindBlank
	}

	return b.Lines[0].Kind
}
