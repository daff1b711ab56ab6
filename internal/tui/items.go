package tui

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/Joseda-hg/lazytrip/internal/model"
	"github.com/Joseda-hg/lazytrip/internal/validate"
)

const (
	maxColumnWidth = 32
	columnGap      = "  "
)

// columnWidths sizes each column to its widest cell in display cells,
// capped at maxColumnWidth.
func columnWidths(records []model.Record) []int {
	widths := make([]int, len(model.Columns))
	for i, name := range model.Columns {
		widths[i] = runewidth.StringWidth(name)
	}
	for _, record := range records {
		for i, field := range record.Fields() {
			widths[i] = max(widths[i], runewidth.StringWidth(cellText(field)))
		}
	}
	for i := range widths {
		widths[i] = min(widths[i], maxColumnWidth)
	}
	return widths
}

func cellText(value string) string {
	value = strings.ReplaceAll(value, "\r", "")
	return strings.ReplaceAll(value, "\n", " ")
}

func formatRow(fields []string, widths []int) string {
	cells := make([]string, len(widths))
	for i, width := range widths {
		value := ""
		if i < len(fields) {
			value = cellText(fields[i])
		}
		value = runewidth.Truncate(value, width, "…")
		cells[i] = runewidth.FillRight(value, width)
	}
	return strings.TrimRight(strings.Join(cells, columnGap), " ")
}

func formatHeader(widths []int) string {
	return formatRow(model.Columns, widths)
}

// sortedOrder returns store indices in display order. A negative column keeps
// the store order; ties keep it too.
func sortedOrder(records []model.Record, column int, desc bool) []int {
	order := make([]int, len(records))
	for i := range order {
		order[i] = i
	}
	if column < 0 || column >= len(model.Columns) {
		return order
	}
	slices.SortStableFunc(order, func(a, b int) int {
		c := strings.Compare(records[a].Fields()[column], records[b].Fields()[column])
		if desc {
			return -c
		}
		return c
	})
	return order
}

func sortLabel(column int, desc bool) string {
	if column < 0 || column >= len(model.Columns) {
		return ""
	}
	if desc {
		return model.Columns[column] + " desc"
	}
	return model.Columns[column] + " asc"
}

func formatDetail(index int, record model.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Entry %d\n\n", index+1)
	for i, field := range record.Fields() {
		fmt.Fprintf(&b, "%-9s %s\n", model.Columns[i]+":", field)
	}
	if !validate.LooksValid(record.Date, record.Time) {
		b.WriteString("\n! date/time format looks unusual\n")
	}
	return b.String()
}

func describeRecord(index int, record model.Record) string {
	label := strings.TrimSpace(record.Activity)
	if label == "" {
		label = "untitled"
	}
	return fmt.Sprintf("entry %d (%s)", index+1, label)
}

// visibleWindow returns the first row to draw so that selected stays inside
// a window of height rows.
func visibleWindow(offset, selected, height, total int) int {
	if height <= 0 || total <= height {
		return 0
	}
	if selected < offset {
		offset = selected
	}
	if selected >= offset+height {
		offset = selected - height + 1
	}
	return max(0, min(offset, total-height))
}

func clampSelection(selected, total int) int {
	if total == 0 {
		return 0
	}
	return max(0, min(selected, total-1))
}

// pathWithExt swaps the extension of base for ext, falling back to a name
// in the working directory.
func pathWithExt(base, ext string) string {
	if base == "" {
		return "itinerary" + ext
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}
