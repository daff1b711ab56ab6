// Package summary renders an itinerary as numbered plain text for reading,
// pasting or saving as a .txt file.
package summary

import (
	"fmt"
	"os"
	"strings"

	"github.com/Joseda-hg/lazytrip/internal/model"
)

// Title is the first line of every summary.
const Title = "Travel Itinerary Summary"

// Format renders records in order, numbered from 1.
func Format(records []model.Record) string {
	var b strings.Builder
	b.WriteString(Title)
	b.WriteString("\n\n")
	for i, r := range records {
		fmt.Fprintf(&b, "%d. %s %s — %s (%s)\n    Notes: %s\n\n", i+1, r.Date, r.Time, r.Activity, r.City, r.Notes)
	}
	return b.String()
}

// WriteFile saves the formatted summary to path.
func WriteFile(path string, records []model.Record) error {
	if err := os.WriteFile(path, []byte(Format(records)), 0o644); err != nil {
		return fmt.Errorf("%w: write summary %s: %v", model.ErrIOFailure, path, err)
	}
	return nil
}
