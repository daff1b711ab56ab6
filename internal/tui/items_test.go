package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/Joseda-hg/lazytrip/internal/model"
)

func TestFormatRowAlignsWideRunes(t *testing.T) {
	records := []model.Record{
		{Date: "2024-05-01", Time: "09:00", City: "東京", Activity: "Senso-ji"},
		{Date: "2024-05-02", Time: "10:00", City: "Osaka", Activity: "Castle"},
	}
	widths := columnWidths(records)

	first := formatRow(records[0].Fields(), widths)
	second := formatRow(records[1].Fields(), widths)
	firstActivity := runewidth.StringWidth(first[:strings.Index(first, "Senso-ji")])
	secondActivity := runewidth.StringWidth(second[:strings.Index(second, "Castle")])
	if firstActivity != secondActivity {
		t.Fatalf("expected activity column to start at the same cell, got %d and %d", firstActivity, secondActivity)
	}
}

func TestColumnWidthsAreCapped(t *testing.T) {
	records := []model.Record{{Notes: strings.Repeat("n", 100)}}

	widths := columnWidths(records)

	if widths[5] != maxColumnWidth {
		t.Fatalf("expected notes width %d, got %d", maxColumnWidth, widths[5])
	}
	row := formatRow(records[0].Fields(), widths)
	if !strings.HasSuffix(row, "…") {
		t.Fatalf("expected truncated cell, got %q", row)
	}
}

func TestFormatRowFlattensNewlines(t *testing.T) {
	widths := columnWidths([]model.Record{{Notes: "a\nb"}})

	row := formatRow([]string{"", "", "", "", "", "a\nb"}, widths)

	if strings.Contains(row, "\n") {
		t.Fatalf("expected newline removed, got %q", row)
	}
}

func TestVisibleWindow(t *testing.T) {
	cases := []struct {
		offset, selected, height, total, want int
	}{
		{0, 0, 5, 3, 0},
		{0, 7, 5, 20, 3},
		{6, 2, 5, 20, 2},
		{3, 4, 5, 20, 3},
		{18, 19, 5, 20, 15},
	}
	for _, tc := range cases {
		if got := visibleWindow(tc.offset, tc.selected, tc.height, tc.total); got != tc.want {
			t.Fatalf("visibleWindow(%d, %d, %d, %d) = %d, want %d", tc.offset, tc.selected, tc.height, tc.total, got, tc.want)
		}
	}
}

func TestFormatDetailFlagsOddFormat(t *testing.T) {
	detail := formatDetail(0, model.Record{Date: "soon", City: "Oslo"})

	if !strings.Contains(detail, "looks unusual") {
		t.Fatalf("expected warning in detail, got %q", detail)
	}
	if !strings.Contains(detail, "City:") {
		t.Fatalf("expected labelled fields, got %q", detail)
	}
}

func TestPathWithExt(t *testing.T) {
	if got := pathWithExt("/tmp/trip.csv", ".txt"); got != "/tmp/trip.txt" {
		t.Fatalf("unexpected path %q", got)
	}
	if got := pathWithExt("", ".xlsx"); got != "itinerary.xlsx" {
		t.Fatalf("unexpected path %q", got)
	}
}

func TestParseGenerateFields(t *testing.T) {
	now := time.Date(2024, 12, 31, 22, 0, 0, 0, time.UTC)

	input, err := parseGenerateFields(buildGenerateFields(" Lisbon "), now)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if input.City != "Lisbon" || input.Days != 3 || input.Start.Format(time.DateOnly) != "2025-01-01" {
		t.Fatalf("unexpected input %+v", input)
	}

	fields := buildGenerateFields("Lisbon")
	fields[fieldGenDays].Value = "three"
	if _, err := parseGenerateFields(fields, now); err == nil {
		t.Fatalf("expected error for non-numeric days")
	}
}

func TestSortedOrderIsStable(t *testing.T) {
	records := []model.Record{
		{City: "Oslo", Activity: "b"},
		{City: "Bergen", Activity: "a"},
		{City: "Oslo", Activity: "a"},
	}

	asc := sortedOrder(records, 2, false)
	if asc[0] != 1 || asc[1] != 0 || asc[2] != 2 {
		t.Fatalf("unexpected ascending order %v", asc)
	}
	desc := sortedOrder(records, 2, true)
	if desc[0] != 0 || desc[1] != 2 || desc[2] != 1 {
		t.Fatalf("unexpected descending order %v", desc)
	}
	none := sortedOrder(records, -1, false)
	if none[0] != 0 || none[1] != 1 || none[2] != 2 {
		t.Fatalf("expected store order, got %v", none)
	}
	if sortLabel(-1, false) != "" || sortLabel(3, true) != "Activity desc" {
		t.Fatalf("unexpected labels")
	}
}
