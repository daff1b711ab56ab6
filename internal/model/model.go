package model

import (
	"time"

	"github.com/google/uuid"
)

// Columns is the fixed record schema, in storage and display order.
var Columns = []string{"Date", "Time", "City", "Activity", "Duration", "Notes"}

// Record is one itinerary line. Date and Time are nominally YYYY-MM-DD and
// HH:MM but are stored as entered.
type Record struct {
	Date     string `json:"date" validate:"notblank"`
	Time     string `json:"time"`
	City     string `json:"city" validate:"notblank"`
	Activity string `json:"activity" validate:"notblank"`
	Duration string `json:"duration"`
	Notes    string `json:"notes"`
}

// Fields returns the record in Columns order.
func (r Record) Fields() []string {
	return []string{r.Date, r.Time, r.City, r.Activity, r.Duration, r.Notes}
}

// RecordFromFields builds a record from a row, padding missing trailing
// fields with "" and dropping anything past the sixth column.
func RecordFromFields(fields []string) Record {
	padded := make([]string, len(Columns))
	copy(padded, fields)
	return Record{
		Date:     padded[0],
		Time:     padded[1],
		City:     padded[2],
		Activity: padded[3],
		Duration: padded[4],
		Notes:    padded[5],
	}
}

// Snapshot is a named, saved copy of an itinerary.
type Snapshot struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Count     int       `json:"count"`
	CreatedAt time.Time `json:"created_at"`
}
