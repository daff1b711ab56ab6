package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Joseda-hg/lazytrip/internal/generator"
	"github.com/Joseda-hg/lazytrip/internal/model"
	"github.com/Joseda-hg/lazytrip/internal/validate"
)

type formField struct {
	Label string
	Value string
}

type formKind int

const (
	formRecord formKind = iota
	formGenerate
)

const (
	fieldDate = iota
	fieldTime
	fieldCity
	fieldActivity
	fieldDuration
	fieldNotes
)

const (
	fieldGenCity = iota
	fieldGenDays
	fieldGenStart
)

const defaultGenerateDays = "3"

func buildFormFields(record *model.Record) []formField {
	fields := []formField{
		{Label: "Date (YYYY-MM-DD)"},
		{Label: "Time (HH:MM)"},
		{Label: "City"},
		{Label: "Activity"},
		{Label: "Duration"},
		{Label: "Notes"},
	}
	if record == nil {
		return fields
	}
	for i, value := range record.Fields() {
		fields[i].Value = value
	}
	return fields
}

func parseFormFields(fields []formField) model.Record {
	values := make([]string, len(fields))
	for i, field := range fields {
		values[i] = field.Value
	}
	return validate.Normalize(model.RecordFromFields(values))
}

func buildGenerateFields(city string) []formField {
	return []formField{
		{Label: "City", Value: city},
		{Label: fmt.Sprintf("Days (1-%d)", generator.MaxDays), Value: defaultGenerateDays},
		{Label: "Start (YYYY-MM-DD, blank = tomorrow)"},
	}
}

type generateInput struct {
	City  string
	Days  int
	Start time.Time
}

func parseGenerateFields(fields []formField, now time.Time) (generateInput, error) {
	city := strings.TrimSpace(fields[fieldGenCity].Value)
	if city == "" {
		return generateInput{}, fmt.Errorf("city is required")
	}

	days, err := strconv.Atoi(strings.TrimSpace(fields[fieldGenDays].Value))
	if err != nil {
		return generateInput{}, fmt.Errorf("days must be a number")
	}
	if err := generator.CheckDays(days); err != nil {
		return generateInput{}, fmt.Errorf("days must be between 1 and %d", generator.MaxDays)
	}

	start := generator.DefaultStart(now)
	if value := strings.TrimSpace(fields[fieldGenStart].Value); value != "" {
		parsed, err := time.Parse(time.DateOnly, value)
		if err != nil {
			return generateInput{}, fmt.Errorf("invalid start date")
		}
		start = parsed
	}

	return generateInput{City: city, Days: days, Start: start}, nil
}
