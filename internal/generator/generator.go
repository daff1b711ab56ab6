// Package generator builds template itineraries for a city: a fixed set of
// activity slots repeated for each day of the trip.
package generator

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Joseda-hg/lazytrip/internal/model"
)

// MaxDays is the largest day count the input controls offer.
const MaxDays = 14

// CityPlaceholder is replaced with the city name in template text.
const CityPlaceholder = "{city}"

// Slot is one activity repeated on every generated day.
type Slot struct {
	Time     string `yaml:"time"`
	Activity string `yaml:"activity"`
	Duration string `yaml:"duration"`
	Notes    string `yaml:"notes"`
}

// DefaultSlots are the morning, afternoon and evening activities.
var DefaultSlots = []Slot{
	{Time: "09:00", Activity: "Morning: Explore {city} landmarks", Duration: "3h", Notes: "Start early to avoid crowds"},
	{Time: "13:00", Activity: "Afternoon: Local food & market in {city}", Duration: "2h", Notes: "Try recommended local dishes"},
	{Time: "18:30", Activity: "Evening: Relax / nightlife / sunset views in {city}", Duration: "2h", Notes: "Great time for photos"},
}

type templateFile struct {
	Slots []Slot `yaml:"slots"`
}

// Generator produces records from a slot catalogue.
type Generator struct {
	slots []Slot
}

// New returns a generator over slots, or over DefaultSlots when slots is empty.
func New(slots []Slot) *Generator {
	if len(slots) == 0 {
		slots = DefaultSlots
	}
	return &Generator{slots: append([]Slot(nil), slots...)}
}

// LoadTemplates reads a YAML slot catalogue:
//
//	slots:
//	  - time: "08:00"
//	    activity: "Breakfast in {city}"
//	    duration: 1h
//	    notes: ""
//
// An empty path yields the default catalogue.
func LoadTemplates(path string) (*Generator, error) {
	if path == "" {
		return New(nil), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read templates %s: %v", model.ErrIOFailure, path, err)
	}

	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse templates %s: %w", path, err)
	}
	if len(file.Slots) == 0 {
		return nil, fmt.Errorf("%w: templates %s define no slots", model.ErrInvalidArgument, path)
	}
	return New(file.Slots), nil
}

// Slots returns the catalogue in use.
func (g *Generator) Slots() []Slot {
	return append([]Slot(nil), g.slots...)
}

// Generate returns one record per slot for each of days consecutive days
// starting at start.
func (g *Generator) Generate(city string, days int, start time.Time) ([]model.Record, error) {
	if days < 1 {
		return nil, fmt.Errorf("%w: day count must be at least 1, got %d", model.ErrInvalidArgument, days)
	}

	records := make([]model.Record, 0, days*len(g.slots))
	for day := 0; day < days; day++ {
		date := start.AddDate(0, 0, day).Format(time.DateOnly)
		for _, slot := range g.slots {
			records = append(records, model.Record{
				Date:     date,
				Time:     slot.Time,
				City:     city,
				Activity: strings.ReplaceAll(slot.Activity, CityPlaceholder, city),
				Duration: slot.Duration,
				Notes:    strings.ReplaceAll(slot.Notes, CityPlaceholder, city),
			})
		}
	}
	return records, nil
}

// Generate runs the default catalogue.
func Generate(city string, days int, start time.Time) ([]model.Record, error) {
	return New(nil).Generate(city, days, start)
}

// DefaultStart is the first generated day for a request made at now:
// the following calendar day.
func DefaultStart(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, now.Location())
}

// CheckDays rejects day counts outside 1..MaxDays, the range the input
// controls accept.
func CheckDays(days int) error {
	if days < 1 || days > MaxDays {
		return fmt.Errorf("%w: days must be between 1 and %d, got %d", model.ErrInvalidArgument, MaxDays, days)
	}
	return nil
}
