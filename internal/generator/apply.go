package generator

import (
	"fmt"
	"strings"

	"github.com/Joseda-hg/lazytrip/internal/model"
)

// Mode is the answer to "append the generated itinerary or replace the
// current one?".
type Mode int

const (
	Append Mode = iota
	Replace
	Cancel
)

func (m Mode) String() string {
	switch m {
	case Append:
		return "append"
	case Replace:
		return "replace"
	case Cancel:
		return "cancel"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts append, replace or cancel (any case). Empty means append.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "append", "a":
		return Append, nil
	case "replace", "r":
		return Replace, nil
	case "cancel", "c":
		return Cancel, nil
	default:
		return Cancel, fmt.Errorf("%w: unknown mode %q", model.ErrInvalidArgument, value)
	}
}

// Target is the part of the record store Apply needs.
type Target interface {
	Clear()
	Append(records []model.Record) int
}

// Apply feeds generated records into target according to mode and returns
// how many records were added.
func Apply(target Target, records []model.Record, mode Mode) int {
	switch mode {
	case Replace:
		target.Clear()
		return target.Append(records)
	case Append:
		return target.Append(records)
	default:
		return 0
	}
}
