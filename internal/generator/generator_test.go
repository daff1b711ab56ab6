package generator

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joseda-hg/lazytrip/internal/model"
	"github.com/Joseda-hg/lazytrip/internal/store"
)

var newYear = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestGenerateTwoDaysInParis(t *testing.T) {
	records, err := Generate("Paris", 2, newYear)

	require.NoError(t, err)
	require.Len(t, records, 6)

	wantDates := []string{"2024-01-01", "2024-01-01", "2024-01-01", "2024-01-02", "2024-01-02", "2024-01-02"}
	wantTimes := []string{"09:00", "13:00", "18:30", "09:00", "13:00", "18:30"}
	for i, record := range records {
		assert.Equal(t, wantDates[i], record.Date)
		assert.Equal(t, wantTimes[i], record.Time)
		assert.Equal(t, "Paris", record.City)
		assert.Contains(t, record.Activity, "Paris")
	}

	assert.Equal(t, model.Record{
		Date:     "2024-01-01",
		Time:     "13:00",
		City:     "Paris",
		Activity: "Afternoon: Local food & market in Paris",
		Duration: "2h",
		Notes:    "Try recommended local dishes",
	}, records[1])
}

func TestGenerateRejectsNonPositiveDays(t *testing.T) {
	for _, days := range []int{0, -3} {
		_, err := Generate("Rome", days, newYear)
		assert.ErrorIs(t, err, model.ErrInvalidArgument)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	first, err := Generate("Lisbon", MaxDays, newYear)
	require.NoError(t, err)
	second, err := Generate("Lisbon", MaxDays, newYear)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, MaxDays*3)
	assert.Equal(t, "2024-01-14", first[len(first)-1].Date)
}

func TestGenerateCrossesMonthEnd(t *testing.T) {
	records, err := Generate("Oslo", 2, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", records[3].Date)
}

func TestDefaultStartIsTomorrow(t *testing.T) {
	now := time.Date(2024, 12, 31, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), DefaultStart(now))
}

func TestLoadTemplates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	content := `slots:
  - time: "08:00"
    activity: "Breakfast in {city}"
    duration: 1h
    notes: "Near the {city} station"
  - time: "20:00"
    activity: "Dinner"
    duration: 2h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	g, err := LoadTemplates(path)
	require.NoError(t, err)
	require.Len(t, g.Slots(), 2)

	records, err := g.Generate("Kyoto", 1, newYear)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Breakfast in Kyoto", records[0].Activity)
	assert.Equal(t, "Near the Kyoto station", records[0].Notes)
	assert.Equal(t, "20:00", records[1].Time)
}

func TestLoadTemplatesErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadTemplates(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, model.ErrIOFailure)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("slots: []\n"), 0o644))
	_, err = LoadTemplates(empty)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	g, err := LoadTemplates("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSlots, g.Slots())
}

func TestApply(t *testing.T) {
	generated, err := Generate("Paris", 1, newYear)
	require.NoError(t, err)

	tests := []struct {
		name      string
		mode      Mode
		wantAdded int
		wantCount int
	}{
		{name: "append", mode: Append, wantAdded: 3, wantCount: 5},
		{name: "replace", mode: Replace, wantAdded: 3, wantCount: 3},
		{name: "cancel", mode: Cancel, wantAdded: 0, wantCount: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := store.NewWithSample(newYear)

			added := Apply(s, generated, tt.mode)

			assert.Equal(t, tt.wantAdded, added)
			assert.Equal(t, tt.wantCount, s.Count())
		})
	}
}

func TestParseMode(t *testing.T) {
	for input, want := range map[string]Mode{"": Append, "Append": Append, "r": Replace, "REPLACE": Replace, "cancel": Cancel} {
		got, err := ParseMode(input)
		require.NoError(t, err)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseMode("merge")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
	assert.Equal(t, "replace", Replace.String())
}

func TestCheckDays(t *testing.T) {
	require.NoError(t, CheckDays(1))
	require.NoError(t, CheckDays(MaxDays))
	require.ErrorIs(t, CheckDays(0), model.ErrInvalidArgument)
	require.ErrorIs(t, CheckDays(MaxDays+1), model.ErrInvalidArgument)
}
