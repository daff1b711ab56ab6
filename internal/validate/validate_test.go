package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joseda-hg/lazytrip/internal/model"
)

func TestLooksValid(t *testing.T) {
	tests := []struct {
		date string
		time string
		want bool
	}{
		{"2024-01-01", "09:00", true},
		{"2024-01-01", "9:05", true},
		{"2024-02-29", "23:59", true},
		{"2023-02-29", "09:00", false},
		{"2024-13-01", "09:00", false},
		{"2024-1-1", "09:00", false},
		{"01/02/2024", "09:00", false},
		{"", "09:00", false},
		{"2024-01-01", "24:00", false},
		{"2024-01-01", "09:60", false},
		{"2024-01-01", "9", false},
		{"2024-01-01", "09:5", false},
		{"2024-01-01", "009:00", false},
		{"2024-01-01", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.date+" "+tt.time, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksValid(tt.date, tt.time))
		})
	}
}

func TestRequired(t *testing.T) {
	ok := model.Record{Date: "2024-01-01", City: "Paris", Activity: "Louvre"}
	require.NoError(t, Required(ok))

	err := Required(model.Record{Date: "2024-01-01", City: "  ", Activity: ""})
	require.ErrorIs(t, err, model.ErrInvalidArgument)
	assert.ErrorContains(t, err, "City")
	assert.ErrorContains(t, err, "Activity")
	assert.NotContains(t, err.Error(), "Date")
}

func TestNormalize(t *testing.T) {
	got := Normalize(model.Record{Date: " 2024-01-01 ", Time: "09:00\n", City: "\tParis", Notes: " a b "})

	assert.Equal(t, model.Record{Date: "2024-01-01", Time: "09:00", City: "Paris", Notes: "a b"}, got)
}
