package dateformat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect_DayFirst(t *testing.T) {
	sample := []string{
		"25/12/2023, 14:30",
		"26/12/2023, 09:15",
		"3/1/2024, 21:02",
	}
	layout, err := Detect(sample)
	require.NoError(t, err)
	assert.Equal(t, "day-first-24h", layout.Name)

	ts, err := layout.Parse("25/12/2023, 14:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 12, 25, 14, 30, 0, 0, time.UTC), ts)
}

func TestDetect_MonthFirst12h(t *testing.T) {
	sample := []string{
		"12/25/2023, 2:30 PM",
		"12/26/2023, 9:15 AM",
	}
	layout, err := Detect(sample)
	require.NoError(t, err)
	assert.Equal(t, "month-first-12h", layout.Name)

	ts, err := layout.Parse("12/25/2023, 2:30 PM")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 12, 25, 14, 30, 0, 0, time.UTC), ts)
}

func TestDetect_Dotted(t *testing.T) {
	sample := []string{
		"25.12.2023, 14:30",
		"26.12.2023, 09:15",
	}
	layout, err := Detect(sample)
	require.NoError(t, err)
	assert.Equal(t, "dotted-24h", layout.Name)
}

func TestDetect_ISO(t *testing.T) {
	sample := []string{
		"2023-12-25, 14:30",
		"2023-12-26, 09:15",
	}
	layout, err := Detect(sample)
	require.NoError(t, err)
	assert.Equal(t, "iso-24h", layout.Name)
}

func TestDetect_AmbiguousPrefersDayFirst(t *testing.T) {
	// Every day value is <= 12, so day-first and month-first both parse;
	// the earlier layout in the closed set wins.
	sample := []string{
		"3/4/2023, 14:30",
		"5/6/2023, 09:15",
	}
	layout, err := Detect(sample)
	require.NoError(t, err)
	assert.Equal(t, "day-first-24h", layout.Name)
}

func TestDetect_MajorityWins(t *testing.T) {
	// One garbage line must not sink an otherwise consistent file.
	sample := []string{
		"25/12/2023, 14:30",
		"not a date at all",
		"26/12/2023, 09:15",
	}
	layout, err := Detect(sample)
	require.NoError(t, err)
	assert.Equal(t, "day-first-24h", layout.Name)
}

func TestDetect_NoMatchIsError(t *testing.T) {
	_, err := Detect([]string{"hello", "world"})
	assert.ErrorIs(t, err, ErrAmbiguous)

	_, err = Detect(nil)
	assert.ErrorIs(t, err, ErrAmbiguous)
}

func TestLayoutParse_NarrowSpaceNormalized(t *testing.T) {
	layout := Layouts[1] // month-first-12h
	ts, err := layout.Parse("12/25/2023, 2:30\u202fPM")
	require.NoError(t, err)
	assert.Equal(t, 14, ts.Hour())
}
