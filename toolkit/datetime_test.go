package toolkit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/tool"
)

func newToolContext(t *testing.T) *core.ToolContext {
	t.Helper()

	runCtx := core.NewRunContext(context.Background(), nil, core.NewRunState("test", nil), nil, nil)

	return core.NewToolContext(runCtx, "call1", core.State{})
}

func findTool(t *testing.T, tools []tool.Tool, name string) tool.Tool {
	t.Helper()

	for _, tl := range tools {
		if tl.Name() == name {
			return tl
		}
	}

	t.Fatalf("tool %q not found", name)

	return nil
}

func TestDateTimeToolsFixedClock(t *testing.T) {
	clock := func() time.Time {
		return time.Date(2024, 2, 29, 13, 45, 10, 0, time.UTC)
	}

	tools := dateTimeTools(clock)
	tc := newToolContext(t)

	date, err := findTool(t, tools, "get_todays_date").Call(tc, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", date)

	datetime, err := findTool(t, tools, "get_todays_datetime").Call(tc, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29 13:45:10", datetime)

	now, err := findTool(t, tools, "get_current_time").Call(tc, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "13:45:10", now)
}

func TestIsLeapYear(t *testing.T) {
	tests := []struct {
		year int
		leap bool
	}{
		{2024, true},
		{2023, false},
		{1900, false},
		{2000, true},
	}

	tools := DateTimeTools()
	tc := newToolContext(t)
	leapTool := findTool(t, tools, "is_leap_year")

	for _, tt := range tests {
		result, err := leapTool.Call(tc, map[string]any{"year": float64(tt.year)})
		require.NoError(t, err)
		assert.Equal(t, tt.leap, result, "year %d", tt.year)
	}
}

func TestDateDelta(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		unit  string
		want  string
	}{
		{name: "days", start: "2024-01-01", end: "2024-01-31", unit: "days", want: "30"},
		{name: "weeks", start: "2024-01-01", end: "2024-01-31", unit: "weeks", want: "4"},
		{name: "months", start: "2024-01-15", end: "2024-04-10", unit: "months", want: "2 months"},
		{name: "full months", start: "2024-01-15", end: "2024-04-15", unit: "months", want: "3 months"},
		{name: "years", start: "2020-06-01", end: "2024-06-01", unit: "years", want: "4 years"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dateDelta(tt.start, tt.end, tt.unit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDateDeltaInvalidUnit(t *testing.T) {
	_, err := dateDelta("2024-01-01", "2024-02-01", "fortnights")
	require.Error(t, err)
}

func TestAddDelta(t *testing.T) {
	tests := []struct {
		name  string
		start string
		delta int
		unit  string
		want  string
	}{
		{name: "days", start: "2024-02-28", delta: 2, unit: "days", want: "2024-03-01"},
		{name: "weeks back", start: "2024-03-15", delta: -2, unit: "weeks", want: "2024-03-01"},
		{name: "months", start: "2024-01-31", delta: 1, unit: "months", want: "2024-03-02"},
		{name: "years", start: "2020-05-10", delta: 3, unit: "years", want: "2023-05-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := addDelta(tt.start, tt.delta, tt.unit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
