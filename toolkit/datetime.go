package toolkit

import (
	"fmt"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/tool"
)

const dateLayout = "2006-01-02"

// DateTimeTools returns tools for date-related operations: the current date
// and time plus calendar computations the model is unreliable at.
func DateTimeTools() []tool.Tool {
	return dateTimeTools(time.Now)
}

// dateTimeTools takes the clock as a parameter so tests can pin it.
func dateTimeTools(now func() time.Time) []tool.Tool {
	noArgs := map[string]any{"type": "object", "properties": map[string]any{}}

	return []tool.Tool{
		tool.NewFunctionTool(
			"get_todays_date",
			"Returns today's date in YYYY-MM-DD format.",
			noArgs,
			func(tc *core.ToolContext, args map[string]any) (any, error) {
				return now().Format(dateLayout), nil
			},
		),
		tool.NewFunctionTool(
			"get_todays_datetime",
			"Returns today's date and time in YYYY-MM-DD HH:MM:SS format.",
			noArgs,
			func(tc *core.ToolContext, args map[string]any) (any, error) {
				return now().Format("2006-01-02 15:04:05"), nil
			},
		),
		tool.NewFunctionTool(
			"get_current_time",
			"Returns the current time in HH:MM:SS format.",
			noArgs,
			func(tc *core.ToolContext, args map[string]any) (any, error) {
				return now().Format("15:04:05"), nil
			},
		),
		tool.NewFunctionToolFromStruct(
			"is_leap_year",
			"Checks if the given year is a leap year.",
			leapYearArgs{},
			func(tc *core.ToolContext, args map[string]any) (any, error) {
				year := int(args["year"].(float64))
				return isLeapYear(year), nil
			},
		),
		tool.NewFunctionToolFromStruct(
			"delta",
			"Calculates the difference between two dates in the specified unit (days, weeks, months, years).",
			deltaArgs{},
			func(tc *core.ToolContext, args map[string]any) (any, error) {
				return dateDelta(args["start_date"].(string), args["end_date"].(string), args["unit"].(string))
			},
		),
		tool.NewFunctionToolFromStruct(
			"add_delta",
			"Adds a delta to a date in the specified unit (days, weeks, months, years).",
			addDeltaArgs{},
			func(tc *core.ToolContext, args map[string]any) (any, error) {
				return addDelta(args["start_date"].(string), int(args["delta"].(float64)), args["unit"].(string))
			},
		),
	}
}

type leapYearArgs struct {
	Year int `json:"year" description:"The year to check"`
}

type deltaArgs struct {
	StartDate string `json:"start_date" description:"Start date in YYYY-MM-DD format"`
	EndDate   string `json:"end_date" description:"End date in YYYY-MM-DD format"`
	Unit      string `json:"unit" description:"One of days, weeks, months, years"`
}

type addDeltaArgs struct {
	StartDate string `json:"start_date" description:"Start date in YYYY-MM-DD format"`
	Delta     int    `json:"delta" description:"Amount to add, may be negative"`
	Unit      string `json:"unit" description:"One of days, weeks, months, years"`
}

func isLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

func dateDelta(startDate, endDate, unit string) (string, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return "", fmt.Errorf("invalid start_date: %w", err)
	}

	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return "", fmt.Errorf("invalid end_date: %w", err)
	}

	switch unit {
	case "days":
		return fmt.Sprintf("%d", int(end.Sub(start).Hours()/24)), nil
	case "weeks":
		return fmt.Sprintf("%d", int(end.Sub(start).Hours()/24)/7), nil
	case "months":
		return fmt.Sprintf("%d months", monthsBetween(start, end)), nil
	case "years":
		return fmt.Sprintf("%d years", monthsBetween(start, end)/12), nil
	default:
		return "", fmt.Errorf("invalid unit %q, use days, weeks, months or years", unit)
	}
}

func addDelta(startDate string, delta int, unit string) (string, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return "", fmt.Errorf("invalid start_date: %w", err)
	}

	switch unit {
	case "days":
		return start.AddDate(0, 0, delta).Format(dateLayout), nil
	case "weeks":
		return start.AddDate(0, 0, delta*7).Format(dateLayout), nil
	case "months":
		return start.AddDate(0, delta, 0).Format(dateLayout), nil
	case "years":
		return start.AddDate(delta, 0, 0).Format(dateLayout), nil
	default:
		return "", fmt.Errorf("invalid unit %q, use days, weeks, months or years", unit)
	}
}

// monthsBetween counts whole calendar months from start to end.
func monthsBetween(start, end time.Time) int {
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if end.Day() < start.Day() {
		months--
	}
	return months
}
