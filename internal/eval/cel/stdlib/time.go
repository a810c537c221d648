package stdlib

import (
	"context"
	"regexp"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/functions"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/runtime"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

type timeAccessor struct {
	function  string
	id        string
	timestamp func(t time.Time) int64
	duration  func(d value.Duration) int64
}

var timeAccessors = []timeAccessor{
	{function: "getFullYear", id: "year",
		timestamp: func(t time.Time) int64 { return int64(t.Year()) }},
	{function: "getMonth", id: "month",
		timestamp: func(t time.Time) int64 { return int64(t.Month()) - 1 }},
	{function: "getDate", id: "day_of_month_1_based",
		timestamp: func(t time.Time) int64 { return int64(t.Day()) }},
	{function: "getDayOfMonth", id: "day_of_month",
		timestamp: func(t time.Time) int64 { return int64(t.Day()) - 1 }},
	{function: "getDayOfWeek", id: "day_of_week",
		timestamp: func(t time.Time) int64 { return int64(t.Weekday()) }},
	{function: "getDayOfYear", id: "day_of_year",
		timestamp: func(t time.Time) int64 { return int64(t.YearDay()) - 1 }},
	{function: "getHours", id: "hours",
		timestamp: func(t time.Time) int64 { return int64(t.Hour()) },
		duration:  func(d value.Duration) int64 { return d.Seconds / 3600 }},
	{function: "getMinutes", id: "minutes",
		timestamp: func(t time.Time) int64 { return int64(t.Minute()) },
		duration:  func(d value.Duration) int64 { return d.Seconds / 60 }},
	{function: "getSeconds", id: "seconds",
		timestamp: func(t time.Time) int64 { return int64(t.Second()) },
		duration:  func(d value.Duration) int64 { return d.Seconds }},
	{function: "getMilliseconds", id: "milliseconds",
		timestamp: func(t time.Time) int64 { return int64(t.Nanosecond() / 1e6) },
		duration:  func(d value.Duration) int64 { return int64(d.Nanos / 1e6) }},
}

func timeFunctions() functions.Groups {
	groups := make(functions.Groups, 0, len(timeAccessors))
	for _, a := range timeAccessors {
		get := a.timestamp
		overloads := []*functions.Overload{
			functions.NewOverload("timestamp_to_"+a.id, sig(types.Timestamp), types.Int,
				func(rt *runtime.Context, _ int64, args []value.Value) value.Value {
					return value.Int(get(args[0].(value.Timestamp).Time().In(defaultLocation(rt))))
				}, functions.Member()),
			functions.NewOverload("timestamp_to_"+a.id+"_with_tz", sig(types.Timestamp, types.String), types.Int,
				func(rt *runtime.Context, id int64, args []value.Value) value.Value {
					loc, err := Location(string(args[1].(value.String)))
					if err != nil {
						return value.WrapError(id, err)
					}
					return value.Int(get(args[0].(value.Timestamp).Time().In(defaultLocation(inZone(rt, loc)))))
				}, functions.Member()),
		}
		if a.duration != nil {
			dget := a.duration
			overloads = append(overloads,
				unary("duration_to_"+a.id, types.Duration, types.Int, func(_ int64, v value.Value) value.Value {
					return value.Int(dget(v.(value.Duration)))
				}, functions.Member()))
		}
		groups = append(groups, functions.NewGroup(a.function, overloads...))
	}
	return groups
}

// inZone returns a child of rt whose default time zone is loc.
func inZone(rt *runtime.Context, loc *time.Location) *runtime.Context {
	if rt == nil {
		return runtime.New(context.Background(), nil, runtime.WithLocation(loc))
	}
	return rt.Push(runtime.WithLocation(loc))
}

func defaultLocation(rt *runtime.Context) *time.Location {
	if rt == nil || rt.Location() == nil {
		return time.UTC
	}
	return rt.Location()
}

var fixedOffset = regexp.MustCompile(`^([+-]?)(\d\d):(\d\d)$`)

// Location resolves a time zone argument: a fixed offset such as "+05:30"
// or "-08:00", or an IANA name such as "Europe/Madrid".
func Location(tz string) (*time.Location, error) {
	if m := fixedOffset.FindStringSubmatch(tz); m != nil {
		hours, _ := strconv.Atoi(m[2])
		minutes, _ := strconv.Atoi(m[3])
		offset := hours*3600 + minutes*60
		if m[1] == "-" {
			offset = -offset
		}
		return time.FixedZone(tz, offset), nil
	}
	if tz == "" || tz == "Local" {
		return nil, &timezoneError{tz}
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, &timezoneError{tz}
	}
	return loc, nil
}

type timezoneError struct {
	tz string
}

func (e *timezoneError) Error() string {
	return "invalid timezone: " + e.tz
}
