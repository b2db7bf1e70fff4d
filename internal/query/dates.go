package query

import (
	"strconv"
	"time"
)

// DefaultWindowDays is the size of the query window applied when the
// caller supplies no date range.
const DefaultWindowDays = 30

// NormalizeRange converts the start and end bounds of a query window to
// epoch milliseconds. Each bound may already be epoch milliseconds, in
// which case it passes through untouched, or a calendar date
// (YYYY-MM-DD), which expands to the start of day for the lower bound
// and the last millisecond of the day for the upper bound, both UTC.
// Empty bounds default independently: a missing start falls back to the
// beginning of the trailing window, a missing end to now.
func NormalizeRange(startAt, endAt string, now time.Time) (int64, int64, error) {
	start := now.AddDate(0, 0, -DefaultWindowDays).UnixMilli()
	end := now.UnixMilli()

	if startAt != "" {
		var err error
		start, err = normalizeBound(startAt, false)
		if err != nil {
			return 0, 0, err
		}
	}
	if endAt != "" {
		var err error
		end, err = normalizeBound(endAt, true)
		if err != nil {
			return 0, 0, err
		}
	}
	return start, end, nil
}

func normalizeBound(value string, endOfDay bool) (int64, error) {
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return ms, nil
	}

	day, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		return 0, err
	}
	if endOfDay {
		return day.Add(24*time.Hour - time.Millisecond).UnixMilli(), nil
	}
	return day.UnixMilli(), nil
}
