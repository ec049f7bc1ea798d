package sqlite

import (
	"encoding/json"
	"time"
)

// Timestamps are stored as fixed-width UTC text so that string
// comparison in WHERE clauses matches chronological order.
const timeFormat = "2006-01-02T15:04:05.000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeFormat) }

func parseTime(s string) time.Time {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// paramsText stores absent params as an empty object.
func paramsText(data json.RawMessage) string {
	if len(data) == 0 {
		return "{}"
	}
	return string(data)
}

func sqlBool(b bool) int {
	if b {
		return 1
	}
	return 0
}
