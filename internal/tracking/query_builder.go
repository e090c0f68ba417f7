package tracking

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tj/go-naturaldate"
)

// QueryFilter selects journal rows for the stats queries
type QueryFilter struct {
	// Time filters. DatePreset wins over StartTime/EndTime, which win over Days.
	StartTime  *time.Time // inclusive
	EndTime    *time.Time // inclusive
	Days       int        // last N days
	DatePreset string     // "today", "yesterday", "week", "last-week", "month", "last-month", "all"

	Kind      string // "sound" or "music"
	Name      string
	Outcome   string
	SessionID string

	Limit int // maximum rows, 0 for no limit
}

// HasTimeFilter reports whether any time option is set
func (q *QueryFilter) HasTimeFilter() bool {
	return q.StartTime != nil || q.EndTime != nil || q.Days > 0 || q.DatePreset != ""
}

// ApplyTimeFilter converts QueryFilter time options to Unix timestamps.
// A zero start means no lower bound.
func (q *QueryFilter) ApplyTimeFilter(now time.Time) (startUnix, endUnix int64) {
	endUnix = now.Unix()

	if q.DatePreset != "" {
		start, end, err := ParseDatePreset(q.DatePreset, now)
		if err != nil {
			slog.Warn("invalid date preset, using no time filter", "preset", q.DatePreset, "error", err)
			return 0, endUnix
		}
		if start.IsZero() {
			return 0, end.Unix()
		}
		return start.Unix(), end.Unix()
	}

	if q.StartTime != nil && q.EndTime != nil {
		return q.StartTime.Unix(), q.EndTime.Unix()
	}
	if q.StartTime != nil {
		return q.StartTime.Unix(), endUnix
	}
	if q.EndTime != nil {
		return 0, q.EndTime.Unix()
	}

	if q.Days > 0 {
		return now.AddDate(0, 0, -q.Days).Unix(), endUnix
	}

	return 0, endUnix
}

// BuildWhereClause constructs the SQL WHERE clause (without the keyword)
// and its arguments
func (q *QueryFilter) BuildWhereClause(now time.Time) (string, []any) {
	var clauses []string
	var args []any

	if q.HasTimeFilter() {
		startUnix, endUnix := q.ApplyTimeFilter(now)
		if startUnix > 0 {
			clauses = append(clauses, "timestamp >= ?")
			args = append(args, startUnix)
		}
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, endUnix)
	}

	if q.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, q.Kind)
	}

	if q.Name != "" {
		clauses = append(clauses, "name = ?")
		args = append(args, q.Name)
	}

	if q.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, q.Outcome)
	}

	if q.SessionID != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, q.SessionID)
	}

	whereClause := strings.Join(clauses, " AND ")
	slog.Debug("built where clause", "clause", whereClause, "arg_count", len(args))

	return whereClause, args
}

// ParseDatePreset converts date preset strings to time ranges
func ParseDatePreset(preset string, now time.Time) (start, end time.Time, err error) {
	switch preset {
	case "today":
		start = beginningOfDay(now)
		end = now
	case "yesterday":
		start = beginningOfDay(now.AddDate(0, 0, -1))
		end = beginningOfDay(now)
	case "week", "this-week":
		start = beginningOfWeek(now)
		end = now
	case "last-week":
		start = beginningOfWeek(now).AddDate(0, 0, -7)
		end = beginningOfWeek(now)
	case "month", "this-month":
		start = beginningOfMonth(now)
		end = now
	case "last-month":
		start = beginningOfMonth(now).AddDate(0, -1, 0)
		end = beginningOfMonth(now)
	case "all", "all-time":
		start = time.Time{}
		end = now
	default:
		err = fmt.Errorf("unknown preset: %s", preset)
	}
	return
}

// ParseNaturalDate parses expressions like "2 hours ago" or "yesterday"
// relative to now
func ParseNaturalDate(naturalDate string, now time.Time) (time.Time, error) {
	result, err := naturaldate.Parse(naturalDate, now)
	if err != nil {
		slog.Warn("failed to parse natural language date", "input", naturalDate, "error", err)
		return time.Time{}, fmt.Errorf("failed to parse natural date '%s': %w", naturalDate, err)
	}

	slog.Debug("parsed natural language date", "input", naturalDate, "result", result)
	return result, nil
}

func beginningOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// beginningOfWeek returns Monday 00:00 of t's week
func beginningOfWeek(t time.Time) time.Time {
	weekday := t.Weekday()
	if weekday == time.Sunday {
		weekday = 7
	}
	monday := t.AddDate(0, 0, -int(weekday-1))
	return beginningOfDay(monday)
}

func beginningOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
