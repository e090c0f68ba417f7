package tracking

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mixdeck.dev/internal/sound"
)

// ErrNilDatabase is returned by queries given no connection
var ErrNilDatabase = errors.New("database connection is nil")

func whereSQL(filter QueryFilter, now time.Time, extra ...string) (string, []any) {
	clause, args := filter.BuildWhereClause(now)
	parts := extra
	if clause != "" {
		parts = append(parts, clause)
	}
	if len(parts) == 0 {
		return "", args
	}
	sqlText := " WHERE " + parts[0]
	for _, p := range parts[1:] {
		sqlText += " AND " + p
	}
	return sqlText, args
}

func limitSQL(limit int) string {
	if limit > 0 {
		return fmt.Sprintf(" LIMIT %d", limit)
	}
	return ""
}

// Stats summarizes the journal rows matching filter
func Stats(db *sql.DB, filter QueryFilter, now time.Time) (*Summary, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}

	where, args := whereSQL(filter, now)

	summary := &Summary{ByOutcome: make(map[string]int)}

	err := db.QueryRow(`SELECT COUNT(*), COUNT(DISTINCT session_id) FROM play_events`+where, args...).
		Scan(&summary.Total, &summary.Sessions)
	if err != nil {
		return nil, fmt.Errorf("failed to query totals: %w", err)
	}

	rows, err := db.Query(`SELECT outcome, COUNT(*) FROM play_events`+where+` GROUP BY outcome`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan outcome row: %w", err)
		}
		summary.ByOutcome[outcome] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outcome rows: %w", err)
	}

	names, err := usageByName(db, where, args, filter.Limit)
	if err != nil {
		return nil, err
	}
	summary.Names = names

	return summary, nil
}

func usageByName(db *sql.DB, where string, args []any, limit int) ([]NameUsage, error) {
	query := `
		SELECT
			kind,
			name,
			COUNT(*) AS requests,
			SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END) AS played,
			SUM(CASE WHEN outcome NOT IN (?, ?) THEN 1 ELSE 0 END) AS failed,
			MAX(CASE WHEN outcome = ? THEN timestamp ELSE 0 END) AS last_played
		FROM play_events` + where + `
		GROUP BY kind, name
		ORDER BY requests DESC, name ASC` + limitSQL(limit)

	fullArgs := append([]any{
		sound.OutcomePlayed,
		sound.OutcomePlayed, sound.OutcomeSkipped,
		sound.OutcomePlayed,
	}, args...)

	rows, err := db.Query(query, fullArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query name usage: %w", err)
	}
	defer rows.Close()

	var results []NameUsage
	for rows.Next() {
		var usage NameUsage
		var lastPlayed int64
		if err := rows.Scan(&usage.Kind, &usage.Name, &usage.Requests, &usage.Played, &usage.Failed, &lastPlayed); err != nil {
			return nil, fmt.Errorf("failed to scan name usage row: %w", err)
		}
		if lastPlayed > 0 {
			usage.LastPlayed = time.Unix(lastPlayed, 0)
		}
		results = append(results, usage)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating name usage rows: %w", err)
	}
	return results, nil
}

// MissingSounds lists names that failed to resolve, most requested first
func MissingSounds(db *sql.DB, filter QueryFilter, now time.Time) ([]MissingSound, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}

	where, args := whereSQL(filter, now, "outcome = ?")
	args = append([]any{sound.OutcomeNotFound}, args...)

	rows, err := db.Query(`
		SELECT name, kind, COUNT(*) AS request_count
		FROM play_events`+where+`
		GROUP BY kind, name
		ORDER BY request_count DESC, name ASC`+limitSQL(filter.Limit), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query missing sounds: %w", err)
	}
	defer rows.Close()

	var results []MissingSound
	for rows.Next() {
		var missing MissingSound
		if err := rows.Scan(&missing.Name, &missing.Kind, &missing.RequestCount); err != nil {
			return nil, fmt.Errorf("failed to scan missing sound row: %w", err)
		}
		results = append(results, missing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating missing sound rows: %w", err)
	}
	return results, nil
}

// Recent returns the newest journal rows matching filter
func Recent(db *sql.DB, filter QueryFilter, now time.Time) ([]PlayRecord, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}

	where, args := whereSQL(filter, now)
	rows, err := db.Query(`
		SELECT id, timestamp, session_id, kind, name, COALESCE(path, ''), volume, outcome
		FROM play_events`+where+`
		ORDER BY timestamp DESC, id DESC`+limitSQL(filter.Limit), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent plays: %w", err)
	}
	defer rows.Close()

	var results []PlayRecord
	for rows.Next() {
		var rec PlayRecord
		var ts int64
		if err := rows.Scan(&rec.ID, &ts, &rec.SessionID, &rec.Kind, &rec.Name, &rec.Path, &rec.Volume, &rec.Outcome); err != nil {
			return nil, fmt.Errorf("failed to scan play row: %w", err)
		}
		rec.Time = time.Unix(ts, 0)
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating play rows: %w", err)
	}
	return results, nil
}
