package tracking

import (
	"database/sql"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"mixdeck.dev/internal/sound"
)

// Recorder writes engine play events to the journal. The first write error
// disables it so a broken database never slows playback down.
type Recorder struct {
	mu        sync.Mutex
	db        *sql.DB
	sessionID string
	disabled  bool
}

// NewRecorder creates a recorder for sessionID. An empty id gets a fresh
// random one.
func NewRecorder(db *sql.DB, sessionID string) *Recorder {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &Recorder{
		db:        db,
		sessionID: sessionID,
	}
}

// SessionID returns the id stamped on every row
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// Disabled reports whether a write error turned the recorder off
func (r *Recorder) Disabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disabled
}

// Record inserts one event
func (r *Recorder) Record(event sound.PlayEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disabled {
		return
	}

	_, err := r.db.Exec(`
		INSERT INTO play_events (timestamp, session_id, kind, name, path, volume, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.Time.Unix(),
		r.sessionID,
		event.Kind,
		event.Name,
		event.Path,
		event.Volume,
		event.Outcome)
	if err != nil {
		slog.Warn("play tracking failed, disabling recorder", "error", err, "name", event.Name)
		r.disabled = true
		return
	}

	slog.Debug("play tracked",
		"session_id", r.sessionID,
		"kind", event.Kind,
		"name", event.Name,
		"outcome", event.Outcome)
}

// Hook returns the recorder as an engine event hook
func (r *Recorder) Hook() sound.EventHook {
	return r.Record
}
