package tracking

import (
	"log/slog"

	"mixdeck.dev/internal/sound"
)

// SlogHook logs every play event at debug level
type SlogHook struct {
	logger *slog.Logger
}

// NewSlogHook creates a new SlogHook with the given logger
// If logger is nil, uses the default logger
func NewSlogHook(logger *slog.Logger) *SlogHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogHook{logger: logger}
}

// Hook returns the event hook
func (s *SlogHook) Hook() sound.EventHook {
	return func(event sound.PlayEvent) {
		s.logger.Debug("play event",
			"kind", event.Kind,
			"name", event.Name,
			"path", event.Path,
			"volume", event.Volume,
			"outcome", event.Outcome)
	}
}

// Chain fans one event out to every non-nil hook in order
func Chain(hooks ...sound.EventHook) sound.EventHook {
	var active []sound.EventHook
	for _, h := range hooks {
		if h != nil {
			active = append(active, h)
		}
	}
	return func(event sound.PlayEvent) {
		for _, h := range active {
			h(event)
		}
	}
}
