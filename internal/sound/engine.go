// Package sound provides the game-facing sound engines: a mixer-backed
// engine, a silent one and one driving system audio commands.
package sound

import (
	"errors"
	"time"
)

// Engine errors
var (
	ErrDeviceInit    = errors.New("audio device initialization failed")
	ErrUnknownEngine = errors.New("unknown sound engine")
	ErrNotAvailable  = errors.New("sound engine not available")
)

// Engine is the sound interface game code talks to. Play operations never
// return errors: failures are logged and the request is dropped.
type Engine interface {
	PlaySound(name string, volume, panning float64)
	PlayMusic(filename string, volume float64, loop bool)
	StopMusic()

	SetSoundVolume(v float64)
	SetMusicVolume(v float64)
	SetMasterVolume(v float64)
	SoundVolume() float64
	MusicVolume() float64
	MasterVolume() float64

	// Update is called once per frame
	Update(delta time.Duration)

	Close() error
}

// MusicReporter is implemented by engines that can tell when their music
// has finished
type MusicReporter interface {
	MusicPlaying() bool
}

// PathResolver maps a logical sound name to an asset file
type PathResolver interface {
	ResolveSound(name string) (string, error)
}

// PathResolverFunc adapts a function to PathResolver
type PathResolverFunc func(name string) (string, error)

func (f PathResolverFunc) ResolveSound(name string) (string, error) {
	return f(name)
}

// Flags are the global switches polled before every play request
type Flags interface {
	SoundEnabled() bool
	MusicEnabled() bool
}

// StaticFlags is a fixed Flags value
type StaticFlags struct {
	Sound bool
	Music bool
}

func (f StaticFlags) SoundEnabled() bool { return f.Sound }
func (f StaticFlags) MusicEnabled() bool { return f.Music }

// Event kinds
const (
	KindSound = "sound"
	KindMusic = "music"
)

// Event outcomes
const (
	OutcomePlayed       = "played"
	OutcomeSkipped      = "skipped"
	OutcomeNotFound     = "not_found"
	OutcomeDecodeFailed = "decode_failed"
	OutcomeNoChannel    = "no_channel"
	OutcomePlayFailed   = "play_failed"
)

// PlayEvent describes what happened to one play request
type PlayEvent struct {
	Kind    string
	Name    string
	Path    string
	Volume  float64
	Outcome string
	Time    time.Time
}

// EventHook receives a PlayEvent for every play request
type EventHook func(PlayEvent)

// Option configures an engine
type Option func(*options)

type options struct {
	hook EventHook
	now  func() time.Time
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithEventHook reports every play request to hook
func WithEventHook(hook EventHook) Option {
	return func(o *options) {
		o.hook = hook
	}
}

// WithClock sets the time source stamped on events
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func (o options) emit(kind, name, path string, volume float64, outcome string) {
	if o.hook == nil {
		return
	}
	o.hook(PlayEvent{
		Kind:    kind,
		Name:    name,
		Path:    path,
		Volume:  volume,
		Outcome: outcome,
		Time:    o.now(),
	})
}
