package sound

import (
	"log/slog"
	"time"
)

// NullEngine keeps volume state but never makes a sound
type NullEngine struct {
	opts   options
	volume volumeState
}

var (
	_ Engine        = (*NullEngine)(nil)
	_ MusicReporter = (*NullEngine)(nil)
)

// NewNullEngine creates a silent engine at full volume
func NewNullEngine(opts ...Option) *NullEngine {
	slog.Debug("creating null sound engine")
	return &NullEngine{
		opts:   buildOptions(opts),
		volume: fullVolume(),
	}
}

func (e *NullEngine) PlaySound(name string, volume, panning float64) {
	e.opts.emit(KindSound, name, "", volume, OutcomeSkipped)
}

func (e *NullEngine) PlayMusic(filename string, volume float64, loop bool) {
	e.opts.emit(KindMusic, filename, filename, volume, OutcomeSkipped)
}

func (e *NullEngine) StopMusic() {}

func (e *NullEngine) MusicPlaying() bool { return false }

func (e *NullEngine) SetSoundVolume(v float64)  { e.volume.sound = clamp01(v) }
func (e *NullEngine) SetMusicVolume(v float64)  { e.volume.music = clamp01(v) }
func (e *NullEngine) SetMasterVolume(v float64) { e.volume.master = clamp01(v) }

func (e *NullEngine) SoundVolume() float64  { return e.volume.sound }
func (e *NullEngine) MusicVolume() float64  { return e.volume.music }
func (e *NullEngine) MasterVolume() float64 { return e.volume.master }

func (e *NullEngine) Update(delta time.Duration) {}

func (e *NullEngine) Close() error { return nil }
