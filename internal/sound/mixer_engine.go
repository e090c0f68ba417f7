package sound

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mixdeck.dev/internal/audio"
)

// MixChannels is the number of effect channels allocated at construction
const MixChannels = 32

// MixerEngine plays sounds through an audio.Device. It caches one chunk per
// resolved path for its whole lifetime and keeps at most one music handle.
// It is meant to be driven from a single goroutine.
type MixerEngine struct {
	device   audio.Device
	resolver PathResolver
	flags    Flags
	opts     options

	chunks map[string]*audio.Chunk
	music  *audio.Music
	volume volumeState
	closed bool
}

var (
	_ Engine        = (*MixerEngine)(nil)
	_ MusicReporter = (*MixerEngine)(nil)
)

// NewMixerEngine opens device at 44.1kHz stereo with a 1024 frame buffer and
// allocates the effect channels. Only a failure to open the device is fatal.
func NewMixerEngine(device audio.Device, resolver PathResolver, flags Flags, opts ...Option) (*MixerEngine, error) {
	if err := device.Open(audio.DefaultSpec()); err != nil {
		slog.Error("failed to open audio device", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrDeviceInit, err)
	}

	if _, err := device.EnableCodecs(audio.CodecModule); err != nil {
		slog.Warn("module music not available", "error", err)
	}

	allocated := device.AllocateChannels(MixChannels)

	e := &MixerEngine{
		device:   device,
		resolver: resolver,
		flags:    flags,
		opts:     buildOptions(opts),
		chunks:   make(map[string]*audio.Chunk),
		volume:   fullVolume(),
	}
	e.applyVolumes()

	slog.Debug("mixer engine ready", "channels", allocated)
	return e, nil
}

// Close halts and frees the music, frees every cached chunk and closes the
// device. Calling it again does nothing.
func (e *MixerEngine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	if e.music != nil {
		e.device.HaltMusic()
		e.device.FreeMusic(e.music)
		e.music = nil
	}

	for path, chunk := range e.chunks {
		e.device.FreeChunk(chunk)
		delete(e.chunks, path)
	}

	err := e.device.Close()
	e.device.QuitCodecs()

	if err != nil {
		slog.Error("failed to close audio device", "error", err)
		return fmt.Errorf("failed to close audio device: %w", err)
	}
	slog.Debug("mixer engine closed")
	return nil
}

// PlaySound plays a sound effect once on any free channel
func (e *MixerEngine) PlaySound(name string, volume, panning float64) {
	if e.closed || !e.flags.SoundEnabled() || e.volume.sound <= 0 || e.volume.master <= 0 {
		e.opts.emit(KindSound, name, "", volume, OutcomeSkipped)
		return
	}

	path, err := e.resolver.ResolveSound(name)
	if err != nil {
		slog.Error("failed to resolve sound", "name", name, "error", err)
		e.opts.emit(KindSound, name, "", volume, OutcomeNotFound)
		return
	}

	chunk, err := e.loadChunk(path)
	if err != nil {
		slog.Error("failed to load sound", "name", name, "path", path, "error", err)
		e.opts.emit(KindSound, name, path, volume, OutcomeDecodeFailed)
		return
	}

	channel, err := e.device.PlayChannel(-1, chunk, 0)
	if err != nil {
		slog.Error("failed to play sound", "name", name, "path", path, "error", err)
		outcome := OutcomePlayFailed
		if errors.Is(err, audio.ErrNoFreeChannel) {
			outcome = OutcomeNoChannel
		}
		e.opts.emit(KindSound, name, path, volume, outcome)
		return
	}

	channelVolume := deviceVolume(volume * e.volume.sound * e.volume.master)
	e.device.SetChannelVolume(channel, channelVolume)

	left, right := panGains(panning)
	if err := e.device.SetPanning(channel, left, right); err != nil {
		slog.Warn("failed to set panning", "channel", channel, "error", err)
	}

	slog.Debug("sound playing",
		"name", name,
		"path", path,
		"channel", channel,
		"volume", channelVolume,
		"pan_left", left,
		"pan_right", right)
	e.opts.emit(KindSound, name, path, volume, OutcomePlayed)
}

// loadChunk returns the cached chunk for path, decoding it on first use.
// Failed decodes are not cached.
func (e *MixerEngine) loadChunk(path string) (*audio.Chunk, error) {
	if chunk, ok := e.chunks[path]; ok {
		return chunk, nil
	}
	chunk, err := e.device.LoadChunk(path)
	if err != nil {
		return nil, err
	}
	e.chunks[path] = chunk
	return chunk, nil
}

// PlayMusic replaces the current music with filename. With loop set it
// repeats forever, otherwise it plays once.
func (e *MixerEngine) PlayMusic(filename string, volume float64, loop bool) {
	if e.closed || !e.flags.MusicEnabled() || e.volume.master <= 0 {
		e.opts.emit(KindMusic, filename, filename, volume, OutcomeSkipped)
		return
	}

	if e.music != nil {
		e.device.HaltMusic()
		e.device.FreeMusic(e.music)
		e.music = nil
	}

	music, err := e.device.LoadMusic(filename)
	if err != nil {
		slog.Error("failed to load music", "path", filename, "error", err)
		e.opts.emit(KindMusic, filename, filename, volume, OutcomeDecodeFailed)
		return
	}
	e.music = music

	e.volume.music = clamp01(volume)
	e.applyVolumes()

	loops := 1
	if loop {
		loops = -1
	}
	if err := e.device.PlayMusic(music, loops); err != nil {
		slog.Error("failed to play music", "path", filename, "error", err)
		e.opts.emit(KindMusic, filename, filename, volume, OutcomePlayFailed)
		return
	}

	slog.Debug("music playing", "path", filename, "loop", loop, "volume", e.volume.effectiveMusic())
	e.opts.emit(KindMusic, filename, filename, volume, OutcomePlayed)
}

// StopMusic halts the music. The handle is kept until the next PlayMusic
// or Close.
func (e *MixerEngine) StopMusic() {
	if e.closed {
		return
	}
	e.device.HaltMusic()
}

// MusicPlaying reports whether the device is still mixing the music. Devices
// that cannot tell are assumed to play until stopped.
func (e *MixerEngine) MusicPlaying() bool {
	if e.closed || e.music == nil {
		return false
	}
	if d, ok := e.device.(interface{ PlayingMusic() bool }); ok {
		return d.PlayingMusic()
	}
	return true
}

func (e *MixerEngine) SetSoundVolume(v float64) {
	e.volume.sound = clamp01(v)
	e.applyVolumes()
}

func (e *MixerEngine) SetMusicVolume(v float64) {
	e.volume.music = clamp01(v)
	e.applyVolumes()
}

func (e *MixerEngine) SetMasterVolume(v float64) {
	e.volume.master = clamp01(v)
	e.applyVolumes()
}

func (e *MixerEngine) SoundVolume() float64  { return e.volume.sound }
func (e *MixerEngine) MusicVolume() float64  { return e.volume.music }
func (e *MixerEngine) MasterVolume() float64 { return e.volume.master }

// Update does nothing; the device mixes on its own thread.
func (e *MixerEngine) Update(delta time.Duration) {}

// CachedSounds returns how many chunks are cached
func (e *MixerEngine) CachedSounds() int {
	return len(e.chunks)
}

func (e *MixerEngine) applyVolumes() {
	if e.closed {
		return
	}
	e.device.SetChannelVolume(-1, e.volume.effectiveSound())
	e.device.SetMusicVolume(e.volume.effectiveMusic())
}
