package sound

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// minLoopInterval is the shortest time between starts of a looping track
const minLoopInterval = 250 * time.Millisecond

// CommandRunner runs an external player until it exits or ctx is done
type CommandRunner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// CommandEngine plays files by launching a system audio command such as
// paplay or afplay. Every play runs in its own goroutine.
type CommandEngine struct {
	command  string
	resolver PathResolver
	flags    Flags
	opts     options
	run      CommandRunner
	minLoop  time.Duration

	mu          sync.Mutex
	volume      volumeState
	ctx         context.Context
	cancel      context.CancelFunc
	musicCancel context.CancelFunc
	musicGen    uint64
	musicActive bool
	wg          sync.WaitGroup
	closed      bool
}

var (
	_ Engine        = (*CommandEngine)(nil)
	_ MusicReporter = (*CommandEngine)(nil)
)

// NewCommandEngine creates an engine that plays through command
func NewCommandEngine(command string, resolver PathResolver, flags Flags, opts ...Option) *CommandEngine {
	return NewCommandEngineWithRunner(command, resolver, flags, execRunner, opts...)
}

// NewCommandEngineWithRunner creates an engine with a custom process runner
func NewCommandEngineWithRunner(command string, resolver PathResolver, flags Flags, run CommandRunner, opts ...Option) *CommandEngine {
	slog.Debug("creating command sound engine", "command", command)
	ctx, cancel := context.WithCancel(context.Background())
	return &CommandEngine{
		command:  command,
		resolver: resolver,
		flags:    flags,
		opts:     buildOptions(opts),
		run:      run,
		minLoop:  minLoopInterval,
		volume:   fullVolume(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Command returns the player binary in use
func (e *CommandEngine) Command() string {
	return e.command
}

// commandArgs builds the player arguments for file at a [0, 1] volume
func (e *CommandEngine) commandArgs(file string, volume float64) []string {
	switch e.command {
	case "paplay":
		// PulseAudio volume: 65536 is 100%
		return []string{"--volume=" + strconv.Itoa(int(volume*65536)), file}
	case "ffplay":
		return []string{"-nodisp", "-autoexit", "-loglevel", "quiet",
			"-volume", strconv.Itoa(int(volume * 100)), file}
	case "afplay":
		return []string{"-v", strconv.FormatFloat(volume, 'f', 3, 64), file}
	default:
		return []string{file}
	}
}

func (e *CommandEngine) PlaySound(name string, volume, panning float64) {
	e.mu.Lock()
	skip := e.closed || !e.flags.SoundEnabled() || e.volume.sound <= 0 || e.volume.master <= 0
	effective := clamp01(volume * e.volume.sound * e.volume.master)
	e.mu.Unlock()

	if skip {
		e.opts.emit(KindSound, name, "", volume, OutcomeSkipped)
		return
	}

	path, err := e.resolver.ResolveSound(name)
	if err != nil {
		slog.Error("failed to resolve sound", "name", name, "error", err)
		e.opts.emit(KindSound, name, "", volume, OutcomeNotFound)
		return
	}

	args := e.commandArgs(path, effective)
	slog.Debug("playing sound via system command",
		"command", e.command,
		"path", path,
		"volume", effective,
		"panning_ignored", panning)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.opts.emit(KindSound, name, path, volume, OutcomeSkipped)
		return
	}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		if err := e.run(e.ctx, e.command, args...); err != nil && e.ctx.Err() == nil {
			slog.Error("system command failed", "command", e.command, "path", path, "error", err)
		}
	}()
	e.opts.emit(KindSound, name, path, volume, OutcomePlayed)
}

func (e *CommandEngine) PlayMusic(filename string, volume float64, loop bool) {
	e.mu.Lock()
	if e.closed || !e.flags.MusicEnabled() || e.volume.master <= 0 {
		e.mu.Unlock()
		e.opts.emit(KindMusic, filename, filename, volume, OutcomeSkipped)
		return
	}

	e.stopMusicLocked()
	e.volume.music = clamp01(volume)
	args := e.commandArgs(filename, clamp01(e.volume.music*e.volume.master))

	musicCtx, cancel := context.WithCancel(e.ctx)
	e.musicCancel = cancel
	e.musicGen++
	gen := e.musicGen
	e.musicActive = true
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		defer cancel()
		defer func() {
			e.mu.Lock()
			if e.musicGen == gen {
				e.musicActive = false
			}
			e.mu.Unlock()
		}()
		for {
			started := time.Now()
			err := e.run(musicCtx, e.command, args...)
			if musicCtx.Err() != nil {
				return
			}
			if err != nil {
				slog.Error("music command failed", "command", e.command, "path", filename, "error", err)
				return
			}
			if !loop {
				return
			}
			// A player that exits at once must not be relaunched in a tight loop
			if wait := e.minLoop - time.Since(started); wait > 0 {
				select {
				case <-musicCtx.Done():
					return
				case <-time.After(wait):
				}
			}
		}
	}()

	slog.Debug("music playing via system command", "command", e.command, "path", filename, "loop", loop)
	e.opts.emit(KindMusic, filename, filename, volume, OutcomePlayed)
}

func (e *CommandEngine) StopMusic() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopMusicLocked()
}

// MusicPlaying reports whether a music player is running or due to restart
func (e *CommandEngine) MusicPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.musicActive
}

func (e *CommandEngine) stopMusicLocked() {
	e.musicActive = false
	if e.musicCancel != nil {
		e.musicCancel()
		e.musicCancel = nil
	}
}

func (e *CommandEngine) SetSoundVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume.sound = clamp01(v)
}

// SetMusicVolume stores the volume; a running player keeps its volume
// until the next PlayMusic.
func (e *CommandEngine) SetMusicVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume.music = clamp01(v)
}

func (e *CommandEngine) SetMasterVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume.master = clamp01(v)
}

func (e *CommandEngine) SoundVolume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume.sound
}

func (e *CommandEngine) MusicVolume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume.music
}

func (e *CommandEngine) MasterVolume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume.master
}

func (e *CommandEngine) Update(delta time.Duration) {}

// Close stops every running player and waits for them to exit
func (e *CommandEngine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.stopMusicLocked()
	e.mu.Unlock()

	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Debug("command engine closed", "command", e.command)
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timed out waiting for %s to exit", e.command)
	}
}
