//go:build cgo

package audio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/gopxl/beep"
)

// oto allows a single context per process
var (
	otoMu      sync.Mutex
	otoContext *oto.Context
	otoSpec    DeviceSpec
)

// otoOutput plays the mixed stream through an oto player
type otoOutput struct {
	mu     sync.Mutex
	player *oto.Player
}

func newOtoOutput() (Output, error) {
	return &otoOutput{}, nil
}

func (o *otoOutput) Name() string {
	return OutputOto
}

// Open starts pulling from source. The shared context is created on first
// use and resumed on later opens; its spec cannot change afterwards.
func (o *otoOutput) Open(spec DeviceSpec, source beep.Streamer) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		return ErrOutputOpen
	}

	ctx, err := sharedOtoContext(spec)
	if err != nil {
		return err
	}

	reader := &otoReader{writer: newPCMWriter(source, spec.Channels)}
	player := ctx.NewPlayer(reader)
	player.SetBufferSize(spec.BufferFrames * spec.Channels * 4)
	player.Play()
	o.player = player

	slog.Debug("oto output opened",
		"sample_rate", spec.SampleRate,
		"channels", spec.Channels,
		"buffer_frames", spec.BufferFrames)
	return nil
}

func (o *otoOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return nil
	}
	err := o.player.Close()
	o.player = nil

	otoMu.Lock()
	if otoContext != nil {
		if serr := otoContext.Suspend(); serr != nil {
			slog.Warn("failed to suspend oto context", "error", serr)
		}
	}
	otoMu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to close oto player: %w", err)
	}
	slog.Debug("oto output closed")
	return nil
}

func sharedOtoContext(spec DeviceSpec) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoContext != nil {
		if otoSpec.SampleRate != spec.SampleRate || otoSpec.Channels != spec.Channels {
			return nil, fmt.Errorf("%w: oto context already running at %d Hz with %d channels",
				ErrOutputUnavailable, otoSpec.SampleRate, otoSpec.Channels)
		}
		if err := otoContext.Resume(); err != nil {
			return nil, fmt.Errorf("failed to resume oto context: %w", err)
		}
		return otoContext, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   spec.SampleRate,
		ChannelCount: spec.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   beep.SampleRate(spec.SampleRate).D(spec.BufferFrames),
	})
	if err != nil {
		slog.Error("failed to create oto context", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrOutputUnavailable, err)
	}
	<-ready

	otoContext = ctx
	otoSpec = spec
	slog.Debug("oto context initialized", "sample_rate", spec.SampleRate, "channels", spec.Channels)
	return ctx, nil
}

// otoReader adapts the mixer to the io.Reader oto pulls from
type otoReader struct {
	writer *pcmWriter
}

func (r *otoReader) Read(p []byte) (int, error) {
	return r.writer.writeFloat32(p), nil
}
