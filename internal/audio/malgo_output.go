//go:build cgo

package audio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/gopxl/beep"
)

// malgoOutput plays the mixed stream through a miniaudio playback device
type malgoOutput struct {
	mu      sync.Mutex
	context *malgoContext
	device  *malgo.Device
}

func newMalgoOutput() (Output, error) {
	return &malgoOutput{}, nil
}

func (o *malgoOutput) Name() string {
	return OutputMalgo
}

func (o *malgoOutput) Open(spec DeviceSpec, source beep.Streamer) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.device != nil {
		return ErrOutputOpen
	}

	audioCtx, err := newMalgoContext()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOutputUnavailable, err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(spec.Channels)
	deviceConfig.SampleRate = uint32(spec.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(spec.BufferFrames)
	deviceConfig.Alsa.NoMMap = 1

	writer := newPCMWriter(source, spec.Channels)
	onSamples := func(pOutputSample, pInputSamples []byte, framecount uint32) {
		n := writer.writeS16(pOutputSample)
		for i := n; i < len(pOutputSample); i++ {
			pOutputSample[i] = 0
		}
	}

	device, err := malgo.InitDevice(audioCtx.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSamples,
	})
	if err != nil {
		audioCtx.Close()
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		audioCtx.Close()
		return fmt.Errorf("failed to start playback: %w", err)
	}

	o.context = audioCtx
	o.device = device

	slog.Debug("malgo output opened",
		"sample_rate", spec.SampleRate,
		"channels", spec.Channels,
		"period_frames", spec.BufferFrames)
	return nil
}

func (o *malgoOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.device == nil {
		return nil
	}

	if err := o.device.Stop(); err != nil {
		slog.Warn("failed to stop playback device", "error", err)
	}
	o.device.Uninit()
	o.device = nil

	err := o.context.Close()
	o.context = nil

	slog.Debug("malgo output closed")
	return err
}
