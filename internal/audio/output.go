package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/gopxl/beep"
)

// Output errors
var (
	ErrOutputUnavailable = errors.New("audio output not available")
	ErrUnknownOutput     = errors.New("unknown audio output")
	ErrOutputOpen        = errors.New("audio output already open")
)

// Output names accepted by NewOutput
const (
	OutputAuto  = "auto"
	OutputOto   = "oto"
	OutputMalgo = "malgo"
)

// Output drives a sound card from a mixed stereo stream. The stream is
// pulled from the output's own thread.
type Output interface {
	Open(spec DeviceSpec, source beep.Streamer) error
	Close() error
	Name() string
}

// NewOutput creates an output by name. "auto" prefers oto.
func NewOutput(name string) (Output, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	slog.Debug("creating audio output", "requested", name)

	switch name {
	case "", OutputAuto, OutputOto:
		return newOtoOutput()
	case OutputMalgo:
		return newMalgoOutput()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOutput, name)
	}
}

// AvailableOutputs lists output names this build can create
func AvailableOutputs() []string {
	var names []string
	if _, err := newOtoOutput(); err == nil {
		names = append(names, OutputOto)
	}
	if _, err := newMalgoOutput(); err == nil {
		names = append(names, OutputMalgo)
	}
	return names
}

// pcmWriter pulls frames from a streamer and encodes them as interleaved
// little endian PCM with one or two channels.
type pcmWriter struct {
	source   beep.Streamer
	channels int
	frames   [][2]float64
}

func newPCMWriter(source beep.Streamer, channels int) *pcmWriter {
	return &pcmWriter{source: source, channels: channels}
}

func (w *pcmWriter) pull(count int) [][2]float64 {
	if cap(w.frames) < count {
		w.frames = make([][2]float64, count)
	}
	frames := w.frames[:count]
	filled := 0
	for filled < count {
		n, ok := w.source.Stream(frames[filled:])
		filled += n
		if !ok || n == 0 {
			break
		}
	}
	for i := filled; i < count; i++ {
		frames[i] = [2]float64{}
	}
	return frames
}

// writeFloat32 fills p with float32 samples and returns the bytes written
func (w *pcmWriter) writeFloat32(p []byte) int {
	frameBytes := 4 * w.channels
	count := len(p) / frameBytes
	for i, f := range w.pull(count) {
		off := i * frameBytes
		if w.channels == 1 {
			binary.LittleEndian.PutUint32(p[off:], math.Float32bits(float32((f[0]+f[1])/2)))
			continue
		}
		binary.LittleEndian.PutUint32(p[off:], math.Float32bits(float32(f[0])))
		binary.LittleEndian.PutUint32(p[off+4:], math.Float32bits(float32(f[1])))
	}
	return count * frameBytes
}

// writeS16 fills p with signed 16-bit samples and returns the bytes written
func (w *pcmWriter) writeS16(p []byte) int {
	frameBytes := 2 * w.channels
	count := len(p) / frameBytes
	for i, f := range w.pull(count) {
		off := i * frameBytes
		if w.channels == 1 {
			binary.LittleEndian.PutUint16(p[off:], uint16(floatToInt16((f[0]+f[1])/2)))
			continue
		}
		binary.LittleEndian.PutUint16(p[off:], uint16(floatToInt16(f[0])))
		binary.LittleEndian.PutUint16(p[off+2:], uint16(floatToInt16(f[1])))
	}
	return count * frameBytes
}

func floatToInt16(v float64) int16 {
	v = clampSample(v)
	if v >= 0 {
		return int16(v * 32767)
	}
	return int16(v * 32768)
}
