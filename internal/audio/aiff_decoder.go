package audio

import (
	"io"
	"log/slog"
	"strings"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
	"github.com/gopxl/beep"
)

// AiffDecoder handles AIFF audio format decoding
type AiffDecoder struct{}

// NewAiffDecoder creates a new AIFF decoder instance
func NewAiffDecoder() *AiffDecoder {
	slog.Debug("creating new AIFF decoder instance")
	return &AiffDecoder{}
}

// FormatName returns the name of the format this decoder handles
func (d *AiffDecoder) FormatName() string {
	return "AIFF"
}

// CanDecode checks if this decoder can handle the given filename
func (d *AiffDecoder) CanDecode(filename string) bool {
	lower := strings.ToLower(filename)
	canDecode := strings.HasSuffix(lower, ".aiff") || strings.HasSuffix(lower, ".aif")

	slog.Debug("AIFF decoder file check",
		"filename", filename,
		"can_decode", canDecode)

	return canDecode
}

// Decode reads the whole AIFF file into memory and returns a stereo stream
func (d *AiffDecoder) Decode(rc io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
	slog.Debug("starting AIFF decode operation")
	defer rc.Close()

	decoder := aiff.NewDecoder(rc)
	decoder.ReadInfo()

	if !decoder.IsValidFile() {
		slog.Error("invalid AIFF file format")
		return nil, beep.Format{}, ErrInvalidData
	}

	sampleRate := decoder.SampleRate
	channels := int(decoder.NumChans)
	bitDepth := int(decoder.SampleBitDepth())

	slog.Debug("AIFF format detected",
		"sample_rate", sampleRate,
		"channels", channels,
		"bits_per_sample", bitDepth)

	if channels == 0 || sampleRate == 0 || bitDepth == 0 {
		slog.Error("invalid AIFF format parameters",
			"channels", channels,
			"sample_rate", sampleRate,
			"bit_depth", bitDepth)
		return nil, beep.Format{}, ErrInvalidData
	}

	switch bitDepth {
	case 16, 24, 32:
	default:
		slog.Error("unsupported bit depth", "bits", bitDepth)
		return nil, beep.Format{}, ErrUnsupportedFormat
	}

	pcmBuffer, err := decoder.FullPCMBuffer()
	if err != nil {
		slog.Error("failed to read AIFF samples", "error", err)
		return nil, beep.Format{}, ErrReadFailure
	}

	if pcmBuffer == nil || len(pcmBuffer.Data) < channels {
		slog.Error("no audio data found in AIFF file")
		return nil, beep.Format{}, ErrInvalidData
	}

	frames := interleavedToFrames(pcmBuffer, channels, bitDepth)

	format := beep.Format{
		SampleRate:  beep.SampleRate(sampleRate),
		NumChannels: 2,
		Precision:   bitDepth / 8,
	}

	slog.Debug("AIFF decode completed successfully",
		"frames", len(frames),
		"sample_rate", sampleRate,
		"duration_ms", format.SampleRate.D(len(frames)).Milliseconds())

	return newFrameStream(frames), format, nil
}

// interleavedToFrames folds an interleaved integer buffer into stereo
// frames. Mono is duplicated; channels past the second are dropped.
func interleavedToFrames(buf *audio.IntBuffer, channels, bitDepth int) [][2]float64 {
	count := len(buf.Data) / channels
	frames := make([][2]float64, count)
	for i := 0; i < count; i++ {
		base := i * channels
		left := intToFloat(buf.Data[base], bitDepth)
		right := left
		if channels > 1 {
			right = intToFloat(buf.Data[base+1], bitDepth)
		}
		frames[i] = [2]float64{left, right}
	}
	return frames
}
