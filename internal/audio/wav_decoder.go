package audio

import (
	"bytes"
	"io"
	"log/slog"
	"strings"

	"github.com/gopxl/beep"
	"github.com/youpy/go-wav"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// WavDecoder handles WAV audio format decoding
type WavDecoder struct{}

// NewWavDecoder creates a new WAV decoder instance
func NewWavDecoder() *WavDecoder {
	slog.Debug("creating new WAV decoder instance")
	return &WavDecoder{}
}

// Decode reads the whole WAV file into memory and returns a stereo stream
func (d *WavDecoder) Decode(rc io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
	slog.Debug("starting WAV decode operation")
	defer rc.Close()

	// youpy/go-wav needs a ReaderAt, so we need to read all data first
	data, err := io.ReadAll(rc)
	if err != nil {
		slog.Error("failed to read WAV data", "error", err)
		return nil, beep.Format{}, ErrReadFailure
	}

	if len(data) == 0 {
		slog.Error("empty WAV data")
		return nil, beep.Format{}, ErrInvalidData
	}

	wavReader := wav.NewReader(bytes.NewReader(data))

	format, err := wavReader.Format()
	if err != nil {
		slog.Error("failed to read WAV format", "error", err)
		return nil, beep.Format{}, ErrInvalidData
	}

	slog.Debug("WAV format detected",
		"audio_format", format.AudioFormat,
		"sample_rate", format.SampleRate,
		"channels", format.NumChannels,
		"bits_per_sample", format.BitsPerSample)

	if format.NumChannels == 0 || format.SampleRate == 0 {
		slog.Error("invalid WAV format parameters",
			"channels", format.NumChannels,
			"sample_rate", format.SampleRate)
		return nil, beep.Format{}, ErrInvalidData
	}

	if format.AudioFormat != wavFormatPCM && format.AudioFormat != wavFormatExtensible {
		slog.Error("unsupported WAV encoding", "audio_format", format.AudioFormat)
		return nil, beep.Format{}, ErrUnsupportedFormat
	}

	bitDepth := int(format.BitsPerSample)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		slog.Error("unsupported bit depth", "bits", bitDepth)
		return nil, beep.Format{}, ErrUnsupportedFormat
	}

	var frames [][2]float64
	for {
		samples, err := wavReader.ReadSamples()
		if err != nil {
			if err == io.EOF {
				break
			}
			slog.Error("failed to read WAV samples", "error", err)
			return nil, beep.Format{}, ErrReadFailure
		}

		if len(samples) == 0 {
			break
		}

		for _, sample := range samples {
			left := intToFloat(sample.Values[0], bitDepth)
			right := left
			if format.NumChannels > 1 {
				right = intToFloat(sample.Values[1], bitDepth)
			}
			frames = append(frames, [2]float64{left, right})
		}
	}

	if len(frames) == 0 {
		slog.Error("no audio data found in WAV file")
		return nil, beep.Format{}, ErrInvalidData
	}

	beepFormat := beep.Format{
		SampleRate:  beep.SampleRate(format.SampleRate),
		NumChannels: 2,
		Precision:   bitDepth / 8,
	}

	slog.Debug("WAV decode completed successfully",
		"frames", len(frames),
		"sample_rate", format.SampleRate,
		"duration_ms", beepFormat.SampleRate.D(len(frames)).Milliseconds())

	return newFrameStream(frames), beepFormat, nil
}

// CanDecode checks if this decoder can handle the given filename
func (d *WavDecoder) CanDecode(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".wav") || strings.HasSuffix(lower, ".wave")
}

// FormatName returns the name of the format this decoder handles
func (d *WavDecoder) FormatName() string {
	return "WAV"
}
