package audio

import (
	"io"
	"log/slog"
	"strings"

	"github.com/gopxl/beep"
	"github.com/hajimehoshi/go-mp3"
)

// Mp3Decoder handles MP3 audio format decoding
type Mp3Decoder struct{}

// NewMp3Decoder creates a new MP3 decoder instance
func NewMp3Decoder() *Mp3Decoder {
	slog.Debug("creating new MP3 decoder instance")
	return &Mp3Decoder{}
}

// Decode wraps the MP3 stream without reading it into memory.
// go-mp3 always outputs 16-bit signed stereo PCM.
func (d *Mp3Decoder) Decode(rc io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
	slog.Debug("starting MP3 decode operation")

	decoder, err := mp3.NewDecoder(rc)
	if err != nil {
		slog.Error("failed to create MP3 decoder", "error", err)
		rc.Close()
		return nil, beep.Format{}, ErrInvalidData
	}

	sampleRate := decoder.SampleRate()
	if sampleRate <= 0 {
		slog.Error("invalid MP3 sample rate", "sample_rate", sampleRate)
		rc.Close()
		return nil, beep.Format{}, ErrInvalidData
	}

	frames := int(decoder.Length() / pcm16FrameBytes)
	format := beep.Format{
		SampleRate:  beep.SampleRate(sampleRate),
		NumChannels: 2,
		Precision:   2,
	}

	slog.Debug("MP3 format detected",
		"sample_rate", sampleRate,
		"frames", frames,
		"duration_ms", format.SampleRate.D(frames).Milliseconds())

	return &pcm16Stream{r: decoder, closer: rc, frames: frames}, format, nil
}

// CanDecode checks if this decoder can handle the given filename
func (d *Mp3Decoder) CanDecode(filename string) bool {
	lower := strings.ToLower(filename)
	canDecode := strings.HasSuffix(lower, ".mp3") || strings.HasSuffix(lower, ".mpeg")

	slog.Debug("MP3 decoder file check",
		"filename", filename,
		"can_decode", canDecode)

	return canDecode
}

// FormatName returns the name of the format this decoder handles
func (d *Mp3Decoder) FormatName() string {
	return "MP3"
}
