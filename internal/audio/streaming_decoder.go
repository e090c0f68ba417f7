package audio

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/vorbis"
)

// OggDecoder streams Ogg Vorbis audio from the open file
type OggDecoder struct{}

// NewOggDecoder creates a new Ogg Vorbis decoder
func NewOggDecoder() *OggDecoder {
	slog.Debug("creating new Ogg Vorbis decoder")
	return &OggDecoder{}
}

// Decode returns a stream reading directly from rc
func (d *OggDecoder) Decode(rc io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
	slog.Debug("starting Ogg Vorbis decode")

	stream, format, err := vorbis.Decode(rc)
	if err != nil {
		slog.Error("failed to create Ogg Vorbis decoder", "error", err)
		rc.Close()
		return nil, beep.Format{}, ErrInvalidData
	}

	slog.Debug("Ogg Vorbis format detected",
		"sample_rate", format.SampleRate,
		"channels", format.NumChannels,
		"frames", stream.Len())

	return stream, format, nil
}

// CanDecode checks if this decoder can handle the given filename
func (d *OggDecoder) CanDecode(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".ogg") || strings.HasSuffix(lower, ".oga")
}

// FormatName returns the name of the format this decoder handles
func (d *OggDecoder) FormatName() string {
	return "OGG"
}

// FlacDecoder streams FLAC audio from the open file
type FlacDecoder struct{}

// NewFlacDecoder creates a new FLAC decoder
func NewFlacDecoder() *FlacDecoder {
	slog.Debug("creating new FLAC decoder")
	return &FlacDecoder{}
}

// Decode returns a stream reading directly from rc
func (d *FlacDecoder) Decode(rc io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
	slog.Debug("starting FLAC decode")

	stream, format, err := flac.Decode(rc)
	if err != nil {
		slog.Error("failed to create FLAC decoder", "error", err)
		rc.Close()
		return nil, beep.Format{}, ErrInvalidData
	}

	slog.Debug("FLAC format detected",
		"sample_rate", format.SampleRate,
		"channels", format.NumChannels,
		"frames", stream.Len())

	return &closingStream{StreamSeekCloser: stream, file: rc}, format, nil
}

// CanDecode checks if this decoder can handle the given filename
func (d *FlacDecoder) CanDecode(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".flac")
}

// FormatName returns the name of the format this decoder handles
func (d *FlacDecoder) FormatName() string {
	return "FLAC"
}

// closingStream makes sure the source file is closed with the stream
type closingStream struct {
	beep.StreamSeekCloser
	file io.Closer
}

func (s *closingStream) Close() error {
	err := s.StreamSeekCloser.Close()
	if s.file != nil {
		if ferr := s.file.Close(); ferr != nil && !errors.Is(ferr, fs.ErrClosed) && err == nil {
			err = ferr
		}
		s.file = nil
	}
	return err
}
