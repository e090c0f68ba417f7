package audio

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gopxl/beep"
)

// magicHeaderSize is how many bytes are sniffed for format detection
const magicHeaderSize = 512

// DecoderRegistry manages audio format decoders and provides format detection
type DecoderRegistry struct {
	decoders []Decoder
}

// NewDecoderRegistry creates a new empty decoder registry
func NewDecoderRegistry() *DecoderRegistry {
	slog.Debug("creating new decoder registry")
	return &DecoderRegistry{
		decoders: make([]Decoder, 0),
	}
}

// NewDefaultRegistry creates a registry with every built-in decoder
func NewDefaultRegistry() *DecoderRegistry {
	registry := NewDecoderRegistry()

	registry.Register(NewWavDecoder())
	registry.Register(NewMp3Decoder())
	registry.Register(NewAiffDecoder())
	registry.Register(NewOggDecoder())
	registry.Register(NewFlacDecoder())

	slog.Debug("default decoder registry initialized",
		"supported_formats", registry.GetSupportedFormats())

	return registry
}

// Register adds a decoder to the registry
func (r *DecoderRegistry) Register(decoder Decoder) {
	if decoder == nil {
		slog.Warn("attempted to register nil decoder")
		return
	}

	r.decoders = append(r.decoders, decoder)

	slog.Debug("decoder registered",
		"format", decoder.FormatName(),
		"total_decoders", len(r.decoders))
}

// GetDecoders returns all registered decoders
func (r *DecoderRegistry) GetDecoders() []Decoder {
	return r.decoders
}

// GetSupportedFormats returns a list of all supported format names
func (r *DecoderRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(r.decoders))
	for _, decoder := range r.decoders {
		formats = append(formats, decoder.FormatName())
	}
	return formats
}

// Supports reports whether a decoder for the named format is registered
func (r *DecoderRegistry) Supports(formatName string) bool {
	return r.findDecoderByFormat(formatName) != nil
}

// DetectFormat detects the appropriate decoder based on filename extension only
func (r *DecoderRegistry) DetectFormat(filename string) Decoder {
	if filename == "" {
		slog.Debug("empty filename provided")
		return nil
	}

	// First registered has priority
	for _, decoder := range r.decoders {
		if decoder.CanDecode(filename) {
			slog.Debug("format detected by extension",
				"filename", filename,
				"format", decoder.FormatName())
			return decoder
		}
	}

	slog.Debug("no decoder found for filename", "filename", filename)
	return nil
}

// DetectFormatWithContent detects format using magic bytes first, with the
// extension as fallback. The reader is rewound to the start afterwards.
func (r *DecoderRegistry) DetectFormatWithContent(filename string, reader io.ReadSeeker) Decoder {
	slog.Debug("detecting format with content analysis", "filename", filename)

	buffer := make([]byte, magicHeaderSize)
	n, err := io.ReadFull(reader, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		slog.Error("failed to read header for magic detection", "error", err)
		return r.DetectFormat(filename)
	}
	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		slog.Error("failed to rewind after magic detection", "error", err)
		return nil
	}

	if n == 0 {
		slog.Debug("empty content, using extension fallback")
		return r.DetectFormat(filename)
	}

	mtype := mimetype.Detect(buffer[:n])
	detectedMime := strings.ToLower(mtype.String())

	slog.Debug("magic byte detection result",
		"filename", filename,
		"detected_mime", detectedMime,
		"bytes_analyzed", n)

	formatDecoder := r.decoderForMime(detectedMime)
	if formatDecoder == nil {
		slog.Debug("unsupported or unrecognized magic bytes", "mime_type", detectedMime)
	}

	// Magic detection takes precedence over extension
	if formatDecoder != nil {
		slog.Debug("format detected by magic bytes",
			"filename", filename,
			"detected_format", formatDecoder.FormatName(),
			"mime_type", detectedMime)
		return formatDecoder
	}

	extensionDecoder := r.DetectFormat(filename)
	if extensionDecoder == nil {
		slog.Warn("no format detection method succeeded", "filename", filename)
	}
	return extensionDecoder
}

// mimeFormats maps a substring of a sniffed MIME type to a format name.
// Order matters: "audio/x-aiff" must not fall through to a later entry.
var mimeFormats = []struct {
	fragment string
	format   string
}{
	{"wav", "WAV"},
	{"wave", "WAV"},
	{"mpeg", "MP3"},
	{"mp3", "MP3"},
	{"aiff", "AIFF"},
	{"ogg", "OGG"},
	{"flac", "FLAC"},
}

func (r *DecoderRegistry) decoderForMime(mime string) Decoder {
	for _, m := range mimeFormats {
		if strings.Contains(mime, m.fragment) {
			return r.findDecoderByFormat(m.format)
		}
	}
	return nil
}

// findDecoderByFormat finds a decoder by its format name
func (r *DecoderRegistry) findDecoderByFormat(formatName string) Decoder {
	for _, decoder := range r.decoders {
		if strings.EqualFold(decoder.FormatName(), formatName) {
			return decoder
		}
	}
	return nil
}

// DecodeFile picks a decoder for the file and hands rc over to it.
// rc is closed on failure.
func (r *DecoderRegistry) DecodeFile(filename string, rc io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
	slog.Debug("starting file decode operation", "filename", filename)

	decoder := r.DetectFormatWithContent(filename, rc)
	if decoder == nil {
		rc.Close()
		slog.Error("no suitable decoder found", "filename", filename)
		return nil, beep.Format{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}

	stream, format, err := decoder.Decode(rc)
	if err != nil {
		slog.Error("decode operation failed",
			"filename", filename,
			"decoder_format", decoder.FormatName(),
			"error", err)
		return nil, beep.Format{}, fmt.Errorf("failed to decode %s as %s: %w", filename, decoder.FormatName(), err)
	}

	slog.Debug("file decode completed successfully",
		"filename", filename,
		"decoder_format", decoder.FormatName(),
		"sample_rate", format.SampleRate,
		"frames", stream.Len())

	return stream, format, nil
}
