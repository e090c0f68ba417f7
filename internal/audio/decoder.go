package audio

import (
	"errors"
	"io"

	"github.com/gopxl/beep"
)

// Common decoder errors
var (
	ErrInvalidData       = errors.New("invalid audio data")
	ErrReadFailure       = errors.New("failed to read audio data")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// Decoder interface for audio format decoding
type Decoder interface {
	// Decode takes ownership of rc and returns a seekable stereo stream.
	// Closing the stream closes rc.
	Decode(rc io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error)

	// CanDecode checks if this decoder can handle the given filename
	CanDecode(filename string) bool

	// FormatName returns the name of the format this decoder handles
	FormatName() string
}
