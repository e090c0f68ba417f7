package audio

import (
	"errors"
	"strings"
	"time"

	"github.com/gopxl/beep"
)

// Device volume and gain ranges
const (
	MaxVolume  = 128 // Per-channel and music volume ceiling
	MaxPanGain = 255 // Per-side panning gain ceiling
)

// Default device configuration
const (
	DefaultSampleRate   = 44100
	DefaultChannels     = 2
	DefaultBufferFrames = 1024
)

// Common errors for Device implementations
var (
	ErrDeviceNotOpen    = errors.New("audio device is not open")
	ErrDeviceClosed     = errors.New("audio device is closed")
	ErrNoFreeChannel    = errors.New("no free mixing channel")
	ErrInvalidChannel   = errors.New("invalid mixing channel")
	ErrCodecUnavailable = errors.New("codec not available")
	ErrHandleReleased   = errors.New("audio handle already released")
	ErrInvalidSpec      = errors.New("invalid device spec")
)

// Codec is a bit set of optional decoding capabilities
type Codec int

const (
	CodecModule Codec = 1 << iota // Tracker formats (MOD, XM, S3M, IT)
	CodecOgg
	CodecMP3
	CodecFLAC
)

// String lists the codecs in the set
func (c Codec) String() string {
	var names []string
	if c&CodecModule != 0 {
		names = append(names, "module")
	}
	if c&CodecOgg != 0 {
		names = append(names, "ogg")
	}
	if c&CodecMP3 != 0 {
		names = append(names, "mp3")
	}
	if c&CodecFLAC != 0 {
		names = append(names, "flac")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// DeviceSpec is the fixed output configuration requested at Open
type DeviceSpec struct {
	SampleRate   int
	Channels     int
	BufferFrames int
}

// DefaultSpec returns the 44.1kHz stereo spec with a 1024 frame buffer
func DefaultSpec() DeviceSpec {
	return DeviceSpec{
		SampleRate:   DefaultSampleRate,
		Channels:     DefaultChannels,
		BufferFrames: DefaultBufferFrames,
	}
}

// Validate checks the spec can be served by an output
func (s DeviceSpec) Validate() error {
	if s.SampleRate <= 0 || s.BufferFrames <= 0 {
		return ErrInvalidSpec
	}
	if s.Channels != 1 && s.Channels != 2 {
		return ErrInvalidSpec
	}
	return nil
}

// Chunk is decoded short audio held in memory at the device sample rate
type Chunk struct {
	path   string
	buffer *beep.Buffer
}

// Path returns the file the chunk was decoded from
func (c *Chunk) Path() string {
	return c.path
}

// Frames returns the number of stereo frames, or 0 once released
func (c *Chunk) Frames() int {
	if c.buffer == nil {
		return 0
	}
	return c.buffer.Len()
}

// Duration returns the playback length at the chunk's sample rate
func (c *Chunk) Duration() time.Duration {
	if c.buffer == nil {
		return 0
	}
	return c.buffer.Format().SampleRate.D(c.buffer.Len())
}

// Released reports whether FreeChunk has been called on the chunk
func (c *Chunk) Released() bool {
	return c.buffer == nil
}

// Music is a streamed track; it keeps its file open until freed
type Music struct {
	path   string
	stream beep.StreamSeekCloser
	format beep.Format
}

// Path returns the file the music streams from
func (m *Music) Path() string {
	return m.path
}

// Format returns the decoded stream format before resampling
func (m *Music) Format() beep.Format {
	return m.format
}

// Released reports whether FreeMusic has been called on the music
func (m *Music) Released() bool {
	return m.stream == nil
}

// Device is the mixing library contract the sound engines drive.
// Channel -1 means "any free channel" for PlayChannel and "all channels"
// for SetChannelVolume. Commands take effect asynchronously: the output
// pulls mixed samples on its own thread.
type Device interface {
	// Lifecycle
	Open(spec DeviceSpec) error
	Close() error

	// Optional codecs; returns the subset actually enabled
	EnableCodecs(codecs Codec) (Codec, error)
	QuitCodecs()

	// Channels and effects
	AllocateChannels(n int) int
	LoadChunk(path string) (*Chunk, error)
	FreeChunk(chunk *Chunk)
	PlayChannel(channel int, chunk *Chunk, loops int) (int, error)
	SetChannelVolume(channel int, volume int)
	SetPanning(channel int, left, right uint8) error

	// Music
	LoadMusic(path string) (*Music, error)
	FreeMusic(music *Music)
	PlayMusic(music *Music, loops int) error
	HaltMusic()
	SetMusicVolume(volume int)
}
