package audio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gopxl/beep"
	"github.com/spf13/afero"
)

// DefaultMixChannels is the channel count right after Open
const DefaultMixChannels = 8

// MixerDevice implements Device with an in-process Mixer feeding an Output
type MixerDevice struct {
	mu       sync.Mutex
	fs       afero.Fs
	registry *DecoderRegistry
	output   Output
	mixer    *Mixer
	spec     DeviceSpec
	codecs   Codec
}

var _ Device = (*MixerDevice)(nil)

// MixerDeviceOption configures a MixerDevice
type MixerDeviceOption func(*MixerDevice)

// WithFilesystem sets the filesystem chunks and music are read from
func WithFilesystem(fs afero.Fs) MixerDeviceOption {
	return func(d *MixerDevice) {
		d.fs = fs
	}
}

// WithRegistry replaces the default decoder registry
func WithRegistry(registry *DecoderRegistry) MixerDeviceOption {
	return func(d *MixerDevice) {
		d.registry = registry
	}
}

// NewMixerDevice creates a closed device that will play through output
func NewMixerDevice(output Output, opts ...MixerDeviceOption) *MixerDevice {
	d := &MixerDevice{
		fs:     afero.NewOsFs(),
		output: output,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.registry == nil {
		d.registry = NewDefaultRegistry()
	}
	return d
}

// Mixer returns the mixer while the device is open
func (d *MixerDevice) Mixer() *Mixer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mixer
}

// Spec returns the spec the device was opened with
func (d *MixerDevice) Spec() DeviceSpec {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.spec
}

// Open starts the output with a fresh mixer
func (d *MixerDevice) Open(spec DeviceSpec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("%w: %+v", err, spec)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.mixer != nil {
		return ErrOutputOpen
	}

	mixer := NewMixer(beep.SampleRate(spec.SampleRate))
	mixer.Allocate(DefaultMixChannels)

	if err := d.output.Open(spec, mixer); err != nil {
		slog.Error("failed to open audio output", "output", d.output.Name(), "error", err)
		return fmt.Errorf("failed to open %s output: %w", d.output.Name(), err)
	}

	d.mixer = mixer
	d.spec = spec

	slog.Info("audio device opened",
		"output", d.output.Name(),
		"sample_rate", spec.SampleRate,
		"channels", spec.Channels,
		"buffer_frames", spec.BufferFrames)
	return nil
}

// Close stops the output. Loaded chunks and music stay valid handles that
// can still be freed.
func (d *MixerDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.mixer == nil {
		return nil
	}

	d.mixer.Halt(-1)
	d.mixer.HaltMusic()
	err := d.output.Close()
	d.mixer = nil

	if err != nil {
		slog.Error("failed to close audio output", "output", d.output.Name(), "error", err)
		return fmt.Errorf("failed to close %s output: %w", d.output.Name(), err)
	}
	slog.Info("audio device closed", "output", d.output.Name())
	return nil
}

// EnableCodecs enables the requested codecs that have a registered decoder
func (d *MixerDevice) EnableCodecs(codecs Codec) (Codec, error) {
	var supported Codec
	if d.registry.Supports("OGG") {
		supported |= CodecOgg
	}
	if d.registry.Supports("MP3") {
		supported |= CodecMP3
	}
	if d.registry.Supports("FLAC") {
		supported |= CodecFLAC
	}

	d.mu.Lock()
	d.codecs |= codecs & supported
	enabled := d.codecs & codecs
	d.mu.Unlock()

	if missing := codecs &^ supported; missing != 0 {
		return enabled, fmt.Errorf("%w: %s", ErrCodecUnavailable, missing)
	}
	return enabled, nil
}

// QuitCodecs disables every codec enabled so far
func (d *MixerDevice) QuitCodecs() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.codecs = 0
}

// EnabledCodecs returns the codecs currently enabled
func (d *MixerDevice) EnabledCodecs() Codec {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.codecs
}

func (d *MixerDevice) openMixer() (*Mixer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mixer == nil {
		return nil, ErrDeviceNotOpen
	}
	return d.mixer, nil
}

// AllocateChannels resizes the channel set, returning the new count
func (d *MixerDevice) AllocateChannels(n int) int {
	mixer, err := d.openMixer()
	if err != nil {
		return 0
	}
	return mixer.Allocate(n)
}

// LoadChunk decodes a whole file into memory at the device rate
func (d *MixerDevice) LoadChunk(path string) (*Chunk, error) {
	mixer, err := d.openMixer()
	if err != nil {
		return nil, err
	}

	file, err := d.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	stream, format, err := d.registry.DecodeFile(path, file)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	frames, err := readAllFrames(stream)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	rate := mixer.SampleRate()
	if format.SampleRate != rate {
		slog.Debug("resampling chunk",
			"path", path,
			"from", format.SampleRate,
			"to", rate)
		frames, err = resampleFrames(frames, format.SampleRate, rate)
		if err != nil {
			return nil, fmt.Errorf("failed to resample %s: %w", path, err)
		}
	}

	buffer := beep.NewBuffer(beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2})
	buffer.Append(newFrameStream(frames))

	chunk := &Chunk{path: path, buffer: buffer}
	slog.Debug("chunk loaded",
		"path", path,
		"frames", chunk.Frames(),
		"duration_ms", chunk.Duration().Milliseconds())
	return chunk, nil
}

// FreeChunk halts channels playing the chunk and drops its samples
func (d *MixerDevice) FreeChunk(chunk *Chunk) {
	if chunk == nil || chunk.Released() {
		return
	}
	if mixer, err := d.openMixer(); err == nil {
		mixer.StopChunk(chunk)
	}
	chunk.buffer = nil
	slog.Debug("chunk freed", "path", chunk.path)
}

// PlayChannel starts a chunk; see Mixer.Play
func (d *MixerDevice) PlayChannel(channel int, chunk *Chunk, loops int) (int, error) {
	mixer, err := d.openMixer()
	if err != nil {
		return -1, err
	}
	return mixer.Play(channel, chunk, loops)
}

// SetChannelVolume sets one channel's volume, or all with -1
func (d *MixerDevice) SetChannelVolume(channel int, volume int) {
	mixer, err := d.openMixer()
	if err != nil {
		return
	}
	if err := mixer.SetVolume(channel, volume); err != nil {
		slog.Warn("failed to set channel volume", "channel", channel, "volume", volume, "error", err)
	}
}

// SetPanning sets the per-side gains of a channel
func (d *MixerDevice) SetPanning(channel int, left, right uint8) error {
	mixer, err := d.openMixer()
	if err != nil {
		return err
	}
	return mixer.SetPanning(channel, left, right)
}

// LoadMusic opens a file for streaming. The file stays open until FreeMusic.
func (d *MixerDevice) LoadMusic(path string) (*Music, error) {
	if _, err := d.openMixer(); err != nil {
		return nil, err
	}

	file, err := d.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	stream, format, err := d.registry.DecodeFile(path, file)
	if err != nil {
		return nil, err
	}

	slog.Debug("music loaded",
		"path", path,
		"sample_rate", format.SampleRate,
		"duration_ms", format.SampleRate.D(stream.Len()).Milliseconds())
	return &Music{path: path, stream: stream, format: format}, nil
}

// FreeMusic halts the music if it is playing and closes its file
func (d *MixerDevice) FreeMusic(music *Music) {
	if music == nil || music.Released() {
		return
	}
	if mixer, err := d.openMixer(); err == nil && mixer.CurrentMusic() == music {
		mixer.HaltMusic()
	}
	if err := music.stream.Close(); err != nil {
		slog.Warn("failed to close music stream", "path", music.path, "error", err)
	}
	music.stream = nil
	slog.Debug("music freed", "path", music.path)
}

// PlayMusic starts music from the beginning; see Mixer.PlayMusic
func (d *MixerDevice) PlayMusic(music *Music, loops int) error {
	mixer, err := d.openMixer()
	if err != nil {
		return err
	}
	return mixer.PlayMusic(music, loops)
}

// PlayingMusic reports whether music is still being mixed
func (d *MixerDevice) PlayingMusic() bool {
	mixer, err := d.openMixer()
	if err != nil {
		return false
	}
	return mixer.MusicPlaying()
}

// HaltMusic stops the music
func (d *MixerDevice) HaltMusic() {
	if mixer, err := d.openMixer(); err == nil {
		mixer.HaltMusic()
	}
}

// SetMusicVolume sets the music volume
func (d *MixerDevice) SetMusicVolume(volume int) {
	if mixer, err := d.openMixer(); err == nil {
		mixer.SetMusicVolume(volume)
	}
}
