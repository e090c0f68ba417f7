package audio

import (
	"log/slog"
	"sync"

	"github.com/gopxl/beep"
)

// mixChannel is one slot of the chunk mixer
type mixChannel struct {
	chunk  *Chunk
	stream beep.StreamSeeker
	loops  int // extra repetitions left, -1 forever
	volume int
	left   uint8
	right  uint8
}

func (c *mixChannel) idle() bool {
	return c.stream == nil
}

func (c *mixChannel) stop() {
	c.chunk = nil
	c.stream = nil
	c.loops = 0
	c.left = MaxPanGain
	c.right = MaxPanGain
}

// musicTrack is the music currently being mixed
type musicTrack struct {
	music  *Music
	stream beep.Streamer
	plays  int // full plays left, -1 forever
}

// Mixer sums a fixed set of chunk channels and one music track into a
// single stereo stream at the output rate. It is safe for concurrent use:
// the output pulls from Stream while callers change channel state.
type Mixer struct {
	mu          sync.Mutex
	sampleRate  beep.SampleRate
	channels    []mixChannel
	music       *musicTrack
	musicVolume int
	scratch     [][2]float64
}

var _ beep.Streamer = (*Mixer)(nil)

// NewMixer creates a mixer with no channels allocated
func NewMixer(sampleRate beep.SampleRate) *Mixer {
	return &Mixer{
		sampleRate:  sampleRate,
		musicVolume: MaxVolume,
	}
}

// SampleRate returns the rate every input is mixed at
func (m *Mixer) SampleRate() beep.SampleRate {
	return m.sampleRate
}

// Allocate resizes the channel set. Channels dropped by shrinking stop.
func (m *Mixer) Allocate(n int) int {
	if n < 0 {
		n = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if n <= len(m.channels) {
		m.channels = m.channels[:n]
		return n
	}
	for len(m.channels) < n {
		m.channels = append(m.channels, mixChannel{
			volume: MaxVolume,
			left:   MaxPanGain,
			right:  MaxPanGain,
		})
	}
	return n
}

// Channels returns the number of allocated channels
func (m *Mixer) Channels() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.channels)
}

// Play starts chunk on channel, or on the first idle channel when channel
// is -1. loops is the number of extra repetitions, -1 for forever.
// Panning on the channel is reset.
func (m *Mixer) Play(channel int, chunk *Chunk, loops int) (int, error) {
	if chunk == nil || chunk.Released() {
		return -1, ErrHandleReleased
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if channel == -1 {
		channel = m.firstIdle()
		if channel == -1 {
			return -1, ErrNoFreeChannel
		}
	} else if channel < 0 || channel >= len(m.channels) {
		return -1, ErrInvalidChannel
	}

	slot := &m.channels[channel]
	slot.stop()
	slot.chunk = chunk
	slot.stream = chunk.buffer.Streamer(0, chunk.buffer.Len())
	slot.loops = loops
	if loops < -1 {
		slot.loops = 0
	}
	return channel, nil
}

func (m *Mixer) firstIdle() int {
	for i := range m.channels {
		if m.channels[i].idle() {
			return i
		}
	}
	return -1
}

// Halt stops a channel, or every channel when channel is -1
func (m *Mixer) Halt(channel int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if channel == -1 {
		for i := range m.channels {
			m.channels[i].stop()
		}
		return
	}
	if channel >= 0 && channel < len(m.channels) {
		m.channels[channel].stop()
	}
}

// StopChunk halts every channel playing chunk
func (m *Mixer) StopChunk(chunk *Chunk) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	stopped := 0
	for i := range m.channels {
		if m.channels[i].chunk == chunk {
			m.channels[i].stop()
			stopped++
		}
	}
	return stopped
}

// SetVolume sets a channel volume, or every channel's when channel is -1.
// volume is clamped to [0, MaxVolume].
func (m *Mixer) SetVolume(channel int, volume int) error {
	volume = clampInt(volume, 0, MaxVolume)

	m.mu.Lock()
	defer m.mu.Unlock()

	if channel == -1 {
		for i := range m.channels {
			m.channels[i].volume = volume
		}
		return nil
	}
	if channel < 0 || channel >= len(m.channels) {
		return ErrInvalidChannel
	}
	m.channels[channel].volume = volume
	return nil
}

// Volume returns a channel's volume
func (m *Mixer) Volume(channel int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if channel < 0 || channel >= len(m.channels) {
		return 0, ErrInvalidChannel
	}
	return m.channels[channel].volume, nil
}

// SetPanning sets the per-side gains of a channel until it stops playing
func (m *Mixer) SetPanning(channel int, left, right uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if channel < 0 || channel >= len(m.channels) {
		return ErrInvalidChannel
	}
	m.channels[channel].left = left
	m.channels[channel].right = right
	return nil
}

// Panning returns the per-side gains of a channel
func (m *Mixer) Panning(channel int) (uint8, uint8, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if channel < 0 || channel >= len(m.channels) {
		return 0, 0, ErrInvalidChannel
	}
	return m.channels[channel].left, m.channels[channel].right, nil
}

// Playing reports whether a channel is busy
func (m *Mixer) Playing(channel int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if channel < 0 || channel >= len(m.channels) {
		return false
	}
	return !m.channels[channel].idle()
}

// ActiveChannels counts busy channels
func (m *Mixer) ActiveChannels() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := 0
	for i := range m.channels {
		if !m.channels[i].idle() {
			active++
		}
	}
	return active
}

// PlayMusic replaces the current music with music from its start.
// loops of -1 repeats forever; 0 and 1 both play once.
func (m *Mixer) PlayMusic(music *Music, loops int) error {
	if music == nil || music.Released() {
		return ErrHandleReleased
	}
	plays := loops
	if loops == 0 || loops < -1 {
		plays = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := music.stream.Seek(0); err != nil {
		return err
	}

	m.music = &musicTrack{
		music:  music,
		stream: newResampledStream(music.stream, music.format.SampleRate, m.sampleRate),
		plays:  plays,
	}
	return nil
}

// HaltMusic stops the music; the handle stays loaded
func (m *Mixer) HaltMusic() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.music = nil
}

// CurrentMusic returns the music being mixed, if any
func (m *Mixer) CurrentMusic() *Music {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.music == nil {
		return nil
	}
	return m.music.music
}

// MusicPlaying reports whether music is being mixed
func (m *Mixer) MusicPlaying() bool {
	return m.CurrentMusic() != nil
}

// SetMusicVolume sets the music volume, clamped to [0, MaxVolume]
func (m *Mixer) SetMusicVolume(volume int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.musicVolume = clampInt(volume, 0, MaxVolume)
}

// MusicVolume returns the music volume
func (m *Mixer) MusicVolume() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.musicVolume
}

// Stream mixes the next len(samples) frames. It never drains: silence is
// produced when nothing is playing.
func (m *Mixer) Stream(samples [][2]float64) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range samples {
		samples[i] = [2]float64{}
	}
	if cap(m.scratch) < len(samples) {
		m.scratch = make([][2]float64, len(samples))
	}
	scratch := m.scratch[:len(samples)]

	for i := range m.channels {
		slot := &m.channels[i]
		if slot.idle() {
			continue
		}
		vol := float64(slot.volume) / MaxVolume
		leftGain := vol * float64(slot.left) / MaxPanGain
		rightGain := vol * float64(slot.right) / MaxPanGain

		filled := m.fill(scratch, func() beep.Streamer { return slot.stream }, func() bool {
			if slot.loops == 0 || slot.chunk.Frames() == 0 {
				return false
			}
			if slot.loops > 0 {
				slot.loops--
			}
			return slot.stream.Seek(0) == nil
		})
		for j := 0; j < filled; j++ {
			samples[j][0] += scratch[j][0] * leftGain
			samples[j][1] += scratch[j][1] * rightGain
		}
		if filled < len(samples) {
			slot.stop()
		}
	}

	if m.music != nil {
		track := m.music
		gain := float64(m.musicVolume) / MaxVolume
		filled := m.fill(scratch, func() beep.Streamer { return track.stream }, func() bool {
			if track.plays > 0 {
				track.plays--
			}
			if track.plays == 0 {
				return false
			}
			if err := track.stream.Err(); err != nil {
				return false
			}
			if track.music.stream.Len() == 0 {
				slog.Warn("empty music track cannot loop", "path", track.music.path)
				return false
			}
			if err := track.music.stream.Seek(0); err != nil {
				slog.Error("failed to rewind music", "path", track.music.path, "error", err)
				return false
			}
			track.stream = newResampledStream(track.music.stream, track.music.format.SampleRate, m.sampleRate)
			return true
		})
		for j := 0; j < filled; j++ {
			samples[j][0] += scratch[j][0] * gain
			samples[j][1] += scratch[j][1] * gain
		}
		if filled < len(samples) {
			if err := track.stream.Err(); err != nil {
				slog.Error("music stream failed", "path", track.music.path, "error", err)
			}
			m.music = nil
		}
	}

	for i := range samples {
		samples[i][0] = clampSample(samples[i][0])
		samples[i][1] = clampSample(samples[i][1])
	}
	return len(samples), true
}

// fill reads from the current stream until buf is full, calling rewind
// each time it ends. A pass that yields no frames after a rewind ends the
// fill, so a stream that is empty from its start cannot spin under m.mu.
// It returns how many frames were written.
func (m *Mixer) fill(buf [][2]float64, stream func() beep.Streamer, rewind func() bool) int {
	filled := 0
	pass := 0
	rewound := false
	for filled < len(buf) {
		n, ok := stream().Stream(buf[filled:])
		filled += n
		pass += n
		if ok && n > 0 {
			continue
		}
		if rewound && pass == 0 {
			break
		}
		if !rewind() {
			break
		}
		rewound = true
		pass = 0
	}
	return filled
}

// Err implements beep.Streamer
func (m *Mixer) Err() error {
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
