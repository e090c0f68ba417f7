package audio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/gopxl/beep"
)

// frameStream serves fully decoded stereo frames from memory
type frameStream struct {
	frames [][2]float64
	pos    int
	closer io.Closer
}

func newFrameStream(frames [][2]float64) *frameStream {
	return &frameStream{frames: frames}
}

func (s *frameStream) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= len(s.frames) {
		return 0, false
	}
	n := copy(samples, s.frames[s.pos:])
	s.pos += n
	return n, true
}

func (s *frameStream) Err() error    { return nil }
func (s *frameStream) Len() int      { return len(s.frames) }
func (s *frameStream) Position() int { return s.pos }

func (s *frameStream) Seek(p int) error {
	if p < 0 || p > len(s.frames) {
		return fmt.Errorf("seek position %d out of range [0, %d]", p, len(s.frames))
	}
	s.pos = p
	return nil
}

func (s *frameStream) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

// pcm16Stream streams interleaved 16-bit little endian stereo PCM
// from a seekable reader, as produced by the MP3 decoder.
type pcm16Stream struct {
	r      io.ReadSeeker
	closer io.Closer
	frames int
	pos    int
	buf    []byte
	err    error
}

const pcm16FrameBytes = 4

func (s *pcm16Stream) Stream(samples [][2]float64) (int, bool) {
	if s.err != nil {
		return 0, false
	}
	need := len(samples) * pcm16FrameBytes
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	s.buf = s.buf[:need]

	n, err := io.ReadFull(s.r, s.buf)
	frames := n / pcm16FrameBytes
	for i := 0; i < frames; i++ {
		off := i * pcm16FrameBytes
		samples[i][0] = int16ToFloat(int16(binary.LittleEndian.Uint16(s.buf[off:])))
		samples[i][1] = int16ToFloat(int16(binary.LittleEndian.Uint16(s.buf[off+2:])))
	}
	s.pos += frames

	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		s.err = err
	}
	if frames == 0 {
		return 0, false
	}
	return frames, true
}

func (s *pcm16Stream) Err() error    { return s.err }
func (s *pcm16Stream) Len() int      { return s.frames }
func (s *pcm16Stream) Position() int { return s.pos }

func (s *pcm16Stream) Seek(p int) error {
	if p < 0 || (s.frames > 0 && p > s.frames) {
		return fmt.Errorf("seek position %d out of range [0, %d]", p, s.frames)
	}
	if _, err := s.r.Seek(int64(p*pcm16FrameBytes), io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek PCM stream: %w", err)
	}
	s.pos = p
	s.err = nil
	return nil
}

func (s *pcm16Stream) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

// int16ToFloat maps a signed 16-bit sample to [-1, 1)
func int16ToFloat(v int16) float64 {
	return float64(v) / 32768.0
}

// intToFloat maps a signed sample of the given bit depth to [-1, 1).
// 8-bit samples are unsigned as stored in WAV files.
func intToFloat(v int, bitDepth int) float64 {
	switch bitDepth {
	case 8:
		return float64(v-128) / 128.0
	case 16:
		return float64(v) / 32768.0
	case 24:
		return float64(v) / 8388608.0
	case 32:
		return float64(v) / 2147483648.0
	default:
		return 0
	}
}

// clampSample limits a mixed sample to the output range
func clampSample(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// readAllFrames drains a streamer into memory
func readAllFrames(s beep.Streamer) ([][2]float64, error) {
	var frames [][2]float64
	buf := make([][2]float64, 512)
	for {
		n, ok := s.Stream(buf)
		frames = append(frames, buf[:n]...)
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return frames, nil
}
