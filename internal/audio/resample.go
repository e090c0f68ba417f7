package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/gopxl/beep"
	pbx "github.com/ik5/audpbx/audio"
)

// frameSource exposes a stereo beep.Streamer as an interleaved float32
// source so it can feed the cubic resampler.
type frameSource struct {
	stream beep.Streamer
	rate   int
	tmp    [][2]float64
	done   bool
}

var _ pbx.Source = (*frameSource)(nil)

func newFrameSource(stream beep.Streamer, rate int) *frameSource {
	return &frameSource{stream: stream, rate: rate}
}

func (s *frameSource) SampleRate() int { return s.rate }
func (s *frameSource) Channels() int   { return 2 }
func (s *frameSource) BufSize() int    { return DefaultBufferFrames * 2 }
func (s *frameSource) Close() error    { return nil }

func (s *frameSource) ReadSamples(dst []float32) (int, error) {
	if s.done {
		return 0, io.EOF
	}
	want := len(dst) / 2
	if want == 0 {
		return 0, nil
	}
	if cap(s.tmp) < want {
		s.tmp = make([][2]float64, want)
	}
	s.tmp = s.tmp[:want]

	filled := 0
	for filled < want {
		n, ok := s.stream.Stream(s.tmp[filled:])
		filled += n
		if !ok {
			s.done = true
			break
		}
	}
	if err := s.stream.Err(); err != nil {
		return 0, fmt.Errorf("source stream failed: %w", err)
	}

	for i := 0; i < filled; i++ {
		dst[2*i] = float32(s.tmp[i][0])
		dst[2*i+1] = float32(s.tmp[i][1])
	}
	if filled == 0 {
		return 0, io.EOF
	}
	return filled * 2, nil
}

// resampledStream converts a stereo streamer to another sample rate
type resampledStream struct {
	resampler *pbx.Resampler
	buf       []float32
	err       error
	done      bool
}

func newResampledStream(stream beep.Streamer, from, to beep.SampleRate) beep.Streamer {
	if from == to {
		return stream
	}
	return &resampledStream{
		resampler: pbx.NewResampler(newFrameSource(stream, int(from)), int(to)),
	}
}

func (r *resampledStream) Stream(samples [][2]float64) (int, bool) {
	if r.done || len(samples) == 0 {
		return 0, !r.done
	}
	need := len(samples) * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]

	n, err := r.resampler.ReadSamples(r.buf)
	frames := n / 2
	for i := 0; i < frames; i++ {
		samples[i][0] = float64(r.buf[2*i])
		samples[i][1] = float64(r.buf[2*i+1])
	}
	if err != nil {
		r.done = true
		if !errors.Is(err, io.EOF) {
			r.err = err
		}
	}
	if frames == 0 {
		return 0, false
	}
	return frames, true
}

func (r *resampledStream) Err() error { return r.err }

// resampleFrames converts decoded frames to the target rate
func resampleFrames(frames [][2]float64, from, to beep.SampleRate) ([][2]float64, error) {
	if from == to || len(frames) == 0 {
		return frames, nil
	}
	return readAllFrames(newResampledStream(newFrameStream(frames), from, to))
}
