package audio

import (
	"errors"
	"math"
	"testing"
)

func TestWavDecoderInterface(t *testing.T) {
	decoder := NewWavDecoder()

	var _ Decoder = decoder

	if decoder.FormatName() != "WAV" {
		t.Errorf("expected format name 'WAV', got '%s'", decoder.FormatName())
	}
}

func TestWavDecoderCanDecode(t *testing.T) {
	decoder := NewWavDecoder()

	testCases := []struct {
		filename string
		expected bool
	}{
		{"audio.wav", true},
		{"sound.WAV", true},
		{"music.wave", true},
		{"test.WAVE", true},
		{"audio.mp3", false},
		{"sound.flac", false},
		{"", false},
		{"wav", false},
		{"audio.wav.backup", false},
	}

	for _, tc := range testCases {
		if got := decoder.CanDecode(tc.filename); got != tc.expected {
			t.Errorf("CanDecode('%s') = %v, expected %v", tc.filename, got, tc.expected)
		}
	}
}

func TestWavDecoderDecodeInvalidData(t *testing.T) {
	decoder := NewWavDecoder()

	testCases := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"not a wav", []byte("this is not a wav file at all")},
		{"truncated header", []byte("RIFF\x00\x00")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rc := newReadSeekCloser(tc.data)
			stream, _, err := decoder.Decode(rc)
			if err == nil {
				t.Fatal("expected error")
			}
			if stream != nil {
				t.Error("expected nil stream on error")
			}
			if !errors.Is(err, ErrInvalidData) && !errors.Is(err, ErrReadFailure) {
				t.Errorf("unexpected error type: %v", err)
			}
			if !rc.closed {
				t.Error("expected reader closed on failure")
			}
		})
	}
}

func TestWavDecoderMonoFixture(t *testing.T) {
	decoder := NewWavDecoder()
	samples := rampSamples(64)

	frames, format := decodeAll(t, decoder, monoWAV(t, 22050, samples))

	if format.SampleRate != 22050 {
		t.Errorf("expected sample rate 22050, got %d", format.SampleRate)
	}
	if format.NumChannels != 2 {
		t.Errorf("expected stereo output, got %d channels", format.NumChannels)
	}
	if len(frames) != len(samples) {
		t.Fatalf("expected %d frames, got %d", len(samples), len(frames))
	}

	for i, s := range samples {
		want := float64(s) / 32768.0
		if math.Abs(frames[i][0]-want) > 1e-9 || frames[i][0] != frames[i][1] {
			t.Fatalf("frame %d: expected %v on both sides, got %v", i, want, frames[i])
		}
	}
}
