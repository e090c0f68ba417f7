package audio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoderRegistryRegister(t *testing.T) {
	registry := NewDecoderRegistry()
	if len(registry.GetDecoders()) != 0 {
		t.Fatalf("expected empty registry, got %d decoders", len(registry.GetDecoders()))
	}

	decoder1 := &MockDecoder{formatName: "TEST1", extensions: []string{".test1"}}
	decoder2 := &MockDecoder{formatName: "TEST2", extensions: []string{".test2"}}
	registry.Register(decoder1)
	registry.Register(decoder2)
	registry.Register(nil)

	decoders := registry.GetDecoders()
	if len(decoders) != 2 {
		t.Fatalf("expected 2 decoders, got %d", len(decoders))
	}
	if decoders[0] != decoder1 || decoders[1] != decoder2 {
		t.Error("decoders not kept in registration order")
	}
	assert.True(t, registry.Supports("test2"))
	assert.False(t, registry.Supports("OGG"))
}

func TestDecoderRegistryDetectFormat(t *testing.T) {
	registry := NewDecoderRegistry()

	wavDecoder := &MockDecoder{formatName: "WAV", extensions: []string{".wav", ".wave"}}
	mp3Decoder := &MockDecoder{formatName: "MP3", extensions: []string{".mp3", ".mpeg"}}
	registry.Register(wavDecoder)
	registry.Register(mp3Decoder)

	testCases := []struct {
		filename string
		expected Decoder
	}{
		{"audio.wav", wavDecoder},
		{"sound.WAV", wavDecoder},
		{"music.wave", wavDecoder},
		{"song.mp3", mp3Decoder},
		{"file.mpeg", mp3Decoder},
		{"unknown.flac", nil},
		{"", nil},
		{"no-extension", nil},
	}

	for _, tc := range testCases {
		if result := registry.DetectFormat(tc.filename); result != tc.expected {
			t.Errorf("DetectFormat('%s') = %v, expected %v", tc.filename, result, tc.expected)
		}
	}
}

func TestDecoderRegistryDetectFormatWithMagicBytes(t *testing.T) {
	registry := NewDecoderRegistry()

	wavDecoder := &MockDecoder{formatName: "WAV", extensions: []string{".wav", ".wave"}}
	mp3Decoder := &MockDecoder{formatName: "MP3", extensions: []string{".mp3", ".mpeg"}}
	registry.Register(wavDecoder)
	registry.Register(mp3Decoder)

	testCases := []struct {
		name     string
		filename string
		content  []byte
		expected Decoder
	}{
		{
			name:     "WAV content with MP3 extension",
			filename: "fake.mp3",
			content:  []byte("RIFF\x24\x00\x00\x00WAVEfmt "),
			expected: wavDecoder,
		},
		{
			name:     "MP3 content with WAV extension",
			filename: "fake.wav",
			content:  []byte("\xFF\xFB\x90\x00"),
			expected: mp3Decoder,
		},
		{
			name:     "unknown content falls back to extension",
			filename: "test.wav",
			content:  []byte("not audio data"),
			expected: wavDecoder,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reader := newReadSeekCloser(tc.content)
			result := registry.DetectFormatWithContent(tc.filename, reader)
			if result != tc.expected {
				t.Errorf("DetectFormatWithContent('%s') = %v, expected %v", tc.filename, result, tc.expected)
			}
			pos, _ := reader.Seek(0, 1)
			if pos != 0 {
				t.Errorf("expected reader rewound, at %d", pos)
			}
		})
	}
}

func TestDecoderRegistryDetectFormatPriority(t *testing.T) {
	registry := NewDecoderRegistry()

	decoder1 := &MockDecoder{formatName: "FIRST", extensions: []string{".test"}}
	decoder2 := &MockDecoder{formatName: "SECOND", extensions: []string{".test"}}
	registry.Register(decoder1)
	registry.Register(decoder2)

	if result := registry.DetectFormat("file.test"); result != decoder1 {
		t.Errorf("expected first registered decoder to have priority, got %v", result)
	}
}

func TestDecoderRegistryDecodeFile(t *testing.T) {
	t.Run("hands the reader to the decoder", func(t *testing.T) {
		registry := NewDecoderRegistry()
		mock := &MockDecoder{formatName: "TEST", extensions: []string{".test"}}
		registry.Register(mock)

		rc := newReadSeekCloser([]byte("opaque"))
		stream, format, err := registry.DecodeFile("sound.test", rc)
		require.NoError(t, err)
		assert.Equal(t, 1, mock.calls)
		assert.Equal(t, 2, stream.Len())
		assert.EqualValues(t, DefaultSampleRate, format.SampleRate)

		require.NoError(t, stream.Close())
		assert.True(t, rc.closed)
	})

	t.Run("unsupported format closes the reader", func(t *testing.T) {
		registry := NewDecoderRegistry()
		rc := newReadSeekCloser([]byte("opaque"))

		_, _, err := registry.DecodeFile("sound.xyz", rc)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnsupportedFormat))
		assert.True(t, rc.closed)
	})

	t.Run("decoder failure is wrapped", func(t *testing.T) {
		registry := NewDecoderRegistry()
		registry.Register(&MockDecoder{formatName: "TEST", extensions: []string{".test"}, shouldFail: true})

		_, _, err := registry.DecodeFile("sound.test", newReadSeekCloser([]byte("opaque")))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnsupportedFormat))
	})

	t.Run("real WAV through the default registry", func(t *testing.T) {
		registry := NewDefaultRegistry()
		data := monoWAV(t, 44100, rampSamples(32))

		stream, format, err := registry.DecodeFile("clip.bin", newReadSeekCloser(data))
		require.NoError(t, err)
		defer stream.Close()

		assert.EqualValues(t, 44100, format.SampleRate)
		assert.Equal(t, 32, stream.Len())
	})
}

func TestNewDefaultRegistry(t *testing.T) {
	registry := NewDefaultRegistry()
	assert.Equal(t, []string{"WAV", "MP3", "AIFF", "OGG", "FLAC"}, registry.GetSupportedFormats())
}
