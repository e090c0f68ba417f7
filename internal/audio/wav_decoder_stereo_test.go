package audio

import (
	"testing"
)

// buildWAV assembles a PCM WAV file by hand
func buildWAV(channels, bitsPerSample int, sampleData []byte) []byte {
	blockAlign := channels * bitsPerSample / 8
	byteRate := 44100 * blockAlign

	wav := make([]byte, 0, 44+len(sampleData))
	wav = append(wav, []byte("RIFF")...)
	wav = append(wav, 0, 0, 0, 0) // ChunkSize, patched below
	wav = append(wav, []byte("WAVE")...)

	wav = append(wav, []byte("fmt ")...)
	wav = append(wav, 16, 0, 0, 0)       // Subchunk1Size
	wav = append(wav, 1, 0)              // PCM
	wav = append(wav, byte(channels), 0) // NumChannels
	wav = append(wav, 68, 172, 0, 0)     // 44100
	wav = append(wav, byte(byteRate), byte(byteRate>>8), byte(byteRate>>16), byte(byteRate>>24))
	wav = append(wav, byte(blockAlign), 0)    // BlockAlign
	wav = append(wav, byte(bitsPerSample), 0) // BitsPerSample

	wav = append(wav, []byte("data")...)
	wav = append(wav, byte(len(sampleData)), byte(len(sampleData)>>8), 0, 0)
	wav = append(wav, sampleData...)

	total := len(wav) - 8
	wav[4] = byte(total)
	wav[5] = byte(total >> 8)
	wav[6] = byte(total >> 16)
	wav[7] = byte(total >> 24)
	return wav
}

func TestWavDecoderStereoChannelHandling(t *testing.T) {
	decoder := NewWavDecoder()

	// Left: 0x1000, 0x2000, 0x3000, 0x4000; right: 0x0100 .. 0x0400
	sampleData := []byte{
		0x00, 0x10, 0x00, 0x01,
		0x00, 0x20, 0x00, 0x02,
		0x00, 0x30, 0x00, 0x03,
		0x00, 0x40, 0x00, 0x04,
	}

	frames, _ := decodeAll(t, decoder, buildWAV(2, 16, sampleData))
	if len(frames) != 4 {
		t.Fatalf("expected 4 frames, got %d", len(frames))
	}

	for i := 0; i < 4; i++ {
		wantLeft := float64((i+1)*0x1000) / 32768.0
		wantRight := float64((i+1)*0x0100) / 32768.0
		if frames[i][0] != wantLeft || frames[i][1] != wantRight {
			t.Errorf("frame %d: expected [%v %v], got %v", i, wantLeft, wantRight, frames[i])
		}
	}
}

func TestWavDecoderEightBit(t *testing.T) {
	decoder := NewWavDecoder()

	// Unsigned 8-bit mono: silence, full negative, near full positive, silence
	frames, format := decodeAll(t, decoder, buildWAV(1, 8, []byte{128, 0, 255, 128}))
	if format.Precision != 1 {
		t.Errorf("expected precision 1, got %d", format.Precision)
	}
	if len(frames) != 4 {
		t.Fatalf("expected 4 frames, got %d", len(frames))
	}
	if frames[0][0] != 0 || frames[1][0] != -1 || frames[2][0] <= 0.99 {
		t.Errorf("unexpected 8-bit conversion: %v", frames)
	}
}
