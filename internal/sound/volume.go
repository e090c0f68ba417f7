package sound

import (
	"math"

	"mixdeck.dev/internal/audio"
)

// panHalfRange is half of the device's 8-bit per-side gain range
const panHalfRange = audio.MaxPanGain / 2.0

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// deviceVolume quantizes a scalar to the device range [0, audio.MaxVolume]
func deviceVolume(v float64) int {
	return int(math.Round(clamp01(v) * audio.MaxVolume))
}

// panGains maps panning in [-1, 1] to left and right device gains.
// Centre gives 128 on both sides; the extremes give 0 and 255.
func panGains(panning float64) (left, right uint8) {
	p := panning
	if math.IsNaN(p) {
		p = 0
	}
	p = math.Max(-1, math.Min(1, p))
	left = uint8(math.Round((1 - p) * panHalfRange))
	right = uint8(math.Round((1 + p) * panHalfRange))
	return left, right
}

// volumeState holds the three user-facing scalars, each in [0, 1]
type volumeState struct {
	sound  float64
	music  float64
	master float64
}

func fullVolume() volumeState {
	return volumeState{sound: 1, music: 1, master: 1}
}

// effectiveSound is the device volume for the global sound channels
func (v volumeState) effectiveSound() int {
	return deviceVolume(v.sound * v.master)
}

// effectiveMusic is the device volume for the music stream
func (v volumeState) effectiveMusic() int {
	return deviceVolume(v.music * v.master)
}
