//go:build !cgo

package audio

import (
	"fmt"
)

const cgoHint = `mixdeck needs CGO for sound card output.

To fix this issue:
1. Ensure CGO_ENABLED=1 (this is the default for native builds)
2. Install a C compiler and the ALSA headers on Linux:
   sudo apt-get install build-essential libasound2-dev
3. Rebuild: go install mixdeck.dev/cmd/mixdeck`

func newOtoOutput() (Output, error) {
	return nil, fmt.Errorf("%w: oto\n\n%s", ErrOutputUnavailable, cgoHint)
}

func newMalgoOutput() (Output, error) {
	return nil, fmt.Errorf("%w: malgo\n\n%s", ErrOutputUnavailable, cgoHint)
}
