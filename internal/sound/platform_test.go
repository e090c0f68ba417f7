package sound

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func commandSet(available ...string) func(string) bool {
	return func(cmd string) bool {
		for _, a := range available {
			if cmd == a {
				return true
			}
		}
		return false
	}
}

func TestDetectWSLFromData(t *testing.T) {
	tests := []struct {
		name        string
		procVersion string
		wslEnv      string
		expected    bool
	}{
		{
			name:        "WSL1 via /proc/version",
			procVersion: "Linux version 4.4.0-19041-Microsoft (Microsoft@Microsoft.com) #1237-Microsoft",
			expected:    true,
		},
		{
			name:        "WSL2 via /proc/version",
			procVersion: "Linux version 5.15.74.2-microsoft-standard-WSL2 (gcc (GCC) 11.2.0)",
			expected:    true,
		},
		{
			name:     "WSL via WSL_DISTRO_NAME",
			wslEnv:   "Ubuntu",
			expected: true,
		},
		{
			name:        "native Linux",
			procVersion: "Linux version 5.15.0-56-generic (buildd@lcy02-amd64-044) #62-Ubuntu SMP",
			expected:    false,
		},
		{
			name:     "nothing to go on",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isWSL(tt.procVersion, tt.wslEnv))
		})
	}
}

func TestCommandExists(t *testing.T) {
	assert.False(t, CommandExists(""))
	assert.False(t, CommandExists("nonexistent-command-12345"))
	assert.False(t, CommandExists("/invalid/path/command"))
}

func TestFactoryAutoEngine(t *testing.T) {
	tests := []struct {
		name      string
		isWSL     bool
		available []string
		expected  string
	}{
		{"WSL with paplay", true, []string{"paplay"}, EngineSystemCommand},
		{"WSL with ffplay only", true, []string{"ffplay"}, EngineSystemCommand},
		{"WSL without players", true, nil, EngineMixer},
		{"native Linux with paplay", false, []string{"paplay"}, EngineMixer},
		{"native without players", false, nil, EngineMixer},
		{"macOS-like", false, []string{"afplay"}, EngineMixer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := NewFactoryWithDependencies(func() bool { return tt.isWSL }, commandSet(tt.available...), nil)
			assert.Equal(t, tt.expected, factory.AutoEngine())
		})
	}
}

func TestFactorySystemCommandOrder(t *testing.T) {
	tests := []struct {
		name      string
		available []string
		expected  string
	}{
		{"paplay first", []string{"aplay", "paplay", "ffplay"}, "paplay"},
		{"ffplay before aplay", []string{"ffplay", "aplay"}, "ffplay"},
		{"aplay alone", []string{"aplay"}, "aplay"},
		{"afplay on macOS", []string{"afplay"}, "afplay"},
		{"none", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := NewFactoryWithDependencies(func() bool { return false }, commandSet(tt.available...), nil)
			assert.Equal(t, tt.expected, factory.SystemCommand())
		})
	}
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abc...", truncateString("abcdef", 3))
}
