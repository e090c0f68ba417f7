package sound

import (
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// systemPlayers are the external players CommandEngine knows how to drive,
// best first
var systemPlayers = []string{
	"paplay", // PulseAudio
	"ffplay", // FFmpeg
	"aplay",  // ALSA, no volume flag
	"afplay", // macOS
}

// IsWSL reports whether mixdeck runs under Windows Subsystem for Linux
func IsWSL() bool {
	return isWSL(readProcVersion(), os.Getenv("WSL_DISTRO_NAME"))
}

func isWSL(procVersion, distro string) bool {
	if distro != "" {
		slog.Debug("WSL detected", "distro", distro)
		return true
	}
	kernel := strings.ToLower(procVersion)
	if strings.Contains(kernel, "microsoft") || strings.Contains(kernel, "wsl") {
		slog.Debug("WSL detected", "kernel", truncateString(procVersion, 50))
		return true
	}
	return false
}

func readProcVersion() string {
	content, err := os.ReadFile("/proc/version")
	if err != nil {
		slog.Debug("failed to read /proc/version", "error", err)
		return ""
	}
	return string(content)
}

// CommandExists reports whether command is on PATH
func CommandExists(command string) bool {
	if command == "" {
		return false
	}
	_, err := exec.LookPath(command)
	slog.Debug("command existence check", "command", command, "exists", err == nil)
	return err == nil
}

// preferredPlayer returns the first installed system player, or ""
func preferredPlayer(exists func(string) bool) string {
	for _, player := range systemPlayers {
		if exists(player) {
			return player
		}
	}
	return ""
}

// autoEngine picks what "auto" means on this machine. Sound card output
// under WSL crackles, so a host player wins there when one is installed.
func autoEngine(wsl bool, player string) string {
	if wsl {
		if player != "" {
			return EngineSystemCommand
		}
		slog.Warn("no system audio command found under WSL, using the mixer (may crackle)")
	}
	return EngineMixer
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
