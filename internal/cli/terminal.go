package cli

import (
	"log/slog"

	"golang.org/x/term"
)

// TerminalDetector reports whether a file descriptor is an interactive
// terminal and how wide it is
type TerminalDetector interface {
	IsTerminal(fd int) bool
	Width(fd int) int
}

// DefaultTerminalDetector asks golang.org/x/term
type DefaultTerminalDetector struct{}

func (d *DefaultTerminalDetector) IsTerminal(fd int) bool {
	isTerminal := term.IsTerminal(fd)

	slog.Debug("terminal detection result",
		"fd", fd,
		"is_terminal", isTerminal)

	return isTerminal
}

// Width returns the terminal width, or 0 when it cannot be determined
func (d *DefaultTerminalDetector) Width(fd int) int {
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}

func (c *CLI) detector() TerminalDetector {
	if c.terminalDetector == nil {
		c.terminalDetector = &DefaultTerminalDetector{}
	}
	return c.terminalDetector
}

// isInteractiveTerminal checks if the given file descriptor is an interactive terminal
func (c *CLI) isInteractiveTerminal(fd int) bool {
	return c.detector().IsTerminal(fd)
}
