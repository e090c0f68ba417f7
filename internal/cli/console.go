package cli

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"mixdeck.dev/internal/sound"
)

// ErrNotInteractive is returned when the console is started without a terminal
var ErrNotInteractive = errors.New("console needs an interactive terminal")

// frameInterval is how often the console calls Engine.Update
const frameInterval = time.Second / 30

const (
	volumeStep = 0.1
	panStep    = 0.25
	maxSounds  = 9
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	keyStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// consoleModel drives an engine from the keyboard
type consoleModel struct {
	engine      sound.Engine
	lastEvent   func() (sound.PlayEvent, bool)
	sounds      []string
	music       string
	musicOn     bool
	pan         float64
	lastTick    time.Time
	frames      int
	status      string
	statusIsErr bool
	width       int
}

func newConsoleModel(engine sound.Engine, sounds []string, music string, lastEvent func() (sound.PlayEvent, bool)) consoleModel {
	if len(sounds) > maxSounds {
		sounds = sounds[:maxSounds]
	}
	return consoleModel{
		engine:    engine,
		lastEvent: lastEvent,
		sounds:    sounds,
		music:     music,
	}
}

func (m consoleModel) Init() tea.Cmd {
	return tick()
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		now := time.Time(msg)
		var delta time.Duration
		if !m.lastTick.IsZero() {
			delta = now.Sub(m.lastTick)
		}
		m.lastTick = now
		m.engine.Update(delta)
		m.frames++
		return m, tick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m consoleModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit

	case "left", "h":
		m.pan = math.Max(-1, m.pan-panStep)
		m.setStatus(fmt.Sprintf("pan %+.2f", m.pan), false)
	case "right", "l":
		m.pan = math.Min(1, m.pan+panStep)
		m.setStatus(fmt.Sprintf("pan %+.2f", m.pan), false)

	case "+", "=":
		m.engine.SetMasterVolume(m.engine.MasterVolume() + volumeStep)
	case "-", "_":
		m.engine.SetMasterVolume(m.engine.MasterVolume() - volumeStep)
	case "]":
		m.engine.SetSoundVolume(m.engine.SoundVolume() + volumeStep)
	case "[":
		m.engine.SetSoundVolume(m.engine.SoundVolume() - volumeStep)
	case "}":
		m.engine.SetMusicVolume(m.engine.MusicVolume() + volumeStep)
	case "{":
		m.engine.SetMusicVolume(m.engine.MusicVolume() - volumeStep)

	case "m":
		m.toggleMusic()

	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			idx := int(key[0] - '1')
			if idx < len(m.sounds) {
				m.engine.PlaySound(m.sounds[idx], 1.0, m.pan)
				m.reportLast()
			}
		}
	}
	return m, nil
}

func (m *consoleModel) toggleMusic() {
	if m.music == "" {
		m.setStatus("no music file given (--music)", true)
		return
	}
	if m.musicOn {
		m.engine.StopMusic()
		m.musicOn = false
		m.setStatus("music stopped", false)
		return
	}
	m.engine.PlayMusic(m.music, m.engine.MusicVolume(), true)
	m.musicOn = true
	m.reportLast()
}

func (m *consoleModel) reportLast() {
	if m.lastEvent == nil {
		return
	}
	event, ok := m.lastEvent()
	if !ok {
		return
	}
	failed := event.Outcome != sound.OutcomePlayed && event.Outcome != sound.OutcomeSkipped
	if event.Kind == sound.KindMusic && event.Outcome != sound.OutcomePlayed {
		m.musicOn = false
	}
	m.setStatus(fmt.Sprintf("%s %s: %s", event.Kind, event.Name, event.Outcome), failed)
}

func (m *consoleModel) setStatus(status string, isErr bool) {
	m.status = status
	m.statusIsErr = isErr
}

func volumeBar(v float64) string {
	const width = 10
	filled := int(math.Round(v * width))
	return strings.Repeat("█", filled) + mutedStyle.Render(strings.Repeat("░", width-filled))
}

func (m consoleModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("mixdeck console"))
	b.WriteString("\n\n")

	if len(m.sounds) == 0 {
		b.WriteString(mutedStyle.Render("no sounds given"))
		b.WriteString("\n")
	}
	for i, name := range m.sounds {
		fmt.Fprintf(&b, "%s %s\n", keyStyle.Render(fmt.Sprintf("[%d]", i+1)), name)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "master %s %3.0f%%\n", volumeBar(m.engine.MasterVolume()), m.engine.MasterVolume()*100)
	fmt.Fprintf(&b, "sound  %s %3.0f%%\n", volumeBar(m.engine.SoundVolume()), m.engine.SoundVolume()*100)
	fmt.Fprintf(&b, "music  %s %3.0f%%\n", volumeBar(m.engine.MusicVolume()), m.engine.MusicVolume()*100)
	fmt.Fprintf(&b, "pan    %+.2f\n", m.pan)

	if m.music != "" {
		state := "stopped"
		if m.musicOn {
			state = "playing"
		}
		fmt.Fprintf(&b, "music  %s (%s)\n", m.music, state)
	}

	if m.status != "" {
		b.WriteString("\n")
		if m.statusIsErr {
			b.WriteString(errorStyle.Render(m.status))
		} else {
			b.WriteString(statusStyle.Render(m.status))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("1-9 play  ←/→ pan  +/- master  [/] sound  {/} music  m music on/off  q quit"))

	style := panelStyle
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}
	return style.Render(b.String())
}

func newConsoleCommand() *cobra.Command {
	var music string

	cmd := &cobra.Command{
		Use:   "console [sound...]",
		Short: "Interactive sound board",
		Long: `Open an interactive sound board. Number keys play the given sounds,
other keys adjust volumes and panning. The soundpack is watched, so edited
sound files are picked up without restarting.

Example:
  mixdeck console explosion laser coin --music theme.ogg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(cmd, args, music)
		},
	}

	cmd.Flags().StringVar(&music, "music", "", "Music file toggled with m")
	return cmd
}

func runConsole(cmd *cobra.Command, sounds []string, music string) error {
	cli, err := cliFromContext(cmd.Context())
	if err != nil {
		return err
	}

	if !cli.isInteractiveTerminal(int(os.Stdin.Fd())) {
		return ErrNotInteractive
	}

	cfg, err := cli.loadAndValidateConfig(cmd)
	if err != nil {
		return err
	}
	if err := cli.initializeAudioSystem(cfg, true); err != nil {
		return err
	}

	model := newConsoleModel(cli.engine, sounds, music, cli.LastEvent)
	model.width = cli.detector().Width(int(os.Stdout.Fd()))

	program := tea.NewProgram(model,
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("console failed: %w", err)
	}
	return nil
}
