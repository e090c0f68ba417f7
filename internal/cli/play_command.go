package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"mixdeck.dev/internal/sound"
)

// ErrPlayFailed is returned when a play request ends in a failure outcome
var ErrPlayFailed = errors.New("playback failed")

func newPlayCommand() *cobra.Command {
	var volume, pan float64
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "play <name>",
		Short: "Play a sound from the soundpack",
		Long: `Play one sound effect by its logical name.

The name is resolved through the configured soundpack, e.g. "explosion" finds
sounds/explosion.wav (or .ogg, .mp3, .flac, .aiff). The command waits --wait
before exiting so the sound can finish.

Examples:
  mixdeck play explosion
  mixdeck play laser --volume 0.5 --pan -0.75
  mixdeck play click --wait 0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, args[0], volume, pan, wait)
		},
	}

	cmd.Flags().Float64Var(&volume, "volume", 1.0, "Sound volume (0.0 to 1.0)")
	cmd.Flags().Float64Var(&pan, "pan", 0, "Panning from -1.0 (left) to 1.0 (right)")
	cmd.Flags().DurationVar(&wait, "wait", 1500*time.Millisecond, "How long to keep the mixer running")

	return cmd
}

func runPlay(cmd *cobra.Command, name string, volume, pan float64, wait time.Duration) error {
	cli, err := cliFromContext(cmd.Context())
	if err != nil {
		return err
	}

	cfg, err := cli.loadAndValidateConfig(cmd)
	if err != nil {
		return err
	}
	if err := cli.initializeAudioSystem(cfg, false); err != nil {
		return err
	}

	cli.engine.PlaySound(name, volume, pan)
	if err := cli.reportOutcome(cmd); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	waitFor(ctx, wait)
	return nil
}

func newMusicCommand() *cobra.Command {
	var volume float64
	var loop bool
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "music <file>",
		Short: "Play a music file",
		Long: `Play a music file, replacing any music already playing.

The command returns when the track ends, when --duration elapses or on
interrupt. A looping track plays until --duration or interrupt.

Examples:
  mixdeck music theme.ogg --loop
  mixdeck music boss.mp3 --volume 0.6 --duration 30s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMusic(cmd, args[0], volume, loop, duration)
		},
	}

	cmd.Flags().Float64Var(&volume, "volume", 1.0, "Music volume (0.0 to 1.0)")
	cmd.Flags().BoolVar(&loop, "loop", false, "Repeat until stopped")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 = until the track ends)")

	return cmd
}

func runMusic(cmd *cobra.Command, file string, volume float64, loop bool, duration time.Duration) error {
	cli, err := cliFromContext(cmd.Context())
	if err != nil {
		return err
	}

	cfg, err := cli.loadAndValidateConfig(cmd)
	if err != nil {
		return err
	}
	if err := cli.initializeAudioSystem(cfg, false); err != nil {
		return err
	}

	cli.engine.PlayMusic(file, volume, loop)
	if err := cli.reportOutcome(cmd); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	waitForMusic(ctx, cli.engine, duration)

	cli.engine.StopMusic()
	return nil
}

// reportOutcome prints what happened to the last play request and turns
// failure outcomes into an error
func (c *CLI) reportOutcome(cmd *cobra.Command) error {
	event, ok := c.LastEvent()
	if !ok {
		return nil
	}

	switch event.Outcome {
	case sound.OutcomePlayed:
		cmd.Printf("%s %s: playing %s\n", event.Kind, event.Name, event.Path)
		return nil
	case sound.OutcomeSkipped:
		cmd.Printf("%s %s: skipped (disabled or muted)\n", event.Kind, event.Name)
		return nil
	default:
		slog.Debug("play request failed", "name", event.Name, "outcome", event.Outcome)
		return fmt.Errorf("%w: %s %s: %s", ErrPlayFailed, event.Kind, event.Name, event.Outcome)
	}
}

// musicPollInterval is how often runMusic checks whether the track ended
var musicPollInterval = 100 * time.Millisecond

// waitForMusic blocks until ctx is done, d elapses (when positive) or the
// engine reports its music finished. Engines that cannot report play until
// one of the other two.
func waitForMusic(ctx context.Context, engine sound.Engine, d time.Duration) {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	reporter, ok := engine.(sound.MusicReporter)
	if !ok {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(musicPollInterval)
	defer ticker.Stop()
	for reporter.MusicPlaying() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func waitFor(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
