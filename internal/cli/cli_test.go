package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gopxl/beep"
	pbxwav "github.com/ik5/audpbx/formats/wav"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mixdeck.dev/internal/audio"
	"mixdeck.dev/internal/config"
	"mixdeck.dev/internal/fs"
	"mixdeck.dev/internal/sound"
)

var testTime = time.Date(2024, 1, 17, 14, 30, 0, 0, time.UTC)

const testPack = "/packs/arcade"

// silentOutput accepts the mixed stream and never pulls from it
type silentOutput struct{}

func (silentOutput) Open(spec audio.DeviceSpec, source beep.Streamer) error { return nil }
func (silentOutput) Close() error                                           { return nil }
func (silentOutput) Name() string                                           { return "silent" }

type fakeDetector struct {
	interactive bool
	width       int
}

func (d *fakeDetector) IsTerminal(fd int) bool { return d.interactive }
func (d *fakeDetector) Width(fd int) int       { return d.width }

func testEngineFactory() *sound.Factory {
	return sound.NewFactoryWithDependencies(
		func() bool { return false },
		func(string) bool { return false },
		func(output string, fsys afero.Fs) (audio.Device, error) {
			return audio.NewMixerDevice(silentOutput{}, audio.WithFilesystem(fsys)), nil
		},
	)
}

// isolateEnv clears MIXDECK_* overrides a developer shell might carry
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"MIXDECK_TRACKING", "MIXDECK_TRACKING_DB", "MIXDECK_ENGINE", "MIXDECK_OUTPUT", "MIXDECK_SOUNDPACK", "MIXDECK_SOUND_ENABLED", "MIXDECK_MUSIC_ENABLED", "MIXDECK_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func newTestCLI(t *testing.T) (*CLI, afero.Fs) {
	t.Helper()
	isolateEnv(t)

	factory := fs.NewMemoryFactory()
	cli := NewCLIWithDependencies(factory, testEngineFactory(), &fakeDetector{})
	cli.now = func() time.Time { return testTime }
	return cli, factory.Production()
}

func runCLI(cli *CLI, args ...string) (string, string, int) {
	var stdout, stderr bytes.Buffer
	code := cli.Run(append([]string{"mixdeck"}, args...), strings.NewReader(""), &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func wavBytes(t *testing.T) []byte {
	t.Helper()
	samples := make([]int16, 441)
	for i := range samples {
		samples[i] = int16(i * 50)
	}
	var buf bytes.Buffer
	require.NoError(t, pbxwav.WriteWAV16(&buf, 44100, samples))
	return buf.Bytes()
}

func writeSound(t *testing.T, fsys afero.Fs, name string) string {
	t.Helper()
	path := filepath.Join(testPack, "sounds", name+".wav")
	require.NoError(t, afero.WriteFile(fsys, path, wavBytes(t), 0o644))
	return path
}

func writeConfig(t *testing.T, fsys afero.Fs, cfg map[string]any) string {
	t.Helper()
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	path := "/test/config.json"
	require.NoError(t, afero.WriteFile(fsys, path, data, 0o644))
	return path
}

func TestVersion(t *testing.T) {
	for _, flag := range []string{"--version", "-v"} {
		cli, _ := newTestCLI(t)
		stdout, _, code := runCLI(cli, flag)
		assert.Equal(t, 0, code)
		assert.Equal(t, "mixdeck version "+Version+"\n", stdout)
	}
}

func TestHelpListsCommands(t *testing.T) {
	cli, _ := newTestCLI(t)
	stdout, _, code := runCLI(cli, "--help")
	require.Equal(t, 0, code)
	for _, name := range []string{"play", "music", "formats", "stats", "console", "config"} {
		assert.Contains(t, stdout, name)
	}
}

func TestUnknownCommand(t *testing.T) {
	cli, _ := newTestCLI(t)
	_, stderr, code := runCLI(cli, "dance")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Error:")
}

func TestPlaySound(t *testing.T) {
	cli, memFs := newTestCLI(t)
	path := writeSound(t, memFs, "explosion")

	stdout, stderr, code := runCLI(cli, "play", "explosion", "--engine", "mixer", "--soundpack", testPack, "--wait", "0")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "sound explosion: playing "+path+"\n", stdout)

	event, ok := cli.LastEvent()
	require.True(t, ok)
	assert.Equal(t, sound.OutcomePlayed, event.Outcome)
	assert.Nil(t, cli.engine, "Run should close the engine")
}

func TestPlaySoundNotFound(t *testing.T) {
	cli, _ := newTestCLI(t)

	_, stderr, code := runCLI(cli, "play", "missing", "--engine", "mixer", "--soundpack", testPack, "--wait", "0")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "playback failed")
	assert.Contains(t, stderr, "not_found")
}

func TestPlaySilentIsSkipped(t *testing.T) {
	cli, memFs := newTestCLI(t)
	writeSound(t, memFs, "explosion")

	stdout, _, code := runCLI(cli, "play", "explosion", "--engine", "mixer", "--soundpack", testPack, "--silent", "--wait", "0")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "skipped")
}

func TestPlayNullEngine(t *testing.T) {
	cli, _ := newTestCLI(t)

	stdout, _, code := runCLI(cli, "play", "anything", "--engine", "null", "--wait", "0")
	require.Equal(t, 0, code)
	assert.Equal(t, "sound anything: skipped (disabled or muted)\n", stdout)
}

func TestPlayRequiresName(t *testing.T) {
	cli, _ := newTestCLI(t)
	_, _, code := runCLI(cli, "play")
	assert.Equal(t, 1, code)
}

func TestPlayInvalidEngine(t *testing.T) {
	cli, _ := newTestCLI(t)
	_, stderr, code := runCLI(cli, "play", "x", "--engine", "sdl")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid configuration")
}

func TestMusic(t *testing.T) {
	cli, memFs := newTestCLI(t)
	path := writeSound(t, memFs, "theme")

	stdout, stderr, code := runCLI(cli, "music", path, "--engine", "mixer", "--loop", "--duration", "1ms")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "music "+path+": playing "+path+"\n", stdout)
}

// fadingEngine reports its music finished after a few polls
type fadingEngine struct {
	*sound.NullEngine
	polls int
}

func (e *fadingEngine) MusicPlaying() bool {
	e.polls++
	return e.polls < 3
}

func TestWaitForMusic(t *testing.T) {
	saved := musicPollInterval
	musicPollInterval = time.Millisecond
	t.Cleanup(func() { musicPollInterval = saved })

	engine := &fadingEngine{NullEngine: sound.NewNullEngine()}
	waitForMusic(context.Background(), engine, 0)
	assert.Equal(t, 3, engine.polls, "returns once the track ends")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	waitForMusic(ctx, &fadingEngine{NullEngine: sound.NewNullEngine(), polls: -1000}, 0)
	assert.Less(t, time.Since(start), time.Second, "interrupt ends the wait")

	start = time.Now()
	waitForMusic(context.Background(), &fadingEngine{NullEngine: sound.NewNullEngine(), polls: -1000}, 5*time.Millisecond)
	assert.Less(t, time.Since(start), time.Second, "duration ends the wait")
}

func TestMusicWithoutDurationReturns(t *testing.T) {
	cli, memFs := newTestCLI(t)
	path := writeSound(t, memFs, "theme")

	done := make(chan int, 1)
	var stdout string
	go func() {
		out, _, code := runCLI(cli, "music", path, "--engine", "null")
		stdout = out
		done <- code
	}()

	select {
	case code := <-done:
		assert.Equal(t, 0, code)
		assert.Contains(t, stdout, "skipped")
	case <-time.After(5 * time.Second):
		t.Fatal("music command kept waiting for a track that is not playing")
	}
}

func TestMusicDecodeFailure(t *testing.T) {
	cli, memFs := newTestCLI(t)
	require.NoError(t, afero.WriteFile(memFs, "/music/broken.wav", []byte("not audio"), 0o644))

	_, stderr, code := runCLI(cli, "music", "/music/broken.wav", "--engine", "mixer", "--duration", "1ms")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "decode_failed")
}

func TestFormats(t *testing.T) {
	cli, memFs := newTestCLI(t)
	path := writeSound(t, memFs, "laser")
	require.NoError(t, afero.WriteFile(memFs, "/notes.txt", []byte("hello"), 0o644))

	stdout, _, code := runCLI(cli, "formats", path)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "decoders: ")
	assert.Contains(t, stdout, "WAV")
	assert.Contains(t, stdout, "outputs:  ")
	assert.Contains(t, stdout, "players:  none\n")
	assert.Contains(t, stdout, "auto:     mixer\n")
	assert.Contains(t, stdout, path+": WAV")

	stdout, stderr, code := runCLI(cli, "formats", "/notes.txt", "/nope.wav")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "/notes.txt: unsupported")
	assert.Contains(t, stderr, "/nope.wav")
	assert.Contains(t, stderr, "2 of 2 files")
}

func TestConfigShowAppliesFlags(t *testing.T) {
	cli, memFs := newTestCLI(t)
	path := writeConfig(t, memFs, map[string]any{"master_volume": 0.5, "soundpack": "retro"})

	stdout, stderr, code := runCLI(cli, "config", "show", "--config", path, "--engine", "null")
	require.Equal(t, 0, code, stderr)

	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(stdout), &cfg))
	assert.Equal(t, 0.5, cfg.MasterVolume)
	assert.Equal(t, "retro", cfg.Soundpack)
	assert.Equal(t, "null", cfg.Engine)
	assert.True(t, cfg.SoundEnabled, "unset keys keep defaults")
}

func TestConfigSet(t *testing.T) {
	cli, memFs := newTestCLI(t)
	path := writeConfig(t, memFs, map[string]any{"soundpack": "retro"})

	stdout, stderr, code := runCLI(cli, "config", "set", "master_volume", "0.25", "--config", path)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "master_volume = 0.25 ("+path+")\n", stdout)

	loaded, err := config.NewConfigManagerWithFilesystem(memFs).LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0.25, loaded.MasterVolume)
	assert.Equal(t, "retro", loaded.Soundpack)

	_, stderr, code = runCLI(cli, "config", "set", "volume", "1", "--config", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown")

	_, _, code = runCLI(cli, "config", "set", "master_volume", "2", "--config", path)
	assert.Equal(t, 1, code)
}

func TestConfigSetCreatesUserConfig(t *testing.T) {
	cli, memFs := newTestCLI(t)

	_, stderr, code := runCLI(cli, "config", "set", "engine", "null")
	require.Equal(t, 0, code, stderr)

	userPath := cli.configManager.UserConfigPath()
	exists, err := afero.Exists(memFs, userPath)
	require.NoError(t, err)
	assert.True(t, exists)

	stdout, _, code := runCLI(cli, "config", "path")
	require.Equal(t, 0, code)
	assert.Equal(t, userPath+"\n", stdout)
}

func TestConfigPathWithoutFile(t *testing.T) {
	cli, _ := newTestCLI(t)
	stdout, _, code := runCLI(cli, "config", "path")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "no config file")
}

func TestStatsWithoutJournal(t *testing.T) {
	cli, memFs := newTestCLI(t)
	path := writeConfig(t, memFs, map[string]any{
		"tracking": map[string]any{"enabled": true, "database_path": filepath.Join(t.TempDir(), "plays.db")},
	})

	_, stderr, code := runCLI(cli, "stats", "--config", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, ErrNoJournal.Error())
}

func TestStatsAfterPlays(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "plays.db")

	isolateEnv(t)
	factory := fs.NewMemoryFactory()
	memFs := factory.Production()
	cfgPath := writeConfig(t, memFs, map[string]any{
		"engine":    "mixer",
		"soundpack": testPack,
		"tracking":  map[string]any{"enabled": true, "database_path": dbPath},
	})
	writeSound(t, memFs, "coin")

	newCLI := func() *CLI {
		cli := NewCLIWithDependencies(factory, testEngineFactory(), &fakeDetector{})
		cli.now = time.Now
		return cli
	}

	for _, name := range []string{"coin", "coin", "ghost"} {
		runCLI(newCLI(), "play", name, "--config", cfgPath, "--wait", "0")
	}

	stdout, stderr, code := runCLI(newCLI(), "stats", "--config", cfgPath)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "3 requests in 3 sessions")
	assert.Contains(t, stdout, "played")
	assert.Contains(t, stdout, "coin")

	stdout, _, code = runCLI(newCLI(), "stats", "--config", cfgPath, "--missing")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "ghost")
	assert.NotContains(t, stdout, "coin")

	stdout, _, code = runCLI(newCLI(), "stats", "--config", cfgPath, "--recent", "--json", "--limit", "2")
	require.Equal(t, 0, code)
	var recent []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &recent))
	assert.Len(t, recent, 2)
}

func TestStatsRejectsBadFilters(t *testing.T) {
	cli, memFs := newTestCLI(t)
	path := writeConfig(t, memFs, map[string]any{})

	for _, args := range [][]string{
		{"--preset", "fortnight"},
		{"--kind", "voice"},
	} {
		_, _, code := runCLI(cli, append([]string{"stats", "--config", path}, args...)...)
		assert.Equal(t, 1, code, "args %v", args)
	}
}

func TestCLIFromContextMissing(t *testing.T) {
	newTestCLI(t)
	_, err := cliFromContext(context.Background())
	assert.Error(t, err)
}

func TestCloseIsIdempotent(t *testing.T) {
	cli, _ := newTestCLI(t)
	cli.Close()
	cli.Close()
}

func TestReportOutcomeWithoutEvent(t *testing.T) {
	cli, _ := newTestCLI(t)
	assert.NoError(t, cli.reportOutcome(cli.rootCmd))
}

func TestErrPlayFailedWraps(t *testing.T) {
	cli, _ := newTestCLI(t)
	cli.observe(sound.PlayEvent{Kind: sound.KindSound, Name: "x", Outcome: sound.OutcomeNoChannel})
	err := cli.reportOutcome(cli.rootCmd)
	assert.True(t, errors.Is(err, ErrPlayFailed))
	assert.Contains(t, err.Error(), "no_channel")
}
