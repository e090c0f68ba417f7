package sound

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mixdeck.dev/internal/audio"
)

func deviceFrom(device audio.Device, err error) DeviceConstructor {
	return func(output string, fs afero.Fs) (audio.Device, error) {
		return device, err
	}
}

func TestFactorySupportedEngines(t *testing.T) {
	factory := NewFactory()

	assert.Equal(t, []string{"auto", "mixer", "null", "system_command"}, factory.SupportedEngines())

	for _, kind := range []string{"", "auto", "mixer", "null", "system_command"} {
		if !factory.IsValidEngineType(kind) {
			t.Errorf("expected %q to be valid", kind)
		}
	}
	for _, kind := range []string{"sdl", "MIXER ", "oto"} {
		if factory.IsValidEngineType(kind) {
			t.Errorf("expected %q to be invalid", kind)
		}
	}
}

func TestFactoryCreateEngine(t *testing.T) {
	tests := []struct {
		name     string
		kind     string
		isWSL    bool
		commands []string
		device   audio.Device
		devErr   error
		wantType string
		wantErr  error
	}{
		{name: "null", kind: "null", wantType: "*sound.NullEngine"},
		{name: "mixer", kind: "mixer", device: newRecordingDevice(), wantType: "*sound.MixerEngine"},
		{name: "mixer trims and lowercases", kind: " Mixer ", device: newRecordingDevice(), wantType: "*sound.MixerEngine"},
		{name: "mixer without output", kind: "mixer", devErr: audio.ErrOutputUnavailable, wantErr: ErrDeviceInit},
		{name: "auto picks mixer", kind: "", device: newRecordingDevice(), wantType: "*sound.MixerEngine"},
		{name: "auto degrades to null", kind: "auto", devErr: audio.ErrOutputUnavailable, wantType: "*sound.NullEngine"},
		{name: "auto under WSL", kind: "auto", isWSL: true, commands: []string{"ffplay"}, wantType: "*sound.CommandEngine"},
		{name: "auto under WSL without commands", kind: "auto", isWSL: true, device: newRecordingDevice(), wantType: "*sound.MixerEngine"},
		{name: "system command", kind: "system_command", commands: []string{"afplay"}, wantType: "*sound.CommandEngine"},
		{name: "system command missing", kind: "system_command", wantErr: ErrNotAvailable},
		{name: "unknown", kind: "sdl", wantErr: ErrUnknownEngine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := NewFactoryWithDependencies(
				func() bool { return tt.isWSL },
				commandSet(tt.commands...),
				deviceFrom(tt.device, tt.devErr),
			)

			engine, err := factory.CreateEngine(tt.kind, Dependencies{Resolver: testSounds})
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Nil(t, engine)
				return
			}
			require.NoError(t, err)
			defer engine.Close()
			assert.Equal(t, tt.wantType, typeName(engine))
		})
	}
}

func TestFactoryCommandEngineUsesPreferredCommand(t *testing.T) {
	factory := NewFactoryWithDependencies(
		func() bool { return false },
		commandSet("aplay", "ffplay"),
		deviceFrom(nil, audio.ErrOutputUnavailable),
	)

	engine, err := factory.CreateEngine(EngineSystemCommand, Dependencies{Resolver: testSounds})
	require.NoError(t, err)
	defer engine.Close()

	cmd, ok := engine.(*CommandEngine)
	require.True(t, ok)
	assert.Equal(t, "ffplay", cmd.Command())
}

func TestFactoryRequiresResolver(t *testing.T) {
	factory := NewFactoryWithDependencies(
		func() bool { return false },
		commandSet("paplay"),
		deviceFrom(newRecordingDevice(), nil),
	)

	for _, kind := range []string{EngineMixer, EngineSystemCommand} {
		_, err := factory.CreateEngine(kind, Dependencies{})
		assert.ErrorIs(t, err, ErrNotAvailable, kind)
	}

	// The null engine has nothing to resolve
	engine, err := factory.CreateEngine(EngineNull, Dependencies{})
	require.NoError(t, err)
	assert.NoError(t, engine.Close())
}

func TestFactoryDefaultsFlags(t *testing.T) {
	device := newRecordingDevice()
	factory := NewFactoryWithDependencies(
		func() bool { return false },
		commandSet(),
		deviceFrom(device, nil),
	)

	engine, err := factory.CreateEngine(EngineMixer, Dependencies{Resolver: testSounds})
	require.NoError(t, err)
	defer engine.Close()

	engine.PlaySound("click", 1, 0)
	engine.PlayMusic("/music/a.ogg", 1, false)
	assert.Len(t, device.plays, 1)
	assert.Len(t, device.musicPlays, 1)
}

func TestNullEngine(t *testing.T) {
	var events []PlayEvent
	engine := NewNullEngine(WithEventHook(func(ev PlayEvent) { events = append(events, ev) }))

	assert.Equal(t, 1.0, engine.SoundVolume())
	assert.Equal(t, 1.0, engine.MusicVolume())
	assert.Equal(t, 1.0, engine.MasterVolume())

	engine.SetSoundVolume(0.4)
	engine.SetMusicVolume(9)
	engine.SetMasterVolume(-1)
	assert.Equal(t, 0.4, engine.SoundVolume())
	assert.Equal(t, 1.0, engine.MusicVolume())
	assert.Equal(t, 0.0, engine.MasterVolume())

	engine.PlaySound("explosion", 1, 0)
	engine.PlayMusic("/music/a.ogg", 1, true)
	assert.False(t, engine.MusicPlaying())
	engine.StopMusic()
	engine.Update(time.Millisecond)
	assert.NoError(t, engine.Close())
	assert.NoError(t, engine.Close())

	require.Len(t, events, 2)
	assert.Equal(t, KindSound, events[0].Kind)
	assert.Equal(t, OutcomeSkipped, events[0].Outcome)
	assert.Equal(t, KindMusic, events[1].Kind)
}

func typeName(v any) string {
	switch v.(type) {
	case *MixerEngine:
		return "*sound.MixerEngine"
	case *NullEngine:
		return "*sound.NullEngine"
	case *CommandEngine:
		return "*sound.CommandEngine"
	default:
		return "unknown"
	}
}
