package sound

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/afero"
	"mixdeck.dev/internal/audio"
)

// Engine names accepted by Factory.CreateEngine
const (
	EngineAuto          = "auto"
	EngineMixer         = "mixer"
	EngineNull          = "null"
	EngineSystemCommand = "system_command"
)

// Dependencies are the collaborators every engine is built with
type Dependencies struct {
	Resolver   PathResolver
	Flags      Flags
	Output     string   // audio output for the mixer engine
	Filesystem afero.Fs // where the mixer device reads files, OS when nil
	Options    []Option
}

// DeviceConstructor builds the device a mixer engine drives
type DeviceConstructor func(output string, fs afero.Fs) (audio.Device, error)

// Factory creates engines by name with platform detection
type Factory struct {
	isWSLFunc     func() bool
	commandExists func(string) bool
	newDevice     DeviceConstructor
}

// NewFactory creates a factory with real platform detection and devices
func NewFactory() *Factory {
	return &Factory{
		isWSLFunc:     IsWSL,
		commandExists: CommandExists,
		newDevice:     newMixerDevice,
	}
}

// NewFactoryWithDependencies creates a factory with injected dependencies for testing
func NewFactoryWithDependencies(isWSLFunc func() bool, commandExists func(string) bool, newDevice DeviceConstructor) *Factory {
	return &Factory{
		isWSLFunc:     isWSLFunc,
		commandExists: commandExists,
		newDevice:     newDevice,
	}
}

func newMixerDevice(output string, fs afero.Fs) (audio.Device, error) {
	out, err := audio.NewOutput(output)
	if err != nil {
		return nil, err
	}
	var opts []audio.MixerDeviceOption
	if fs != nil {
		opts = append(opts, audio.WithFilesystem(fs))
	}
	return audio.NewMixerDevice(out, opts...), nil
}

// SupportedEngines lists the names CreateEngine accepts
func (f *Factory) SupportedEngines() []string {
	return []string{EngineAuto, EngineMixer, EngineNull, EngineSystemCommand}
}

// IsValidEngineType checks if an engine name is supported. Empty means auto.
func (f *Factory) IsValidEngineType(kind string) bool {
	if kind == "" {
		return true
	}
	for _, supported := range f.SupportedEngines() {
		if kind == supported {
			return true
		}
	}
	return false
}

// AutoEngine returns the engine "auto" resolves to on this machine
func (f *Factory) AutoEngine() string {
	return autoEngine(f.isWSLFunc(), f.SystemCommand())
}

// SystemCommand returns the player the system_command engine would use,
// or "" when none is installed
func (f *Factory) SystemCommand() string {
	return preferredPlayer(f.commandExists)
}

// CreateEngine builds the named engine. Under "auto" a mixer that cannot
// open its device degrades to the null engine.
func (f *Factory) CreateEngine(kind string, deps Dependencies) (Engine, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		kind = EngineAuto
	}
	if deps.Flags == nil {
		deps.Flags = StaticFlags{Sound: true, Music: true}
	}

	slog.Debug("creating sound engine", "type", kind)

	switch kind {
	case EngineAuto:
		return f.createAutoEngine(deps)
	case EngineMixer:
		return f.createMixerEngine(deps)
	case EngineNull:
		return NewNullEngine(deps.Options...), nil
	case EngineSystemCommand:
		return f.createCommandEngine(deps)
	default:
		slog.Error("invalid engine type requested", "type", kind)
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, kind)
	}
}

func (f *Factory) createAutoEngine(deps Dependencies) (Engine, error) {
	optimal := f.AutoEngine()
	slog.Debug("auto-detection result", "selected_type", optimal)

	if optimal == EngineSystemCommand {
		return f.createCommandEngine(deps)
	}

	engine, err := f.createMixerEngine(deps)
	if err != nil {
		slog.Warn("mixer engine unavailable, sound disabled", "error", err)
		return NewNullEngine(deps.Options...), nil
	}
	return engine, nil
}

func (f *Factory) createMixerEngine(deps Dependencies) (Engine, error) {
	if deps.Resolver == nil {
		return nil, fmt.Errorf("%w: mixer engine needs a path resolver", ErrNotAvailable)
	}
	device, err := f.newDevice(deps.Output, deps.Filesystem)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceInit, err)
	}
	return NewMixerEngine(device, deps.Resolver, deps.Flags, deps.Options...)
}

func (f *Factory) createCommandEngine(deps Dependencies) (Engine, error) {
	if deps.Resolver == nil {
		return nil, fmt.Errorf("%w: system command engine needs a path resolver", ErrNotAvailable)
	}
	command := f.SystemCommand()
	if command == "" {
		slog.Error("no system audio commands available")
		return nil, fmt.Errorf("%w: no system audio commands found", ErrNotAvailable)
	}
	return NewCommandEngine(command, deps.Resolver, deps.Flags, deps.Options...), nil
}
