//go:build cgo

package audio

import (
	"log/slog"

	"github.com/gen2brain/malgo"
)

// malgoContext owns a miniaudio context for the lifetime of one output
type malgoContext struct {
	ctx *malgo.AllocatedContext
}

func newMalgoContext() (*malgoContext, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		slog.Debug("malgo internal", "message", message)
	})
	if err != nil {
		slog.Error("failed to initialize miniaudio context", "error", err)
		return nil, err
	}

	slog.Debug("miniaudio context initialized")
	return &malgoContext{ctx: ctx}, nil
}

// Close uninitializes and frees the context; repeated calls are no-ops
func (c *malgoContext) Close() error {
	if c.ctx == nil {
		return nil
	}

	// malgo requires both Uninit() and Free()
	if err := c.ctx.Uninit(); err != nil {
		slog.Error("failed to uninitialize miniaudio context", "error", err)
		return err
	}
	c.ctx.Free()
	c.ctx = nil

	slog.Debug("miniaudio context closed")
	return nil
}
