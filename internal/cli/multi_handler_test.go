package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestMultiLevelHandler_DifferentLevels(t *testing.T) {
	var stderrBuf, fileBuf bytes.Buffer

	stderrHandler := slog.NewTextHandler(&stderrBuf, &slog.HandlerOptions{Level: slog.LevelWarn})
	fileHandler := slog.NewTextHandler(&fileBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := slog.New(NewMultiLevelHandler(stderrHandler, fileHandler))

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	stderrOutput := stderrBuf.String()
	for _, want := range []string{"warn message", "error message"} {
		if !strings.Contains(stderrOutput, want) {
			t.Errorf("stderr should contain %q, got: %s", want, stderrOutput)
		}
	}
	for _, unwanted := range []string{"debug message", "info message"} {
		if strings.Contains(stderrOutput, unwanted) {
			t.Errorf("stderr should not contain %q, got: %s", unwanted, stderrOutput)
		}
	}

	fileOutput := fileBuf.String()
	for _, want := range []string{"debug message", "info message", "warn message", "error message"} {
		if !strings.Contains(fileOutput, want) {
			t.Errorf("file should contain %q, got: %s", want, fileOutput)
		}
	}
}

func TestMultiLevelHandler_Enabled(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	handler := NewMultiLevelHandler(
		slog.NewTextHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelError}),
		slog.NewTextHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelInfo}),
	)

	ctx := context.Background()
	if handler.Enabled(ctx, slog.LevelDebug) {
		t.Error("no wrapped handler accepts DEBUG")
	}
	if !handler.Enabled(ctx, slog.LevelInfo) {
		t.Error("second handler accepts INFO")
	}

	if NewMultiLevelHandler().Enabled(ctx, slog.LevelError) {
		t.Error("multi-handler with no handlers should not be enabled")
	}
}

func TestMultiLevelHandler_WithAttrsAndGroup(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	handler := NewMultiLevelHandler(
		slog.NewTextHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelError}),
		slog.NewTextHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)

	logger := slog.New(handler.WithAttrs([]slog.Attr{slog.String("engine", "mixer")}).WithGroup("play"))
	logger.Error("test message", "name", "explosion")

	for i, buf := range []*bytes.Buffer{&buf1, &buf2} {
		out := buf.String()
		if !strings.Contains(out, "engine=mixer") || !strings.Contains(out, "play.name=explosion") {
			t.Errorf("handler %d output missing attrs or group: %s", i+1, out)
		}
	}
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestMultiLevelHandler_FailingHandlerDoesNotStopOthers(t *testing.T) {
	var buf bytes.Buffer
	good := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	bad := failingHandler{slog.NewTextHandler(&bytes.Buffer{}, nil)}

	handler := NewMultiLevelHandler(bad, good)
	record := slog.NewRecord(testTime, slog.LevelError, "still delivered", 0)

	err := handler.Handle(context.Background(), record)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Expected handler error to be reported, got %v", err)
	}
	if !strings.Contains(buf.String(), "still delivered") {
		t.Errorf("Expected second handler to receive record, got: %s", buf.String())
	}
}
