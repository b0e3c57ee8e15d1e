package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"financas/internal/log"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", log.ComponentWorker)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record written at warn level")
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "component=worker") {
		t.Errorf("output = %q", out)
	}
}

func TestShutdownOn(t *testing.T) {
	logger := log.New(log.Config{Output: io.Discard})
	sig := make(chan os.Signal, 1)
	cleaned := make(chan struct{})

	ctx, done := shutdownOn(logger, sig, time.Second, func(ctx context.Context) {
		if ctx.Err() != nil {
			t.Error("cleanup context already done")
		}
		close(cleaned)
	})

	select {
	case <-ctx.Done():
		t.Fatal("context cancelled before any signal")
	default:
	}

	sig <- syscall.SIGTERM
	WaitForShutdown(ctx, done)

	select {
	case <-cleaned:
	default:
		t.Error("cleanup did not run")
	}
}

func TestShutdownOn_Timeout(t *testing.T) {
	logger := log.New(log.Config{Output: io.Discard})
	sig := make(chan os.Signal, 1)
	block := make(chan struct{})
	defer close(block)

	ctx, done := shutdownOn(logger, sig, 20*time.Millisecond, func(context.Context) { <-block })
	sig <- syscall.SIGINT

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shutdown did not give up after the timeout")
	}
	if ctx.Err() == nil {
		t.Error("context not cancelled")
	}
}
