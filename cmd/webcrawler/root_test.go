package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/nao1215/webcrawler/internal/config"
	"github.com/nao1215/webcrawler/internal/dispatch"
)

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "webcrawler" {
			t.Errorf("expected use 'webcrawler', got %q", cmd.Use)
		}
	})

	t.Run("has version", func(t *testing.T) {
		t.Parallel()
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("has verbose flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.PersistentFlags().Lookup("verbose")
		if flag == nil {
			t.Fatal("expected verbose flag")
		}
		if flag.Shorthand != "v" {
			t.Errorf("expected shorthand 'v', got %q", flag.Shorthand)
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()
		want := map[string]bool{"fuzz": false, "crawl": false, "history": false, "init": false, "version": false}
		for _, sub := range cmd.Commands() {
			if _, ok := want[sub.Name()]; ok {
				want[sub.Name()] = true
			}
		}
		for name, found := range want {
			if !found {
				t.Errorf("expected %s subcommand", name)
			}
		}
	})

	t.Run("silences usage and errors", func(t *testing.T) {
		t.Parallel()
		if !cmd.SilenceUsage || !cmd.SilenceErrors {
			t.Error("expected SilenceUsage and SilenceErrors to be true")
		}
	})
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: exitOK},
		{name: "validation", err: config.ErrNoTarget, want: exitFailure},
		{name: "fatal transport", err: &dispatch.FatalError{Payload: "http://x/a", Attempts: 1, Err: errors.New("refused")}, want: exitFailure},
		{name: "interrupted", err: fmt.Errorf("fuzz: %w", dispatch.ErrInterrupted), want: exitInterrupted},
		{name: "cancelled", err: context.Canceled, want: exitInterrupted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, expected %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestExecute(t *testing.T) {
	t.Parallel()

	t.Run("validation error", func(t *testing.T) {
		t.Parallel()

		var stderr bytes.Buffer
		code := execute(NewRootCmd(), []string{"fuzz", "-w", "words.txt"}, &stderr)
		if code != exitFailure {
			t.Errorf("exit code = %d, expected %d", code, exitFailure)
		}
		if !strings.HasPrefix(stderr.String(), "webcrawler: error: ") {
			t.Errorf("unexpected stderr: %q", stderr.String())
		}
		if !strings.Contains(stderr.String(), "no target specified") {
			t.Errorf("expected missing target message, got %q", stderr.String())
		}
	})

	t.Run("malformed header token", func(t *testing.T) {
		t.Parallel()

		var stderr bytes.Buffer
		code := execute(NewRootCmd(), []string{"crawl", "-u", "http://example.com", "-H", "a=1&broken"}, &stderr)
		if code != exitFailure {
			t.Errorf("exit code = %d, expected %d", code, exitFailure)
		}
		if !strings.Contains(stderr.String(), `"broken"`) {
			t.Errorf("expected the malformed token in %q", stderr.String())
		}
	})

	t.Run("version", func(t *testing.T) {
		t.Parallel()

		var stderr bytes.Buffer
		if code := execute(NewRootCmd(), []string{"version"}, &stderr); code != exitOK {
			t.Errorf("exit code = %d, stderr %q", code, stderr.String())
		}
	})
}
