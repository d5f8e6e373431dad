package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sys/execabs"
)

// commandResult is the captured outcome of one external tool invocation.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner runs an external tool to completion.
//
// A non-zero exit is reported through ExitCode with a nil error. The error
// is non-nil only when the tool could not be started or was stopped by
// the context (including the configured timeout).
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner runs tools as child processes. Names are resolved through PATH
// by execabs, which refuses executables found relative to the working
// directory.
type execRunner struct {
	timeout time.Duration
	logger  *slog.Logger
}

func newExecRunner(timeout time.Duration, logger *slog.Logger) *execRunner {
	return &execRunner{timeout: timeout, logger: logger}
}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := execabs.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Children of a killed tool may hold the output pipes open.
	cmd.WaitDelay = toolWaitDelay

	start := time.Now()
	err := cmd.Run()
	res := commandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	var exitErr *execabs.ExitError
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return res, fmt.Errorf("%s: %w", name, ctx.Err())
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return res, fmt.Errorf("run %s: %w", name, err)
	}

	r.logger.Debug("tool finished",
		"tool", name,
		"args", args,
		"exit_code", res.ExitCode,
		"duration", time.Since(start))
	return res, nil
}
