package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	errNoLinuxMixer   = errors.New("No supported Linux mixer found (tried pactl and amixer)")
	errLinuxSetFailed = errors.New("Failed to set Linux volume (tried pactl and amixer)")
)

// linuxMixer drives the default sink through pactl (PulseAudio/PipeWire),
// falling back to amixer (ALSA) when pactl fails.
type linuxMixer struct {
	run    commandRunner
	pactl  string
	amixer string
	logger *slog.Logger
}

func (m *linuxMixer) GetVolume(ctx context.Context) (int, error) {
	if out, ok := m.try(ctx, true, m.pactl, "get-sink-volume", pactlDefaultSink); ok {
		return parsePercent(out)
	}
	if out, ok := m.try(ctx, true, m.amixer, "get", amixerControl); ok {
		return parsePercent(out)
	}
	return 0, errNoLinuxMixer
}

func (m *linuxMixer) SetVolume(ctx context.Context, volume int) (int, error) {
	arg := fmt.Sprintf("%d%%", clampPercent(volume))

	if _, ok := m.try(ctx, false, m.pactl, "set-sink-volume", pactlDefaultSink, arg); ok {
		return m.GetVolume(ctx)
	}
	if _, ok := m.try(ctx, false, m.amixer, "set", amixerControl, arg); ok {
		return m.GetVolume(ctx)
	}
	return 0, errLinuxSetFailed
}

// try runs one tool in the chain. It reports false when the tool could not
// run, exited non-zero or, if needOutput is set, printed nothing.
func (m *linuxMixer) try(ctx context.Context, needOutput bool, name string, args ...string) (string, bool) {
	res, err := m.run.Run(ctx, name, args...)
	if err != nil {
		m.logger.Debug("mixer tool unavailable", "tool", name, "error", err)
		return "", false
	}
	if res.ExitCode != 0 {
		m.logger.Debug("mixer tool failed",
			"tool", name,
			"exit_code", res.ExitCode,
			"stderr", strings.TrimSpace(res.Stderr))
		return "", false
	}
	if needOutput && res.Stdout == "" {
		m.logger.Debug("mixer tool printed nothing", "tool", name)
		return "", false
	}
	return res.Stdout, true
}
