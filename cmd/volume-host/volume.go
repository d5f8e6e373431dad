package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
)

// VolumeAccessor gets and sets the system output volume as a percentage.
// SetVolume returns the volume read back after the change, not the request.
type VolumeAccessor interface {
	GetVolume(ctx context.Context) (int, error)
	SetVolume(ctx context.Context, volume int) (int, error)
}

// newVolumeAccessor selects the accessor for an OS identification string
// (runtime.GOOS). It is called once at startup.
func newVolumeAccessor(goos string, cfg *Config, run commandRunner, logger *slog.Logger) (VolumeAccessor, error) {
	switch goos {
	case "linux":
		return &linuxMixer{
			run:    run,
			pactl:  cfg.Tools.Pactl,
			amixer: cfg.Tools.Amixer,
			logger: logger,
		}, nil
	case "darwin":
		return &macVolume{
			run:       run,
			osascript: cfg.Tools.Osascript,
		}, nil
	case "windows":
		return newEndpointVolume(logger)
	default:
		return nil, fmt.Errorf("Unsupported OS: %s", goos)
	}
}

// unavailableVolume answers every request with the error that prevented an
// accessor from being selected, so the host keeps replying instead of exiting.
type unavailableVolume struct {
	err error
}

func (v unavailableVolume) GetVolume(context.Context) (int, error)      { return 0, v.err }
func (v unavailableVolume) SetVolume(context.Context, int) (int, error) { return 0, v.err }

// clampPercent forces v into [0,100].
func clampPercent(v int) int {
	if v < minVolume {
		return minVolume
	}
	if v > maxVolume {
		return maxVolume
	}
	return v
}

var percentPattern = regexp.MustCompile(`(\d{1,3})%`)

// parsePercent extracts the first "NN%" in a mixer tool's output.
func parsePercent(text string) (int, error) {
	m := percentPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, fmt.Errorf("Could not parse volume percent from: %q", text)
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("Could not parse volume percent from: %q", text)
	}
	return clampPercent(v), nil
}

// scalarToPercent converts a Core Audio 0.0..1.0 level to a percentage.
func scalarToPercent(level float32) int {
	return clampPercent(int(math.Round(float64(level) * 100)))
}

func percentToScalar(volume int) float32 {
	return float32(clampPercent(volume)) / 100
}
