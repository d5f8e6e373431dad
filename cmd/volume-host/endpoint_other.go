//go:build !windows

package main

import (
	"errors"
	"log/slog"
)

func newEndpointVolume(logger *slog.Logger) (VolumeAccessor, error) {
	return nil, errors.New("windows endpoint volume is only available in windows builds")
}
