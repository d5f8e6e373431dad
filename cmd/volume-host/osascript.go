package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// macVolume reads and writes the output volume through AppleScript.
type macVolume struct {
	run       commandRunner
	osascript string
}

func (v *macVolume) GetVolume(ctx context.Context) (int, error) {
	out, err := v.script(ctx, osascriptGetVolume)
	if err != nil {
		return 0, err
	}
	// "missing value" is printed when the output device has no volume control.
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("unexpected osascript output: %q", out)
	}
	return clampPercent(n), nil
}

func (v *macVolume) SetVolume(ctx context.Context, volume int) (int, error) {
	if _, err := v.script(ctx, fmt.Sprintf(osascriptSetVolume, clampPercent(volume))); err != nil {
		return 0, err
	}
	return v.GetVolume(ctx)
}

// script runs one AppleScript statement and returns its trimmed stdout.
func (v *macVolume) script(ctx context.Context, source string) (string, error) {
	res, err := v.run.Run(ctx, v.osascript, "-e", source)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		if msg := strings.TrimSpace(res.Stderr); msg != "" {
			return "", errors.New(msg)
		}
		return "", errors.New("osascript failed")
	}
	return strings.TrimSpace(res.Stdout), nil
}
