package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Dispatcher routes decoded commands to the platform volume accessor.
type Dispatcher struct {
	volume VolumeAccessor
	logger *slog.Logger
}

func NewDispatcher(volume VolumeAccessor, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{volume: volume, logger: logger}
}

// Handle turns one payload into one response. Every failure, including a
// panic in the accessor, becomes an error response for this request only.
func (d *Dispatcher) Handle(ctx context.Context, payload []byte) (resp Response) {
	start := time.Now()
	action := "null"

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("request panicked", "action", action, "panic", r)
			resp = errorResponse(fmt.Sprint(r))
		}
		if resp.OK {
			d.logger.Debug("request handled",
				"action", action,
				"volume", *resp.Volume,
				"duration", time.Since(start))
		} else {
			d.logger.Warn("request failed",
				"action", action,
				"error", resp.Error,
				"duration", time.Since(start))
		}
	}()

	cmd, err := decodeCommand(payload)
	if err != nil {
		return errorResponse(err.Error())
	}
	action = cmd.actionName()

	switch action {
	case actionGetVolume:
		return d.result(d.volume.GetVolume(ctx))

	case actionSetVolume:
		value, ok := jsonInt(cmd.Value)
		if !ok {
			return errorResponse("value must be an integer")
		}
		return d.result(d.volume.SetVolume(ctx, clampPercent(value)))

	case actionChangeVolume:
		delta, ok := jsonInt(cmd.Delta)
		if !ok {
			return errorResponse("delta must be an integer")
		}
		current, err := d.volume.GetVolume(ctx)
		if err != nil {
			return errorResponse(err.Error())
		}
		return d.result(d.volume.SetVolume(ctx, clampPercent(addSaturating(current, delta))))

	default:
		return errorResponse("Unknown action: " + action)
	}
}

func (d *Dispatcher) result(volume int, err error) Response {
	if err != nil {
		return errorResponse(err.Error())
	}
	return okResponse(clampPercent(volume))
}

// addSaturating adds a delta that may be near the int bounds to a current
// volume in [0,100] without wrapping.
func addSaturating(current, delta int) int {
	sum := current + delta
	if delta > 0 && sum < current {
		return maxVolume
	}
	if delta < 0 && sum > current {
		return minVolume
	}
	return sum
}
