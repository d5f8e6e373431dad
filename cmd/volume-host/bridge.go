package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"volumehost/internal/nativemsg"
)

// ============================================================================
// Bridge Loop - one request at a time, in arrival order
// ============================================================================
// Request errors (bad fields, unknown action, accessor failure) are answered
// and the loop continues. Framing errors leave the stream unusable: they are
// reported once with a final error response and end the loop.
// ============================================================================

// readResult is one message (or framing error) pulled off the input.
type readResult struct {
	payload []byte
	err     error
}

// runBridge serves framed commands from conn until input closes or ctx is
// done. It returns nil on a clean end of input.
//
// Reads happen on a separate goroutine so a blocked read on stdin does not
// hold off cancellation. The next read starts only after the previous
// response is written.
func runBridge(ctx context.Context, conn *nativemsg.Conn, d *Dispatcher, logger *slog.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	next := make(chan struct{})
	reads := make(chan readResult)
	defer close(next)
	go func() {
		for range next {
			payload, err := conn.Read()
			select {
			case reads <- readResult{payload: payload, err: err}:
			case <-ctx.Done():
				return
			}
		}
	}()

	served := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		select {
		case next <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}

		var rr readResult
		select {
		case rr = <-reads:
		case <-ctx.Done():
			logger.Debug("canceled while waiting for input", "requests", served)
			return ctx.Err()
		}

		payload, err := rr.payload, rr.err
		if errors.Is(err, io.EOF) {
			logger.Debug("input closed", "requests", served)
			return nil
		}
		if err != nil {
			logger.Error("framing error", "error", err, "requests", served)
			if werr := conn.Write(errorResponse(err.Error())); werr != nil {
				logger.Error("failed to report framing error", "error", werr)
			}
			return fmt.Errorf("read message: %w", err)
		}

		resp := d.Handle(ctx, payload)
		err = conn.Write(resp)
		if errors.Is(err, nativemsg.ErrMessageTooLarge) {
			// Oversized tool output quoted in an error message.
			logger.Warn("response too large, replacing", "error", err)
			err = conn.Write(errorResponse(nativemsg.ErrMessageTooLarge.Error()))
		}
		if err != nil {
			return fmt.Errorf("write response: %w", err)
		}
		served++
	}
}
