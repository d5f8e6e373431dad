// Package nativemsg implements the browser native messaging wire format:
// every message is a 4-byte little-endian length followed by that many
// bytes of UTF-8 JSON. The same framing is used in both directions.
package nativemsg

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

const (
	// MaxIncomingSize bounds the payload the host is willing to allocate for
	// a single browser-to-host message.
	MaxIncomingSize = 64 << 20

	// MaxOutgoingSize is the browser's limit for a host-to-browser message.
	MaxOutgoingSize = 1 << 20

	headerSize = 4
)

// Framing errors. Any of these leaves the stream in an unknown position, so
// callers must stop reading after one is returned.
var (
	ErrInvalidHeader   = errors.New("Invalid message length header")
	ErrInvalidPayload  = errors.New("Invalid message payload")
	ErrInvalidJSON     = errors.New("message payload is not valid JSON")
	ErrMessageTooLarge = errors.New("message too large")
)

// ReadMessage reads one framed message from r.
//
// It returns io.EOF, and no payload, only when r is exhausted before the
// first header byte. A partial header, a short payload or a payload that is
// not valid UTF-8 JSON is reported as a framing error.
func ReadMessage(r io.Reader) (json.RawMessage, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrInvalidHeader
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	n := binary.LittleEndian.Uint32(hdr[:])
	if n > MaxIncomingSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrMessageTooLarge, n, MaxIncomingSize)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrInvalidPayload
		}
		return nil, fmt.Errorf("read payload: %w", err)
	}

	if !utf8.Valid(payload) || !json.Valid(payload) {
		return nil, ErrInvalidJSON
	}
	return payload, nil
}

// WriteMessage encodes v as JSON and writes it to w with its length prefix.
// If w is a *bufio.Writer it is flushed so the peer sees the whole message.
func WriteMessage(w io.Writer, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if len(body) > MaxOutgoingSize {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrMessageTooLarge, len(body), MaxOutgoingSize)
	}

	var hdr [headerSize]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(body)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}

	if bw, ok := w.(*bufio.Writer); ok {
		if err := bw.Flush(); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
	}
	return nil
}

// Conn pairs a reader and a writer carrying framed messages, such as a
// process's stdin and stdout or the pipes of a child host process.
type Conn struct {
	r *bufio.Reader
	w *bufio.Writer
}

// NewConn wraps r and w with buffering.
func NewConn(r io.Reader, w io.Writer) *Conn {
	return &Conn{
		r: bufio.NewReader(r),
		w: bufio.NewWriter(w),
	}
}

// Read returns the next message payload, or io.EOF at a clean end of input.
func (c *Conn) Read() (json.RawMessage, error) {
	return ReadMessage(c.r)
}

// Write sends v as one framed message and flushes it.
func (c *Conn) Write(v any) error {
	return WriteMessage(c.w, v)
}
