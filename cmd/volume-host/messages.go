package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
)

// Command is a request decoded from the browser.
//
// Numeric fields are kept raw so the dispatcher can tell an integer literal
// apart from strings, floats and booleans that encoding/json would otherwise
// coerce or reject with a less useful message.
type Command struct {
	Action json.RawMessage
	Value  json.RawMessage
	Delta  json.RawMessage
}

// Response is the single reply written for every command.
type Response struct {
	OK     bool   `json:"ok"`
	Volume *int   `json:"volume,omitempty"`
	Error  string `json:"error,omitempty"`
}

func okResponse(volume int) Response {
	return Response{OK: true, Volume: &volume}
}

func errorResponse(msg string) Response {
	return Response{OK: false, Error: msg}
}

var errNotObject = errors.New("message must be a JSON object")

// decodeCommand parses a payload that has already passed framing validation.
// Keys match exactly: struct tags would also accept "ACTION" or "Value".
func decodeCommand(payload []byte) (Command, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Command{}, errNotObject
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return Command{}, err
	}
	return Command{
		Action: fields["action"],
		Value:  fields["value"],
		Delta:  fields["delta"],
	}, nil
}

// actionName returns the action as a string. Non-string actions are rendered
// as their JSON text; a missing action renders as "null".
func (c Command) actionName() string {
	raw := bytes.TrimSpace(c.Action)
	if len(raw) == 0 || string(raw) == "null" {
		return "null"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// jsonInt reports whether raw is a JSON integer literal and returns its
// value. Literals beyond the int64 range saturate; callers clamp anyway.
func jsonInt(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	for i, c := range raw {
		if c == '-' && i == 0 {
			continue
		}
		if c < '0' || c > '9' {
			return 0, false
		}
	}

	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if !errors.As(err, &numErr) || !errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, false
		}
		// ParseInt already saturated n to the nearest bound.
	}
	if n > math.MaxInt {
		n = math.MaxInt
	}
	if n < math.MinInt {
		n = math.MinInt
	}
	return int(n), true
}
