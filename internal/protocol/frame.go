package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// Errors returned by ParseResponse.
var (
	ErrNotResponse     = errors.New("not a response frame")
	ErrNoCorrelationID = errors.New("response frame has no correlation id")
	ErrInvalidBody     = errors.New("response body is not valid json")
)

// ResponseFrame is a parsed inbound response.
type ResponseFrame struct {
	CorrelationID string          // Text between the marker and the first '[', trimmed
	Body          json.RawMessage // Everything from the first '[' on
}

// ParseSeq returns a correlation id as a sequence id, if it is numeric.
func ParseSeq(correlationID string) (int64, bool) {
	seq, err := strconv.ParseInt(correlationID, 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}

// IsResponse reports whether raw carries the response marker.
func IsResponse(raw []byte) bool {
	return bytes.HasPrefix(raw, []byte(ResponseMarker))
}

// ParseResponse splits a response frame into correlation id and body.
// The body is copied so the caller may reuse raw.
func ParseResponse(raw []byte) (ResponseFrame, error) {
	if !IsResponse(raw) {
		return ResponseFrame{}, ErrNotResponse
	}

	start := bytes.IndexByte(raw, '[')
	if start < 0 {
		return ResponseFrame{}, ErrNoBody
	}

	id := strings.TrimSpace(string(raw[len(ResponseMarker):start]))
	if id == "" {
		return ResponseFrame{}, ErrNoCorrelationID
	}

	body := raw[start:]
	if !json.Valid(body) {
		return ResponseFrame{}, ErrInvalidBody
	}

	return ResponseFrame{
		CorrelationID: id,
		Body:          append(json.RawMessage(nil), body...),
	}, nil
}
