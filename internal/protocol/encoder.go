package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Frame codes.
const (
	RequestCode    = "42" // Prefix of outbound request frames
	ResponseMarker = "43" // Prefix of inbound response frames
)

// Defaults for the request envelope, taken from the web client the gateway expects.
const (
	DefaultURLTemplate = "/request/?collection=%s"
	DefaultAppVersion  = "10.24.1-240310-1628"
	DefaultTeamID      = "0"
	DefaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/122.0.0.0 Safari/537.36 PostmanClient/" + DefaultAppVersion + " (AppId=web)"
)

// Errors
var (
	ErrNotRequest = errors.New("not a request frame")
	ErrNoBody     = errors.New("frame has no json body")
)

// Request is the second element of the outbound envelope.
type Request struct {
	Method  string            `json:"method"`
	Data    map[string]any    `json:"data"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
}

// OutboundMessage is an encoded request frame.
type OutboundMessage struct {
	Prefix  string // RequestCode followed by the sequence id
	Payload []byte // JSON envelope
}

// Text returns the exact wire text.
func (m OutboundMessage) Text() string {
	return m.Prefix + string(m.Payload)
}

// EncoderConfig configures the request envelope.
type EncoderConfig struct {
	URLTemplate string            // fmt template with a single %s for the resource id
	Headers     map[string]string // Sent verbatim in every request
}

// DefaultEncoderConfig returns the header set of the original web client.
func DefaultEncoderConfig() EncoderConfig {
	return EncoderConfig{
		URLTemplate: DefaultURLTemplate,
		Headers:     DefaultHeaders(DefaultUserAgent, DefaultTeamID, DefaultAppVersion),
	}
}

// DefaultHeaders builds the fixed header set.
func DefaultHeaders(userAgent, teamID, appVersion string) map[string]string {
	return map[string]string{
		"user-agent":       userAgent,
		"x-entity-team-id": teamID,
		"x-app-version":    appVersion,
	}
}

// Encoder builds request frames. It is immutable and safe for concurrent use.
type Encoder struct {
	urlTemplate string
	headers     map[string]string
}

// NewEncoder creates an Encoder. Empty config fields fall back to defaults.
func NewEncoder(cfg EncoderConfig) *Encoder {
	def := DefaultEncoderConfig()
	if cfg.URLTemplate == "" {
		cfg.URLTemplate = def.URLTemplate
	}
	if cfg.Headers == nil {
		cfg.Headers = def.Headers
	}

	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	return &Encoder{
		urlTemplate: cfg.URLTemplate,
		headers:     headers,
	}
}

// Encode builds the frame for one request.
func (e *Encoder) Encode(seq int64, resourceID string) OutboundMessage {
	req := Request{
		Method:  "get",
		Data:    map[string]any{},
		URL:     e.URL(resourceID),
		Headers: e.headers,
	}

	// Marshal of strings and string maps cannot fail.
	payload, _ := json.Marshal([]any{"get", req})

	return OutboundMessage{
		Prefix:  RequestCode + strconv.FormatInt(seq, 10),
		Payload: payload,
	}
}

// URL returns the request URL for a resource id.
func (e *Encoder) URL(resourceID string) string {
	return fmt.Sprintf(e.urlTemplate, resourceID)
}

// DecodeRequest parses a request frame produced by Encode.
func DecodeRequest(text string) (int64, Request, error) {
	if !strings.HasPrefix(text, RequestCode) {
		return 0, Request{}, ErrNotRequest
	}

	start := strings.IndexByte(text, '[')
	if start < 0 {
		return 0, Request{}, ErrNoBody
	}

	seq, err := strconv.ParseInt(text[len(RequestCode):start], 10, 64)
	if err != nil {
		return 0, Request{}, fmt.Errorf("parse sequence id: %w", err)
	}

	var envelope []json.RawMessage
	if err := json.Unmarshal([]byte(text[start:]), &envelope); err != nil {
		return 0, Request{}, fmt.Errorf("parse envelope: %w", err)
	}
	if len(envelope) != 2 {
		return 0, Request{}, fmt.Errorf("envelope has %d elements, want 2", len(envelope))
	}

	var req Request
	if err := json.Unmarshal(envelope[1], &req); err != nil {
		return 0, Request{}, fmt.Errorf("parse request: %w", err)
	}

	return seq, req, nil
}
