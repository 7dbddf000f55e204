package config

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/rickgao/collection-replay/internal/protocol"
)

// SocketURL returns the gateway URL with Params merged into its query.
// Params override query values already present in URL.
func (g GatewayConfig) SocketURL() (string, error) {
	u, err := url.Parse(g.URL)
	if err != nil {
		return "", fmt.Errorf("parse gateway url: %w", err)
	}

	q := u.Query()
	for k, v := range g.Params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// HandshakeHeader returns the headers sent with the websocket upgrade request.
func (g GatewayConfig) HandshakeHeader() http.Header {
	h := make(http.Header, len(g.Headers))
	for k, v := range g.Headers {
		h.Set(k, v)
	}
	return h
}

// EncoderConfig returns the request envelope settings.
func (g GatewayConfig) EncoderConfig() protocol.EncoderConfig {
	return protocol.EncoderConfig{
		URLTemplate: g.URLTemplate,
		Headers:     protocol.DefaultHeaders(g.UserAgent, g.TeamID, g.AppVersion),
	}
}
