// Package model defines shared types for the relay.
package model

import (
	"context"
	"io"
	"net/http"
)

// RelayRequest represents a client request to be forwarded upstream.
type RelayRequest struct {
	Ctx      context.Context
	Method   string
	Path     string // escaped path as received
	RawQuery string
	Header   http.Header
	Body     io.ReadCloser
	// ContentLength mirrors http.Request.ContentLength; -1 means unknown.
	ContentLength int64
	// PeerAddr is the client's host:port, empty when unknown.
	PeerAddr string
}

// RelayResponse represents the upstream response to be streamed back.
type RelayResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}
