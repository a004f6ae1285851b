// Package service implements the relay and file delivery logic.
package service

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"bot-api-relay/internal/client"
	"bot-api-relay/internal/config"
	"bot-api-relay/internal/model"
)

// RelayService rebuilds inbound requests against the fixed upstream origin.
type RelayService struct {
	client  *client.UpstreamClient
	logger  *slog.Logger
	baseURL *url.URL
}

// NewRelayService creates a RelayService.
func NewRelayService(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger) (*RelayService, error) {
	u, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base_url: %w", err)
	}
	return &RelayService{
		client:  c,
		logger:  logger.With("component", "relay_service"),
		baseURL: u,
	}, nil
}

// Upstream returns the configured upstream origin.
func (s *RelayService) Upstream() string {
	return s.baseURL.String()
}

// Forward sends a RelayRequest upstream and returns the response with its
// headers adjusted for the client. The request body is streamed, not buffered.
// The caller is responsible for closing the response body.
func (s *RelayService) Forward(rr *model.RelayRequest) (*model.RelayResponse, error) {
	body := rr.Body
	if rr.ContentLength == 0 {
		body = http.NoBody
	}

	req, err := http.NewRequestWithContext(rr.Ctx, rr.Method, s.buildUpstreamURL(rr.Path, rr.RawQuery), body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.ContentLength = rr.ContentLength
	req.Header = s.outboundHeaders(rr.Header, rr.PeerAddr)

	s.logger.Debug("forwarding request",
		"method", rr.Method,
		"content_length", rr.ContentLength,
	)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forward to upstream: %w", err)
	}

	resp.Header = s.inboundHeaders(resp.Header)
	return resp, nil
}

// buildUpstreamURL joins the upstream origin with the inbound escaped path and raw query.
func (s *RelayService) buildUpstreamURL(path, rawQuery string) string {
	u := url.URL{
		Scheme:   s.baseURL.Scheme,
		Host:     s.baseURL.Host,
		RawQuery: rawQuery,
	}
	if path == "" {
		path = "/"
	}
	if unescaped, err := url.PathUnescape(path); err == nil {
		u.Path = unescaped
		u.RawPath = path
	} else {
		u.Path = path
	}
	return u.String()
}

// outboundHeaders copies the client's headers minus Host and records the
// peer in X-Forwarded-For.
func (s *RelayService) outboundHeaders(src http.Header, peerAddr string) http.Header {
	dst := src.Clone()
	if dst == nil {
		dst = make(http.Header)
	}
	dst.Del("Host")

	if ip := peerIP(peerAddr); ip != "" {
		if prior := dst.Values("X-Forwarded-For"); len(prior) > 0 {
			dst.Set("X-Forwarded-For", joinForwarded(prior, ip))
		} else {
			dst.Set("X-Forwarded-For", ip)
		}
	}
	return dst
}

// inboundHeaders drops Connection from the upstream response headers.
func (s *RelayService) inboundHeaders(src http.Header) http.Header {
	dst := src.Clone()
	if dst == nil {
		dst = make(http.Header)
	}
	dst.Del("Connection")
	return dst
}

// peerIP extracts the host part of a host:port remote address.
func peerIP(addr string) string {
	if addr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func joinForwarded(prior []string, ip string) string {
	return strings.Join(prior, ", ") + ", " + ip
}
