package handler

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"bot-api-relay/internal/metrics"
	"bot-api-relay/internal/model"
	"bot-api-relay/internal/redact"
	"bot-api-relay/internal/service"
	"bot-api-relay/internal/stream"
)

// RelayHandler forwards every request not served locally to the upstream.
type RelayHandler struct {
	service *service.RelayService
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewRelayHandler creates a RelayHandler. The metrics parameter is optional.
func NewRelayHandler(svc *service.RelayService, logger *slog.Logger, m *metrics.Metrics) *RelayHandler {
	return &RelayHandler{
		service: svc,
		logger:  logger.With("component", "relay_handler"),
		metrics: m,
	}
}

// Handle relays the request upstream and streams the response back.
func (h *RelayHandler) Handle(c echo.Context) error {
	req := c.Request()
	rr := &model.RelayRequest{
		Ctx:           req.Context(),
		Method:        req.Method,
		Path:          req.URL.EscapedPath(),
		RawQuery:      req.URL.RawQuery,
		Header:        req.Header,
		Body:          req.Body,
		ContentLength: req.ContentLength,
		PeerAddr:      req.RemoteAddr,
	}

	resp, err := h.service.Forward(rr)
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	for key, vals := range resp.Header {
		for _, v := range vals {
			c.Response().Header().Add(key, v)
		}
	}
	c.Response().WriteHeader(resp.StatusCode)

	// Headers are committed; a failure from here on can only truncate the
	// body. Client disconnects cancel the request context, which aborts the
	// upstream read as well.
	n, err := stream.Copy(c.Response(), resp.Body, stream.DefaultChunkSize, nil)
	if h.metrics != nil {
		h.metrics.BytesStreamed.WithLabelValues("relay").Add(float64(n))
	}
	if err != nil {
		h.logger.Warn("streaming response body",
			"err", redact.Error(err),
			"path", redact.Path(req.URL.Path),
			"bytes", n,
		)
		// Returning normally would let net/http terminate a chunked body
		// cleanly; aborting drops the connection so the client sees the
		// truncation.
		panic(http.ErrAbortHandler)
	}
	return nil
}

// mapError answers a failed upstream exchange. Every variant is a 500; the
// message only tells the client which stage failed.
func (h *RelayHandler) mapError(c echo.Context, err error) error {
	h.logger.Error("relay error",
		"err", redact.Error(err),
		"path", redact.Path(c.Request().URL.Path),
	)

	msg := "upstream request failed"
	var dnsErr *net.DNSError
	var urlErr *url.Error
	switch {
	case errors.Is(err, context.Canceled):
		msg = "client disconnected"
	case errors.As(err, &dnsErr):
		msg = "upstream host unreachable"
	case errors.As(err, &urlErr):
		msg = "upstream connection failed"
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error": msg,
	})
}
