package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bot-api-relay/internal/config"
	"bot-api-relay/internal/metrics"
)

// filePattern matches /file/bot<token>/<path...>.
const filePattern = "/file/bot:token/*"

// routedMethods is the method set echo's Any registers. Requests using any
// other method never reach a route handler.
var routedMethods = map[string]bool{
	"CONNECT": true, "DELETE": true, "GET": true, "HEAD": true,
	"OPTIONS": true, "PATCH": true, "POST": true, "PROPFIND": true,
	"PUT": true, "TRACE": true, "REPORT": true,
}

// RegisterRoutes wires all route handlers onto the Echo instance. Only GET
// downloads are served locally; any other method on a file path, and every
// path not claimed here, is relayed upstream.
func RegisterRoutes(e *echo.Echo, relay *RelayHandler, files *FileHandler, health *HealthHandler, cfg *config.Config, m *metrics.Metrics) {
	e.Use(relayUnroutedMethods(relay))

	e.GET("/healthz", health.Healthz)
	e.GET("/relay/status", health.Status)

	if cfg.Metrics.Enabled && m != nil {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	e.Any(filePattern, relay.Handle)
	e.GET(filePattern, serveFile(relay, files))

	e.Any("/*", relay.Handle)
}

// serveFile hands downloads with both a token and a file path to the file
// handler. Anything shorter, such as /file/bot123/, is relayed.
func serveFile(relay *RelayHandler, files *FileHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Param("token") == "" || c.Param("*") == "" {
			return relay.Handle(c)
		}
		return files.Serve(c)
	}
}

// relayUnroutedMethods relays requests whose method echo cannot route, which
// would otherwise be answered 405. It runs after routing, so the request id,
// logging and metrics middleware still see these requests.
func relayUnroutedMethods(relay *RelayHandler) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !routedMethods[c.Request().Method] {
				return relay.Handle(c)
			}
			return next(c)
		}
	}
}
