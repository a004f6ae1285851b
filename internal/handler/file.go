package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	"bot-api-relay/internal/redact"
	"bot-api-relay/internal/service"
)

// FileHandler serves files written by the Bot API server and hands them to
// the reaper once a client has received them completely.
type FileHandler struct {
	service *service.FileService
	logger  *slog.Logger
}

// NewFileHandler creates a FileHandler.
func NewFileHandler(svc *service.FileService, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		service: svc,
		logger:  logger.With("component", "file_handler"),
	}
}

// Serve handles GET /file/bot:token/*.
func (h *FileHandler) Serve(c echo.Context) error {
	token, err := pathParam(c, "token")
	if err != nil {
		return h.mapError(c, service.ErrInvalidPath)
	}
	filePath, err := pathParam(c, "*")
	if err != nil {
		return h.mapError(c, service.ErrInvalidPath)
	}

	fh, err := h.service.Open(token, filePath)
	if err != nil {
		return h.mapError(c, err)
	}
	// Deletion is decided here, after streaming stops for whatever reason.
	defer fh.Close()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, fh.ContentType())
	res.Header().Set(echo.HeaderContentLength, strconv.FormatInt(fh.Size(), 10))
	res.WriteHeader(http.StatusOK)

	if n, err := fh.WriteTo(res); err != nil {
		h.logger.Info("file stream interrupted",
			"path", redact.Path(c.Request().URL.Path),
			"bytes", n,
			"size", fh.Size(),
			"err", err,
		)
	}
	return nil
}

// pathParam returns a decoded route parameter. Echo routes on the raw path
// only when the request carried escapes that Path cannot represent, and then
// hands back raw parameter values.
func pathParam(c echo.Context, name string) (string, error) {
	v := c.Param(name)
	if c.Request().URL.RawPath == "" {
		return v, nil
	}
	return url.PathUnescape(v)
}

func (h *FileHandler) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidPath):
		h.logger.Warn("rejected file path", "path", redact.Path(c.Request().URL.Path))
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid path",
		})
	case errors.Is(err, service.ErrNotFound):
		h.logger.Debug("file not found", "path", redact.Path(c.Request().URL.Path))
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "file not found",
		})
	default:
		h.logger.Error("file error",
			"err", redact.Error(err),
			"path", redact.Path(c.Request().URL.Path),
		)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal error",
		})
	}
}
