package common

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"thirdcoast.systems/camerakit/internal/camera"
	"thirdcoast.systems/camerakit/pkg/capture"
)

// ErrBadRequest returns a 400 Bad Request error.
func ErrBadRequest(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

// ErrNotFound returns a 404 Not Found error.
func ErrNotFound(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusNotFound, msg)
}

// ErrInternal returns a 500 Internal Server Error.
func ErrInternal(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusInternalServerError, msg)
}

// CameraError maps controller errors onto HTTP statuses.
func CameraError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, capture.ErrNotAuthorized):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, capture.ErrUnsupported):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, camera.ErrNotSetUp),
		errors.Is(err, camera.ErrNotRunning),
		errors.Is(err, camera.ErrBusy),
		errors.Is(err, camera.ErrRecording):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, camera.ErrNoDevice):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, camera.ErrClosed):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return ErrInternal(err.Error())
	}
}
