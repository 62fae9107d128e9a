package camera_api

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"thirdcoast.systems/camerakit/cmd/camerad/handlers/common"
	"thirdcoast.systems/camerakit/internal/camera"
	"thirdcoast.systems/camerakit/pkg/recorder"
)

// HandleRecordingStart begins a video recording.
func HandleRecordingStart(ctl *camera.Controller) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := ctl.StartVideoRecording(c.Request().Context()); err != nil {
			return common.CameraError(err)
		}
		return c.JSON(http.StatusAccepted, ctl.Status())
	}
}

// HandleRecordingStop finalizes the active recording. Completion is
// reported on the event stream.
func HandleRecordingStop(ctl *camera.Controller) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := ctl.StopVideoRecording(c.Request().Context()); err != nil {
			return common.CameraError(err)
		}
		return c.JSON(http.StatusAccepted, ctl.Status())
	}
}

// HandleRecordingDownload serves the last finished recording.
func HandleRecordingDownload(rec *recorder.Recorder) echo.HandlerFunc {
	return func(c echo.Context) error {
		if rec.Active() != nil {
			return echo.NewHTTPError(http.StatusConflict, "recording in progress")
		}
		path := rec.Path()
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return common.ErrNotFound("no recording")
			}
			return common.ErrInternal(err.Error())
		}
		return c.Attachment(path, filepath.Base(path))
	}
}
