package camera_api

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/starfederation/datastar-go/datastar"

	"thirdcoast.systems/camerakit/cmd/camerad/handlers/common"
	"thirdcoast.systems/camerakit/internal/camera"
	"thirdcoast.systems/camerakit/pkg/capture"
	"thirdcoast.systems/camerakit/pkg/filters"
)

// HandleState returns the controller status.
func HandleState(ctl *camera.Controller) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, ctl.Status())
	}
}

// HandleSessionStart resumes the capture session.
func HandleSessionStart(ctl *camera.Controller) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := ctl.Start(c.Request().Context()); err != nil {
			return common.CameraError(err)
		}
		return c.JSON(http.StatusOK, ctl.Status())
	}
}

// HandleSessionStop stops the capture session, finalizing any recording.
func HandleSessionStop(ctl *camera.Controller) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := ctl.Stop(c.Request().Context()); err != nil {
			return common.CameraError(err)
		}
		return c.JSON(http.StatusOK, ctl.Status())
	}
}

// HandleSwitchCamera flips between the front and back camera.
func HandleSwitchCamera(ctl *camera.Controller) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := ctl.SwitchDevicePosition(c.Request().Context()); err != nil {
			return common.CameraError(err)
		}
		return c.JSON(http.StatusOK, ctl.Status())
	}
}

// HandleMode switches between photo and video.
func HandleMode(ctl *camera.Controller) echo.HandlerFunc {
	return func(c echo.Context) error {
		type Signals struct {
			Mode string `json:"mode"`
		}
		signals := &Signals{}
		if err := datastar.ReadSignals(c.Request(), signals); err != nil {
			return common.ErrBadRequest("invalid signals")
		}
		mode, err := camera.ParseMode(signals.Mode)
		if err != nil {
			return common.ErrBadRequest(err.Error())
		}
		if err := ctl.SwitchRecordingMode(c.Request().Context(), mode); err != nil {
			return common.CameraError(err)
		}
		return c.JSON(http.StatusOK, ctl.Status())
	}
}

// HandleNextFlash cycles the flash mode.
func HandleNextFlash(ctl *camera.Controller) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := ctl.SelectNextFlashMode(c.Request().Context()); err != nil {
			return common.CameraError(err)
		}
		return c.JSON(http.StatusOK, ctl.Status())
	}
}

// HandleNextTorch cycles the torch mode.
func HandleNextTorch(ctl *camera.Controller) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := ctl.SelectNextTorchMode(c.Request().Context()); err != nil {
			return common.CameraError(err)
		}
		return c.JSON(http.StatusOK, ctl.Status())
	}
}

// HandleFocus sets the focus point, or the exposure point when exposure is
// set.
func HandleFocus(ctl *camera.Controller, exposure bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		var p capture.Point
		if err := datastar.ReadSignals(c.Request(), &p); err != nil {
			return common.ErrBadRequest("invalid point")
		}

		var err error
		if exposure {
			err = ctl.SetExposurePoint(c.Request().Context(), p)
		} else {
			err = ctl.SetFocusPoint(c.Request().Context(), p)
		}
		if err != nil {
			return common.CameraError(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// HandleSquareMode toggles the square photo crop.
func HandleSquareMode(ctl *camera.Controller) echo.HandlerFunc {
	return func(c echo.Context) error {
		type Signals struct {
			Enabled bool `json:"enabled"`
		}
		signals := &Signals{}
		if err := datastar.ReadSignals(c.Request(), signals); err != nil {
			return common.ErrBadRequest("invalid signals")
		}
		if err := ctl.SetSquareMode(c.Request().Context(), signals.Enabled); err != nil {
			return common.CameraError(err)
		}
		return c.JSON(http.StatusOK, ctl.Status())
	}
}

// HandleEffect sets the live effect from a single stage spec. A spec
// without a type clears the effect.
func HandleEffect(ctl *camera.Controller, res filters.Resources) echo.HandlerFunc {
	return func(c echo.Context) error {
		var spec filters.Spec
		if err := c.Bind(&spec); err != nil {
			return common.ErrBadRequest("invalid filter spec")
		}

		var stage filters.Stage
		if spec.Type != "" {
			var err error
			stage, err = filters.CompileStage(spec, res)
			if err != nil {
				return common.ErrBadRequest(err.Error())
			}
		}
		if err := ctl.SetLiveEffect(c.Request().Context(), stage); err != nil {
			return common.CameraError(err)
		}
		slog.Info("live effect changed", "type", spec.Type)
		return c.JSON(http.StatusOK, ctl.Status())
	}
}
