package camera_api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"thirdcoast.systems/camerakit/cmd/camerad/handlers/common"
	"thirdcoast.systems/camerakit/internal/camera"
	"thirdcoast.systems/camerakit/pkg/filters"
	"thirdcoast.systems/camerakit/pkg/processor"
)

type photoRequest struct {
	Filters []filters.Spec `json:"filters"`
}

// HandlePhoto captures a still and returns it as JPEG. An optional filter
// chain in the body is applied before encoding.
func HandlePhoto(ctl *camera.Controller, proc *processor.Processor, res filters.Resources) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req photoRequest
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid photo request")
		}

		var chain *filters.Chain
		if len(req.Filters) > 0 {
			var err error
			chain, err = filters.Compile(req.Filters, res)
			if err != nil {
				return common.ErrBadRequest(err.Error())
			}
		}

		img, err := ctl.TakePhoto(c.Request().Context())
		if err != nil {
			return common.CameraError(err)
		}
		if chain != nil {
			out, ok := proc.Apply(chain, img)
			if !ok {
				return echo.NewHTTPError(http.StatusUnprocessableEntity, "filters produced an empty image")
			}
			img = out
		}
		return common.WriteJPEG(c, img)
	}
}

// HandlePreview returns the current preview surface as JPEG.
func HandlePreview(ctl *camera.Controller) echo.HandlerFunc {
	return func(c echo.Context) error {
		surface := ctl.Surface()
		if surface == nil {
			return common.ErrNotFound("preview not available")
		}
		return common.WriteJPEG(c, surface.Snapshot())
	}
}
