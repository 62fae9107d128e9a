package camera_api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"thirdcoast.systems/camerakit/internal/resources"
	"thirdcoast.systems/camerakit/pkg/filters"
)

type filterCatalog struct {
	Kinds    []filters.KindInfo     `json:"kinds"`
	Looks    []filters.FilterOption `json:"looks"`
	Stickers []string               `json:"stickers"`
	LUTs     []string               `json:"luts"`
	Fonts    []string               `json:"fonts"`
}

// HandleFilters describes the available stages and on-disk resources.
func HandleFilters(res *resources.Loader) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, filterCatalog{
			Kinds:    filters.Catalog(),
			Looks:    filters.LookOptions(),
			Stickers: res.Stickers(),
			LUTs:     res.LUTs(),
			Fonts:    res.Fonts(),
		})
	}
}
