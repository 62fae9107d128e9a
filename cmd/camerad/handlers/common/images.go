package common

import (
	"bytes"
	"image"
	"net/http"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/labstack/echo/v4"
)

const (
	DefaultJPEGQuality = 85

	// Uploads bigger than this are rejected before decoding.
	maxUploadBytes = 32 << 20
)

// JPEGQuality reads ?quality=, falling back to DefaultJPEGQuality.
func JPEGQuality(c echo.Context) int {
	q, err := strconv.Atoi(c.QueryParam("quality"))
	if err != nil || q < 1 || q > 100 {
		return DefaultJPEGQuality
	}
	return q
}

// WriteJPEG encodes img as the response body.
func WriteJPEG(c echo.Context, img image.Image) error {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality(c))); err != nil {
		return ErrInternal("encode jpeg: " + err.Error())
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, "image/jpeg", buf.Bytes())
}

// ReadImageUpload decodes the multipart file field named field.
func ReadImageUpload(c echo.Context, field string) (image.Image, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, ErrBadRequest("missing " + field + " upload")
	}
	if fh.Size > maxUploadBytes {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "image too large")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, ErrBadRequest("open upload: " + err.Error())
	}
	defer f.Close()

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return nil, ErrBadRequest("decode image: " + err.Error())
	}
	return img, nil
}
