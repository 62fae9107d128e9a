package recorder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
)

const (
	DefaultStillsFileName  = "exportvideo.mp4"
	DefaultStillsFrameRate = 13
)

// WriteStills encodes images as a video, one image per frame. Every image
// is fitted onto a black canvas the size of the first. An empty path
// writes DefaultStillsFileName in the recorder's directory. It returns the
// output path.
func (r *Recorder) WriteStills(ctx context.Context, images []image.Image, path string, fps int) (string, error) {
	if len(images) == 0 {
		return "", errors.New("recorder: no stills to write")
	}
	if fps <= 0 {
		fps = DefaultStillsFrameRate
	}
	if path == "" {
		path = filepath.Join(r.dir, DefaultStillsFileName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	first := images[0].Bounds()
	w, h := first.Dx(), first.Dy()
	if w == 0 || h == 0 {
		return "", errors.New("recorder: first still is empty")
	}

	writer, err := r.newWriter(ctx, WriterOptions{
		Path:      path,
		Width:     w,
		Height:    h,
		FrameRate: fps,
		Offline:   true,
	})
	if err != nil {
		return "", fmt.Errorf("create writer: %w", err)
	}

	frameDur := time.Second / time.Duration(fps)
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			writer.Abort()
			os.Remove(path)
			return "", err
		}

		fitted := imaging.PasteCenter(
			imaging.New(w, h, color.NRGBA{A: 255}),
			imaging.Fit(img, w, h, imaging.Lanczos),
		)
		fitInto(canvas, fitted)

		if err := writer.WriteVideo(canvas, time.Duration(i)*frameDur); err != nil {
			writer.Abort()
			os.Remove(path)
			return "", fmt.Errorf("write still %d: %w", i, err)
		}
	}

	if err := writer.Close(ctx); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("finalize stills video: %w", err)
	}
	slog.Info("stills exported", "path", path, "frames", len(images), "fps", fps)
	return path, nil
}
