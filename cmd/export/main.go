// Command export applies filter chains to images and turns series of
// stills into a video without running the camera service.
//
//	export image --chain look.json in.jpg out.jpg
//	export stills --fps 13 --out reel.mp4 a.jpg b.jpg c.jpg
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"thirdcoast.systems/camerakit/internal/resources"
	"thirdcoast.systems/camerakit/pkg/ffmpeg"
	"thirdcoast.systems/camerakit/pkg/filters"
	"thirdcoast.systems/camerakit/pkg/processor"
	"thirdcoast.systems/camerakit/pkg/recorder"
)

var errUsage = errors.New("usage: export <image|stills> [flags] args...")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		slog.Error("export failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "image":
		return runImage(args[1:])
	case "stills":
		return runStills(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
}

// chainFile is either a bare list of specs or {"filters": [...]}, the
// shape the editor API returns.
func readChain(path string) ([]filters.Spec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chain: %w", err)
	}
	var specs []filters.Spec
	if err := json.Unmarshal(b, &specs); err == nil {
		return specs, nil
	}
	var wrapped struct {
		Filters []filters.Spec `json:"filters"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return nil, fmt.Errorf("parse chain %s: %w", path, err)
	}
	return wrapped.Filters, nil
}

func runImage(args []string) error {
	fs := pflag.NewFlagSet("image", pflag.ContinueOnError)
	chainPath := fs.StringP("chain", "c", "", "JSON file with the filter chain")
	resourceDir := fs.String("resources", os.Getenv("RESOURCE_DIR"), "directory with fonts, stickers and luts")
	quality := fs.IntP("quality", "q", 90, "JPEG quality")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("image needs <in> <out>: %w", errUsage)
	}
	in, out := fs.Arg(0), fs.Arg(1)

	var specs []filters.Spec
	if *chainPath != "" {
		var err error
		if specs, err = readChain(*chainPath); err != nil {
			return err
		}
	}
	chain, err := filters.Compile(specs, resources.New(*resourceDir))
	if err != nil {
		return err
	}

	src, err := imaging.Open(in, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("open %s: %w", in, err)
	}
	img, ok := processor.New().Apply(chain, src)
	if !ok {
		return fmt.Errorf("%s: filters produced an empty image", in)
	}
	if err := imaging.Save(img, out, imaging.JPEGQuality(*quality)); err != nil {
		return fmt.Errorf("save %s: %w", out, err)
	}

	logOutput(out, img.Bounds())
	return nil
}

func runStills(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("stills", pflag.ContinueOnError)
	output := fs.StringP("out", "o", recorder.DefaultStillsFileName, "output video file")
	fps := fs.Int("fps", recorder.DefaultStillsFrameRate, "frames per second")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("stills needs at least one image: %w", errUsage)
	}

	images := make([]image.Image, 0, fs.NArg())
	for _, path := range fs.Args() {
		img, err := imaging.Open(path, imaging.AutoOrientation(true))
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		images = append(images, img)
	}

	rec := recorder.New(filepath.Dir(*output))
	path, err := rec.WriteStills(ctx, images, *output, *fps)
	if err != nil {
		return err
	}
	logOutput(path, images[0].Bounds())

	if probe, err := ffmpeg.Probe(ctx, path); err == nil {
		slog.Info("stills video probed",
			"codec", probe.VideoCodec,
			"frames", probe.VideoFrames,
			"duration", probe.Duration,
		)
	} else {
		slog.Debug("ffprobe unavailable", "error", err)
	}
	return nil
}

func logOutput(path string, bounds image.Rectangle) {
	attrs := []any{"path", path, "width", bounds.Dx(), "height", bounds.Dy()}
	if info, err := os.Stat(path); err == nil {
		attrs = append(attrs, "size", humanize.Bytes(uint64(info.Size())))
	}
	slog.Info("export written", attrs...)
}
