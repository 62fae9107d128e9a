package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"thirdcoast.systems/camerakit/cmd/camerad/internal/web"
	"thirdcoast.systems/camerakit/internal/camera"
	"thirdcoast.systems/camerakit/internal/camera/preview"
	"thirdcoast.systems/camerakit/internal/config"
	"thirdcoast.systems/camerakit/internal/metrics"
	"thirdcoast.systems/camerakit/internal/resources"
	"thirdcoast.systems/camerakit/pkg/capture"
	"thirdcoast.systems/camerakit/pkg/capture/virtual"
	"thirdcoast.systems/camerakit/pkg/processor"
	"thirdcoast.systems/camerakit/pkg/recorder"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting camera service")

	conf, err := config.LoadConfig(ctx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	position, err := capture.ParsePosition(conf.CameraPosition)
	if err != nil {
		slog.Error("invalid camera position", "error", err)
		os.Exit(1)
	}
	mode, err := camera.ParseMode(conf.RecordingMode)
	if err != nil {
		slog.Error("invalid recording mode", "error", err)
		os.Exit(1)
	}
	contentMode, err := preview.ParseContentMode(conf.PreviewContentMode)
	if err != nil {
		slog.Error("invalid preview content mode", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(conf.RecordingDir, 0o755); err != nil {
		slog.Error("failed to create recording directory", "dir", conf.RecordingDir, "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	proc := processor.New(processor.WithObserver(m))
	res := resources.New(conf.ResourceDir)

	// Finalizing recordings outlive the request that stopped them.
	tasks := recorder.NewTaskTracker()
	rec := recorder.New(conf.RecordingDir,
		recorder.WithFileName(conf.RecordingFileName),
		recorder.WithBackgroundTasks(tasks),
	)

	hw := virtual.New(virtual.WithFrameRate(conf.FrameRate))
	ctl := camera.New(hw, camera.Config{
		Position:       position,
		Mode:           mode,
		SquareMode:     conf.SquareMode,
		Audio:          conf.AudioEnabled,
		FrameRate:      conf.FrameRate,
		MaxVideoLength: conf.MaxVideoLength,
	},
		camera.WithRecorder(rec),
		camera.WithProcessor(proc),
		camera.WithMetrics(m),
	)

	surface := preview.NewSurface(conf.PreviewWidth, conf.PreviewHeight, contentMode)
	if err := ctl.Setup(ctx, surface); err != nil {
		slog.Error("failed to set up capture session", "error", err)
		os.Exit(1)
	}

	e, err := web.NewWebserver(ctx, web.Dependencies{
		Controller:    ctl,
		Recorder:      rec,
		Processor:     proc,
		Resources:     res,
		Metrics:       m,
		EditorMaxSide: conf.EditorPreviewMaxSide,
	})
	if err != nil {
		slog.Error("failed to create webserver", "error", err)
		os.Exit(1)
	}

	addr := ":" + strconv.Itoa(conf.WebServerPort)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()

	slog.Info("Listening", "addr", addr)
	err = e.Start(addr)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if cerr := ctl.Close(shutdownCtx); cerr != nil {
		slog.Warn("failed to close controller", "error", cerr)
	}
	if werr := tasks.Wait(shutdownCtx); werr != nil {
		slog.Warn("recordings still finalizing at exit", "tasks", tasks.Active(), "error", werr)
	}

	if err != nil && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
