package web

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"thirdcoast.systems/camerakit/cmd/camerad/handlers/camera_api"
	"thirdcoast.systems/camerakit/cmd/camerad/handlers/editor_api"
	"thirdcoast.systems/camerakit/cmd/camerad/internal/events"
	"thirdcoast.systems/camerakit/internal/camera"
	"thirdcoast.systems/camerakit/internal/metrics"
	"thirdcoast.systems/camerakit/internal/resources"
	"thirdcoast.systems/camerakit/pkg/processor"
	"thirdcoast.systems/camerakit/pkg/recorder"
)

// Dependencies are the long-lived services the routes are wired to.
type Dependencies struct {
	Controller    *camera.Controller
	Recorder      *recorder.Recorder
	Processor     *processor.Processor
	Resources     *resources.Loader
	Metrics       *metrics.Metrics
	EditorMaxSide int
}

type Webserver struct {
	*echo.Echo
	deps        Dependencies
	hub         *events.Hub
	editorStore *editor_api.Store
	unsubscribe func()
}

func NewWebserver(ctx context.Context, deps Dependencies) (*Webserver, error) {
	e := echo.New()

	hub := events.NewHub()
	webserver := &Webserver{
		Echo:        e,
		deps:        deps,
		hub:         hub,
		editorStore: editor_api.NewStore(deps.EditorMaxSide, deps.Processor, deps.Resources),
		unsubscribe: deps.Controller.Subscribe(hub.Publish),
	}

	if err := webserver.registerRoutes(); err != nil {
		return nil, err
	}

	if err := webserver.setupMiddleware(); err != nil {
		return nil, err
	}

	go func() {
		<-ctx.Done()
		webserver.unsubscribe()
	}()

	return webserver, nil
}

// Hub returns the event hub feeding the SSE stream.
func (s *Webserver) Hub() *events.Hub { return s.hub }

func (s *Webserver) setupMiddleware() error {
	s.HideBanner = true
	s.HidePort = true
	s.Use(middleware.BodyLimit("32M"))
	s.Use(middleware.Recover())
	s.Use(middleware.RequestID())
	s.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			// JPEG and movie bodies do not compress; SSE must not buffer.
			switch c.Path() {
			case "/api/events", "/api/photo", "/api/preview.jpg", "/api/recording/download",
				"/api/editor/apply", "/api/editor/render.jpg":
				return true
			default:
				return false
			}
		},
	}))
	s.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			switch c.Path() {
			case "/api/events", "/api/preview.jpg", "/metrics":
				return true
			default:
				return false
			}
		},
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error)
			}
			slog.Info("request", fields...)
			return nil
		},
	}))
	return nil
}

func (s *Webserver) registerRoutes() error {
	ctl := s.deps.Controller

	apiGroup := s.Group("/api")
	apiGroup.GET("/state", camera_api.HandleState(ctl))
	apiGroup.GET("/events", camera_api.HandleEventStream(ctl, s.hub))
	apiGroup.GET("/filters", camera_api.HandleFilters(s.deps.Resources))

	apiGroup.POST("/session/start", camera_api.HandleSessionStart(ctl))
	apiGroup.POST("/session/stop", camera_api.HandleSessionStop(ctl))

	apiGroup.POST("/camera/switch", camera_api.HandleSwitchCamera(ctl))
	apiGroup.POST("/camera/mode", camera_api.HandleMode(ctl))
	apiGroup.POST("/camera/flash/next", camera_api.HandleNextFlash(ctl))
	apiGroup.POST("/camera/torch/next", camera_api.HandleNextTorch(ctl))
	apiGroup.POST("/camera/focus", camera_api.HandleFocus(ctl, false))
	apiGroup.POST("/camera/exposure", camera_api.HandleFocus(ctl, true))
	apiGroup.POST("/camera/square", camera_api.HandleSquareMode(ctl))
	apiGroup.POST("/camera/effect", camera_api.HandleEffect(ctl, s.deps.Resources))

	apiGroup.POST("/photo", camera_api.HandlePhoto(ctl, s.deps.Processor, s.deps.Resources))
	apiGroup.GET("/preview.jpg", camera_api.HandlePreview(ctl))

	apiGroup.POST("/recording/start", camera_api.HandleRecordingStart(ctl))
	apiGroup.POST("/recording/stop", camera_api.HandleRecordingStop(ctl))
	apiGroup.GET("/recording/download", camera_api.HandleRecordingDownload(s.deps.Recorder))

	editorGroup := apiGroup.Group("/editor")
	editorGroup.POST("", editor_api.HandleUpload(s.editorStore))
	editorGroup.GET("/chain", editor_api.HandleChain(s.editorStore))
	editorGroup.POST("/apply", editor_api.HandleApply(s.editorStore))
	editorGroup.POST("/enhance", editor_api.HandleEnhance(s.editorStore))
	editorGroup.GET("/render.jpg", editor_api.HandleRender(s.editorStore))

	s.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))

	// Health check
	s.GET("/healthz", func(c echo.Context) error {
		return c.String(200, "ok")
	})

	return nil
}
