package camera_api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/starfederation/datastar-go/datastar"

	"thirdcoast.systems/camerakit/cmd/camerad/handlers/common"
	"thirdcoast.systems/camerakit/cmd/camerad/internal/events"
	"thirdcoast.systems/camerakit/internal/camera"
	"thirdcoast.systems/camerakit/pkg/utils/format"
)

type eventSignal struct {
	Type     string  `json:"type"`
	At       string  `json:"at"`
	Seconds  float64 `json:"seconds,omitempty"`
	Timer    string  `json:"timer,omitempty"`
	Path     string  `json:"path,omitempty"`
	Position string  `json:"position,omitempty"`
	Mode     string  `json:"mode,omitempty"`
	Flash    string  `json:"flash,omitempty"`
	Torch    string  `json:"torch,omitempty"`
	Error    string  `json:"error,omitempty"`
}

type streamSignals struct {
	Camera camera.Status `json:"camera"`
	Event  *eventSignal  `json:"event,omitempty"`
}

func toSignal(ev camera.Event) *eventSignal {
	s := &eventSignal{
		Type: ev.Type.String(),
		At:   ev.Time.Format(time.RFC3339Nano),
		Path: ev.Path,
	}
	switch ev.Type {
	case camera.EventRecordingProgress:
		s.Seconds = ev.Seconds
		s.Timer = format.Seconds(ev.Seconds)
	case camera.EventWillSwitchPosition, camera.EventDidSwitchPosition, camera.EventSetupComplete:
		s.Position = ev.Position.String()
	case camera.EventWillSwitchMode, camera.EventDidSwitchMode:
		s.Mode = ev.Mode.String()
	case camera.EventFlashChanged:
		s.Flash = ev.Flash.String()
	case camera.EventTorchChanged:
		s.Torch = ev.Torch.String()
	}
	if ev.Err != nil {
		s.Error = ev.Err.Error()
	}
	return s
}

// HandleEventStream streams controller events as datastar signal patches.
func HandleEventStream(ctl *camera.Controller, hub *events.Hub) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !hub.AcquireStream() {
			return c.String(http.StatusTooManyRequests, "too many open event streams")
		}
		defer hub.ReleaseStream()

		resp := c.Response()
		flusher, ok := resp.Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "streaming unsupported")
		}

		evtCh, unsubscribe := hub.Subscribe()
		defer unsubscribe()

		common.SetSSEHeaders(c)

		sse := datastar.NewSSE(resp, c.Request())

		patch := func(ev *eventSignal) {
			b, err := json.Marshal(streamSignals{Camera: ctl.Status(), Event: ev})
			if err != nil {
				slog.Warn("failed to marshal camera signals", "error", err)
				return
			}
			_ = sse.PatchSignals(b)
			flusher.Flush()
		}

		patch(nil)

		// Keep-alive comments so proxies/browsers keep the stream open.
		_, _ = fmt.Fprintf(resp, ": connected\n\n")
		flusher.Flush()

		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-c.Request().Context().Done():
				return nil
			case evt, ok := <-evtCh:
				if !ok {
					return nil
				}
				patch(toSignal(evt))
			case <-ticker.C:
				_, _ = fmt.Fprintf(resp, ": keepalive\n\n")
				flusher.Flush()
			}
		}
	}
}
