package web

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thirdcoast.systems/camerakit/internal/camera"
	"thirdcoast.systems/camerakit/internal/camera/preview"
	"thirdcoast.systems/camerakit/internal/metrics"
	"thirdcoast.systems/camerakit/internal/resources"
	"thirdcoast.systems/camerakit/pkg/capture"
	"thirdcoast.systems/camerakit/pkg/capture/virtual"
	"thirdcoast.systems/camerakit/pkg/processor"
	"thirdcoast.systems/camerakit/pkg/recorder"
)

type nopWriter struct{ path string }

func (w nopWriter) WriteVideo(*image.RGBA, time.Duration) error         { return nil }
func (w nopWriter) WriteAudio(capture.AudioSample, time.Duration) error { return nil }
func (w nopWriter) Close(context.Context) error                        { return os.WriteFile(w.path, []byte("movie"), 0o644) }
func (w nopWriter) Abort()                                             {}

func nopFactory(_ context.Context, o recorder.WriterOptions) (recorder.Writer, error) {
	return nopWriter{path: o.Path}, nil
}

type testServer struct {
	*Webserver
	hw  *virtual.Hardware
	ctl *camera.Controller
	rec *recorder.Recorder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hw := virtual.New(virtual.WithFrameRate(0), virtual.WithFrameSize(64, 48))
	m := metrics.New()
	proc := processor.New(processor.WithObserver(m))
	rec := recorder.New(t.TempDir(), recorder.WithWriterFactory(nopFactory))
	ctl := camera.New(hw, camera.Config{Position: capture.PositionBack},
		camera.WithRecorder(rec), camera.WithProcessor(proc), camera.WithMetrics(m))
	t.Cleanup(func() { _ = ctl.Close(context.Background()) })

	require.NoError(t, ctl.Setup(ctx, preview.NewSurface(32, 24, preview.ContentFit)))

	ws, err := NewWebserver(ctx, Dependencies{
		Controller:    ctl,
		Recorder:      rec,
		Processor:     proc,
		Resources:     resources.New(""),
		Metrics:       m,
		EditorMaxSide: 64,
	})
	require.NoError(t, err)
	return &testServer{Webserver: ws, hw: hw, ctl: ctl, rec: rec}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) camera.Status {
	t.Helper()
	var st camera.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	return st
}

func TestState(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeStatus(t, rec)
	assert.Equal(t, "running", st.State)
	assert.Equal(t, "back", st.Position)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestCameraControls(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/camera/flash/next", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "auto", decodeStatus(t, rec).Flash)

	rec = s.do(http.MethodPost, "/api/camera/mode", `{"mode":"video"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video", decodeStatus(t, rec).Mode)

	rec = s.do(http.MethodPost, "/api/camera/mode", `{"mode":"timelapse"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/camera/switch", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "front", decodeStatus(t, rec).Position)

	// The front camera has no focus point.
	rec = s.do(http.MethodPost, "/api/camera/focus", `{"x":0.5,"y":0.5}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(http.MethodPost, "/api/camera/exposure", `{"x":0.5,"y":0.5}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodPost, "/api/camera/square", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeStatus(t, rec).SquareMode)
}

func TestSessionStopStart(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/session/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stopped", decodeStatus(t, rec).State)

	rec = s.do(http.MethodPost, "/api/photo", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/api/session/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "running", decodeStatus(t, rec).State)
}

func TestPhoto(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/photo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	img, err := imaging.Decode(rec.Body)
	require.NoError(t, err)
	// Portrait still of a 64x48 sensor at twice the size.
	assert.Equal(t, image.Pt(96, 128), img.Bounds().Size())

	rec = s.do(http.MethodPost, "/api/photo", `{"filters":[{"type":"orientation_crop","params":{"rotation":90}}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	img, err = imaging.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(128, 96), img.Bounds().Size())

	rec = s.do(http.MethodPost, "/api/photo", `{"filters":[{"type":"warp"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEffect(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/camera/effect", `{"type":"color_controls","params":{"saturation":0}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "color_controls", decodeStatus(t, rec).LiveEffect)

	rec = s.do(http.MethodPost, "/api/camera/effect", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeStatus(t, rec).LiveEffect)

	rec = s.do(http.MethodPost, "/api/camera/effect", `{"type":"sticker","params":{"name":"star"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreview(t *testing.T) {
	s := newTestServer(t)
	s.hw.LastSession().Push(imaging.New(64, 48, color.NRGBA{G: 255, A: 255}), time.Millisecond)
	require.Eventually(t, func() bool {
		return s.ctl.Surface().Frames() == 1
	}, 2*time.Second, 5*time.Millisecond)

	rec := s.do(http.MethodGet, "/api/preview.jpg", "")
	require.Equal(t, http.StatusOK, rec.Code)
	img, err := imaging.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(32, 24), img.Bounds().Size())
}

func TestRecording(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/recording/download", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/api/recording/start", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, decodeStatus(t, rec).Recording)

	s.hw.LastSession().Push(imaging.New(64, 48, color.White), 0)
	require.Eventually(t, func() bool {
		job := s.rec.Active()
		return job != nil && job.Frames() == 1
	}, 2*time.Second, 5*time.Millisecond)

	rec = s.do(http.MethodPost, "/api/recording/stop", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		return s.do(http.MethodGet, "/api/recording/download", "").Code == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	rec = s.do(http.MethodGet, "/api/recording/download", "")
	assert.Equal(t, "movie", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), recorder.DefaultFileName)
}

func TestFiltersCatalog(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/api/filters", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Kinds []struct {
			Kind string `json:"kind"`
		} `json:"kinds"`
		Looks []json.RawMessage `json:"looks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Kinds)
	assert.Equal(t, "enhancement", body.Kinds[0].Kind)
	assert.NotEmpty(t, body.Looks)
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t)
	s.hw.LastSession().Push(imaging.New(64, 48, color.White), time.Millisecond)
	require.Eventually(t, func() bool {
		return s.ctl.Surface().Frames() == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		rec := s.do(http.MethodGet, "/metrics", "")
		return rec.Code == http.StatusOK &&
			strings.Contains(rec.Body.String(), "camerakit_frames_processed_total 1")
	}, 2*time.Second, 10*time.Millisecond)
}

func uploadRequest(t *testing.T, img image.Image) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "photo.png")
	require.NoError(t, err)
	require.NoError(t, imaging.Encode(fw, img, imaging.PNG))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/editor", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestEditor(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/editor/chain", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, uploadRequest(t, imaging.New(200, 100, color.NRGBA{R: 90, G: 120, B: 200, A: 255})))
	require.Equal(t, http.StatusCreated, rec.Code)

	// Trial edit: previewed at 64 wide, not committed.
	rec = s.do(http.MethodPost, "/api/editor/apply", `{"filters":[{"type":"orientation_crop","params":{"x":0.25,"width":0.5}}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	img, err := imaging.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(32, 32), img.Bounds().Size())

	rec = s.do(http.MethodGet, "/api/editor/chain", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"filters":null}`, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/editor/apply", `{"commit":true,"filters":[{"type":"orientation_crop","params":{"x":0.25,"width":0.5}}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/editor/render.jpg?full=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	img, err = imaging.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(100, 100), img.Bounds().Size())

	rec = s.do(http.MethodPost, "/api/editor/enhance", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"enhancement":true}`, rec.Body.String())
}

func TestEventStream(t *testing.T) {
	s := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.ServeHTTP(rec, req)
	}()

	require.Eventually(t, func() bool { return s.Hub().Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)

	_, err := s.ctl.SelectNextFlashMode(context.Background())
	require.NoError(t, err)

	// Give the dispatcher and the stream loop a moment to write.
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	assert.Contains(t, body, "datastar-patch-signals")
	assert.Contains(t, body, `"type":"flash_changed"`)
	assert.Contains(t, body, ": connected")
	assert.Zero(t, s.Hub().Subscribers())
}
