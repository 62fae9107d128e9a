// Package editor_api exposes one editing session over HTTP: upload an
// image, try filter chains on the low-resolution preview, commit them and
// render the full-resolution result.
package editor_api

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"thirdcoast.systems/camerakit/cmd/camerad/handlers/common"
	"thirdcoast.systems/camerakit/pkg/editor"
	"thirdcoast.systems/camerakit/pkg/filters"
	"thirdcoast.systems/camerakit/pkg/processor"
)

// Store holds the current editing session.
type Store struct {
	mu      sync.Mutex
	session *editor.Session
	maxSide int
	proc    *processor.Processor
	res     filters.Resources
}

func NewStore(maxSide int, proc *processor.Processor, res filters.Resources) *Store {
	return &Store{maxSide: maxSide, proc: proc, res: res}
}

func (s *Store) current() (*editor.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, common.ErrNotFound("no image loaded")
	}
	return s.session, nil
}

type chainRequest struct {
	Filters []filters.Spec `json:"filters"`
	Commit  bool           `json:"commit"`
}

type chainResponse struct {
	Filters []filters.Spec `json:"filters"`
}

// HandleUpload starts a new session from the multipart "image" field.
func HandleUpload(s *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		img, err := common.ReadImageUpload(c, "image")
		if err != nil {
			return err
		}
		session := editor.NewSession(img,
			editor.WithPreviewMaxSide(s.maxSide),
			editor.WithProcessor(s.proc),
		)

		s.mu.Lock()
		s.session = session
		s.mu.Unlock()

		b := img.Bounds()
		return c.JSON(http.StatusCreated, map[string]int{"width": b.Dx(), "height": b.Dy()})
	}
}

// HandleChain returns the committed chain as specs.
func HandleChain(s *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		session, err := s.current()
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, chainResponse{Filters: session.Chain().Specs()})
	}
}

// HandleApply applies specs on a branch of the committed chain and
// returns the preview. With commit set the branch replaces the committed
// chain; otherwise it is discarded.
func HandleApply(s *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		session, err := s.current()
		if err != nil {
			return err
		}
		var req chainRequest
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid chain request")
		}

		branch := session.Branch()
		for i, spec := range req.Filters {
			if err := branch.Chain().ApplySpec(spec, s.res); err != nil {
				_ = branch.Cancel()
				return common.ErrBadRequest(fmt.Sprintf("filter[%d] (%s): %v", i, spec.Type, err))
			}
		}

		img, err := branch.Preview()
		if err != nil {
			_ = branch.Cancel()
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		if req.Commit {
			err = branch.Commit()
		} else {
			err = branch.Cancel()
		}
		if err != nil {
			return common.ErrInternal(err.Error())
		}
		return common.WriteJPEG(c, img)
	}
}

// HandleEnhance toggles auto-enhancement on the committed chain.
func HandleEnhance(s *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		session, err := s.current()
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]bool{"enhancement": session.ToggleEnhancement()})
	}
}

// HandleRender renders the committed chain. ?full=1 renders the source
// resolution instead of the preview.
func HandleRender(s *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		session, err := s.current()
		if err != nil {
			return err
		}
		full := c.QueryParam("full") == "1" || c.QueryParam("full") == "true"
		img, err := session.Render(full)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		return common.WriteJPEG(c, img)
	}
}
