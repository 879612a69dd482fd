package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readtrack/internal/reader"
	"github.com/mrlokans/readtrack/internal/session"
)

// ReaderSurface is the reading pane: open a book, report scrolls, close.
type ReaderSurface interface {
	Open(ctx context.Context, bookID string) (*reader.OpenResult, error)
	Scroll(ctx context.Context, bookID string, vp reader.Viewport) (reader.ScrollResult, error)
	Close(ctx context.Context) (session.Session, error)
}

// SessionState reports on the reading session clock.
type SessionState interface {
	State() session.State
	Current() (session.Session, bool)
}

type ReaderController struct {
	surface ReaderSurface
	clock   SessionState
}

func NewReaderController(surface ReaderSurface, clock SessionState) *ReaderController {
	return &ReaderController{surface: surface, clock: clock}
}

// Open decodes the book and starts a session on it.
// POST /api/reader/:id/open
func (rc *ReaderController) Open(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := rc.surface.Open(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err, "open book")
		return
	}
	c.JSON(http.StatusOK, result)
}

// Scroll records progress and position for a viewport.
// POST /api/reader/:id/scroll
func (rc *ReaderController) Scroll(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var vp reader.Viewport
	if err := c.ShouldBindJSON(&vp); err != nil {
		respondBadRequest(c, "invalid viewport")
		return
	}

	result, err := rc.surface.Scroll(c.Request.Context(), id, vp)
	if err != nil {
		respondDomainError(c, err, "record scroll")
		return
	}
	c.JSON(http.StatusOK, result)
}

// Close ends the running session.
// POST /api/reader/close
func (rc *ReaderController) Close(c *gin.Context) {
	s, err := rc.surface.Close(c.Request.Context())
	if err != nil {
		respondDomainError(c, err, "close session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": s})
}

// Session GET /api/reader/session
func (rc *ReaderController) Session(c *gin.Context) {
	resp := gin.H{"state": rc.clock.State().String()}
	if s, ok := rc.clock.Current(); ok {
		resp["session"] = s
	}
	c.JSON(http.StatusOK, resp)
}
