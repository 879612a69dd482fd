package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Annotations stores bookmarks and notes keyed by a book's locator.
type Annotations interface {
	AddBookmark(ctx context.Context, locator string, offset float64) ([]float64, error)
	Bookmarks(ctx context.Context, locator string) ([]float64, error)
	AddNote(ctx context.Context, locator, text string) ([]string, error)
	Notes(ctx context.Context, locator string) ([]string, error)
}

type AddBookmarkRequest struct {
	Offset *float64 `json:"offset" binding:"required"`
}

type AddNoteRequest struct {
	Text string `json:"text" binding:"required"`
}

type AnnotationsController struct {
	catalog     Catalog
	annotations Annotations
}

func NewAnnotationsController(c Catalog, a Annotations) *AnnotationsController {
	return &AnnotationsController{catalog: c, annotations: a}
}

func (ac *AnnotationsController) locator(c *gin.Context) (string, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return "", false
	}
	book, err := ac.catalog.GetBook(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err, "get book")
		return "", false
	}
	return book.Locator, true
}

// GetBookmarks GET /api/books/:id/bookmarks
func (ac *AnnotationsController) GetBookmarks(c *gin.Context) {
	locator, ok := ac.locator(c)
	if !ok {
		return
	}
	marks, err := ac.annotations.Bookmarks(c.Request.Context(), locator)
	if err != nil {
		respondInternalError(c, err, "load bookmarks")
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarks": marks})
}

// AddBookmark POST /api/books/:id/bookmarks
func (ac *AnnotationsController) AddBookmark(c *gin.Context) {
	var req AddBookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil || *req.Offset < 0 {
		respondBadRequest(c, "offset must be a non-negative number")
		return
	}
	locator, ok := ac.locator(c)
	if !ok {
		return
	}
	marks, err := ac.annotations.AddBookmark(c.Request.Context(), locator, *req.Offset)
	if err != nil {
		respondInternalError(c, err, "add bookmark")
		return
	}
	respondCreated(c, gin.H{"bookmarks": marks})
}

// GetNotes GET /api/books/:id/notes
func (ac *AnnotationsController) GetNotes(c *gin.Context) {
	locator, ok := ac.locator(c)
	if !ok {
		return
	}
	notes, err := ac.annotations.Notes(c.Request.Context(), locator)
	if err != nil {
		respondInternalError(c, err, "load notes")
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

// AddNote POST /api/books/:id/notes
func (ac *AnnotationsController) AddNote(c *gin.Context) {
	var req AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		respondBadRequest(c, "text is required")
		return
	}
	locator, ok := ac.locator(c)
	if !ok {
		return
	}
	notes, err := ac.annotations.AddNote(c.Request.Context(), locator, req.Text)
	if err != nil {
		respondInternalError(c, err, "add note")
		return
	}
	respondCreated(c, gin.H{"notes": notes})
}
