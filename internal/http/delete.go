package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DeleteController drives the two-step delete: a request returns a token
// that must be confirmed before it expires.
type DeleteController struct {
	catalog Catalog
	cascade string
}

func NewDeleteController(c Catalog, cascade string) *DeleteController {
	return &DeleteController{catalog: c, cascade: cascade}
}

// RequestDelete POST /api/books/:id/delete
func (dc *DeleteController) RequestDelete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	req, err := dc.catalog.RequestDelete(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err, "request delete")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      req.Token,
		"book":       req.Book,
		"expires_at": req.ExpiresAt,
		"cascade":    dc.cascade,
	})
}

// ConfirmDelete POST /api/books/delete/:token/confirm
func (dc *DeleteController) ConfirmDelete(c *gin.Context) {
	book, err := dc.catalog.ConfirmDelete(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondDomainError(c, err, "confirm delete")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "book deleted", "book": book, "cascade": dc.cascade})
}

// CancelDelete DELETE /api/books/delete/:token
func (dc *DeleteController) CancelDelete(c *gin.Context) {
	if err := dc.catalog.CancelDelete(c.Param("token")); err != nil {
		respondDomainError(c, err, "cancel delete")
		return
	}
	respondSuccess(c, "delete cancelled")
}
