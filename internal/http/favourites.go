package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// FavouritesController flips the favourite flag on catalog entries.
type FavouritesController struct {
	catalog Catalog
}

func NewFavouritesController(c Catalog) *FavouritesController {
	return &FavouritesController{catalog: c}
}

// ToggleFavourite flips the flag and returns the updated book.
// POST /api/books/:id/favourite
func (fc *FavouritesController) ToggleFavourite(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := fc.catalog.ToggleFavorite(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err, "toggle favourite")
		return
	}

	message := "favourite removed"
	if book.Favorite {
		message = "favourite added"
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "book": book})
}
