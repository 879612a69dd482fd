package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readtrack/internal/catalog"
	"github.com/mrlokans/readtrack/internal/entities"
)

// Catalog is the book list as the API sees it.
type Catalog interface {
	ListFiltered(ctx context.Context, filter catalog.Filter, order catalog.SortOrder) ([]entities.Book, error)
	ImportBook(ctx context.Context, locator, displayName, source string) (entities.Book, error)
	GetBook(ctx context.Context, id string) (entities.Book, error)
	ToggleFavorite(ctx context.Context, id string) (entities.Book, error)
	RequestDelete(ctx context.Context, id string) (catalog.DeleteRequest, error)
	ConfirmDelete(ctx context.Context, token string) (entities.Book, error)
	CancelDelete(token string) error
}

// ProgressReader exposes stored completion fractions.
type ProgressReader interface {
	Snapshot(ctx context.Context) (entities.ProgressRecord, error)
	GetProgress(ctx context.Context, bookID string) (float64, error)
}

// BookView is a catalog entry with its completion fraction.
type BookView struct {
	entities.Book
	Progress float64 `json:"progress"`
}

type ImportBookRequest struct {
	Locator string `json:"locator" binding:"required"`
	Name    string `json:"name"`
}

type BooksController struct {
	catalog  Catalog
	progress ProgressReader
}

func NewBooksController(c Catalog, p ProgressReader) *BooksController {
	return &BooksController{catalog: c, progress: p}
}

// GetAllBooks lists the catalog.
// GET /api/books?filter=all|plaintext|pdf|favorites&sort=none|progress_desc
func (bc *BooksController) GetAllBooks(c *gin.Context) {
	filter, err := catalog.ParseFilter(c.Query("filter"))
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	order, err := catalog.ParseSort(c.Query("sort"))
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	books, err := bc.catalog.ListFiltered(ctx, filter, order)
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	record, err := bc.progress.Snapshot(ctx)
	if err != nil {
		respondInternalError(c, err, "load progress")
		return
	}

	views := make([]BookView, 0, len(books))
	for _, b := range books {
		views = append(views, BookView{Book: b, Progress: record[b.ID]})
	}
	c.IndentedJSON(http.StatusOK, gin.H{"books": views, "count": len(views)})
}

// ImportBook adds a document to the catalog.
// POST /api/books
func (bc *BooksController) ImportBook(c *gin.Context) {
	var req ImportBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "locator is required")
		return
	}

	book, err := bc.catalog.ImportBook(c.Request.Context(), req.Locator, req.Name, "api")
	if err != nil {
		respondDomainError(c, err, "import book")
		return
	}
	respondCreated(c, book)
}

// GetBook returns one book with its progress.
// GET /api/books/:id
func (bc *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	book, err := bc.catalog.GetBook(ctx, id)
	if err != nil {
		respondDomainError(c, err, "get book")
		return
	}
	fraction, err := bc.progress.GetProgress(ctx, id)
	if err != nil {
		respondInternalError(c, err, "load progress")
		return
	}
	c.JSON(http.StatusOK, BookView{Book: book, Progress: fraction})
}

// GetProgress returns the stored completion fraction, 0 when never read.
// GET /api/books/:id/progress
func (bc *BooksController) GetProgress(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := bc.catalog.GetBook(ctx, id); err != nil {
		respondDomainError(c, err, "get book")
		return
	}
	fraction, err := bc.progress.GetProgress(ctx, id)
	if err != nil {
		respondInternalError(c, err, "load progress")
		return
	}
	c.JSON(http.StatusOK, gin.H{"book_id": id, "progress": fraction})
}
