package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readtrack/internal/activity"
	"github.com/mrlokans/readtrack/internal/catalog"
	"github.com/mrlokans/readtrack/internal/document"
	"github.com/mrlokans/readtrack/internal/session"
	"github.com/mrlokans/readtrack/internal/settingsstore"
	"github.com/mrlokans/readtrack/internal/tasks"
)

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"` // machine-readable error code
}

type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs err and hides it from the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// respondAccepted is used for work handed to the task queue.
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// respondDomainError maps the core's sentinel errors onto status codes and
// falls back to a 500 for anything else.
func respondDomainError(c *gin.Context, err error, context string) {
	switch {
	case errors.Is(err, catalog.ErrBookNotFound):
		respondNotFound(c, "book")
	case errors.Is(err, catalog.ErrDeleteRequestNotFound):
		respondError(c, http.StatusNotFound, "delete_request_not_found", err.Error())
	case errors.Is(err, catalog.ErrInvalidBook),
		errors.Is(err, catalog.ErrInvalidView),
		errors.Is(err, activity.ErrInvalidDate),
		errors.Is(err, settingsstore.ErrInvalidTheme),
		errors.Is(err, tasks.ErrUnknownTaskType):
		respondBadRequest(c, err.Error())
	case errors.Is(err, document.ErrUnsupportedLocator):
		respondError(c, http.StatusBadRequest, "unsupported_locator", err.Error())
	case errors.Is(err, document.ErrDecode):
		respondError(c, http.StatusUnprocessableEntity, "decode_failed", "document could not be decoded")
	case errors.Is(err, session.ErrNotRunning):
		respondError(c, http.StatusConflict, "no_session", "no reading session is running")
	default:
		respondInternalError(c, err, context)
	}
}

// parseIDParam validates a numeric book id from the URL and returns it in
// its canonical string form.
func parseIDParam(c *gin.Context, paramName string) (string, bool) {
	id, err := strconv.ParseUint(c.Param(paramName), 10, 64)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return "", false
	}
	return strconv.FormatUint(id, 10), true
}

// parseIntQuery returns def when the query parameter is missing or malformed.
func parseIntQuery(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}
