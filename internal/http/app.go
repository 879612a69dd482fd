package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AppLifecycle counts foreground app time.
type AppLifecycle interface {
	Foreground()
	Background(ctx context.Context) uint64
	IsForeground() bool
}

type AppController struct {
	app AppLifecycle
}

func NewAppController(app AppLifecycle) *AppController {
	return &AppController{app: app}
}

// Foreground POST /api/app/foreground
func (ac *AppController) Foreground(c *gin.Context) {
	ac.app.Foreground()
	c.JSON(http.StatusOK, gin.H{"foreground": true})
}

// Background flushes pending app time and stops counting.
// POST /api/app/background
func (ac *AppController) Background(c *gin.Context) {
	flushed := ac.app.Background(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"foreground": false, "flushed_seconds": flushed})
}

// Status GET /api/app
func (ac *AppController) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"foreground": ac.app.IsForeground()})
}
