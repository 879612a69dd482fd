package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readtrack/internal/settingsstore"
)

type PreferencesStore interface {
	AppearanceInfo(ctx context.Context) (settingsstore.AppearanceInfo, error)
	SetTheme(ctx context.Context, theme string) error
	SetBackgroundImage(ctx context.Context, uri string) error
}

// UpdatePreferencesRequest leaves a field unchanged when it is omitted and
// resets it to the default when it is an empty string.
type UpdatePreferencesRequest struct {
	Theme           *string `json:"theme"`
	BackgroundImage *string `json:"background_image"`
}

type PreferencesController struct {
	store PreferencesStore
}

func NewPreferencesController(store PreferencesStore) *PreferencesController {
	return &PreferencesController{store: store}
}

// GetPreferences GET /api/preferences
func (pc *PreferencesController) GetPreferences(c *gin.Context) {
	info, err := pc.store.AppearanceInfo(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "load preferences")
		return
	}
	c.JSON(http.StatusOK, info)
}

// UpdatePreferences PUT /api/preferences
func (pc *PreferencesController) UpdatePreferences(c *gin.Context) {
	var req UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid preferences")
		return
	}

	ctx := c.Request.Context()
	if req.Theme != nil {
		if err := pc.store.SetTheme(ctx, *req.Theme); err != nil {
			respondDomainError(c, err, "save theme")
			return
		}
	}
	if req.BackgroundImage != nil {
		if err := pc.store.SetBackgroundImage(ctx, *req.BackgroundImage); err != nil {
			respondDomainError(c, err, "save background image")
			return
		}
	}

	pc.GetPreferences(c)
}
