// Package settingsstore resolves user appearance preferences.
//
// The resolved Appearance is handed to each surface explicitly rather than
// read from shared global state.
package settingsstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrlokans/readtrack/internal/config"
	"github.com/mrlokans/readtrack/internal/store"
)

var ErrInvalidTheme = errors.New("invalid theme")

var themes = map[string]bool{"light": true, "dark": true, "system": true}

// Appearance is the theme and background every surface renders with.
type Appearance struct {
	Theme           string `json:"theme"`
	BackgroundImage string `json:"background_image"`
}

// AppearanceInfo includes source information for each field.
type AppearanceInfo struct {
	Theme       string `json:"theme"`
	ThemeSource string `json:"theme_source"` // "store" or "default"

	BackgroundImage       string `json:"background_image"`
	BackgroundImageSource string `json:"background_image_source"`
}

// Priority: store > config default
type SettingsStore struct {
	store    store.Store
	defaults config.Preferences
}

func New(s store.Store, defaults config.Preferences) *SettingsStore {
	if defaults.Theme == "" {
		defaults.Theme = config.DefaultTheme
	}
	return &SettingsStore{store: s, defaults: defaults}
}

func (s *SettingsStore) Appearance(ctx context.Context) (Appearance, error) {
	info, err := s.AppearanceInfo(ctx)
	if err != nil {
		return Appearance{}, err
	}
	return Appearance{Theme: info.Theme, BackgroundImage: info.BackgroundImage}, nil
}

func (s *SettingsStore) AppearanceInfo(ctx context.Context) (AppearanceInfo, error) {
	values, err := s.store.MultiGet(ctx, []string{store.KeyTheme, store.KeyBackgroundImage})
	if err != nil {
		return AppearanceInfo{}, fmt.Errorf("failed to read preferences: %w", err)
	}

	info := AppearanceInfo{
		Theme:                 s.defaults.Theme,
		ThemeSource:           "default",
		BackgroundImage:       s.defaults.BackgroundImage,
		BackgroundImageSource: "default",
	}
	for _, kv := range values {
		value := store.DecodeString(kv.Value)
		if !kv.Present || value == "" {
			continue
		}
		switch kv.Key {
		case store.KeyTheme:
			info.Theme, info.ThemeSource = value, "store"
		case store.KeyBackgroundImage:
			info.BackgroundImage, info.BackgroundImageSource = value, "store"
		}
	}
	return info, nil
}

// SetTheme stores the theme; an empty theme falls back to the default.
func (s *SettingsStore) SetTheme(ctx context.Context, theme string) error {
	theme = strings.ToLower(strings.TrimSpace(theme))
	if theme == "" {
		return s.store.Remove(ctx, store.KeyTheme)
	}
	if !themes[theme] {
		return fmt.Errorf("%w: %q", ErrInvalidTheme, theme)
	}
	return s.store.Set(ctx, store.KeyTheme, store.EncodeString(theme))
}

// SetBackgroundImage stores the background image URI; empty clears it.
func (s *SettingsStore) SetBackgroundImage(ctx context.Context, uri string) error {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return s.store.Remove(ctx, store.KeyBackgroundImage)
	}
	return s.store.Set(ctx, store.KeyBackgroundImage, store.EncodeString(uri))
}
