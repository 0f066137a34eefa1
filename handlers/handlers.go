package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fabrino-server/services"
	"fabrino-server/supabase"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Authenticator is the account side of the hosted backend.
type Authenticator interface {
	SignUp(ctx context.Context, sessionID, email, password string) (*supabase.Session, error)
	SignIn(ctx context.Context, sessionID, email, password string) (*supabase.Session, error)
	SignOut(ctx context.Context, sessionID, accessToken string) error
	ResolveSession(ctx context.Context, sessionID, accessToken string) (*supabase.Session, error)
}

// Dependencies are the components the HTTP surface drives.
type Dependencies struct {
	Catalogue    *services.Catalogue
	Sessions     *services.SessionStore
	Editor       *services.CatalogueEditor
	Profiles     *services.ProfileService
	Muse         *services.Muse
	Auth         Authenticator
	AdminKeyHash string
	SessionTTL   time.Duration
	MusePerMin   int
	Production   bool
	// EventsPing is the websocket ping interval; zero means the default.
	EventsPing   time.Duration
}

var (
	catalogue    *services.Catalogue
	sessions     *services.SessionStore
	editor       *services.CatalogueEditor
	profiles     *services.ProfileService
	muse         *services.Muse
	auth         Authenticator
	adminKeyHash string
	sessionTTL   time.Duration
	secureCookie bool
	museLimiter  *RateLimiter
	eventsPing   time.Duration
)

// InitializeHandlers installs the components used by every handler.
func InitializeHandlers(deps Dependencies) {
	catalogue = deps.Catalogue
	sessions = deps.Sessions
	editor = deps.Editor
	profiles = deps.Profiles
	muse = deps.Muse
	auth = deps.Auth
	adminKeyHash = deps.AdminKeyHash
	sessionTTL = deps.SessionTTL
	secureCookie = deps.Production
	museLimiter = NewRateLimiter(deps.MusePerMin)
	eventsPing = deps.EventsPing
	if eventsPing <= 0 {
		eventsPing = wsPingPeriod
	}

	if auth == nil {
		log.Warn("Backend auth is not configured, account routes are disabled")
	}
	if adminKeyHash == "" {
		log.Warn("ADMIN_KEY_HASH is not set, admin routes are disabled")
	}
}

// respondError maps service errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var uploadErr *services.UploadError
	if errors.As(err, &uploadErr) {
		c.JSON(http.StatusBadGateway, uploadErr)
		return
	}

	var apiErr *supabase.APIError
	if errors.As(err, &apiErr) {
		status := http.StatusBadGateway
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			status = apiErr.StatusCode
		}
		c.JSON(status, gin.H{"error": apiErr.Message, "code": apiErr.Code})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrDuplicateField):
		status = http.StatusConflict
	case errors.Is(err, services.ErrShippingIncomplete),
		errors.Is(err, services.ErrEmptyCart),
		errors.Is(err, services.ErrInvalidProduct),
		errors.Is(err, services.ErrBlankField),
		errors.Is(err, services.ErrNoProductSet),
		errors.Is(err, services.ErrUnknownView):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotSignedIn):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrAuthDisabled),
		errors.Is(err, services.ErrNoBackend),
		errors.Is(err, services.ErrUploadsDisabled):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
