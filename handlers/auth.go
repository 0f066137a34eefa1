package handlers

import (
	"errors"
	"net/http"
	"strings"

	"fabrino-server/services"
	"fabrino-server/supabase"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type resolveRequest struct {
	AccessToken string `json:"access_token"`
}

func authResponse(sess *services.Session, s *supabase.Session) gin.H {
	resp := gin.H{"session": sess.State()}
	if s != nil {
		resp["access_token"] = s.AccessToken
		resp["refresh_token"] = s.RefreshToken
		resp["expires_at"] = s.ExpiresAt
	}
	return resp
}

// SignUp registers an account. When the backend requires email confirmation
// no session is issued and 202 is returned.
func SignUp(c *gin.Context) {
	if auth == nil {
		respondError(c, services.ErrAuthDisabled)
		return
	}

	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := currentSession(c)
	issued, err := auth.SignUp(c.Request.Context(), sess.ID, req.Email, req.Password)
	if errors.Is(err, supabase.ErrNoSession) {
		c.JSON(http.StatusAccepted, gin.H{
			"message": "Check your email to confirm your account",
			"session": sess.State(),
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	log.WithFields(log.Fields{"session_id": sess.ID, "email": req.Email}).Info("Account created")
	c.JSON(http.StatusCreated, authResponse(sess, issued))
}

// Login signs in with email and password.
func Login(c *gin.Context) {
	if auth == nil {
		respondError(c, services.ErrAuthDisabled)
		return
	}

	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := currentSession(c)
	issued, err := auth.SignIn(c.Request.Context(), sess.ID, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse(sess, issued))
}

// Logout signs the session out. The local identity is cleared even if the
// backend revoke fails.
func Logout(c *gin.Context) {
	sess := currentSession(c)
	if auth == nil {
		sess.SignedOut()
		c.JSON(http.StatusOK, authResponse(sess, nil))
		return
	}

	if err := auth.SignOut(c.Request.Context(), sess.ID, sess.AccessToken()); err != nil {
		log.WithError(err).WithField("session_id", sess.ID).Warn("Backend sign-out failed")
	}
	c.JSON(http.StatusOK, authResponse(sess, nil))
}

// ResolveSession restores the identity of a returning browser from an access
// token in the body or the Authorization header.
func ResolveSession(c *gin.Context) {
	if auth == nil {
		respondError(c, services.ErrAuthDisabled)
		return
	}

	var req resolveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	token := req.AccessToken
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}

	sess := currentSession(c)
	resolved, err := auth.ResolveSession(c.Request.Context(), sess.ID, token)
	if err != nil {
		log.WithError(err).WithField("session_id", sess.ID).Info("Access token did not resolve to a session")
	}
	c.JSON(http.StatusOK, authResponse(sess, resolved))
}
