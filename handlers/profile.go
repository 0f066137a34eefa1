package handlers

import (
	"net/http"

	"fabrino-server/models"
	"fabrino-server/services"
	"fabrino-server/utils"

	"github.com/gin-gonic/gin"
)

type editorRequest struct {
	Open *bool `json:"open" binding:"required"`
}

func GetProfile(c *gin.Context) {
	profile, err := profiles.Get(c.Request.Context(), currentSession(c))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"profile": profile}
	if profile != nil && profile.PaymentMethodLast4 != nil {
		resp["payment_method"] = utils.MaskCard(*profile.PaymentMethodLast4)
	}
	c.JSON(http.StatusOK, resp)
}

// SaveProfile upserts the contact details from the profile editor.
func SaveProfile(c *gin.Context) {
	var req models.ContactDetails
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := currentSession(c)
	if err := profiles.Save(c.Request.Context(), sess, req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "session": sess.State()})
}

// CompleteOnboarding stores the setup wizard result.
func CompleteOnboarding(c *gin.Context) {
	var req services.OnboardingForm
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := currentSession(c)
	synced, err := profiles.CompleteOnboarding(c.Request.Context(), sess, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": synced, "session": sess.State()})
}

// SetProfileEditor opens or closes the profile editor.
func SetProfileEditor(c *gin.Context) {
	var req editorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := currentSession(c)
	if err := sess.SetProfileEditor(*req.Open); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess.State()})
}
