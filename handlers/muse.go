package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type museRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// Suggest asks the muse for gift concepts. Failures yield an empty list.
func Suggest(c *gin.Context) {
	var req museRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"suggestions": muse.Suggest(c.Request.Context(), req.Prompt),
		"enabled":     muse.Enabled(),
	})
}
