package handlers

import (
	"errors"
	"net/http"

	"fabrino-server/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func checkoutResponse(c *gin.Context, state services.CheckoutState, err error) {
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, services.ErrInvalidTransition) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error(), "checkout": state})
		return
	}
	c.JSON(http.StatusOK, gin.H{"checkout": state})
}

func GetCheckout(c *gin.Context) {
	checkoutResponse(c, currentSession(c).Checkout.State(), nil)
}

func OpenCheckout(c *gin.Context) {
	checkoutResponse(c, currentSession(c).Checkout.Open(), nil)
}

func UpdateShipping(c *gin.Context) {
	var form services.ShippingForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	state, err := currentSession(c).Checkout.UpdateShipping(form)
	checkoutResponse(c, state, err)
}

func ContinueCheckout(c *gin.Context) {
	state, err := currentSession(c).Checkout.Continue()
	checkoutResponse(c, state, err)
}

func BackCheckout(c *gin.Context) {
	state, err := currentSession(c).Checkout.Back()
	checkoutResponse(c, state, err)
}

// CompleteCheckout runs the order write and the processing sequence. It
// answers once the checkout has reached its terminal step.
func CompleteCheckout(c *gin.Context) {
	sess := currentSession(c)
	state, err := sess.Checkout.Complete(c.Request.Context(), sess.ID, sess.UserID())
	checkoutResponse(c, state, err)
}

// ExitCheckout leaves a finished checkout and returns the session home.
func ExitCheckout(c *gin.Context) {
	sess := currentSession(c)
	if err := sess.Checkout.Exit(); err != nil {
		checkoutResponse(c, sess.Checkout.State(), err)
		return
	}
	if err := sess.Navigate(services.ViewHome, ""); err != nil {
		log.WithError(err).WithField("session_id", sess.ID).Warn("Failed to return home after checkout")
	}
	c.JSON(http.StatusOK, gin.H{"checkout": sess.Checkout.State(), "session": sess.State()})
}
