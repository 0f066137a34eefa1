package handlers

import (
	"fmt"
	"net/http"
	"slices"

	"fabrino-server/models"
	"fabrino-server/services"

	"github.com/gin-gonic/gin"
)

type addItemRequest struct {
	ProductID string            `json:"product_id" binding:"required"`
	Text      string            `json:"text"`
	Color     string            `json:"color"`
	Options   map[string]string `json:"options"`
}

type buyNowRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

func cartResponse(sess *services.Session) gin.H {
	return gin.H{
		"items":    sess.Cart.Items(),
		"count":    sess.Cart.Len(),
		"subtotal": sess.Cart.Subtotal(),
	}
}

// GetCart returns the session cart.
func GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, cartResponse(currentSession(c)))
}

// AddCartItem adds a customized product to the cart.
func AddCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := catalogue.Find(req.ProductID)
	if err != nil {
		respondError(c, err)
		return
	}
	if req.Color != "" && !models.KnownTone(req.Color) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown colour %s", req.Color)})
		return
	}
	for field := range req.Options {
		if !slices.Contains(product.CustomizableFields, field) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s is not customizable on %s", field, product.Name)})
			return
		}
	}

	sess := currentSession(c)
	item := sess.Cart.Add(product, models.CustomizationState{
		Text:    req.Text,
		Color:   req.Color,
		Options: req.Options,
	})

	resp := cartResponse(sess)
	resp["item"] = item
	c.JSON(http.StatusCreated, resp)
}

// BuyNow adds the standard edition of a product and opens checkout.
func BuyNow(c *gin.Context) {
	var req buyNowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := catalogue.Find(req.ProductID)
	if err != nil {
		respondError(c, err)
		return
	}

	sess := currentSession(c)
	item := sess.Cart.AddStandard(product)
	state := sess.Checkout.Open()

	c.JSON(http.StatusCreated, gin.H{
		"item":     item,
		"cart":     cartResponse(sess),
		"checkout": state,
	})
}

// RemoveCartItem drops one line. Unknown ids are not an error.
func RemoveCartItem(c *gin.Context) {
	sess := currentSession(c)
	removed := sess.Cart.Remove(c.Param("cart_id"))

	resp := cartResponse(sess)
	resp["removed"] = removed
	c.JSON(http.StatusOK, resp)
}

// ClearCart empties the cart.
func ClearCart(c *gin.Context) {
	sess := currentSession(c)
	sess.Cart.Clear()
	c.JSON(http.StatusOK, cartResponse(sess))
}
