package handlers

import (
	"net/http"
	"slices"

	"fabrino-server/models"

	"github.com/gin-gonic/gin"
)

// GetProducts lists the catalogue filtered by ?intent= and ?q=. An unknown
// intent matches nothing.
func GetProducts(c *gin.Context) {
	intent := models.Intent(c.Query("intent"))
	if intent == "" {
		intent = models.IntentAll
	}
	products := slices.Collect(catalogue.Filter(intent, c.Query("q")))
	if products == nil {
		products = []models.Product{}
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
		"live":     catalogue.Live(),
	})
}

// GetProduct returns one product with the detail copy filled in.
func GetProduct(c *gin.Context) {
	product, err := catalogue.Find(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product.WithDetailDefaults()})
}

// RefreshProducts re-fetches the catalogue from the backend.
func RefreshProducts(c *gin.Context) {
	// Fetch degrades to the cached list; the error is only informative.
	err := catalogue.Fetch(c.Request.Context())

	resp := gin.H{
		"live":  catalogue.Live(),
		"count": len(catalogue.Products()),
	}
	if err != nil {
		resp["warning"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// GetIntents lists the gifting intents and the material palette.
func GetIntents(c *gin.Context) {
	intents := append([]models.Intent{models.IntentAll}, models.Intents...)
	c.JSON(http.StatusOK, gin.H{
		"intents": intents,
		"palette": models.Palette,
	})
}
