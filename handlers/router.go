package handlers

import (
	"net/http"

	"fabrino-server/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

// NewRouter builds the gin engine with every route. InitializeHandlers must
// run first.
func NewRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())
	router.MaxMultipartMemory = maxImageBytes

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "healthy",
			"message":        "Fabrino Server is running",
			"catalogue_live": catalogue.Live(),
		})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api/v1")
	api.Use(SessionMiddleware())
	{
		products := api.Group("/products")
		{
			products.GET("", GetProducts)
			products.GET("/:id", GetProduct)
			products.POST("/refresh", RefreshProducts)
		}
		api.GET("/intents", GetIntents)

		session := api.Group("/session")
		{
			session.GET("", GetSession)
			session.POST("/navigate", Navigate)
			session.GET("/events", SessionEvents)
		}

		cart := api.Group("/cart")
		{
			cart.GET("", GetCart)
			cart.DELETE("", ClearCart)
			cart.POST("/items", AddCartItem)
			cart.DELETE("/items/:cart_id", RemoveCartItem)
			cart.POST("/buy-now", BuyNow)
		}

		checkout := api.Group("/checkout")
		{
			checkout.GET("", GetCheckout)
			checkout.POST("/open", OpenCheckout)
			checkout.PUT("/shipping", UpdateShipping)
			checkout.POST("/continue", ContinueCheckout)
			checkout.POST("/back", BackCheckout)
			checkout.POST("/complete", CompleteCheckout)
			checkout.POST("/exit", ExitCheckout)
		}

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/signup", SignUp)
			authGroup.POST("/login", Login)
			authGroup.POST("/logout", Logout)
			authGroup.POST("/session", ResolveSession)
		}

		profile := api.Group("/profile")
		{
			profile.GET("", GetProfile)
			profile.PUT("", SaveProfile)
			profile.POST("/onboarding", CompleteOnboarding)
			profile.POST("/editor", SetProfileEditor)
		}

		api.POST("/muse", RateLimit(museLimiter), Suggest)

		admin := api.Group("/admin")
		admin.Use(AdminMiddleware())
		{
			admin.GET("/products", AdminListProducts)
			admin.POST("/products", AdminCreateProduct)
			admin.PUT("/products/:id", AdminUpdateProduct)
			admin.DELETE("/products/:id", AdminDeleteProduct)
			admin.POST("/products/:id/fields", AdminAddField)
			admin.DELETE("/products/:id/fields/:name", AdminRemoveField)
			admin.POST("/upload", AdminUpload)
		}
	}

	return router
}

// NewHandler wraps the router in the CORS policy for the browser UI.
func NewHandler(allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", SessionHeader, AdminKeyHeader},
		ExposedHeaders:   []string{SessionHeader},
		AllowCredentials: true,
	})
	return c.Handler(NewRouter())
}
