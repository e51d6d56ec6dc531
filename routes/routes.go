package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/stickerhub/sticker-shop-api/config"
	"github.com/stickerhub/sticker-shop-api/controllers"
	"github.com/stickerhub/sticker-shop-api/middleware"
)

// RegisterAPI mounts every shop endpoint on the /api/v1 group
func RegisterAPI(v1 *gin.RouterGroup, cfg *config.Config) {
	tokenAuth := middleware.EnsureValidToken(cfg)

	// Public routes
	auth := v1.Group("/auth")
	{
		auth.POST("/signup", controllers.Signup)
		auth.POST("/login", controllers.Login)
	}
	v1.GET("/stickers", controllers.ListStickers)
	v1.GET("/stickers/:id", controllers.GetSticker)
	v1.GET("/categories", controllers.ListCategories)
	v1.GET("/categories/:name/stickers", controllers.ListCategoryStickers)
	v1.GET("/uploads/:filename", controllers.GetUploadedImage)

	// Profile creation only needs a valid token
	v1.POST("/users", tokenAuth, controllers.CreateUser)

	// The payment gateway redirects the browser here without a bearer token;
	// the checkout session or return token in the query authenticates it
	checkout := v1.Group("/checkout", middleware.OptionalToken(cfg), middleware.LoadCurrentUserIfPresent())
	{
		checkout.GET("/success", controllers.CheckoutSuccess)
		checkout.GET("/cancel", controllers.CheckoutCancel)
	}

	// Authenticated routes
	authed := v1.Group("", tokenAuth, middleware.LoadCurrentUser())
	{
		authed.GET("/users/me", controllers.GetMyProfile)

		authed.GET("/cart", controllers.GetCart)
		authed.POST("/cart/items", controllers.AddCartItem)
		authed.DELETE("/cart/items/:id", controllers.RemoveCartItem)
		authed.PATCH("/cart/items/:id", controllers.UpdateCartItem)

		authed.POST("/checkout", controllers.Checkout)

		authed.GET("/orders", controllers.ListMyOrders)
		authed.GET("/orders/:id", controllers.GetOrder)
		authed.POST("/orders/:id/messages", controllers.SendMessage)
		authed.GET("/orders/:id/messages", controllers.ListMessages)

		authed.POST("/custom-stickers", controllers.SubmitCustomSticker)
		authed.GET("/custom-stickers", controllers.ListMyCustomStickers)
	}

	// Admin routes
	admin := authed.Group("/admin", middleware.RequireAdmin())
	{
		admin.GET("/orders", controllers.AdminListOrders)
		admin.PATCH("/orders/:id/status", controllers.UpdateOrderStatus)
		admin.DELETE("/orders/:id", controllers.DeleteOrder)

		admin.GET("/stickers", controllers.AdminListStickers)
		admin.POST("/stickers", controllers.CreateSticker)
		admin.PUT("/stickers/:id", controllers.UpdateSticker)
		admin.POST("/stickers/:id/deactivate", controllers.DeactivateSticker)
		admin.POST("/stickers/:id/activate", controllers.ActivateSticker)
		admin.DELETE("/stickers/:id", controllers.DeleteSticker)

		admin.POST("/categories", controllers.CreateCategory)
		admin.DELETE("/categories/:id", controllers.DeleteCategory)

		admin.GET("/custom-stickers", controllers.AdminListCustomStickers)
		admin.POST("/custom-stickers/:id/approve", controllers.ApproveCustomSticker)
		admin.POST("/custom-stickers/:id/deny", controllers.DenyCustomSticker)
		admin.POST("/custom-stickers/:id/add-to-shop", controllers.AddCustomStickerToShop)
	}
}
