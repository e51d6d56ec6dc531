package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stickerhub/sticker-shop-api/services"
)

// ListStickers handles GET /api/v1/stickers - lists active stickers.
// Optional query parameters: search (name substring) and category (category name).
func ListStickers(c *gin.Context) {
	stickers, err := catalogService().ListStickers(c.Request.Context(), services.StickerFilter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	withStickerImages(c.Request.Context(), stickers)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stickers,
	})
}

// GetSticker handles GET /api/v1/stickers/:id - gets an active sticker
func GetSticker(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	sticker, err := catalogService().GetSticker(c.Request.Context(), id, false)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	withStickerImage(c.Request.Context(), sticker)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    sticker,
	})
}

// ListCategories handles GET /api/v1/categories - lists all categories
func ListCategories(c *gin.Context) {
	categories, err := catalogService().ListCategories(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    categories,
	})
}

// ListCategoryStickers handles GET /api/v1/categories/:name/stickers - lists a category's active stickers
func ListCategoryStickers(c *gin.Context) {
	stickers, err := catalogService().ListStickers(c.Request.Context(), services.StickerFilter{
		Category: c.Param("name"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	withStickerImages(c.Request.Context(), stickers)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stickers,
	})
}
