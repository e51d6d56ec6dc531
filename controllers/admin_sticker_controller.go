package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stickerhub/sticker-shop-api/services"
)

// CreateCategoryRequest represents the request body for creating a category
type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required,max=50"`
}

// AdminListStickers handles GET /api/v1/admin/stickers - lists all stickers including inactive ones
func AdminListStickers(c *gin.Context) {
	stickers, err := catalogService().ListStickers(c.Request.Context(), services.StickerFilter{
		Search:          c.Query("search"),
		Category:        c.Query("category"),
		IncludeInactive: true,
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

// CreateSticker handles POST /api/v1/admin/stickers - adds a sticker to the catalog.
// Expects multipart/form-data with name, price, category, description, stock, is_active and image.
func CreateSticker(c *gin.Context) {
	input := services.StickerInput{
		Name:        strings.TrimSpace(c.PostForm("name")),
		Category:    strings.TrimSpace(c.PostForm("category")),
		Description: c.PostForm("description"),
		IsActive:    true,
	}
	if input.Name == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Sticker name is required")
		return
	}
	if input.Category == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Category is required")
		return
	}

	price, ok := formPrice(c)
	if !ok {
		return
	}
	if price == nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Price is required")
		return
	}
	input.Price = *price

	stock, ok := formStock(c)
	if !ok {
		return
	}
	if stock != nil {
		input.Stock = *stock
	}

	if raw := c.PostForm("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "is_active must be true or false")
			return
		}
		input.IsActive = active
	}

	imageKey, ok := uploadFormImage(c, "image", true)
	if !ok {
		return
	}
	input.ImageKey = imageKey

	sticker, err := catalogService().CreateSticker(c.Request.Context(), input)
	if err != nil {
		discardImage(c.Request.Context(), imageKey)
		respondServiceError(c, err)
		return
	}

	withStickerImage(c.Request.Context(), sticker)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    sticker,
	})
}

// UpdateSticker handles PUT /api/v1/admin/stickers/:id - partially updates a sticker.
// Only the multipart fields that are present are changed. A new image replaces the old one.
func UpdateSticker(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var update services.StickerUpdate
	if name, present := c.GetPostForm("name"); present {
		update.Name = &name
	}
	if category, present := c.GetPostForm("category"); present {
		category = strings.TrimSpace(category)
		update.Category = &category
	}
	if description, present := c.GetPostForm("description"); present {
		update.Description = &description
	}
	if update.Price, ok = formPrice(c); !ok {
		return
	}
	if update.Stock, ok = formStock(c); !ok {
		return
	}

	imageKey, ok := uploadFormImage(c, "image", false)
	if !ok {
		return
	}
	if imageKey != "" {
		update.ImageKey = &imageKey
	}

	sticker, oldImageKey, err := catalogService().UpdateSticker(c.Request.Context(), id, update)
	if err != nil {
		discardImage(c.Request.Context(), imageKey)
		respondServiceError(c, err)
		return
	}
	discardImage(c.Request.Context(), oldImageKey)

	withStickerImage(c.Request.Context(), sticker)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    sticker,
	})
}

// DeactivateSticker handles POST /api/v1/admin/stickers/:id/deactivate - hides a sticker from the shop
func DeactivateSticker(c *gin.Context) {
	setStickerActive(c, false)
}

// ActivateSticker handles POST /api/v1/admin/stickers/:id/activate - shows a sticker in the shop again
func ActivateSticker(c *gin.Context) {
	setStickerActive(c, true)
}

func setStickerActive(c *gin.Context, active bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	sticker, err := catalogService().SetStickerActive(c.Request.Context(), id, active)
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

// DeleteSticker handles DELETE /api/v1/admin/stickers/:id - deletes a sticker without order history,
// deactivates it otherwise
func DeleteSticker(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	deleted, imageKey, err := catalogService().DeleteSticker(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	message := "Sticker has order history and was deactivated"
	if deleted {
		discardImage(c.Request.Context(), imageKey)
		message = "Sticker deleted"
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"id":      id,
			"deleted": deleted,
		},
		"message": message,
	})
}

// CreateCategory handles POST /api/v1/admin/categories - creates a category
func CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	category, err := catalogService().CreateCategory(c.Request.Context(), req.Name)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    category,
	})
}

// DeleteCategory handles DELETE /api/v1/admin/categories/:id - deletes an unused category
func DeleteCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := catalogService().DeleteCategory(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Category deleted",
	})
}

// formPrice parses the optional price field. A missing field returns nil.
func formPrice(c *gin.Context) (*decimal.Decimal, bool) {
	raw, present := c.GetPostForm("price")
	if !present {
		return nil, true
	}
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		respondError(c, http.StatusBadRequest, services.ErrInvalidPrice.Code, "Price must be a decimal amount such as 2.50")
		return nil, false
	}
	return &price, true
}

// formStock parses the optional stock field. A missing field returns nil.
func formStock(c *gin.Context) (*int, bool) {
	raw, present := c.GetPostForm("stock")
	if !present {
		return nil, true
	}
	stock, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		respondError(c, http.StatusBadRequest, services.ErrInvalidStock.Code, "Stock must be a whole number")
		return nil, false
	}
	return &stock, true
}
