package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AddCartItemRequest represents the request body for adding a sticker to the cart
type AddCartItemRequest struct {
	StickerID uint `json:"sticker_id" binding:"required"`
}

// UpdateCartItemRequest represents the request body for changing a line's quantity
type UpdateCartItemRequest struct {
	Action string `json:"action" binding:"required,oneof=increase decrease"`
}

// GetCart handles GET /api/v1/cart - returns the current user's open cart
func GetCart(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	cart, err := cartService().GetCart(c.Request.Context(), user.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	withOrderImages(c.Request.Context(), cart)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    cart,
	})
}

// AddCartItem handles POST /api/v1/cart/items - adds one unit of a sticker to the cart
func AddCartItem(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	cart, err := cartService().AddToCart(c.Request.Context(), user.ID, req.StickerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	withOrderImages(c.Request.Context(), cart)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    cart,
	})
}

// RemoveCartItem handles DELETE /api/v1/cart/items/:id - removes a line from the cart
func RemoveCartItem(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	cart, err := cartService().RemoveFromCart(c.Request.Context(), user.ID, itemID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	withOrderImages(c.Request.Context(), cart)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    cart,
	})
}

// UpdateCartItem handles PATCH /api/v1/cart/items/:id - increases or decreases a line by one
func UpdateCartItem(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	cart, err := cartService().UpdateQuantity(c.Request.Context(), user.ID, itemID, req.Action)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	withOrderImages(c.Request.Context(), cart)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    cart,
	})
}
