package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stickerhub/sticker-shop-api/models"
	"github.com/stickerhub/sticker-shop-api/services"
)

// UpdateOrderStatusRequest represents the request body for an administrator's status change
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListMyOrders handles GET /api/v1/orders - lists the current user's placed orders with pagination
func ListMyOrders(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	listOrders(c, services.OrderQuery{UserID: &user.ID, Status: c.Query("status")})
}

// AdminListOrders handles GET /api/v1/admin/orders - lists all placed orders with pagination.
// Optional query parameter: status.
func AdminListOrders(c *gin.Context) {
	listOrders(c, services.OrderQuery{Status: strings.ToLower(c.Query("status"))})
}

func listOrders(c *gin.Context, query services.OrderQuery) {
	query.Page, query.Limit = pageParams(c)

	orders, total, err := orderService().ListOrders(c.Request.Context(), query)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	for i := range orders {
		withOrderImages(c.Request.Context(), &orders[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       orders,
		"pagination": pagination(query.Page, query.Limit, total),
	})
}

// GetOrder handles GET /api/v1/orders/:id - gets an order of the current user, or any order for administrators
func GetOrder(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := orderService().GetOrder(c.Request.Context(), orderID, user)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	withOrderImages(c.Request.Context(), order)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// UpdateOrderStatus handles PATCH /api/v1/admin/orders/:id/status - moves an order to a new status
func UpdateOrderStatus(c *gin.Context) {
	admin, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	result, err := orderService().UpdateStatus(c.Request.Context(), admin.ID, orderID, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	withOrderImages(c.Request.Context(), result.Order)
	respondWithWarnings(c, result.Order, result.Warnings)
}

// DeleteOrder handles DELETE /api/v1/admin/orders/:id - deletes an order and everything attached to it
func DeleteOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := orderService().DeleteOrder(c.Request.Context(), orderID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order deleted",
	})
}

// orderForMessages loads an order the user may read and write messages on
func orderForMessages(c *gin.Context, user *models.User) (*models.Order, bool) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}

	order, err := orderService().GetOrder(c.Request.Context(), orderID, user)
	if err != nil {
		respondServiceError(c, err)
		return nil, false
	}
	return order, true
}
