package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stickerhub/sticker-shop-api/middleware"
	"github.com/stickerhub/sticker-shop-api/models"
	"github.com/stickerhub/sticker-shop-api/services"
)

// CheckoutRequest represents the request body for checking out the cart
type CheckoutRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required"`
	FullName      string `json:"full_name" binding:"omitempty,max=100"`
	Email         string `json:"email" binding:"omitempty,email"`
	PickupDate    string `json:"pickup_date"`
	PickupTime    string `json:"pickup_time"`
}

// Checkout handles POST /api/v1/checkout - places the cart as an order.
// Stripe checkouts return the hosted payment page in redirect_url.
func Checkout(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	if req.Email == "" {
		req.Email = user.Email
	}

	result, err := orderService().Checkout(c.Request.Context(), user.ID, services.CheckoutRequest{
		PaymentMethod: req.PaymentMethod,
		FullName:      req.FullName,
		Email:         req.Email,
		PickupDate:    req.PickupDate,
		PickupTime:    req.PickupTime,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	withOrderImages(c.Request.Context(), result.Order)
	data := gin.H{"order": result.Order}
	if result.RedirectURL != "" {
		data["redirect_url"] = result.RedirectURL
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    data,
	})
}

// CheckoutSuccess handles GET /api/v1/checkout/success?order_id=&session_id= - confirms the payment
// of an order and commits its stock. Signed-in users may confirm their own orders; the
// gateway's redirect is matched on the order's checkout session instead.
func CheckoutSuccess(c *gin.Context) {
	orderID, ok := parseIDQuery(c, "order_id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	sessionID := c.Query("session_id")
	var (
		result *services.OrderResult
		err    error
	)
	if user, userErr := middleware.CurrentUser(c); userErr == nil {
		result, err = orderService().ConfirmPayment(ctx, user.ID, orderID, sessionID)
	} else {
		result, err = orderService().ConfirmGatewayPayment(ctx, orderID, sessionID)
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}

	withOrderImages(c.Request.Context(), result.Order)
	respondWithWarnings(c, result.Order, result.Warnings)
}

// CheckoutCancel handles GET /api/v1/checkout/cancel?order_id=&token= - abandons a checkout.
// Without a signed-in user the return token issued at checkout is required.
func CheckoutCancel(c *gin.Context) {
	orderID, ok := parseIDQuery(c, "order_id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var (
		order *models.Order
		err   error
	)
	if user, userErr := middleware.CurrentUser(c); userErr == nil {
		order, err = orderService().CancelPayment(ctx, user.ID, orderID)
	} else {
		order, err = orderService().CancelGatewayPayment(ctx, orderID, c.Query("token"))
	}
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
