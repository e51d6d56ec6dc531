package controllers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stickerhub/sticker-shop-api/config"
	"github.com/stickerhub/sticker-shop-api/models"
)

// SendMessageRequest represents the request body for sending a message
type SendMessageRequest struct {
	Text string `json:"text" binding:"required,max=2000"`
}

// SendMessage handles POST /api/v1/orders/:id/messages - sends a message on an order.
// The order owner and administrators can take part in the conversation.
func SendMessage(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	order, ok := orderForMessages(c, user)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Message text cannot be empty")
		return
	}

	db := config.GetDB()
	message := models.Message{
		OrderID:  order.ID,
		SenderID: user.ID,
		Kind:     models.MessageKindChat,
		Text:     text,
	}
	if err := db.WithContext(c.Request.Context()).Create(&message).Error; err != nil {
		log.Printf("Failed to create message on order %d: %v", order.ID, err)
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to send message")
		return
	}
	message.Sender = *user

	c.PureJSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    message,
	})
}

// ListMessages handles GET /api/v1/orders/:id/messages - lists the conversation of an order, oldest first
func ListMessages(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	order, ok := orderForMessages(c, user)
	if !ok {
		return
	}

	db := config.GetDB()
	messages := []models.Message{}
	if err := db.WithContext(c.Request.Context()).
		Where("order_id = ?", order.ID).
		Preload("Sender").
		Order("created_at ASC, id ASC").
		Find(&messages).Error; err != nil {
		log.Printf("Failed to list messages of order %d: %v", order.ID, err)
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch messages")
		return
	}

	c.PureJSON(http.StatusOK, gin.H{
		"success": true,
		"data":    messages,
	})
}
