package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stickerhub/sticker-shop-api/models"
	"github.com/stickerhub/sticker-shop-api/services"
)

// SubmitCustomSticker handles POST /api/v1/custom-stickers - submits a sticker design for approval.
// Expects multipart/form-data with name, description and an image file.
func SubmitCustomSticker(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Sticker name is required")
		return
	}
	if len(name) > 100 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Sticker name must be at most 100 characters")
		return
	}
	description := c.PostForm("description")
	if len(description) > 255 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Description must be at most 255 characters")
		return
	}

	imageKey, ok := uploadFormImage(c, "image", true)
	if !ok {
		return
	}

	request, err := approvalService().Submit(c.Request.Context(), user.ID, services.SubmitRequest{
		Name:        name,
		Description: description,
		ImageKey:    imageKey,
	})
	if err != nil {
		discardImage(c.Request.Context(), imageKey)
		respondServiceError(c, err)
		return
	}

	request.ImageURL = imageURL(c.Request.Context(), request.ImageKey)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    request,
	})
}

// ListMyCustomStickers handles GET /api/v1/custom-stickers - lists the current user's requests
func ListMyCustomStickers(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	requests, err := approvalService().ListForUser(c.Request.Context(), user.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	withCustomStickerImages(c.Request.Context(), requests)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    requests,
	})
}

// AdminListCustomStickers handles GET /api/v1/admin/custom-stickers - lists all requests.
// Optional query parameter: status.
func AdminListCustomStickers(c *gin.Context) {
	requests, err := approvalService().List(c.Request.Context(), strings.ToLower(c.Query("status")))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	withCustomStickerImages(c.Request.Context(), requests)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    requests,
	})
}

// ApproveCustomSticker handles POST /api/v1/admin/custom-stickers/:id/approve
func ApproveCustomSticker(c *gin.Context) {
	moderateCustomSticker(c, (*services.ApprovalService).Approve)
}

// DenyCustomSticker handles POST /api/v1/admin/custom-stickers/:id/deny
func DenyCustomSticker(c *gin.Context) {
	moderateCustomSticker(c, (*services.ApprovalService).Deny)
}

// AddCustomStickerToShop handles POST /api/v1/admin/custom-stickers/:id/add-to-shop
func AddCustomStickerToShop(c *gin.Context) {
	moderateCustomSticker(c, (*services.ApprovalService).AddToShop)
}

type moderation func(*services.ApprovalService, context.Context, uint) (*models.CustomSticker, error)

func moderateCustomSticker(c *gin.Context, action moderation) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	request, err := action(approvalService(), c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	requests := []models.CustomSticker{*request}
	withCustomStickerImages(c.Request.Context(), requests)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    requests[0],
	})
}
