package controllers

import (
	"context"
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stickerhub/sticker-shop-api/middleware"
	"github.com/stickerhub/sticker-shop-api/models"
	"github.com/stickerhub/sticker-shop-api/services"
	"github.com/stickerhub/sticker-shop-api/utils"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// respondError writes the standard error envelope
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondValidationError reports a request body that failed binding
func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

// respondServiceError maps an error returned by a service to a status code and envelope
func respondServiceError(c *gin.Context, err error) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		respondError(c, statusForKind(svcErr.Kind), svcErr.Code, svcErr.Message)
		return
	}

	var uploadErr *utils.FileUploadError
	if errors.As(err, &uploadErr) {
		respondError(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message)
		return
	}

	log.Printf("Request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
}

func statusForKind(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindBusinessRule:
		return http.StatusUnprocessableEntity
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindExternal:
		return http.StatusBadGateway
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindUnauthenticated:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// respondWithWarnings writes a success envelope, adding warnings when side effects failed
func respondWithWarnings(c *gin.Context, data interface{}, warnings []string) {
	body := gin.H{
		"success": true,
		"data":    data,
	}
	if len(warnings) > 0 {
		body["warnings"] = warnings
	}
	c.JSON(http.StatusOK, body)
}

// requireUser returns the user loaded by middleware.LoadCurrentUser
func requireUser(c *gin.Context) (*models.User, bool) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return nil, false
	}
	return user, true
}

// parseIDParam reads a positive numeric path parameter
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// parseIDQuery reads a positive numeric query parameter
func parseIDQuery(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", name+" is required")
		return 0, false
	}
	return uint(id), true
}

// pageParams reads page and limit, falling back to page 1 and the default limit
func pageParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if err != nil || limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func pagination(page, limit int, total int64) gin.H {
	return gin.H{
		"page":       page,
		"limit":      limit,
		"total":      total,
		"totalPages": int(math.Ceil(float64(total) / float64(limit))),
	}
}

// imageURL resolves a storage key through the configured image service.
// Failures are logged and leave the URL empty.
func imageURL(ctx context.Context, key string) string {
	images := services.GetImageService()
	if images == nil || key == "" {
		return ""
	}
	url, err := images.GetImageURL(ctx, key)
	if err != nil {
		log.Printf("Failed to resolve image URL for %s: %v", key, err)
		return ""
	}
	return url
}

func withStickerImage(ctx context.Context, sticker *models.Sticker) {
	if sticker != nil {
		sticker.ImageURL = imageURL(ctx, sticker.ImageKey)
	}
}

func withStickerImages(ctx context.Context, stickers []models.Sticker) {
	for i := range stickers {
		withStickerImage(ctx, &stickers[i])
	}
}

func withOrderImages(ctx context.Context, order *models.Order) {
	for i := range order.Items {
		withStickerImage(ctx, order.Items[i].Sticker)
	}
}

func withCustomStickerImages(ctx context.Context, requests []models.CustomSticker) {
	for i := range requests {
		requests[i].ImageURL = imageURL(ctx, requests[i].ImageKey)
		withStickerImage(ctx, requests[i].Sticker)
	}
}

// uploadFormImage stores the image sent in a multipart field and returns its storage key.
// An absent optional image returns an empty key.
func uploadFormImage(c *gin.Context, field string, required bool) (string, bool) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		if !required && errors.Is(err, http.ErrMissingFile) {
			return "", true
		}
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "An image file is required in the '"+field+"' field")
		return "", false
	}

	images := services.GetImageService()
	if images == nil {
		respondError(c, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Image storage is not configured")
		return "", false
	}

	key, err := images.UploadImage(c.Request.Context(), fileHeader)
	if err != nil {
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			respondError(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message)
			return "", false
		}
		log.Printf("Failed to upload image %s: %v", fileHeader.Filename, err)
		respondError(c, http.StatusBadGateway, services.ErrStorage.Code, services.ErrStorage.Message)
		return "", false
	}
	return key, true
}

// discardImage removes an image that is no longer referenced. Failures are logged only.
func discardImage(ctx context.Context, key string) {
	images := services.GetImageService()
	if images == nil || key == "" {
		return
	}
	if err := images.DeleteImage(ctx, key); err != nil {
		log.Printf("Failed to delete image %s: %v", key, err)
	}
}
