package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stickerhub/sticker-shop-api/config"
	"github.com/stickerhub/sticker-shop-api/middleware"
	"github.com/stickerhub/sticker-shop-api/services"
)

// CreateUserRequest represents the optional request body for creating a profile.
// Fields left empty are taken from Auth0's /userinfo when Auth0 is configured.
type CreateUserRequest struct {
	Username string `json:"username" binding:"omitempty,max=25"`
	Email    string `json:"email" binding:"omitempty,email"`
}

// CreateUser handles POST /api/v1/users - creates the profile of an authenticated subject
func CreateUser(c *gin.Context) {
	// Get the token subject from the validated JWT
	subject, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user ID from token")
		return
	}

	var req CreateUserRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
	}

	cfg := config.GetConfig()
	if cfg != nil && cfg.UsesAuth0() && (req.Username == "" || req.Email == "") {
		// Get the access token to call Auth0's /userinfo endpoint
		accessToken, err := middleware.GetAccessToken(c)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "MISSING_TOKEN", "Access token not found")
			return
		}

		userInfo, err := services.NewAuth0Service(cfg).GetUserInfo(c.Request.Context(), accessToken)
		if err != nil {
			respondError(c, http.StatusBadGateway, "AUTH0_ERROR", "Failed to fetch user information from Auth0")
			return
		}

		if req.Email == "" {
			req.Email = userInfo.Email
		}
		if req.Username == "" {
			req.Username = userInfo.Nickname
		}
		if req.Username == "" {
			req.Username = userInfo.Name
		}
	}

	if req.Email == "" {
		respondError(c, http.StatusBadRequest, "MISSING_EMAIL", "Email is required")
		return
	}
	if req.Username == "" {
		respondError(c, http.StatusBadRequest, "MISSING_USERNAME", "Username is required")
		return
	}

	user, err := authService().CreateProfile(c.Request.Context(), services.ProfileRequest{
		Subject:  subject,
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    user,
	})
}

// GetMyProfile handles GET /api/v1/users/me - gets current user's profile
func GetMyProfile(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}
