package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stickerhub/sticker-shop-api/services"
)

// SignupRequest represents the request body for creating a local account
type SignupRequest struct {
	Username        string `json:"username" binding:"required,max=25"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"password_confirm" binding:"required"`
}

// LoginRequest represents the request body for logging in
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Signup handles POST /api/v1/auth/signup - creates a local account and returns a token
func Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	session, err := authService().Signup(c.Request.Context(), services.SignupRequest{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sessionResponse(session))
}

// Login handles POST /api/v1/auth/login - exchanges email and password for a token
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	session, err := authService().Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessionResponse(session))
}

func sessionResponse(session *services.Session) gin.H {
	return gin.H{
		"success": true,
		"data": gin.H{
			"user":       session.User,
			"token":      session.Token,
			"token_type": "Bearer",
			"expires_at": session.ExpiresAt,
		},
	}
}
