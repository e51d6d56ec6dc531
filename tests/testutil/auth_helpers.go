package testutil

import (
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/stickerhub/sticker-shop-api/middleware"
	"github.com/stickerhub/sticker-shop-api/models"
)

// MockValidatedClaims creates a mock ValidatedClaims for testing
func MockValidatedClaims(subject, issuer string) *validator.ValidatedClaims {
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Issuer:  issuer,
			Subject: subject,
		},
	}
}

// MockAuthMiddleware sets up the context exactly as EnsureValidToken does for a valid token
func MockAuthMiddleware(subject, accessToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, subject)
		c.Set(middleware.AccessTokenKey, accessToken)
		c.Set(middleware.ClaimsKey, MockValidatedClaims(subject, "sticker-shop-api"))
		c.Next()
	}
}

// AuthenticatedAs returns the middleware chain of a protected route for an existing user
func AuthenticatedAs(user *models.User) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		MockAuthMiddleware(user.Subject, "mock-token"),
		middleware.LoadCurrentUser(),
	}
}
