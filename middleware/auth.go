package middleware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/stickerhub/sticker-shop-api/config"
	"github.com/stickerhub/sticker-shop-api/models"
	"gorm.io/gorm"
)

// Gin context keys set by the auth middleware
const (
	UserIDKey      = "user_id"
	AccessTokenKey = "access_token"
	ClaimsKey      = "validated_claims"
	CurrentUserKey = "current_user"
)

// NewTokenValidator builds the bearer token validator: RS256 against the Auth0 JWKS
// when an Auth0 domain is configured, HS256 with the local secret otherwise.
func NewTokenValidator(cfg *config.Config) (*validator.Validator, error) {
	if cfg.UsesAuth0() {
		issuerURL, err := url.Parse("https://" + cfg.Auth0Domain + "/")
		if err != nil {
			return nil, fmt.Errorf("failed to parse the issuer url: %w", err)
		}

		provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)
		return validator.New(
			provider.KeyFunc,
			validator.RS256,
			issuerURL.String(),
			[]string{cfg.Auth0Audience},
			validator.WithAllowedClockSkew(time.Minute),
		)
	}

	secret := []byte(cfg.JWTSecret)
	return validator.New(
		func(context.Context) (interface{}, error) { return secret, nil },
		validator.HS256,
		cfg.JWTIssuer,
		[]string{cfg.Auth0Audience},
		validator.WithAllowedClockSkew(time.Minute),
	)
}

// EnsureValidToken is a middleware that will check the validity of our JWT.
func EnsureValidToken(cfg *config.Config) gin.HandlerFunc {
	return newTokenMiddleware(cfg, false)
}

// OptionalToken validates the bearer token when one is sent and lets anonymous
// requests through without claims. An invalid token is still rejected.
func OptionalToken(cfg *config.Config) gin.HandlerFunc {
	return newTokenMiddleware(cfg, true)
}

func newTokenMiddleware(cfg *config.Config, credentialsOptional bool) gin.HandlerFunc {
	jwtValidator, err := NewTokenValidator(cfg)
	if err != nil {
		log.Fatalf("Failed to set up the jwt validator: %v", err)
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("Encountered error while validating JWT: %v", err)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		if _, writeErr := w.Write([]byte(`{"success":false,"error":{"code":"INVALID_TOKEN","message":"Failed to validate JWT."}}`)); writeErr != nil {
			log.Printf("Failed to write error response: %v", writeErr)
		}
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
		jwtmiddleware.WithCredentialsOptional(credentialsOptional),
	)

	return func(c *gin.Context) {
		validated := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			validated = true
			token, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
			if !ok {
				// Anonymous request on an optional route
				c.Request = r
				c.Next()
				return
			}

			// The raw token is kept for calls to Auth0's /userinfo
			rawToken, _ := jwtmiddleware.AuthHeaderTokenExtractor(r)

			c.Set(UserIDKey, token.RegisteredClaims.Subject)
			c.Set(AccessTokenKey, rawToken)
			c.Set(ClaimsKey, token)
			c.Request = r

			c.Next()
		}

		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
		if !validated {
			// The error handler already wrote the response
			c.Abort()
		}
	}
}

// GetUserID extracts the token subject from the Gin context
func GetUserID(c *gin.Context) (string, error) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return "", &AuthError{Code: "MISSING_USER_ID", Message: "User ID not found in context"}
	}

	userIDStr, ok := userID.(string)
	if !ok {
		return "", &AuthError{Code: "INVALID_USER_ID", Message: "User ID is not a string"}
	}

	return userIDStr, nil
}

// GetAccessToken extracts the raw bearer token from the Gin context
func GetAccessToken(c *gin.Context) (string, error) {
	token, exists := c.Get(AccessTokenKey)
	if !exists {
		return "", &AuthError{Code: "MISSING_TOKEN", Message: "Access token not found in context"}
	}

	tokenStr, ok := token.(string)
	if !ok || tokenStr == "" {
		return "", &AuthError{Code: "MISSING_TOKEN", Message: "Access token not found in context"}
	}

	return tokenStr, nil
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// LoadCurrentUser resolves the token subject to a user and stores it in the Gin context.
// Requests from subjects without a profile are rejected.
func LoadCurrentUser() gin.HandlerFunc {
	return loadCurrentUser(false)
}

// LoadCurrentUserIfPresent is LoadCurrentUser for routes behind OptionalToken:
// anonymous requests continue without a current user.
func LoadCurrentUserIfPresent() gin.HandlerFunc {
	return loadCurrentUser(true)
}

func loadCurrentUser(optional bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, err := GetUserID(c)
		if err != nil {
			if optional {
				c.Next()
				return
			}
			abortWithAuthError(c, http.StatusUnauthorized, ErrUnauthenticated)
			return
		}

		var user models.User
		if err := config.GetDB().WithContext(c.Request.Context()).Where("subject = ?", subject).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				abortWithAuthError(c, http.StatusNotFound, &AuthError{
					Code:    "USER_NOT_FOUND",
					Message: "User profile not found. Please create a profile first.",
				})
				return
			}
			log.Printf("Failed to load user for subject %s: %v", subject, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": "Failed to load user",
				},
			})
			return
		}

		c.Set(CurrentUserKey, &user)
		c.Next()
	}
}

// CurrentUser returns the user stored by LoadCurrentUser
func CurrentUser(c *gin.Context) (*models.User, error) {
	value, exists := c.Get(CurrentUserKey)
	if !exists {
		return nil, ErrUnauthenticated
	}
	user, ok := value.(*models.User)
	if !ok || user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// RequireAdmin is a middleware that only lets administrators through.
// It must run after LoadCurrentUser.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := CurrentUser(c)
		if err != nil {
			abortWithAuthError(c, http.StatusUnauthorized, ErrUnauthenticated)
			return
		}
		if !user.IsAdmin {
			abortWithAuthError(c, http.StatusForbidden, ErrForbidden)
			return
		}
		c.Next()
	}
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

var (
	ErrUnauthenticated = &AuthError{Code: "UNAUTHENTICATED", Message: "Authentication required"}
	ErrForbidden       = &AuthError{Code: "FORBIDDEN", Message: "Admin access required"}
)

func abortWithAuthError(c *gin.Context, status int, err *AuthError) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    err.Code,
			"message": err.Message,
		},
	})
}
