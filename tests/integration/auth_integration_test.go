package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stickerhub/sticker-shop-api/config"
	"github.com/stickerhub/sticker-shop-api/models"
	"github.com/stickerhub/sticker-shop-api/services"
	"github.com/stretchr/testify/suite"
)

// AuthIntegrationTestSuite defines the test suite for auth integration tests
type AuthIntegrationTestSuite struct {
	shopSuite
}

// signToken signs arbitrary claims with secret
func (s *AuthIntegrationTestSuite) signToken(secret string, claims jwt.RegisteredClaims) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	s.Require().NoError(err)
	return token
}

func (s *AuthIntegrationTestSuite) claimsFor(user *models.User) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Issuer:    s.cfg.JWTIssuer,
		Subject:   user.Subject,
		Audience:  jwt.ClaimStrings{s.cfg.Auth0Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
}

// TestPublicEndpoint tests that public endpoints work without authentication
func (s *AuthIntegrationTestSuite) TestPublicEndpoint() {
	for _, path := range []string{"/api/v1/stickers", "/api/v1/categories"} {
		w := s.request(http.MethodGet, path, "", nil)

		s.Equal(http.StatusOK, w.Code, path)
		s.Equal(true, s.decode(w)["success"])
	}
}

// TestProtectedEndpointWithoutToken tests that protected endpoints reject requests without a token
func (s *AuthIntegrationTestSuite) TestProtectedEndpointWithoutToken() {
	for _, path := range []string{"/api/v1/cart", "/api/v1/orders", "/api/v1/users/me", "/api/v1/admin/orders"} {
		w := s.request(http.MethodGet, path, "", nil)

		s.Equal(http.StatusUnauthorized, w.Code, path)
		s.Equal("INVALID_TOKEN", s.errorCode(w))
	}
}

// TestRejectedTokens tests the tokens the validator must refuse
func (s *AuthIntegrationTestSuite) TestRejectedTokens() {
	user := s.createUser("alice", false)

	expired := s.claimsFor(user)
	expired.IssuedAt = jwt.NewNumericDate(time.Now().Add(-2 * time.Hour))
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	wrongAudience := s.claimsFor(user)
	wrongAudience.Audience = jwt.ClaimStrings{"another-api"}

	wrongIssuer := s.claimsFor(user)
	wrongIssuer.Issuer = "someone-else"

	tokens := map[string]string{
		"malformed":      "not-a-jwt",
		"wrong secret":   s.signToken("another-secret", s.claimsFor(user)),
		"expired":        s.signToken(s.cfg.JWTSecret, expired),
		"wrong audience": s.signToken(s.cfg.JWTSecret, wrongAudience),
		"wrong issuer":   s.signToken(s.cfg.JWTSecret, wrongIssuer),
	}

	for name, token := range tokens {
		w := s.request(http.MethodGet, "/api/v1/users/me", token, nil)

		s.Equal(http.StatusUnauthorized, w.Code, name)
		s.Equal("INVALID_TOKEN", s.errorCode(w), name)
	}
}

// TestValidTokenWithoutProfile tests that a valid token for an unknown subject needs a profile first
func (s *AuthIntegrationTestSuite) TestValidTokenWithoutProfile() {
	token := s.tokenFor(&models.User{Subject: "auth0|unknown"})

	w := s.request(http.MethodGet, "/api/v1/users/me", token, nil)

	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("USER_NOT_FOUND", s.errorCode(w))
}

// TestSignupLoginAndProfile tests the local account flow end to end
func (s *AuthIntegrationTestSuite) TestSignupLoginAndProfile() {
	w := s.request(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"username":         "alice",
		"email":            "alice@example.com",
		"password":         "correct-horse",
		"password_confirm": "correct-horse",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	signupToken := s.data(w)["token"].(string)

	w = s.request(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("INVALID_CREDENTIALS", s.errorCode(w))

	w = s.request(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "correct-horse",
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	loginToken := s.data(w)["token"].(string)

	for _, token := range []string{signupToken, loginToken} {
		w = s.request(http.MethodGet, "/api/v1/users/me", token, nil)
		s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
		s.Equal("alice", s.data(w)["username"])
		s.Equal(false, s.data(w)["is_admin"])
	}
}

// TestAdminRoutesRequireAdministrator tests the admin gate after authentication
func (s *AuthIntegrationTestSuite) TestAdminRoutesRequireAdministrator() {
	customer := s.tokenFor(s.createUser("alice", false))
	admin := s.tokenFor(s.createUser("admin", true))

	w := s.request(http.MethodGet, "/api/v1/admin/stickers", customer, nil)
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal("FORBIDDEN", s.errorCode(w))

	w = s.request(http.MethodGet, "/api/v1/admin/stickers", admin, nil)
	s.Equal(http.StatusOK, w.Code)
}

// TestRouterFromEnvironment tests that a configuration loaded from the environment
// validates the tokens this API issues
func (s *AuthIntegrationTestSuite) TestRouterFromEnvironment() {
	s.T().Setenv("GO_ENV", "test")
	s.T().Setenv("DB_DRIVER", "sqlite")
	s.T().Setenv("DATABASE_URL", "file::memory:")
	s.T().Setenv("AUTH0_DOMAIN", "")
	s.T().Setenv("AUTH0_AUDIENCE", "shop-from-env")
	s.T().Setenv("JWT_SECRET", "env-secret")
	s.T().Setenv("JWT_ISSUER", "env-issuer")
	s.T().Setenv("TOKEN_TTL", "15m")

	cfg, err := config.Load()
	s.Require().NoError(err)
	config.SetConfig(s.cfg)
	s.Equal(15*time.Minute, cfg.TokenTTL)
	s.False(cfg.UsesAuth0())

	user := s.createUser("alice", false)
	token, expiresAt, err := services.NewTokenService(cfg).Issue(user.Subject)
	s.Require().NoError(err)
	s.WithinDuration(time.Now().Add(15*time.Minute), expiresAt, time.Minute)

	s.router = s.newRouter(cfg)
	w := s.request(http.MethodGet, "/api/v1/users/me", token, nil)
	s.Equal(http.StatusOK, w.Code, w.Body.String())

	// Tokens from the test configuration use another secret and audience
	w = s.request(http.MethodGet, "/api/v1/users/me", s.tokenFor(user), nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

// TestAuthIntegrationTestSuite runs the test suite
func TestAuthIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(AuthIntegrationTestSuite))
}
