package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/stickerhub/sticker-shop-api/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	bcryptCost        = 10
	minPasswordLength = 8
	maxUsernameLength = 25
)

// SignupRequest holds the fields of a new local account
type SignupRequest struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
}

// ProfileRequest holds the fields of a profile for an externally authenticated subject
type ProfileRequest struct {
	Subject  string
	Username string
	Email    string
}

// Session is an authenticated user with a bearer token
type Session struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// AuthService registers users and authenticates local accounts
type AuthService struct {
	db     *gorm.DB
	tokens *TokenService
}

// NewAuthService creates an auth service
func NewAuthService(db *gorm.DB, tokens *TokenService) *AuthService {
	return &AuthService{db: db, tokens: tokens}
}

// Signup creates a local account and returns a session for it
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*Session, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if err := validateProfile(username, email); err != nil {
		return nil, err
	}
	if len(req.Password) < minPasswordLength {
		return nil, ErrValidation.WithMessage("Password must be at least %d characters", minPasswordLength)
	}
	if req.Password != req.PasswordConfirm {
		return nil, ErrValidation.WithMessage("Passwords do not match")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Subject:      models.LocalSubject(username),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.createUser(ctx, &user); err != nil {
		return nil, err
	}
	return s.session(&user)
}

// Login checks an email and password and returns a session
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.session(&user)
}

// CreateProfile creates the user record for a subject authenticated by an external provider
func (s *AuthService) CreateProfile(ctx context.Context, req ProfileRequest) (*models.User, error) {
	if req.Subject == "" {
		return nil, ErrValidation.WithMessage("Token subject is missing")
	}
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateProfile(username, email); err != nil {
		return nil, err
	}

	user := models.User{
		Subject:  req.Subject,
		Username: username,
		Email:    email,
	}
	if err := s.createUser(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindBySubject returns the user a token subject belongs to
func (s *AuthService) FindBySubject(ctx context.Context, subject string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("subject = ?", subject).First(&user).Error; err != nil {
		return nil, notFoundOr(err, ErrUserNotFound, "failed to load user")
	}
	return &user, nil
}

func (s *AuthService) createUser(ctx context.Context, user *models.User) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ? OR subject = ?", user.Username, user.Email, user.Subject).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check existing users: %w", err)
	}
	if count > 0 {
		return ErrUserExists
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return duplicateOr(err, ErrUserExists, "failed to create user")
	}
	return nil
}

func (s *AuthService) session(user *models.User) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.Subject)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func validateProfile(username, email string) error {
	if username == "" || len(username) > maxUsernameLength {
		return ErrValidation.WithMessage("Username must be between 1 and %d characters", maxUsernameLength)
	}
	if strings.Contains(username, "|") {
		return ErrValidation.WithMessage("Username must not contain '|'")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrValidation.WithMessage("A valid email address is required")
	}
	return nil
}
