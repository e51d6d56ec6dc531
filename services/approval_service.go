package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stickerhub/sticker-shop-api/config"
	"github.com/stickerhub/sticker-shop-api/models"
	"gorm.io/gorm"
)

// ShopDefaults are applied to stickers created from custom sticker requests
type ShopDefaults struct {
	Price    decimal.Decimal
	Category string
	Active   bool
}

// ShopDefaultsFromConfig reads the custom sticker settings from cfg
func ShopDefaultsFromConfig(cfg *config.Config) ShopDefaults {
	return ShopDefaults{
		Price:    cfg.CustomStickerPrice,
		Category: cfg.CustomStickerCategory,
		Active:   cfg.CustomStickerActive,
	}
}

// SubmitRequest is a user's custom sticker proposal
type SubmitRequest struct {
	Name        string
	Description string
	ImageKey    string
}

// ApprovalService moderates custom sticker requests:
// pending -> approved | denied, approved -> added_to_shop
type ApprovalService struct {
	db       *gorm.DB
	catalog  *CatalogService
	notifier *Notifier
	defaults ShopDefaults
}

// NewApprovalService creates an approval service. notifier may be nil.
func NewApprovalService(db *gorm.DB, catalog *CatalogService, notifier *Notifier, defaults ShopDefaults) *ApprovalService {
	return &ApprovalService{db: db, catalog: catalog, notifier: notifier, defaults: defaults}
}

// Submit stores a new pending request
func (s *ApprovalService) Submit(ctx context.Context, userID uint, req SubmitRequest) (*models.CustomSticker, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrValidation.WithMessage("Sticker name is required")
	}
	if req.ImageKey == "" {
		return nil, ErrValidation.WithMessage("Sticker image is required")
	}

	request := models.CustomSticker{
		UserID:         userID,
		Name:           name,
		Description:    strings.TrimSpace(req.Description),
		ImageKey:       req.ImageKey,
		ApprovalStatus: models.ApprovalPending,
	}
	if err := s.db.WithContext(ctx).Create(&request).Error; err != nil {
		return nil, fmt.Errorf("failed to create custom sticker request: %w", err)
	}
	return &request, nil
}

// Approve accepts a pending request
func (s *ApprovalService) Approve(ctx context.Context, id uint) (*models.CustomSticker, error) {
	var request models.CustomSticker
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.load(tx, id, &request); err != nil {
			return err
		}
		if request.ApprovalStatus != models.ApprovalPending {
			return ErrInvalidTransition.WithMessage("Only pending requests can be approved (current status: %s)", request.ApprovalStatus)
		}
		return s.setStatus(tx, &request, models.ApprovalApproved)
	})
	if err != nil {
		return nil, err
	}

	s.notify(&request, "Your sticker request was approved",
		fmt.Sprintf("Good news! Your sticker request '%s' has been approved.", request.Name))
	return &request, nil
}

// Deny rejects a request. A sticker created for it is deleted when no order
// references it and deactivated otherwise. A pre-existing sticker the request was
// linked to is only unlinked.
func (s *ApprovalService) Deny(ctx context.Context, id uint) (*models.CustomSticker, error) {
	var (
		request  models.CustomSticker
		category string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.load(tx, id, &request); err != nil {
			return err
		}
		if request.ApprovalStatus == models.ApprovalDenied {
			return ErrInvalidTransition.WithMessage("Request is already denied")
		}

		if request.StickerID != nil && !request.CreatedSticker {
			log.Printf("Unlinking request %d from sticker %d it did not create", request.ID, *request.StickerID)
			request.StickerID = nil
		}
		if request.StickerID != nil {
			var sticker models.Sticker
			err := tx.Preload("Category").First(&sticker, *request.StickerID).Error
			switch {
			case err == nil:
				category = categoryName(&sticker)
				deleted, err := removeOrDeactivateSticker(tx, &sticker)
				if err != nil {
					return err
				}
				if deleted {
					request.StickerID = nil
					request.CreatedSticker = false
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				request.StickerID = nil
				request.CreatedSticker = false
			default:
				return fmt.Errorf("failed to load linked sticker: %w", err)
			}
		}

		return s.setStatus(tx, &request, models.ApprovalDenied)
	})
	if err != nil {
		return nil, err
	}

	if category != "" {
		s.catalog.Invalidate(ctx, category)
	}
	s.notify(&request, "Your sticker request was denied",
		fmt.Sprintf("Unfortunately your sticker request '%s' was not accepted.", request.Name))
	return &request, nil
}

// AddToShop puts an approved request in the catalog. A sticker with exactly the same
// name is linked instead of creating a duplicate.
func (s *ApprovalService) AddToShop(ctx context.Context, id uint) (*models.CustomSticker, error) {
	var request models.CustomSticker
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.load(tx, id, &request); err != nil {
			return err
		}
		if request.ApprovalStatus != models.ApprovalApproved {
			return ErrRequestNotApproved
		}

		var sticker models.Sticker
		err := tx.Where("name = ?", request.Name).First(&sticker).Error
		switch {
		case err == nil:
			log.Printf("Sticker %q already exists, linking request %d to sticker %d", request.Name, request.ID, sticker.ID)
		case errors.Is(err, gorm.ErrRecordNotFound):
			category, err := findOrCreateCategory(tx, s.defaults.Category)
			if err != nil {
				return err
			}
			sticker = models.Sticker{
				Name:        request.Name,
				Price:       s.defaults.Price,
				CategoryID:  category.ID,
				Description: request.Description,
				ImageKey:    request.ImageKey,
				Stock:       0,
				IsActive:    s.defaults.Active,
				IsCustom:    true,
			}
			if err := tx.Create(&sticker).Error; err != nil {
				return duplicateOr(err, ErrDuplicateSticker, "failed to create sticker")
			}
			request.CreatedSticker = true
		default:
			return fmt.Errorf("failed to look up sticker: %w", err)
		}

		request.StickerID = &sticker.ID
		request.Sticker = &sticker
		return s.setStatus(tx, &request, models.ApprovalAddedToShop)
	})
	if err != nil {
		return nil, err
	}

	s.catalog.Invalidate(ctx, s.defaults.Category)
	s.notify(&request, "Your sticker is in the shop",
		fmt.Sprintf("Your sticker '%s' has been added to the shop.", request.Name))
	return &request, nil
}

// List returns requests newest first, optionally filtered by approval status
func (s *ApprovalService) List(ctx context.Context, status string) ([]models.CustomSticker, error) {
	if status != "" && !models.IsValidApprovalStatus(status) {
		return nil, ErrInvalidStatus.WithMessage("Invalid approval status %q", status)
	}

	query := s.db.WithContext(ctx).Preload("User").Order("created_at DESC, id DESC")
	if status != "" {
		query = query.Where("approval_status = ?", status)
	}

	requests := []models.CustomSticker{}
	if err := query.Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("failed to list custom sticker requests: %w", err)
	}
	return requests, nil
}

// ListForUser returns the requests submitted by a user, newest first
func (s *ApprovalService) ListForUser(ctx context.Context, userID uint) ([]models.CustomSticker, error) {
	requests := []models.CustomSticker{}
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("failed to list custom sticker requests: %w", err)
	}
	return requests, nil
}

func (s *ApprovalService) load(tx *gorm.DB, id uint, request *models.CustomSticker) error {
	if err := tx.Preload("User").First(request, id).Error; err != nil {
		return notFoundOr(err, ErrCustomStickerNotFound, "failed to load custom sticker request")
	}
	return nil
}

func (s *ApprovalService) setStatus(tx *gorm.DB, request *models.CustomSticker, status string) error {
	request.ApprovalStatus = status
	changes := map[string]interface{}{
		"approval_status": status,
		"sticker_id":      request.StickerID,
		"created_sticker": request.CreatedSticker,
	}
	if err := tx.Model(request).Updates(changes).Error; err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}
	return nil
}

func (s *ApprovalService) notify(request *models.CustomSticker, subject, message string) {
	if request.User == nil {
		return
	}
	if err := s.notifier.Notify(request.User.Email, subject, message); err != nil {
		log.Printf("Failed to queue notification for request %d: %v", request.ID, err)
	}
}
