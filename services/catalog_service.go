package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stickerhub/sticker-shop-api/models"
	"gorm.io/gorm"
)

// StickerFilter narrows a sticker listing
type StickerFilter struct {
	Search          string // case-insensitive name substring
	Category        string // exact category name
	IncludeInactive bool
}

// StickerInput holds the fields of a new sticker
type StickerInput struct {
	Name        string
	Price       decimal.Decimal
	Category    string
	Description string
	Stock       int
	ImageKey    string
	IsActive    bool
}

// StickerUpdate holds the fields to change on a sticker. Nil fields are left untouched.
type StickerUpdate struct {
	Name        *string
	Price       *decimal.Decimal
	Category    *string
	Description *string
	Stock       *int
	ImageKey    *string
}

// CatalogService manages stickers and categories
type CatalogService struct {
	db    *gorm.DB
	cache *CatalogCache
}

// NewCatalogService creates a catalog service. cache may be nil.
func NewCatalogService(db *gorm.DB, cache *CatalogCache) *CatalogService {
	return &CatalogService{db: db, cache: cache}
}

// ListStickers returns stickers ordered by name
func (s *CatalogService) ListStickers(ctx context.Context, filter StickerFilter) ([]models.Sticker, error) {
	key := ""
	if s.cache != nil {
		key = stickersKey(filter)
		if key != "" {
			if stickers, ok := s.cache.getStickers(ctx, key); ok {
				return stickers, nil
			}
		}
	}

	query := s.db.WithContext(ctx).Preload("Category").Order("name ASC")
	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Category != "" {
		category, err := s.categoryByName(s.db.WithContext(ctx), filter.Category)
		if err != nil {
			return nil, err
		}
		query = query.Where("category_id = ?", category.ID)
	}

	stickers := []models.Sticker{}
	if err := query.Find(&stickers).Error; err != nil {
		return nil, fmt.Errorf("failed to list stickers: %w", err)
	}

	if key != "" {
		s.cache.set(ctx, key, stickers)
	}
	return stickers, nil
}

// GetSticker returns a sticker by ID. Inactive stickers are reported as not found
// unless includeInactive is set.
func (s *CatalogService) GetSticker(ctx context.Context, id uint, includeInactive bool) (*models.Sticker, error) {
	var sticker models.Sticker
	if err := s.db.WithContext(ctx).Preload("Category").First(&sticker, id).Error; err != nil {
		return nil, notFoundOr(err, ErrStickerNotFound, "failed to load sticker")
	}
	if !sticker.IsActive && !includeInactive {
		return nil, ErrStickerNotFound
	}
	return &sticker, nil
}

// ListCategories returns all categories ordered by name
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	if s.cache != nil {
		if categories, ok := s.cache.getCategories(ctx); ok {
			return categories, nil
		}
	}

	categories := []models.Category{}
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	if s.cache != nil {
		s.cache.set(ctx, cacheKeyAllCategories, categories)
	}
	return categories, nil
}

// CreateCategory adds a category with a unique name
func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrValidation.WithMessage("Category name is required")
	}

	category := models.Category{Name: name}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, duplicateOr(err, ErrDuplicateName.WithMessage("Category %s already exists", name), "failed to create category")
	}

	s.Invalidate(ctx)
	return &category, nil
}

// DeleteCategory removes a category that no sticker references
func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	var category models.Category
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&category, id).Error; err != nil {
			return notFoundOr(err, ErrCategoryNotFound, "failed to load category")
		}

		var count int64
		if err := tx.Model(&models.Sticker{}).Where("category_id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count stickers: %w", err)
		}
		if count > 0 {
			return ErrCategoryInUse.WithMessage("Category %s still has %d stickers", category.Name, count)
		}

		if err := tx.Delete(&category).Error; err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Invalidate(ctx, category.Name)
	return nil
}

// CreateSticker adds a sticker to the catalog
func (s *CatalogService) CreateSticker(ctx context.Context, input StickerInput) (*models.Sticker, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, ErrValidation.WithMessage("Sticker name is required")
	}
	if input.Price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if input.Stock < 0 {
		return nil, ErrInvalidStock
	}

	var sticker models.Sticker
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		category, err := s.categoryByName(tx, input.Category)
		if err != nil {
			if errors.Is(err, ErrCategoryNotFound) {
				return ErrUnknownCategory.WithMessage("Category %s does not exist", input.Category)
			}
			return err
		}

		if exists, err := stickerNameExists(tx, input.Name, 0); err != nil {
			return err
		} else if exists {
			return ErrDuplicateSticker
		}

		sticker = models.Sticker{
			Name:        input.Name,
			Price:       input.Price.Round(2),
			CategoryID:  category.ID,
			Category:    category,
			Description: input.Description,
			Stock:       input.Stock,
			ImageKey:    input.ImageKey,
			IsActive:    input.IsActive,
		}
		if err := tx.Omit("Category").Create(&sticker).Error; err != nil {
			return duplicateOr(err, ErrDuplicateSticker, "failed to create sticker")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Invalidate(ctx, input.Category)
	return &sticker, nil
}

// UpdateSticker applies a partial update and returns the sticker with the image key it replaced
func (s *CatalogService) UpdateSticker(ctx context.Context, id uint, update StickerUpdate) (*models.Sticker, string, error) {
	var (
		sticker     models.Sticker
		oldImageKey string
		categories  []string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Category").First(&sticker, id).Error; err != nil {
			return notFoundOr(err, ErrStickerNotFound, "failed to load sticker")
		}
		if sticker.Category != nil {
			categories = append(categories, sticker.Category.Name)
		}

		changes := map[string]interface{}{}
		if update.Name != nil {
			name := strings.TrimSpace(*update.Name)
			if name == "" {
				return ErrValidation.WithMessage("Sticker name is required")
			}
			if exists, err := stickerNameExists(tx, name, sticker.ID); err != nil {
				return err
			} else if exists {
				return ErrDuplicateSticker
			}
			changes["name"] = name
		}
		if update.Price != nil {
			if update.Price.IsNegative() {
				return ErrInvalidPrice
			}
			changes["price"] = update.Price.Round(2)
		}
		if update.Stock != nil {
			if *update.Stock < 0 {
				return ErrInvalidStock
			}
			changes["stock"] = *update.Stock
		}
		if update.Description != nil {
			changes["description"] = *update.Description
		}
		if update.Category != nil {
			category, err := s.categoryByName(tx, *update.Category)
			if err != nil {
				if errors.Is(err, ErrCategoryNotFound) {
					return ErrUnknownCategory.WithMessage("Category %s does not exist", *update.Category)
				}
				return err
			}
			changes["category_id"] = category.ID
			categories = append(categories, category.Name)
		}
		if update.ImageKey != nil && *update.ImageKey != sticker.ImageKey {
			oldImageKey = sticker.ImageKey
			changes["image_key"] = *update.ImageKey
		}

		if len(changes) == 0 {
			return nil
		}
		if err := tx.Model(&sticker).Updates(changes).Error; err != nil {
			return duplicateOr(err, ErrDuplicateSticker, "failed to update sticker")
		}
		return tx.Preload("Category").First(&sticker, id).Error
	})
	if err != nil {
		return nil, "", err
	}

	s.Invalidate(ctx, categories...)
	return &sticker, oldImageKey, nil
}

// SetStickerActive shows or hides a sticker in the public catalog
func (s *CatalogService) SetStickerActive(ctx context.Context, id uint, active bool) (*models.Sticker, error) {
	var sticker models.Sticker
	if err := s.db.WithContext(ctx).Preload("Category").First(&sticker, id).Error; err != nil {
		return nil, notFoundOr(err, ErrStickerNotFound, "failed to load sticker")
	}

	if err := s.db.WithContext(ctx).Model(&sticker).Update("is_active", active).Error; err != nil {
		return nil, fmt.Errorf("failed to update sticker: %w", err)
	}
	sticker.IsActive = active

	s.Invalidate(ctx, categoryName(&sticker))
	return &sticker, nil
}

// DeleteSticker removes a sticker without order history and deactivates one with history.
// It reports whether the row was deleted and the image key of the sticker.
func (s *CatalogService) DeleteSticker(ctx context.Context, id uint) (bool, string, error) {
	var (
		sticker models.Sticker
		deleted bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Category").First(&sticker, id).Error; err != nil {
			return notFoundOr(err, ErrStickerNotFound, "failed to load sticker")
		}
		var err error
		deleted, err = removeOrDeactivateSticker(tx, &sticker)
		return err
	})
	if err != nil {
		return false, "", err
	}

	s.Invalidate(ctx, categoryName(&sticker))
	return deleted, sticker.ImageKey, nil
}

// Invalidate drops cached listings after a catalog change. Safe to call without a cache.
func (s *CatalogService) Invalidate(ctx context.Context, categories ...string) {
	if s.cache == nil {
		return
	}
	s.cache.invalidate(ctx, categories...)
}

func (s *CatalogService) categoryByName(tx *gorm.DB, name string) (*models.Category, error) {
	var category models.Category
	if err := tx.Where("name = ?", name).First(&category).Error; err != nil {
		return nil, notFoundOr(err, ErrCategoryNotFound, "failed to load category")
	}
	return &category, nil
}

// findOrCreateCategory returns the named category, creating it when missing
func findOrCreateCategory(tx *gorm.DB, name string) (*models.Category, error) {
	var category models.Category
	if err := tx.Where(models.Category{Name: name}).FirstOrCreate(&category).Error; err != nil {
		return nil, fmt.Errorf("failed to load category %s: %w", name, err)
	}
	return &category, nil
}

func stickerNameExists(tx *gorm.DB, name string, exceptID uint) (bool, error) {
	var count int64
	if err := tx.Model(&models.Sticker{}).Where("name = ? AND id <> ?", name, exceptID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check sticker name: %w", err)
	}
	return count > 0, nil
}

// removeOrDeactivateSticker hard deletes a sticker that no order line references and
// sets is_active=false otherwise. Custom sticker requests lose their link on deletion.
func removeOrDeactivateSticker(tx *gorm.DB, sticker *models.Sticker) (bool, error) {
	var lines int64
	if err := tx.Model(&models.OrderItem{}).Where("sticker_id = ?", sticker.ID).Count(&lines).Error; err != nil {
		return false, fmt.Errorf("failed to count order lines: %w", err)
	}

	if lines > 0 {
		if err := tx.Model(sticker).Update("is_active", false).Error; err != nil {
			return false, fmt.Errorf("failed to deactivate sticker: %w", err)
		}
		sticker.IsActive = false
		return false, nil
	}

	if err := tx.Model(&models.CustomSticker{}).
		Where("sticker_id = ?", sticker.ID).
		Update("sticker_id", nil).Error; err != nil {
		return false, fmt.Errorf("failed to unlink custom sticker: %w", err)
	}
	if err := tx.Delete(&models.Sticker{}, sticker.ID).Error; err != nil {
		return false, fmt.Errorf("failed to delete sticker: %w", err)
	}
	return true, nil
}

func categoryName(sticker *models.Sticker) string {
	if sticker.Category == nil {
		return ""
	}
	return sticker.Category.Name
}
