package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"gorm.io/gorm"
)

// CategoryService manages course categories
type CategoryService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewCategoryService creates a new category service
func NewCategoryService(db *gorm.DB, log *logger.Logger) *CategoryService {
	return &CategoryService{db: db, log: log.With("service", "CategoryService")}
}

// CategoryInput is the editable part of a category
type CategoryInput struct {
	Name        string `json:"name" validate:"required,trimmed_min=2,trimmed_max=60"`
	Description string `json:"description" validate:"max=500"`
}

func (in *CategoryInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if n := utf8.RuneCountInString(in.Name); n < 2 || n > 60 {
		return Validation("Category name must be between 2 and 60 characters")
	}
	return nil
}

// List returns every category by name
func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	categories := []model.Category{}
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, Internal("Failed to list categories", err)
	}
	return categories, nil
}

// Create adds a category with a unique name
func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*model.Category, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	category := model.Category{Name: in.Name, Description: in.Description}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		if isDuplicate(err) {
			return nil, Conflict("Category already exists")
		}
		return nil, Internal("Failed to create category", err)
	}
	return &category, nil
}

// Update renames or redescribes a category
func (s *CategoryService) Update(ctx context.Context, id uint, in CategoryInput) (*model.Category, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	var category model.Category
	if err := db.First(&category, id).Error; err != nil {
		if isNotFound(err) {
			return nil, NotFound("Category not found")
		}
		return nil, Internal("Failed to load category", err)
	}
	category.Name = in.Name
	category.Description = in.Description
	if err := db.Save(&category).Error; err != nil {
		if isDuplicate(err) {
			return nil, Conflict("Category already exists")
		}
		return nil, Internal("Failed to update category", err)
	}
	return &category, nil
}

// Delete removes a category no course references
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inUse int64
		if err := tx.Model(&model.Course{}).Where("category_id = ?", id).Count(&inUse).Error; err != nil {
			return Internal("Failed to check category usage", err)
		}
		if inUse > 0 {
			return InvalidAction("Category is used by existing courses")
		}
		res := tx.Delete(&model.Category{}, id)
		if res.Error != nil {
			return Internal("Failed to delete category", res.Error)
		}
		if res.RowsAffected == 0 {
			return NotFound("Category not found")
		}
		return nil
	})
}
