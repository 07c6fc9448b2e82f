package services

import (
	"context"
	"strings"

	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/services/storage"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"gorm.io/gorm"
)

// BannerService manages home page banners
type BannerService struct {
	db      *gorm.DB
	storage storage.ObjectStorage
	log     *logger.Logger
}

// NewBannerService creates a new banner service
func NewBannerService(db *gorm.DB, store storage.ObjectStorage, log *logger.Logger) *BannerService {
	return &BannerService{db: db, storage: store, log: log.With("service", "BannerService")}
}

func (s *BannerService) uploadImage(ctx context.Context, file *FileUpload) (storage.Object, error) {
	if !storage.IsImage(file.Filename) {
		return storage.Object{}, Validation("Banner must be a jpeg, png or webp image")
	}
	obj, err := s.storage.Upload(ctx, storage.GenerateKey("banners", file.Filename), file.Body, storage.GetContentType(file.Filename))
	if err != nil {
		return storage.Object{}, Internal("Failed to upload banner", err)
	}
	return obj, nil
}

// Enabled lists banners shown on the home page
func (s *BannerService) Enabled(ctx context.Context) ([]model.Banner, error) {
	banners := []model.Banner{}
	if err := s.db.WithContext(ctx).Where("is_enabled = ?", true).Order("created_at DESC").Find(&banners).Error; err != nil {
		return nil, Internal("Failed to list banners", err)
	}
	return banners, nil
}

// All lists every banner for the admin panel
func (s *BannerService) All(ctx context.Context) ([]model.Banner, error) {
	banners := []model.Banner{}
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&banners).Error; err != nil {
		return nil, Internal("Failed to list banners", err)
	}
	return banners, nil
}

// Create uploads the image and stores an enabled banner
func (s *BannerService) Create(ctx context.Context, link string, image *FileUpload) (*model.Banner, error) {
	if image == nil {
		return nil, Validation("Banner image is required")
	}
	obj, err := s.uploadImage(ctx, image)
	if err != nil {
		return nil, err
	}
	banner := model.Banner{ImageURL: obj.URL, ImageKey: obj.Key, Link: strings.TrimSpace(link), IsEnabled: true}
	if err := s.db.WithContext(ctx).Create(&banner).Error; err != nil {
		deleteKeys(ctx, s.storage, s.log, []string{obj.Key})
		return nil, Internal("Failed to create banner", err)
	}
	return &banner, nil
}

func (s *BannerService) load(ctx context.Context, id uint) (*model.Banner, error) {
	var banner model.Banner
	if err := s.db.WithContext(ctx).First(&banner, id).Error; err != nil {
		if isNotFound(err) {
			return nil, NotFound("Banner not found")
		}
		return nil, Internal("Failed to load banner", err)
	}
	return &banner, nil
}

// Update changes the link and optionally replaces the image
func (s *BannerService) Update(ctx context.Context, id uint, link *string, image *FileUpload) (*model.Banner, error) {
	banner, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	oldKey := ""
	if image != nil {
		obj, err := s.uploadImage(ctx, image)
		if err != nil {
			return nil, err
		}
		oldKey = banner.ImageKey
		banner.ImageURL, banner.ImageKey = obj.URL, obj.Key
	}
	if link != nil {
		banner.Link = strings.TrimSpace(*link)
	}
	if err := s.db.WithContext(ctx).Save(banner).Error; err != nil {
		return nil, Internal("Failed to update banner", err)
	}
	deleteKeys(ctx, s.storage, s.log, []string{oldKey})
	return banner, nil
}

// SetEnabled shows or hides a banner
func (s *BannerService) SetEnabled(ctx context.Context, id uint, enabled bool) (*model.Banner, error) {
	banner, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(banner).UpdateColumn("is_enabled", enabled).Error; err != nil {
		return nil, Internal("Failed to update banner", err)
	}
	banner.IsEnabled = enabled
	return banner, nil
}

// Delete removes a banner and its image
func (s *BannerService) Delete(ctx context.Context, id uint) error {
	banner, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(banner).Error; err != nil {
		return Internal("Failed to delete banner", err)
	}
	deleteKeys(ctx, s.storage, s.log, []string{banner.ImageKey})
	return nil
}
