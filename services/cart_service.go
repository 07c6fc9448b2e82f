package services

import (
	"context"

	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartService manages the cart and the wishlist
type CartService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewCartService creates a new cart service
func NewCartService(db *gorm.DB, log *logger.Logger) *CartService {
	return &CartService{db: db, log: log.With("service", "CartService")}
}

// CartView is the cart with its totals
type CartView struct {
	Items         []model.CartItem `json:"items"`
	TotalPrice    int64            `json:"total_price"`
	TotalDiscount int64            `json:"total_discount"`
	Total         int64            `json:"total"`
}

func cartTotals(items []model.CartItem) CartView {
	view := CartView{Items: items}
	for _, item := range items {
		if item.Course == nil {
			continue
		}
		view.TotalPrice += item.Course.Price
		view.TotalDiscount += item.Course.Discount
	}
	view.Total = view.TotalPrice - view.TotalDiscount
	return view
}

// ensureBuyable checks that userID may put courseID in their cart or wishlist.
func ensureBuyable(tx *gorm.DB, userID, courseID uint) (*model.Course, error) {
	var course model.Course
	if err := tx.First(&course, courseID).Error; err != nil {
		if isNotFound(err) {
			return nil, NotFound("Course not found")
		}
		return nil, Internal("Failed to load course", err)
	}
	if !course.IsPurchasable() {
		return nil, NotFound("Course not found")
	}
	if course.TutorID == userID {
		return nil, InvalidAction("Invalid action")
	}
	owned, err := isEnrolled(tx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, InvalidAction("Invalid action")
	}
	return &course, nil
}

func isEnrolled(tx *gorm.DB, userID, courseID uint) (bool, error) {
	var n int64
	if err := tx.Model(&model.Enrollment{}).Where("user_id = ? AND course_id = ?", userID, courseID).Count(&n).Error; err != nil {
		return false, Internal("Failed to check enrollment", err)
	}
	return n > 0, nil
}

func loadCart(tx *gorm.DB, userID uint) ([]model.CartItem, error) {
	items := []model.CartItem{}
	err := tx.Preload("Course").Where("user_id = ?", userID).Order("created_at ASC, id ASC").Find(&items).Error
	return items, err
}

// AddToCart adds the course to the user's cart. Adding a course already in the cart is a no-op.
func (s *CartService) AddToCart(ctx context.Context, userID, courseID uint) (*CartView, error) {
	db := s.db.WithContext(ctx)
	if _, err := ensureBuyable(db, userID, courseID); err != nil {
		return nil, err
	}
	item := model.CartItem{UserID: userID, CourseID: courseID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&item).Error; err != nil {
		return nil, Internal("Failed to add to cart", err)
	}
	return s.Cart(ctx, userID)
}

// RemoveFromCart removes the course from the cart
func (s *CartService) RemoveFromCart(ctx context.Context, userID, courseID uint) (*CartView, error) {
	res := s.db.WithContext(ctx).Where("user_id = ? AND course_id = ?", userID, courseID).Delete(&model.CartItem{})
	if res.Error != nil {
		return nil, Internal("Failed to remove from cart", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, NotFound("Course not in cart")
	}
	return s.Cart(ctx, userID)
}

// Cart returns the user's cart with totals
func (s *CartService) Cart(ctx context.Context, userID uint) (*CartView, error) {
	items, err := loadCart(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, Internal("Failed to load cart", err)
	}
	view := cartTotals(items)
	return &view, nil
}

// AddToWishlist saves the course for later. Idempotent.
func (s *CartService) AddToWishlist(ctx context.Context, userID, courseID uint) error {
	db := s.db.WithContext(ctx)
	if _, err := ensureBuyable(db, userID, courseID); err != nil {
		return err
	}
	item := model.WishlistItem{UserID: userID, CourseID: courseID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&item).Error; err != nil {
		return Internal("Failed to add to wishlist", err)
	}
	return nil
}

// RemoveFromWishlist removes a saved course
func (s *CartService) RemoveFromWishlist(ctx context.Context, userID, courseID uint) error {
	res := s.db.WithContext(ctx).Where("user_id = ? AND course_id = ?", userID, courseID).Delete(&model.WishlistItem{})
	if res.Error != nil {
		return Internal("Failed to remove from wishlist", res.Error)
	}
	if res.RowsAffected == 0 {
		return NotFound("Course not in wishlist")
	}
	return nil
}

// Wishlist lists saved courses, newest first
func (s *CartService) Wishlist(ctx context.Context, userID uint) ([]model.WishlistItem, error) {
	items := []model.WishlistItem{}
	err := s.db.WithContext(ctx).Preload("Course").Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&items).Error
	if err != nil {
		return nil, Internal("Failed to load wishlist", err)
	}
	return items, nil
}

// MoveToCart moves a wishlist item into the cart
func (s *CartService) MoveToCart(ctx context.Context, userID, courseID uint) (*CartView, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND course_id = ?", userID, courseID).Delete(&model.WishlistItem{})
		if res.Error != nil {
			return Internal("Failed to remove from wishlist", res.Error)
		}
		if res.RowsAffected == 0 {
			return NotFound("Course not in wishlist")
		}
		if _, err := ensureBuyable(tx, userID, courseID); err != nil {
			return err
		}
		item := model.CartItem{UserID: userID, CourseID: courseID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&item).Error; err != nil {
			return Internal("Failed to add to cart", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Cart(ctx, userID)
}
