package database

import (
	"fmt"

	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/utils/auth"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultCategories are created on first seed
var DefaultCategories = []model.Category{
	{Name: "Development", Description: "Web, mobile and backend programming"},
	{Name: "Design", Description: "UI, UX and graphic design"},
	{Name: "Business", Description: "Entrepreneurship, management and strategy"},
	{Name: "Marketing", Description: "Digital marketing, SEO and branding"},
	{Name: "Data Science", Description: "Analytics, machine learning and statistics"},
	{Name: "Music", Description: "Instruments, production and theory"},
}

// Seeder handles database seeding operations
type Seeder struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, log *logger.Logger) *Seeder {
	return &Seeder{db: db, log: log}
}

// SeedAll runs all seed functions
func (s *Seeder) SeedAll(adminEmail, adminPassword string) error {
	if err := s.SeedAdminUser(adminEmail, adminPassword); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	if err := s.SeedCategories(); err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}
	return nil
}

// SeedAdminUser creates the admin account when none exists
func (s *Seeder) SeedAdminUser(email, password string) error {
	var count int64
	if err := s.db.Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		s.log.Info("Admin user already exists, skipping")
		return nil
	}
	if email == "" || password == "" {
		s.log.Warn("ADMIN_EMAIL and ADMIN_PASSWORD not set, skipping admin user creation")
		return nil
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	admin := model.User{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         "Administrator",
		Role:         model.RoleAdmin,
	}
	if err := s.db.Create(&admin).Error; err != nil {
		return err
	}
	s.log.Info("Admin user created", "id", admin.ID)
	return nil
}

// SeedCategories inserts the default categories, skipping existing names
func (s *Seeder) SeedCategories() error {
	categories := make([]model.Category, len(DefaultCategories))
	copy(categories, DefaultCategories)

	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&categories)
	if result.Error != nil {
		return result.Error
	}
	s.log.Info("Categories seeded", "inserted", result.RowsAffected)
	return nil
}
