package database

import "gorm.io/gorm"

// Storage is the lifecycle surface of the database layer used by the app and health checks
type Storage interface {
	Init() error
	Close() error
	HealthCheck() error
	DB() *gorm.DB
}

var _ Storage = (*GORMStore)(nil)
