// migrate_gorm.go - runs the GORM migrations against the configured database
// Usage: go run migrate_gorm.go

//go:build ignore

package main

import (
	"log"

	"github.com/sahilchouksey/course-marketplace/config"
	"github.com/sahilchouksey/course-marketplace/database"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
)

func main() {
	if err := config.LoadENV(); err != nil {
		log.Fatal("Failed to load environment variables:", err)
	}
	env, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}
	lg, err := logger.New(env.LOG_MODE)
	if err != nil {
		log.Fatal(err)
	}

	store, err := database.StartGORM(env, lg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	if err := store.HealthCheck(); err != nil {
		log.Fatal("Database health check failed:", err)
	}

	log.Println("All migrations completed successfully")
}
