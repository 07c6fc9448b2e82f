package main

import (
	"log"

	"github.com/sahilchouksey/course-marketplace/config"
	"github.com/sahilchouksey/course-marketplace/database"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
)

func main() {
	if err := config.LoadENV(); err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}
	env, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to read config: %v", err)
	}
	lg, err := logger.New(env.LOG_MODE)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer lg.Sync()

	store, err := database.StartGORM(env, lg)
	if err != nil {
		lg.Fatal("Failed to connect to database", "error", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		lg.Fatal("Migration failed", "error", err)
	}

	if err := database.NewSeeder(store.DB(), lg).SeedAll(env.ADMIN_EMAIL, env.ADMIN_PASSWORD); err != nil {
		lg.Fatal("Seeding failed", "error", err)
	}
	lg.Info("Seeding completed")
}
