package main

import (
	"context"
	"log"

	"quickhand-be/internal/bootstrap"
	"quickhand-be/internal/config"
	"quickhand-be/internal/server"
	"quickhand-be/internal/tracer"
	"quickhand-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database (optional: without it, memory is in-process)
	var db *gorm.DB
	if cfg.Database.Connection != "" {
		var err error
		db, err = database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			log.Printf("[WARN] Database unavailable, running without persistence: %v", err)
			db = nil
		}
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(db, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Memory Consumer...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
