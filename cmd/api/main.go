package main

import (
	"log"
	"os"

	"github.com/edimarket/marketplace-backend/internal/config"
	"github.com/edimarket/marketplace-backend/internal/db"
	"github.com/edimarket/marketplace-backend/internal/model"
	"github.com/edimarket/marketplace-backend/internal/server"
	"github.com/joho/godotenv"
)

var (
	gitSHA    = "dev"
	buildTime = "unknown"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	// The server starts before the database is ready; repositories
	// report not-ready until the connection is injected below.
	srv := server.New(nil, cfg, gitSHA, buildTime)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}
	addr := ":" + port

	errCh := make(chan error, 1)

	go func() {
		log.Printf("starting server on %s", addr)
		errCh <- srv.Start(addr)
	}()

	go func() {
		conn, err := db.Connect(cfg)
		if err != nil {
			log.Printf("db connect error: %v", err)
			return
		}
		if err := conn.AutoMigrate(&model.Listing{}, &model.Conversation{}, &model.Message{}); err != nil {
			log.Printf("auto migrate error: %v", err)
		}
		srv.SetDB(conn)
	}()

	if err := <-errCh; err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
