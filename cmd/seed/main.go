package main

import (
	"context"
	"fmt"
	"log"

	"github.com/edimarket/marketplace-backend/internal/ai"
	"github.com/edimarket/marketplace-backend/internal/config"
	"github.com/edimarket/marketplace-backend/internal/db"
	"github.com/edimarket/marketplace-backend/internal/model"
	"github.com/edimarket/marketplace-backend/internal/repository"
	"github.com/edimarket/marketplace-backend/internal/service"
	"github.com/edimarket/marketplace-backend/internal/vecindex"
	"github.com/joho/godotenv"
)

type seedListing struct {
	Title       string
	Description string
	Category    string
	PricePence  int64
}

var listings = []seedListing{
	{"Mountain Bike", "Hardtail mountain bike, 21-speed Shimano gears, recently serviced. Great for the Pentlands.", "sport", 12000},
	{"Road Bike", "Lightweight aluminium road bike, 54cm frame, new tyres. Perfect commuter.", "sport", 18500},
	{"Desk Lamp", "Adjustable LED desk lamp with three brightness settings. Barely used.", "home", 1500},
	{"Second-hand Textbooks", "Bundle of first-year economics textbooks, good condition with minimal highlighting.", "books", 2500},
	{"Acoustic Guitar", "Yamaha acoustic guitar with soft case and spare strings. A few scratches but sounds great.", "music", 9000},
	{"Mini Fridge", "45L mini fridge, ideal for student halls. Quiet and energy efficient.", "home", 5000},
	{"Winter Coat", "Warm waterproof parka, size M, worn one season. Perfect for Scottish winters.", "fashion", 4000},
	{"Gaming Monitor", "27-inch 144Hz monitor, no dead pixels, includes DisplayPort cable.", "tech", 14000},
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	_ = godotenv.Load()
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}

	repo := repository.NewListingRepository(gdb)
	index := vecindex.NewPGVector(gdb)
	embedder := ai.NewEmbeddingClient(cfg.GeminiAPIKey, cfg.EmbedModel, cfg.EmbedDim)
	svc := service.NewListingService(repo, index, embedder)

	if err := gdb.AutoMigrate(&model.Listing{}, &model.Conversation{}, &model.Message{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	inserted, skipped := 0, 0
	for _, sl := range listings {
		var count int64
		if err := gdb.Model(&model.Listing{}).Where("title = ?", sl.Title).Count(&count).Error; err != nil {
			return fmt.Errorf("check existing %q: %w", sl.Title, err)
		}
		if count > 0 {
			skipped++
			continue
		}
		category := sl.Category
		if _, err := svc.Create(ctx, "seed-user", sl.Title, sl.Description, sl.PricePence, &category); err != nil {
			return fmt.Errorf("insert %q: %w", sl.Title, err)
		}
		inserted++
	}

	log.Printf("seed done: inserted=%d skipped=%d", inserted, skipped)
	return nil
}
