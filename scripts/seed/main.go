package main

import (
	"context"
	"log"
	"time"

	"wb-aggregator/internal/calendar"
	"wb-aggregator/internal/config"
	"wb-aggregator/internal/database"
	"wb-aggregator/internal/model"
	"wb-aggregator/internal/repository"
	"wb-aggregator/internal/service"
)

// Seeds a category and a few goods with two weeks of availability so the
// WebApp has something to show in development.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := config.NewLogger(cfg.Logger, "seed")
	ctx := context.Background()

	if err := database.Migrate(ctx, cfg.Database.ConnectionString(), logger); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	cal := calendar.New(cfg.Location())
	stockRepo := repository.NewAvailabilityRepository(pool, logger)
	availability := service.NewAvailabilityService(repository.NewTxManager(pool, logger), stockRepo, cal, logger)
	goods := service.NewGoodsService(repository.NewGoodsRepository(pool, logger), stockRepo, availability, nil, cal, logger)
	categories := service.NewCategoryService(repository.NewCategoryRepository(pool, logger), nil, logger)

	category, err := categories.Create(ctx, &model.CategoryRequest{Name: "Дом и кухня"})
	if err != nil {
		log.Fatalf("Failed to create category: %v", err)
	}

	start := cal.Today()
	end := start.AddDate(0, 0, 14)
	limit := 30

	samples := []model.GoodsCreateRequest{
		{Name: "Электрический чайник", Price: 2490, CashbackPercent: 70, Article: "100000001", MinDaily: 1, MaxDaily: 5},
		{Name: "Набор кухонных ножей", Price: 1890, CashbackPercent: 60, Article: "100000002", MinDaily: 2, MaxDaily: 8},
		{Name: "Термокружка 450 мл", Price: 990, CashbackPercent: 80, Article: "100000003", MinDaily: 1, MaxDaily: 3, TotalSalesLimit: &limit},
	}

	for _, req := range samples {
		req.StartDate = start
		req.EndDate = end
		req.CategoryID = &category.ID
		req.ConfirmationRequirements = []model.Requirement{
			{ID: "order_screenshot", Type: model.RequirementPhoto, Title: "Скриншот заказа"},
		}
		req.DeliveryConfirmationRequirements = []model.Requirement{
			{ID: "review", Type: model.RequirementText, Title: "Ссылка на отзыв"},
		}

		g, err := goods.Create(ctx, &req)
		if err != nil {
			log.Fatalf("Failed to create goods %s: %v", req.Article, err)
		}
		log.Printf("Created goods %d (%s)", g.ID, g.Name)
	}

	log.Printf("Seeded %d goods for %s - %s", len(samples), start.Format(time.DateOnly), end.Format(time.DateOnly))
}
