package main

import (
	"context"
	"fmt"
	"os"

	"fulfillment-service/config"
	"fulfillment-service/internal/repository"
	"fulfillment-service/internal/service"
	"fulfillment-service/internal/sweeper"
	"fulfillment-service/pkg/database"
	"fulfillment-service/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.L()
	cfg := config.Load(log)

	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	repos := repository.New(db)
	inventorySvc := service.NewInventoryService(repos, cfg.Inventory.ReservationTTL, log)
	sweepSvc := sweeper.NewService(repos, inventorySvc, log)

	ctx := context.Background()

	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/sweeper/main.go [expired|orphaned|all|reset]")
		fmt.Println("  expired  - release reservations past their expiry")
		fmt.Println("  orphaned - clear reservations that lost their expiry")
		fmt.Println("  all      - expired + orphaned (default)")
		fmt.Println("  reset    - release every reservation (maintenance)")
		os.Exit(1)
	}

	var (
		rep sweeper.Report
		err error
	)
	switch os.Args[1] {
	case "expired":
		log.Info("releasing expired reservations")
		rep, err = sweepSvc.ReleaseExpired(ctx)
	case "orphaned":
		log.Info("healing orphaned reservations")
		rep, err = sweepSvc.HealOrphaned(ctx)
	case "reset":
		log.Warn("releasing ALL reservations")
		n, errReset := sweepSvc.ResetAll(ctx)
		if errReset != nil {
			log.Fatal("failed to reset reservations", zap.Error(errReset))
		}
		log.Info("reset completed", zap.Int("variants", n))
		return
	case "all":
		fallthrough
	default:
		log.Info("running full sweep")
		rep, err = sweepSvc.RunOnce(ctx)
	}
	if err != nil {
		log.Fatal("sweep failed", zap.Error(err))
	}

	log.Info("sweep completed",
		zap.Int("expired", rep.Expired),
		zap.Int("orphaned", rep.Orphaned),
		zap.Int("failed", rep.Failed))
}
