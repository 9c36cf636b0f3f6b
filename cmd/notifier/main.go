package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"fulfillment-service/config"
	"fulfillment-service/internal/consumer"
	"fulfillment-service/internal/sender"
	"fulfillment-service/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	if err := logger.Init(os.Getenv("ENV") == "development"); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.L()

	cfg := config.LoadNotifier(log)
	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal("KAFKA_BROKERS is empty")
	}

	emailSender := sender.NewEmailSender(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cons := consumer.NewKafkaEventConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaTopic, emailSender, log)
	defer cons.Close()

	go func() {
		if err := cons.Run(ctx); err != nil {
			log.Error("consumer stopped", zap.Error(err))
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
	log.Info("notifier shutting down")
	cancel()
}
