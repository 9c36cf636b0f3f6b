package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fulfillment-service/config"
	"fulfillment-service/internal/cache"
	"fulfillment-service/internal/handlers"
	"fulfillment-service/internal/payment"
	"fulfillment-service/internal/producer"
	"fulfillment-service/internal/repository"
	"fulfillment-service/internal/router"
	"fulfillment-service/internal/service"
	"fulfillment-service/internal/shipping"
	"fulfillment-service/internal/sweeper"
	"fulfillment-service/internal/token"
	"fulfillment-service/pkg/database"
	"fulfillment-service/pkg/logger"
	"fulfillment-service/pkg/observability"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const serviceName = "fulfillment-service"

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)

	if cfg.Otel.Enabled {
		shutdown, err := observability.Setup(context.Background(), observability.Config{
			ServiceName:    serviceName,
			ServiceVersion: os.Getenv("APP_VERSION"),
			Endpoint:       cfg.Otel.Endpoint,
			AuthHeader:     cfg.Otel.AuthHeader,
			Insecure:       cfg.Otel.Insecure,
		})
		if err != nil {
			log.Fatal("otel setup failed", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
		logger.WithOTel(serviceName, serviceName)
		log = logger.L()
		log.Info("OpenTelemetry enabled", zap.String("endpoint", cfg.Otel.Endpoint))
	}

	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	repos := repository.New(db)

	// блокировка заказа: Redis между репликами, иначе в памяти процесса
	var locker service.Locker
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.LockTTL, log)
		if err != nil {
			log.Fatal("failed to create redis client", zap.Error(err))
		}
		defer redisClient.Close()
		locker = redisClient
		log.Info("Redis locks enabled")
	} else {
		locker = cache.NewLocalLocker()
		log.Info("Redis disabled, using in-process locks")
	}

	var events service.EventBus
	if len(cfg.Kafka.Brokers) > 0 {
		kp := producer.NewEventProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrders)
		defer kp.Close()
		events = kp
		log.Info("Kafka producer enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.TopicOrders))
	}

	gateway := payment.NewStripeGateway(payment.Config{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		Timeout:       cfg.Stripe.Timeout,
	}, log)

	carrier := shipping.New(shipping.Config{
		BaseURL:     cfg.Carrier.BaseURL,
		APIKey:      cfg.Carrier.APIKey,
		Timeout:     cfg.Carrier.Timeout,
		UnitWeight:  cfg.Carrier.UnitWeight,
		UnitHeight:  cfg.Carrier.UnitHeight,
		Length:      cfg.Carrier.Length,
		Width:       cfg.Carrier.Width,
		WeightUnit:  cfg.Carrier.WeightUnit,
		SizeUnit:    cfg.Carrier.SizeUnit,
		PostageType: cfg.Carrier.PostageType,
		Store: service.Address{
			Name:         cfg.Carrier.Store.Name,
			Address1:     cfg.Carrier.Store.Address1,
			City:         cfg.Carrier.Store.City,
			ProvinceCode: cfg.Carrier.Store.ProvinceCode,
			PostalCode:   cfg.Carrier.Store.PostalCode,
			CountryCode:  cfg.Carrier.Store.CountryCode,
		},
	}, log)

	inventorySvc := service.NewInventoryService(repos, cfg.Inventory.ReservationTTL, log)
	paymentSvc := service.NewPaymentService(repos, inventorySvc, carrier, events, log)
	returnSvc := service.NewReturnService(repos, gateway, carrier, locker, events, log)
	orderSvc := service.NewOrderService(repos)

	sweepSvc := sweeper.NewService(repos, inventorySvc, log)
	scheduler := sweeper.NewScheduler(sweepSvc, cfg.Inventory.SweepInterval, log)

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	scheduler.Start(sweepCtx)

	tokens := token.NewHSParser(cfg.JWT.Secret)

	r := router.Router(router.Handlers{
		Webhook:   handlers.NewWebhookHandler(gateway, paymentSvc, log),
		Orders:    handlers.NewOrderHandler(orderSvc, log),
		Returns:   handlers.NewReturnHandler(returnSvc, log),
		Inventory: handlers.NewInventoryHandler(inventorySvc, log),
		Shipping:  handlers.NewShippingHandler(carrier, log),
		Admin:     handlers.NewAdminHandler(paymentSvc, scheduler, log),
	}, tokens, cfg.CORSOrigins, log)

	httpSrv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPCPort)
	if err != nil {
		log.Fatal("failed to listen", zap.Error(err))
	}
	grpcServer := grpc.NewServer()

	// Health server
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthSrv.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthSrv)

	reflection.Register(grpcServer)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Starting HTTP server", zap.String("addr", cfg.Port))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		log.Info("Starting gRPC health server", zap.String("addr", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal("gRPC server failed", zap.Error(err))
		}
	}()

	<-quit
	log.Info("Shutting down...")

	healthSrv.Shutdown()

	// Останавливаем планировщик
	scheduler.Stop()
	sweepCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Error("HTTP shutdown", zap.Error(err))
	}

	grpcServer.GracefulStop()
	log.Info("Server stopped gracefully")
}
