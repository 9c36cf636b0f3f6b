package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"fulfillment-service/pkg/database"

	"go.uber.org/zap"
)

type Config struct {
	Port      string
	GRPCPort  string
	DB        DB
	Redis     Redis
	Kafka     Kafka
	Stripe    Stripe
	Carrier   Carrier
	JWT       JWT
	Inventory Inventory
	Otel      Otel

	CORSOrigins []string
}

type DB struct {
	database.Config
}

type Redis struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

type Kafka struct {
	Brokers     []string
	TopicOrders string
}

type Stripe struct {
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
}

type Address struct {
	Name         string
	Address1     string
	City         string
	ProvinceCode string
	PostalCode   string
	CountryCode  string
}

type Carrier struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	UnitWeight  float64
	UnitHeight  float64
	Length      float64
	Width       float64
	WeightUnit  string
	SizeUnit    string
	PostageType string
	Store       Address
}

type JWT struct {
	Secret string
}

type Inventory struct {
	ReservationTTL time.Duration
	SweepInterval  time.Duration
}

type Otel struct {
	Enabled    bool
	Endpoint   string
	AuthHeader string
	Insecure   bool
}

func Load(log *zap.Logger) *Config {
	return &Config{
		Port:     getEnv("APP_PORT", log),
		GRPCPort: getEnvDefault("GRPC_PORT", ":9090"),
		DB: DB{
			Config: database.Config{
				Host:     getEnv("DB_HOST", log),
				Port:     getEnv("DB_PORT", log),
				User:     getEnv("DB_USER", log),
				Password: getEnv("DB_PASSWORD", log),
				Name:     getEnv("DB_NAME", log),
				SSLMode:  getEnv("DB_SSLMODE", log),
			},
		},
		Redis: Redis{
			Enabled:  getEnvDefault("REDIS_ENABLED", "false") == "true",
			Addr:     getEnvDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvDefault("REDIS_PASSWORD", ""),
			DB:       atoiDefault(getEnvDefault("REDIS_DB", "0"), 0),
			LockTTL:  parseDurationWithDays(getEnvDefault("ENTITY_LOCK_TTL", "30s")),
		},
		Kafka: Kafka{
			Brokers:     splitAndTrim(os.Getenv("KAFKA_BROKERS")),
			TopicOrders: getEnvDefault("KAFKA_TOPIC_ORDERS", "orders.events"),
		},
		Stripe: Stripe{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", log),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", log),
			Timeout:       parseDurationWithDays(getEnvDefault("STRIPE_TIMEOUT", "15s")),
		},
		Carrier: Carrier{
			BaseURL:     getEnvDefault("CARRIER_BASE_URL", "https://ship.stallionexpress.ca/api/v4"),
			APIKey:      getEnv("STALLION_API_KEY", log),
			Timeout:     parseDurationWithDays(getEnvDefault("CARRIER_TIMEOUT", "10s")),
			UnitWeight:  parseFloatDefault(getEnvDefault("SHIP_UNIT_WEIGHT", "0.5"), 0.5),
			UnitHeight:  parseFloatDefault(getEnvDefault("SHIP_UNIT_HEIGHT", "1"), 1),
			Length:      parseFloatDefault(getEnvDefault("SHIP_LENGTH", "9"), 9),
			Width:       parseFloatDefault(getEnvDefault("SHIP_WIDTH", "12"), 12),
			WeightUnit:  getEnvDefault("SHIP_WEIGHT_UNIT", "lbs"),
			SizeUnit:    getEnvDefault("SHIP_SIZE_UNIT", "cm"),
			PostageType: getEnvDefault("SHIP_POSTAGE_TYPE", ""),
			Store: Address{
				Name:         getEnvDefault("STORE_NAME", "Nirvana Clothing"),
				Address1:     getEnvDefault("STORE_ADDRESS1", "123 Manufacturing Blvd"),
				City:         getEnvDefault("STORE_CITY", "Toronto"),
				ProvinceCode: getEnvDefault("STORE_PROVINCE_CODE", "ON"),
				PostalCode:   getEnvDefault("STORE_POSTAL_CODE", "M5V 2H1"),
				CountryCode:  getEnvDefault("STORE_COUNTRY_CODE", "CA"),
			},
		},
		JWT: JWT{
			Secret: getEnv("JWT_SECRET", log),
		},
		Inventory: Inventory{
			ReservationTTL: parseDurationWithDays(getEnvDefault("RESERVATION_TTL", "15m")),
			SweepInterval:  parseDurationWithDays(getEnvDefault("SWEEP_INTERVAL", "5m")),
		},
		Otel: Otel{
			Enabled:    getEnvDefault("OTEL_ENABLED", "false") == "true",
			Endpoint:   getEnvDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			AuthHeader: getEnvDefault("OTEL_AUTH_HEADER", ""),
			Insecure:   getEnvDefault("OTEL_INSECURE", "true") == "true",
		},
		CORSOrigins: splitAndTrim(getEnvDefault("CORS_ORIGINS", "*")),
	}
}

type Notifier struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	TMPLDir string

	KafkaBrokers []string
	KafkaGroupID string
	KafkaTopic   string
}

func LoadNotifier(log *zap.Logger) *Notifier {
	return &Notifier{
		SMTPHost:     getEnv("SMTP_HOST", log),
		SMTPPort:     getEnvInt("SMTP_PORT", log),
		SMTPUser:     getEnv("SMTP_USER", log),
		SMTPPassword: getEnv("SMTP_PASSWORD", log),
		SMTPFrom:     getEnv("SMTP_FROM", log),
		TMPLDir:      getEnv("TMPL_DIR", log),
		KafkaBrokers: splitAndTrim(os.Getenv("KAFKA_BROKERS")),
		KafkaGroupID: getEnvDefault("KAFKA_GROUP_ID", "fulfillment-notifier"),
		KafkaTopic:   getEnvDefault("KAFKA_TOPIC_ORDERS", "orders.events"),
	}
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("Обязательная переменная окружения не установлена", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func getEnvDefault(key, def string) string {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, log *zap.Logger) int {
	valStr := getEnv(key, log)
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Error("Ошибка преобразования переменной окружения в int", zap.String("key", key), zap.Error(err))
		panic("invalid int value for environment variable: " + key)
	}
	return val
}

func parseDurationWithDays(s string) time.Duration {
	if strings.HasSuffix(s, "d") {
		daysStr := strings.TrimSuffix(s, "d")
		days, err := time.ParseDuration(daysStr + "h")
		if err != nil {
			log.Printf("Ошибка парсинга длительности: %v", err)
			return 0
		}
		return time.Duration(24) * days
	}

	duration, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return duration
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func parseFloatDefault(s string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return f
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(s, ",") {
		pt := strings.TrimSpace(p)
		if pt != "" {
			parts = append(parts, pt)
		}
	}
	return parts
}
