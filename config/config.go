package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type Config struct {
	ServicePort      string
	MetricsPort      string
	Environment      string
	DBDriver         string
	PostgreSQLConfig PostgreSQLConfig
	SQLiteConfig     SQLiteConfig
	JWTSecret        string
	MidtransConfig   MidtransConfig
	ExpressConfig    ExpressConfig
	ReferenceConfig  ReferenceConfig
	KafkaConfig      KafkaConfig
	MongoDBConfig    MongoDBConfig
	SMTPConfig       SMTPConfig
	TracingConfig    TracingConfig
	SettlementConfig SettlementConfig
	RateLimit        float64
}

func CreateNewConfig() *Config {
	godotenv.Load(".env")

	conf := Config{
		ServicePort: getEnv("SERVICE_PORT", "8080"),
		MetricsPort: getEnv("METRICS_PORT", "8081"),
		Environment: getEnv("ENVIRONMENT", "development"),
		DBDriver:    getEnv("DB_DRIVER", "postgres"),
		PostgreSQLConfig: PostgreSQLConfig{
			DBHost:       os.Getenv("DB_HOST"),
			DBName:       os.Getenv("DB_NAME"),
			DBPort:       getEnv("DB_PORT", "5432"),
			DBUsername:   os.Getenv("DB_USERNAME"),
			DBPassword:   os.Getenv("DB_PASSWORD"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getInt("DB_MAX_OPEN_CONNS", 20),
		},
		SQLiteConfig: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "settlement.db"),
		},
		JWTSecret: os.Getenv("JWT_SECRET"),
		MidtransConfig: MidtransConfig{
			ServerKey:  os.Getenv("MIDTRANS_SERVER_KEY"),
			Production: getBool("MIDTRANS_PRODUCTION", false),
		},
		ExpressConfig: ExpressConfig{
			BaseURL:       os.Getenv("EXPRESS_BASE_URL"),
			APIKey:        os.Getenv("EXPRESS_API_KEY"),
			WebhookSecret: os.Getenv("EXPRESS_WEBHOOK_SECRET"),
			Currency:      getEnv("EXPRESS_CURRENCY", "AOA"),
		},
		ReferenceConfig: ReferenceConfig{
			BaseURL:       os.Getenv("REFERENCE_BASE_URL"),
			APIKey:        os.Getenv("REFERENCE_API_KEY"),
			EntityID:      os.Getenv("REFERENCE_ENTITY_ID"),
			WebhookSecret: os.Getenv("REFERENCE_WEBHOOK_SECRET"),
			Currency:      getEnv("REFERENCE_CURRENCY", "AOA"),
		},
		KafkaConfig: KafkaConfig{
			BrokerAddress: os.Getenv("BROKER_ADDRESS"),
			BrokerTopic:   getEnv("BROKER_TOPIC", "settlement-events"),
		},
		MongoDBConfig: MongoDBConfig{
			URI:      os.Getenv("MONGODB_URI"),
			Database: getEnv("MONGODB_DATABASE", "product_service"),
		},
		SMTPConfig: SMTPConfig{
			Host:          os.Getenv("SMTP_HOST"),
			Port:          getInt("SMTP_PORT", 587),
			Username:      os.Getenv("SMTP_USERNAME"),
			Password:      os.Getenv("SMTP_PASSWORD"),
			Sender:        os.Getenv("SMTP_SENDER"),
			OperatorEmail: os.Getenv("OPERATOR_EMAIL"),
		},
		TracingConfig: TracingConfig{
			CollectorHost: os.Getenv("COLLECTOR_HOST"),
			ServiceName:   getEnv("SERVICE_NAME", "settlement-service"),
		},
		SettlementConfig: SettlementConfig{
			Currency:              getEnv("SETTLEMENT_CURRENCY", "AOA"),
			RatesFile:             os.Getenv("CURRENCY_RATES_FILE"),
			PlatformFeePercent:    getDecimal("PLATFORM_FEE_PERCENT", decimal.NewFromInt(10)),
			ReuseWindow:           getDuration("ORDER_REUSE_WINDOW", 30*time.Minute),
			ProviderTimeout:       getDuration("PROVIDER_TIMEOUT", 15*time.Second),
			FanOutTimeout:         getDuration("FANOUT_TIMEOUT", 30*time.Second),
			ReconcileInterval:     getDuration("RECONCILE_INTERVAL", time.Minute),
			ReconcileMinAge:       getDuration("RECONCILE_MIN_AGE", 2*time.Minute),
			ReconcileConcurrency:  getInt("RECONCILE_CONCURRENCY", 4),
			AbandonedCartAfter:    getDuration("ABANDONED_CART_AFTER", 2*time.Hour),
			AbandonedCartInterval: getDuration("ABANDONED_CART_INTERVAL", 15*time.Minute),
			CatalogCacheSize:      getInt("CATALOG_CACHE_SIZE", 1024),
			CatalogCacheTTL:       getDuration("CATALOG_CACHE_TTL", 5*time.Minute),
		},
		RateLimit: getFloat("RATE_LIMIT_PER_SECOND", 20),
	}

	return &conf
}

// Validate reports settings without which the service cannot start.
// Provider credentials are not checked here; a provider without them is
// disabled individually.
func (c *Config) Validate() error {
	var errList []error

	switch c.DBDriver {
	case "postgres":
		if c.PostgreSQLConfig.DBHost == "" || c.PostgreSQLConfig.DBName == "" {
			errList = append(errList, errors.New("DB_HOST and DB_NAME are required for the postgres driver"))
		}
	case "sqlite":
		if c.SQLiteConfig.Path == "" {
			errList = append(errList, errors.New("SQLITE_PATH is required for the sqlite driver"))
		}
	default:
		errList = append(errList, errors.New("DB_DRIVER must be postgres or sqlite"))
	}

	if c.JWTSecret == "" {
		errList = append(errList, errors.New("JWT_SECRET is required"))
	}

	if c.SettlementConfig.PlatformFeePercent.IsNegative() || c.SettlementConfig.PlatformFeePercent.GreaterThan(decimal.NewFromInt(100)) {
		errList = append(errList, errors.New("PLATFORM_FEE_PERCENT must be between 0 and 100"))
	}

	return errors.Join(errList...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("invalid integer, using default")
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("invalid number, using default")
		return fallback
	}
	return f
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("invalid boolean, using default")
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("invalid duration, using default")
		return fallback
	}
	return d
}

func getDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	d, err := decimal.NewFromString(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("invalid decimal, using default")
		return fallback
	}
	return d
}
