package config

import (
	"time"

	"github.com/shopspring/decimal"
)

type PostgreSQLConfig struct {
	DBHost       string
	DBName       string
	DBPort       string
	DBUsername   string
	DBPassword   string
	SSLMode      string
	MaxOpenConns int
}

type SQLiteConfig struct {
	Path string
}

type MidtransConfig struct {
	ServerKey  string
	Production bool
}

type ExpressConfig struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
	Currency      string
}

type ReferenceConfig struct {
	BaseURL       string
	APIKey        string
	EntityID      string
	WebhookSecret string
	Currency      string
}

type KafkaConfig struct {
	BrokerAddress string
	BrokerTopic   string
}

type MongoDBConfig struct {
	URI      string
	Database string
}

type SMTPConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	Sender        string
	OperatorEmail string
}

type TracingConfig struct {
	CollectorHost string
	ServiceName   string
}

type SettlementConfig struct {
	Currency              string
	RatesFile             string
	PlatformFeePercent    decimal.Decimal
	ReuseWindow           time.Duration
	ProviderTimeout       time.Duration
	FanOutTimeout         time.Duration
	ReconcileInterval     time.Duration
	ReconcileMinAge       time.Duration
	ReconcileConcurrency  int
	AbandonedCartAfter    time.Duration
	AbandonedCartInterval time.Duration
	CatalogCacheSize      int
	CatalogCacheTTL       time.Duration
}
