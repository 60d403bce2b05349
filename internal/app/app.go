package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/alimikegami/digital-store/settlement-service/config"
	"github.com/alimikegami/digital-store/settlement-service/internal/controller"
	"github.com/alimikegami/digital-store/settlement-service/internal/currency"
	"github.com/alimikegami/digital-store/settlement-service/internal/domain"
	"github.com/alimikegami/digital-store/settlement-service/internal/infrastructure/database/mongodb"
	"github.com/alimikegami/digital-store/settlement-service/internal/infrastructure/database/postgres"
	"github.com/alimikegami/digital-store/settlement-service/internal/infrastructure/database/sqlite"
	"github.com/alimikegami/digital-store/settlement-service/internal/infrastructure/message-queue/kafka"
	"github.com/alimikegami/digital-store/settlement-service/internal/infrastructure/tracing"
	localmiddleware "github.com/alimikegami/digital-store/settlement-service/internal/middleware"
	"github.com/alimikegami/digital-store/settlement-service/internal/provider"
	"github.com/alimikegami/digital-store/settlement-service/internal/provider/card"
	"github.com/alimikegami/digital-store/settlement-service/internal/provider/express"
	"github.com/alimikegami/digital-store/settlement-service/internal/provider/reference"
	"github.com/alimikegami/digital-store/settlement-service/internal/repository"
	"github.com/alimikegami/digital-store/settlement-service/internal/service"
	"github.com/alimikegami/digital-store/settlement-service/pkg/response"
	"github.com/alimikegami/digital-store/settlement-service/pkg/utils"
	"github.com/go-co-op/gocron/v2"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// App wires the settlement service. Catalog, Publisher and Alerter may be
// set before Setup to replace the Mongo, Kafka and SMTP backed defaults.
type App struct {
	DB     *sqlx.DB
	Config *config.Config
	Server *echo.Echo

	Catalog   repository.ProductRepository
	Publisher service.EventPublisher
	Alerter   service.Alerter
	Registry  *provider.Registry

	Settlement service.SettlementService
	Wallet     service.WalletService

	reconciler    *service.Reconciler
	abandonedCart *service.AbandonedCartDetector
	scheduler     gocron.Scheduler
	traceProvider *sdktrace.TracerProvider
}

func InitLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = logger
	zerolog.DefaultContextLogger = &logger

	return logger
}

// OpenDatabase connects to the database selected by DB_DRIVER.
func OpenDatabase(conf *config.Config) (*sqlx.DB, error) {
	switch conf.DBDriver {
	case "sqlite":
		return sqlite.Open(conf.SQLiteConfig.Path)
	case "postgres":
		return postgres.GetDBInstance(conf.PostgreSQLConfig)
	}
	return nil, fmt.Errorf("unknown DB_DRIVER %q", conf.DBDriver)
}

func NewNormalizer(conf config.SettlementConfig) (*currency.Normalizer, error) {
	if conf.RatesFile == "" {
		return currency.NewNormalizer(conf.Currency, currency.DefaultRates()), nil
	}

	settlement, rates, err := currency.LoadRates(conf.RatesFile)
	if err != nil {
		return nil, err
	}
	if settlement == "" {
		settlement = conf.Currency
	}

	return currency.NewNormalizer(settlement, rates), nil
}

// NewRegistry builds every provider adapter. A provider that cannot be
// built is marked misconfigured so only its method is disabled.
func NewRegistry(conf *config.Config, normalizer *currency.Normalizer) *provider.Registry {
	registry := provider.NewRegistry()
	timeout := conf.SettlementConfig.ProviderTimeout

	register := func(method domain.PaymentMethod, adapter provider.Adapter, err error) {
		if err != nil {
			log.Warn().Err(err).Str("component", "NewRegistry").Str("payment_method", string(method)).Msg("payment method disabled")
			registry.MarkMisconfigured(method, err.Error())
			return
		}
		registry.Register(adapter)
	}

	cardAdapter, err := card.New(card.Config{
		ServerKey:  conf.MidtransConfig.ServerKey,
		Production: conf.MidtransConfig.Production,
		Timeout:    timeout,
	}, normalizer)
	register(domain.PaymentMethodCard, cardAdapter, err)

	expressAdapter, err := express.New(express.Config{
		BaseURL:       conf.ExpressConfig.BaseURL,
		APIKey:        conf.ExpressConfig.APIKey,
		WebhookSecret: conf.ExpressConfig.WebhookSecret,
		Currency:      conf.ExpressConfig.Currency,
		Timeout:       timeout,
	}, normalizer)
	register(domain.PaymentMethodExpress, expressAdapter, err)

	referenceAdapter, err := reference.New(reference.Config{
		BaseURL:       conf.ReferenceConfig.BaseURL,
		APIKey:        conf.ReferenceConfig.APIKey,
		EntityID:      conf.ReferenceConfig.EntityID,
		WebhookSecret: conf.ReferenceConfig.WebhookSecret,
		Currency:      conf.ReferenceConfig.Currency,
		Timeout:       timeout,
	}, normalizer)
	register(domain.PaymentMethodReference, referenceAdapter, err)

	return registry
}

// Setup builds the services and routes without listening on any port.
func (app *App) Setup() error {
	conf := app.Config

	normalizer, err := NewNormalizer(conf.SettlementConfig)
	if err != nil {
		return err
	}

	if app.Registry == nil {
		app.Registry = NewRegistry(conf, normalizer)
	}

	if app.Catalog == nil {
		mongoDB, err := mongodb.ConnectToMongoDB(conf.MongoDBConfig.URI, conf.MongoDBConfig.Database)
		if err != nil {
			return fmt.Errorf("connecting to catalog: %w", err)
		}
		app.Catalog = repository.CreateCachedProductRepository(repository.CreateMongoDBProductRepository(mongoDB), conf.SettlementConfig.CatalogCacheSize, conf.SettlementConfig.CatalogCacheTTL)
	}

	if app.Publisher == nil {
		app.Publisher = service.CreateKafkaEventPublisher(kafka.CreateKafkaWriter(conf.KafkaConfig))
	}

	if app.Alerter == nil {
		if conf.SMTPConfig.Host != "" && conf.SMTPConfig.OperatorEmail != "" {
			app.Alerter = service.CreateMailAlerter(utils.SMTPConfig{
				Host:     conf.SMTPConfig.Host,
				Port:     conf.SMTPConfig.Port,
				Username: conf.SMTPConfig.Username,
				Password: conf.SMTPConfig.Password,
			}, conf.SMTPConfig.Sender, conf.SMTPConfig.OperatorEmail)
		} else {
			app.Alerter = service.LogAlerter{}
		}
	}

	orderRepo := repository.CreateOrderRepository(app.DB)
	walletRepo := repository.CreateWalletRepository(app.DB)
	accessRepo := repository.CreateAccessRepository(app.DB)
	balanceRepo := repository.CreateBalanceRepository(app.DB)

	app.Wallet = service.CreateWalletService(walletRepo, normalizer.SettlementCurrency())
	fanOut := service.CreateFanOut(accessRepo, balanceRepo, app.Catalog, app.Publisher, app.Alerter, conf.SettlementConfig.FanOutTimeout)
	checkoutSvc := service.CreateCheckoutService(orderRepo, app.Catalog, app.Registry, normalizer, conf.SettlementConfig)
	app.Settlement = service.CreateSettlementService(orderRepo, app.Wallet, app.Registry, normalizer, fanOut, app.Alerter)
	app.reconciler = service.CreateReconciler(orderRepo, app.Settlement, conf.SettlementConfig)
	app.abandonedCart = service.CreateAbandonedCartDetector(orderRepo, app.Publisher, conf.SettlementConfig)

	e := echo.New()
	e.HideBanner = true

	if conf.TracingConfig.CollectorHost != "" {
		traceProvider, err := tracing.InitTracing(tracing.Config{
			CollectorHost:      conf.TracingConfig.CollectorHost,
			ServiceName:        conf.TracingConfig.ServiceName,
			Environment:        conf.Environment,
			SettlementCurrency: normalizer.SettlementCurrency(),
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize tracing")
		} else {
			app.traceProvider = traceProvider
			e.Use(tracing.Middleware(traceProvider.Tracer(conf.TracingConfig.ServiceName)))
		}
	}

	// Used empty string so that metrics are not prefixed with the service name making it easier to aggregate across services
	e.Use(echoprometheus.NewMiddleware(""))
	e.Use(localmiddleware.Logger)

	g := e.Group("/api/v1")

	rateLimit := localmiddleware.RateLimiter(conf.RateLimit)
	controller.CreateCheckoutController(g, checkoutSvc, rateLimit)
	controller.CreateWalletController(g, app.Wallet, app.Settlement, rateLimit)
	controller.CreateWebhookController(g, app.Settlement)
	controller.CreateAdminController(g, app.Settlement, app.Wallet, localmiddleware.IsLoggedIn(conf.JWTSecret), localmiddleware.OperatorOnly)

	g.GET("/ping", func(c echo.Context) error {
		return response.WriteSuccessResponse(c, "Hello, World!", nil)
	})

	app.Server = e

	return nil
}

// StartJobs schedules the reconciler and the abandoned-cart detector.
func (app *App) StartJobs() error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	_, err = s.NewJob(
		gocron.DurationJob(app.Config.SettlementConfig.ReconcileInterval),
		gocron.NewTask(app.reconciler.ReconcilePendingOrders),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	_, err = s.NewJob(
		gocron.DurationJob(app.Config.SettlementConfig.AbandonedCartInterval),
		gocron.NewTask(app.abandonedCart.DetectAbandonedCarts),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	s.Start()
	app.scheduler = s

	return nil
}

// Start serves metrics and the API and blocks until the API server stops.
func (app *App) Start() error {
	go func() {
		metrics := echo.New()
		metrics.HideBanner = true
		metrics.GET("/metrics", echoprometheus.NewHandler())
		if err := metrics.Start(fmt.Sprintf(":%s", app.Config.MetricsPort)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start metrics server")
		}
	}()

	err := app.Server.Start(fmt.Sprintf(":%s", app.Config.ServicePort))
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (app *App) StopServer() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if app.scheduler != nil {
		if err := app.scheduler.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Failed to stop scheduler")
		}
	}

	if app.traceProvider != nil {
		if err := app.traceProvider.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown tracing")
		}
	}

	if app.Server == nil {
		return nil
	}
	return app.Server.Shutdown(ctx)
}
