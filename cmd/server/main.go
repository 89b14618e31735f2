package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/kinderpay/billing-service/internal/api/rest"
	"github.com/kinderpay/billing-service/internal/config"
	"github.com/kinderpay/billing-service/internal/domain"
	"github.com/kinderpay/billing-service/internal/kafka"
	"github.com/kinderpay/billing-service/internal/kafka/producer"
	"github.com/kinderpay/billing-service/internal/metrics"
	"github.com/kinderpay/billing-service/internal/repository"
	"github.com/kinderpay/billing-service/internal/repository/postgres"
	"github.com/kinderpay/billing-service/internal/service"
	"github.com/kinderpay/billing-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

var log *logger.Logger

func init() {
	// A missing .env file is fine, env vars may come from elsewhere
	_ = godotenv.Load()

	logLevel := logger.INFO
	if os.Getenv("DEBUG") == "true" {
		logLevel = logger.DEBUG
	}
	log = logger.New(logLevel)
}

func main() {
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	promRegistry := prometheus.NewRegistry()
	billingMetrics := metrics.NewBillingMetrics(promRegistry, log)

	billing := domain.DefaultBillingConfig()
	if cfg.Billing.MonthlyFee != "" {
		fee, err := decimal.NewFromString(cfg.Billing.MonthlyFee)
		if err != nil || !fee.IsPositive() {
			log.Fatal("Invalid monthly fee in configuration: %q", cfg.Billing.MonthlyFee)
		}
		billing.MonthlyFee = fee
	}
	if cfg.Billing.Currency != "" {
		billing.Currency = cfg.Billing.Currency
	}

	// Repositories: postgres when a DSN is configured, in-memory
	// otherwise so the service can run standalone
	var (
		customerRepo  repository.CustomerRepository
		methodRepo    repository.PaymentMethodRepository
		paymentRepo   repository.PaymentRepository
		agreementRepo repository.AgreementRepository
	)

	if cfg.Database.DSN != "" {
		dbPool, err := postgres.NewPool(ctx, cfg.Database.DSN, log)
		if err != nil {
			log.Fatal("Failed to connect to database: %v", err)
		}
		defer dbPool.Close()

		customerRepo = postgres.NewCustomerRepository(dbPool, log)
		methodRepo = postgres.NewPaymentMethodRepository(dbPool, log)
		paymentRepo = postgres.NewPaymentRepository(dbPool, log)
		agreementRepo = postgres.NewAgreementRepository(dbPool, log)
	} else {
		log.Warn("No database DSN configured, using in-memory storage")

		payments := repository.NewInMemoryPaymentRepository(log)
		customerRepo = repository.NewInMemoryCustomerRepository(log)
		methodRepo = repository.NewInMemoryPaymentMethodRepository(log)
		paymentRepo = payments
		agreementRepo = repository.NewInMemoryAgreementRepository(payments, log)
	}

	if cfg.Redis.Addr != "" {
		cache, err := repository.NewRedisCacheRepository(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Fatal("Failed to connect to Redis: %v", err)
		}
		agreementRepo = repository.NewCachedAgreementRepository(agreementRepo, cache, log)
	}

	var billingProducer producer.BillingProducer
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopics(cfg.Kafka.Brokers, log); err != nil {
			log.Fatal("Failed to ensure Kafka topics: %v", err)
		}

		kafkaConfig := kafka.NewConfig(cfg.Kafka.Brokers)
		saramaConfig := kafka.NewSaramaConfig(kafkaConfig, log)

		kafkaProducer, err := sarama.NewSyncProducer(kafkaConfig.Brokers, saramaConfig)
		if err != nil {
			log.Fatal("Failed to create Kafka producer: %v", err)
		}
		defer kafkaProducer.Close()

		billingProducer = producer.NewKafkaBillingProducer(kafkaProducer, log)
	} else {
		log.Warn("Kafka disabled, billing events will not be published")
	}

	newID := service.NewUUIDGenerator()
	services := rest.Services{
		Customers: service.NewCustomerService(customerRepo, newID, log),
		Vault:     service.NewVaultService(methodRepo, customerRepo, newID, log),
		Scheduler: service.NewSchedulerService(agreementRepo, methodRepo, billing, newID, billingProducer, billingMetrics, log),
		Ledger:    service.NewLedgerService(paymentRepo, billingProducer, billingMetrics, log),
		Billing:   billing,
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := rest.SetupRouter(services, log, promRegistry)
	server := rest.NewServer(router, cfg.App.Port, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}
