package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/kinderpay/billing-service/internal/api/rest/handlers"
	"github.com/kinderpay/billing-service/internal/api/rest/middleware"
	"github.com/kinderpay/billing-service/internal/domain"
	"github.com/kinderpay/billing-service/internal/schedule"
	"github.com/kinderpay/billing-service/internal/service"
	"github.com/kinderpay/billing-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services bundles the service layer the router exposes
type Services struct {
	Customers service.CustomerService
	Vault     service.VaultService
	Scheduler service.SchedulerService
	Ledger    service.LedgerService
	Billing   domain.BillingConfig
}

// SetupRouter builds the Gin router with all routes and middleware
func SetupRouter(svcs Services, log *logger.Logger, registry *prometheus.Registry) *gin.Engine {
	registerValidations(log)

	r := gin.New()

	r.Use(middleware.LoggerMiddleware(log))
	r.Use(gin.Recovery())

	r.GET("/health", handlers.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	customerHandler := handlers.NewCustomerHandler(svcs.Customers, log)
	methodHandler := handlers.NewMethodHandler(svcs.Vault, log)
	agreementHandler := handlers.NewAgreementHandler(svcs.Scheduler, log)
	paymentHandler := handlers.NewPaymentHandler(svcs.Ledger, log)
	validateHandler := handlers.NewValidateHandler(log)
	configHandler := handlers.NewConfigHandler(svcs.Billing)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/config", configHandler.GetConfig)

		validate := v1.Group("/validate")
		{
			validate.POST("/card", validateHandler.ValidateCard)
			validate.POST("/bank-account", validateHandler.ValidateBankAccount)
		}

		customers := v1.Group("/customers")
		{
			customers.POST("", customerHandler.RegisterCustomer)
			customers.GET("/:id", customerHandler.GetCustomer)
			customers.DELETE("/:id", customerHandler.DeactivateCustomer)
			customers.GET("/:id/payment-methods", methodHandler.ListMethods)
			customers.GET("/:id/agreements", agreementHandler.ListAgreements)
			customers.GET("/:id/payments", paymentHandler.GetHistory)
		}

		methods := v1.Group("/payment-methods")
		{
			methods.POST("/cards", methodHandler.AddCard)
			methods.POST("/bank-accounts", methodHandler.AddBankAccount)
			methods.PUT("/:id/default", methodHandler.SetDefault)
			methods.DELETE("/:id", methodHandler.DeactivateMethod)
		}

		agreements := v1.Group("/agreements")
		{
			agreements.POST("", agreementHandler.CreateAgreement)
			agreements.GET("/:id", agreementHandler.GetAgreement)
			agreements.POST("/:id/advance", agreementHandler.AdvanceAgreement)
			agreements.POST("/:id/pause", agreementHandler.PauseAgreement)
			agreements.POST("/:id/resume", agreementHandler.ResumeAgreement)
			agreements.POST("/:id/cancel", agreementHandler.CancelAgreement)
		}

		payments := v1.Group("/payments")
		{
			payments.GET("/pending", paymentHandler.GetPendingDue)
			payments.GET("/:id", paymentHandler.GetPayment)
			payments.PUT("/:id/outcome", paymentHandler.MarkOutcome)
		}
	}

	return r
}

// registerValidations adds the billingdate binding rule used by the
// agreement request tags
func registerValidations(log *logger.Logger) {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		log.Warn("Unexpected binding validator engine, custom validations skipped")
		return
	}

	_ = v.RegisterValidation("billingdate", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if value == "" {
			return true
		}
		_, err := schedule.ParseDate(value)
		return err == nil
	})
}
