package api

import (
	_ "credit-ledger/docs"
	"credit-ledger/internal/api/handler"
	mw "credit-ledger/internal/api/middleware"
	"credit-ledger/internal/config"
	"credit-ledger/internal/domain/customer"
	"credit-ledger/internal/domain/loan"
	"credit-ledger/internal/domain/payment"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// Services bundles the domain services exposed over HTTP.
type Services struct {
	Customers customer.CustomerService
	Loans     loan.LoanService
	Payments  payment.PaymentService
}

// SetupRouter builds the HTTP surface. redisClient may be nil, in which case rate
// limiting falls back to in-process buckets and Idempotency-Key is ignored.
func SetupRouter(svc Services, cfg *config.Config, redisClient *redis.Client, rateLimiter *mw.RateLimiterMiddleware, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(router, rateLimiter, logger)
	setupMetricsEndpoint(router, cfg, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	setupSwaggerEndpoint(router, logger)

	authHandler := handler.NewAuthHandler(cfg.Server.Auth, logger)
	router.Post("/auth/token", authHandler.GenerateBearerToken)

	router.Group(func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		setupCustomerRoutes(r, svc, logger)
		setupLoanRoutes(r, svc.Loans, logger)
		setupPaymentRoutes(r, svc.Payments, mw.Idempotency(redisClient, cfg.Redis.IdempotencyTTL, logger), logger)
	})

	return router
}

func setupMiddleware(router *chi.Mux, rateLimiter *mw.RateLimiterMiddleware, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	if rateLimiter != nil {
		router.Use(rateLimiter.Middleware)
	}
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupSwaggerEndpoint(router *chi.Mux, logger *slog.Logger) {
	logger.Info("Setting up Swagger UI endpoint", "path", "/swagger/")
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
}

func setupCustomerRoutes(r chi.Router, svc Services, logger *slog.Logger) {
	h := handler.NewCustomerHandler(svc.Customers, logger)
	loans := handler.NewLoanHandler(svc.Loans, logger)
	payments := handler.NewPaymentHandler(svc.Payments, logger)

	r.Route("/customers", func(r chi.Router) {
		r.Post("/", h.CreateCustomer)
		r.Get("/", h.ListCustomers)
		r.Route("/{customerID}", func(r chi.Router) {
			r.Get("/", h.GetCustomer)
			r.Patch("/", h.UpdateCustomer)
			r.Delete("/", h.DeleteCustomer)
			r.Get("/loans", loans.ListCustomerLoans)
			r.Get("/payments", payments.ListCustomerPayments)
			r.Get("/debt", loans.GetCustomerDebt)
		})
	})
}

func setupLoanRoutes(r chi.Router, svc loan.LoanService, logger *slog.Logger) {
	h := handler.NewLoanHandler(svc, logger)

	r.Route("/loans", func(r chi.Router) {
		r.Post("/", h.CreateLoan)
		r.Get("/", h.ListLoans)
		r.Get("/{loanID}", h.GetLoan)
		r.Patch("/{loanID}", h.UpdateLoan)
		r.Delete("/{loanID}", h.DeleteLoan)
	})
}

func setupPaymentRoutes(r chi.Router, svc payment.PaymentService, idempotent func(http.Handler) http.Handler, logger *slog.Logger) {
	h := handler.NewPaymentHandler(svc, logger)

	r.Route("/payments", func(r chi.Router) {
		r.With(idempotent).Post("/", h.ApplyPayment)
		r.Get("/{paymentID}", h.GetPayment)
		r.With(idempotent).Post("/{paymentID}/reject", h.RejectPayment)
	})
}
