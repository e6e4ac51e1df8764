package api

import (
	"bank-reports/internal/api/handler"
	mw "bank-reports/internal/api/middleware"
	"bank-reports/internal/config"
	"bank-reports/internal/domain/report"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(reportService report.Service, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(router, cfg, logger)
	setupMetricsEndpoint(router, cfg, logger)
	setupReportRoutes(router, reportService, cfg, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return router
}

func setupMiddleware(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(mw.NewRateLimiterMiddleware(cfg.Server.RateLimit, logger).Middleware)
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

func setupReportRoutes(router *chi.Mux, svc report.Service, cfg *config.Config, logger *slog.Logger) {
	reportHandler := handler.NewReportHandler(svc, logger)
	authHandler := handler.NewAuthHandler(*cfg, logger)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/token", authHandler.GenerateBearerToken)
	})

	router.Route("/reports", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Get("/customers-by-location", reportHandler.CustomersByLocation)
		r.Get("/balance-by-currency", reportHandler.BalanceByCurrency)
		r.Get("/active-loans/{dni}", reportHandler.ActiveLoansByDNI)
		r.Get("/top-customers", reportHandler.TopCustomersByVolume)
		r.Get("/pending-installments", reportHandler.PendingInstallments)
		r.Get("/customer-summary", reportHandler.CustomerSummary)
		r.Post("/customer-summary/view", reportHandler.CreateCustomerSummaryView)
	})
}
