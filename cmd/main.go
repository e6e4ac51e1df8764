package main

import (
	"bank-reports/internal/api"
	"bank-reports/internal/batch"
	"bank-reports/internal/config"
	"bank-reports/internal/domain/report"
	"bank-reports/internal/event"
	"bank-reports/internal/export"
	"bank-reports/internal/fixture"
	"bank-reports/internal/infrastructure/database/postgres"
	"bank-reports/internal/infrastructure/logging"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

type cliFlags struct {
	configPath string
	serve      bool
	seed       bool
	all        bool
	reportName string
	dni        string
	outDir     string

	dbHost     string
	dbPort     int
	dbUser     string
	dbPassword string
	dbName     string
}

func main() {
	flags, explicit := parseFlags()

	cfg, logger := initializeApp(flags.configPath)
	applyOverrides(cfg, flags, explicit)

	dbPool := initializeDatabase(cfg, logger)
	defer closeDatabase(dbPool, logger)

	reportService := initializeServices(dbPool, cfg, logger)

	switch {
	case flags.seed:
		runSeed(dbPool, logger)
	case flags.serve:
		runServer(cfg, reportService, logger)
	case flags.all:
		runAllReports(reportService, flags.dni, logger)
	case flags.reportName != "":
		runSingleReport(reportService, flags.reportName, flags.dni, logger)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func parseFlags() (cliFlags, map[string]bool) {
	var f cliFlags
	flag.StringVar(&f.configPath, "config", ".", "directory containing config.yml")
	flag.BoolVar(&f.serve, "serve", false, "run the HTTP report server with the scheduled refresh job")
	flag.BoolVar(&f.seed, "seed", false, "create the schema if missing and load the synthetic dataset")
	flag.BoolVar(&f.all, "all", false, "run every report once and exit")
	flag.StringVar(&f.reportName, "report", "", "run a single report: customers_by_location, balance_by_currency, active_loans, top_customers, pending_installments, customer_summary")
	flag.StringVar(&f.dni, "dni", "", "customer national ID for the active_loans report")
	flag.StringVar(&f.outDir, "out", "", "export directory (overrides config)")
	flag.StringVar(&f.dbHost, "db-host", "", "database host (overrides config)")
	flag.IntVar(&f.dbPort, "db-port", 0, "database port (overrides config)")
	flag.StringVar(&f.dbUser, "db-user", "", "database user (overrides config)")
	flag.StringVar(&f.dbPassword, "db-password", "", "database password (overrides config)")
	flag.StringVar(&f.dbName, "db-name", "", "database name (overrides config)")
	flag.Parse()

	explicit := make(map[string]bool)
	flag.Visit(func(fl *flag.Flag) { explicit[fl.Name] = true })
	return f, explicit
}

// applyOverrides layers explicit flags on top of the loaded configuration,
// which itself already layers environment variables over defaults.
func applyOverrides(cfg *config.Config, f cliFlags, explicit map[string]bool) {
	if explicit["out"] {
		cfg.Export.Dir = f.outDir
	}
	if explicit["db-host"] {
		cfg.Database.Host = f.dbHost
	}
	if explicit["db-port"] {
		cfg.Database.Port = f.dbPort
	}
	if explicit["db-user"] {
		cfg.Database.User = f.dbUser
	}
	if explicit["db-password"] {
		cfg.Database.Password = f.dbPassword
	}
	if explicit["db-name"] {
		cfg.Database.Name = f.dbName
	}
}

func initializeApp(configPath string) (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logger)
	slog.SetDefault(logger)
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed())

	return cfg, logger
}

func initializeDatabase(cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	logger.Info("Initializing database connection pool...")
	dbPool, err := postgres.NewConnectionPool(context.Background(), cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	return dbPool
}

func closeDatabase(dbPool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("Closing database connection pool...")
	dbPool.Close()
}

func initializeServices(dbPool *pgxpool.Pool, cfg *config.Config, logger *slog.Logger) report.Service {
	logger.Info("Initializing application components...")
	repo := postgres.NewReportRepository(dbPool, logger)
	exporter := export.NewCSVWriter(cfg.Export.Dir, logger)

	opts := []report.Option{}
	if cfg.RabbitMQ.Enabled {
		if publisher := connectPublisher(cfg.RabbitMQ, logger); publisher != nil {
			opts = append(opts, report.WithPublisher(publisher))
		}
	}
	return report.NewReportService(repo, exporter, logger, opts...)
}

// connectPublisher is best effort: a broker outage must not keep reports
// from running.
func connectPublisher(cfg config.RabbitMQConfig, logger *slog.Logger) event.Publisher {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		logger.Warn("Failed to connect to RabbitMQ, continuing without event publication", "error", err)
		return nil
	}
	publisher, err := event.NewRabbitMQEventPublisher(conn, cfg.ExchangeName, logger)
	if err != nil {
		logger.Warn("Failed to set up RabbitMQ publisher, continuing without event publication", "error", err)
		return nil
	}
	return publisher
}

func runSeed(dbPool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("Seeding synthetic dataset...")
	seeder := fixture.NewSeeder(dbPool, logger)
	ds := fixture.Generate(42, fixture.Config{})
	if err := seeder.Seed(context.Background(), ds); err != nil {
		logger.Error("Seeding failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Seeded %d users, %d accounts, %d loans, %d installments, %d transactions\n",
		len(ds.Users), len(ds.Accounts), len(ds.Loans), len(ds.Installments), len(ds.Transactions))
}

func runAllReports(svc report.Service, dni string, logger *slog.Logger) {
	ctx := context.Background()
	failures := 0

	runs := []struct {
		name string
		run  func() (int, error)
	}{
		{"customers_by_location", func() (int, error) {
			rows, err := svc.CustomersByLocation(ctx)
			return len(rows), err
		}},
		{"balance_by_currency", func() (int, error) {
			rows, err := svc.BalanceByCurrency(ctx)
			return len(rows), err
		}},
		{"top_customers", func() (int, error) {
			rows, err := svc.TopCustomersByVolume(ctx)
			return len(rows), err
		}},
		{"pending_installments", func() (int, error) {
			rows, err := svc.PendingInstallments(ctx)
			return len(rows), err
		}},
		{"customer_summary", func() (int, error) {
			rows, err := svc.RefreshCustomerSummary(ctx)
			return len(rows), err
		}},
	}
	if dni != "" {
		runs = append(runs, struct {
			name string
			run  func() (int, error)
		}{"active_loans", func() (int, error) {
			rows, err := svc.ActiveLoansByDNI(ctx, dni)
			return len(rows), err
		}})
	}

	for _, r := range runs {
		count, err := r.run()
		if err != nil {
			logger.Error("Report failed", "report", r.name, "error", err)
			failures++
			continue
		}
		fmt.Printf("%s: %d rows\n", r.name, count)
	}
	if failures > 0 {
		os.Exit(1)
	}
}

func runSingleReport(svc report.Service, name, dni string, logger *slog.Logger) {
	ctx := context.Background()

	var count int
	var err error
	switch name {
	case "customers_by_location":
		var rows []report.CustomerLocationRow
		rows, err = svc.CustomersByLocation(ctx)
		count = len(rows)
	case "balance_by_currency":
		var rows []report.CurrencyBalanceRow
		rows, err = svc.BalanceByCurrency(ctx)
		count = len(rows)
	case "active_loans":
		if dni == "" {
			logger.Error("The active_loans report requires -dni")
			os.Exit(2)
		}
		var rows []report.ActiveLoanRow
		rows, err = svc.ActiveLoansByDNI(ctx, dni)
		count = len(rows)
	case "top_customers":
		var rows []report.TopCustomerRow
		rows, err = svc.TopCustomersByVolume(ctx)
		count = len(rows)
	case "pending_installments":
		var rows []report.PendingInstallmentRow
		rows, err = svc.PendingInstallments(ctx)
		count = len(rows)
	case "customer_summary":
		var rows []report.CustomerSummaryRow
		rows, err = svc.RefreshCustomerSummary(ctx)
		count = len(rows)
	default:
		logger.Error("Unknown report", "report", name)
		os.Exit(2)
	}

	if err != nil {
		logger.Error("Report failed", "report", name, "error", err)
		os.Exit(1)
	}
	fmt.Printf("%s: %d rows\n", name, count)
}

func runServer(cfg *config.Config, reportService report.Service, logger *slog.Logger) {
	refreshJob := batch.NewRefreshReportsJob(reportService, logger)
	cronScheduler := startBatchJobs(cfg, logger, refreshJob)
	router := api.SetupRouter(reportService, cfg, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, shutdownChan, serverErrors, logger)
}

func startServer(cfg *config.Config, router http.Handler, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	logger.Info("Setting up HTTP server...", "port", cfg.Server.Port)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on port %d", cfg.Server.Port))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	var triggerReason string
	select {
	case sig := <-shutdownChan:
		triggerReason = "signal: " + sig.String()
		logger.Info("Shutdown signal received.", "signal", sig.String())
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		triggerReason = "server exited"
		logger.Info("Server goroutine finished before signal.", "error", err)
	}

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	logger.Info("Stopping cron scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server graceful shutdown failed", "error", err)
		} else {
			logger.Info("HTTP server shutdown initiated.")
		}
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}
	logger.Info("Waiting for server goroutine to confirm exit...")
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
		} else {
			logger.Info("Server goroutine confirmed exit.")
		}
	case <-time.After(5 * time.Second):
		logger.Warn("Timed out waiting for server goroutine confirmation.")
	}

	logger.Info("Application shutdown process complete.")
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, refreshJob *batch.RefreshReportsJob) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New()

	scheduleSpec := cfg.Batch.RefreshSchedule
	if scheduleSpec == "" {
		scheduleSpec = "0 3 * * *"
		logger.Warn("Batch refresh schedule not configured, using default", "schedule", scheduleSpec)
	}
	jobTimeout := cfg.Batch.RefreshTimeout
	if jobTimeout <= 0 {
		jobTimeout = 10 * time.Minute
	}

	jobID, err := c.AddJob(scheduleSpec, cron.FuncJob(func() {
		jobLogger := logger.With("job_name", "RefreshReports")
		jobLogger.Info("Cron triggered: Running report refresh job.")

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if runErr := refreshJob.Run(ctx); runErr != nil {
			jobLogger.Error("Report refresh job finished with error", slog.Any("error", runErr))
		} else {
			jobLogger.Info("Report refresh job finished successfully.")
		}
	}))

	if err != nil {
		logger.Error("Failed to schedule report refresh job", "schedule", scheduleSpec, slog.Any("error", err))
	} else {
		logger.Info("Scheduled report refresh job", "schedule", scheduleSpec, "job_id", jobID)
	}

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}
