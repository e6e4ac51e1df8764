package batch

import (
	"bank-reports/internal/domain/report"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RefreshReportsJob re-runs the scheduled report set so the exported CSV
// files stay current without anyone hitting the API. The per-customer active
// loans report is excluded: it only makes sense against a concrete DNI.
type RefreshReportsJob struct {
	service report.Service
	logger  *slog.Logger
}

func NewRefreshReportsJob(svc report.Service, logger *slog.Logger) *RefreshReportsJob {
	if svc == nil || logger == nil {
		panic("RefreshReportsJob dependencies cannot be nil")
	}
	return &RefreshReportsJob{
		service: svc,
		logger:  logger.With("job", "RefreshReports"),
	}
}

func (j *RefreshReportsJob) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting scheduled report refresh job.")

	steps := []struct {
		name string
		run  func(context.Context) (int, error)
	}{
		{"customers_by_location", func(ctx context.Context) (int, error) {
			rows, err := j.service.CustomersByLocation(ctx)
			return len(rows), err
		}},
		{"balance_by_currency", func(ctx context.Context) (int, error) {
			rows, err := j.service.BalanceByCurrency(ctx)
			return len(rows), err
		}},
		{"top_customers", func(ctx context.Context) (int, error) {
			rows, err := j.service.TopCustomersByVolume(ctx)
			return len(rows), err
		}},
		{"pending_installments", func(ctx context.Context) (int, error) {
			rows, err := j.service.PendingInstallments(ctx)
			return len(rows), err
		}},
		{"customer_summary", func(ctx context.Context) (int, error) {
			rows, err := j.service.RefreshCustomerSummary(ctx)
			return len(rows), err
		}},
	}

	var refreshed, errorCount int
	for _, step := range steps {
		if ctx.Err() != nil {
			j.logger.WarnContext(ctx, "Report refresh job cancelled.", slog.String("report", step.name), slog.Any("error", ctx.Err()))
			return fmt.Errorf("report refresh cancelled at %s: %w", step.name, ctx.Err())
		}

		logCtx := j.logger.With(slog.String("report", step.name))
		logCtx.DebugContext(ctx, "Refreshing report.")
		count, err := step.run(ctx)
		if err != nil {
			logCtx.ErrorContext(ctx, "Failed to refresh report", slog.Any("error", err))
			errorCount++
			continue
		}
		logCtx.InfoContext(ctx, "Report refreshed.", slog.Int("rows", count))
		refreshed++
	}

	duration := time.Since(startTime)
	summaryLog := j.logger.With(
		slog.Duration("duration", duration),
		slog.Int("reports_refreshed", refreshed),
		slog.Int("errors_encountered", errorCount),
	)
	if errorCount > 0 {
		summaryLog.WarnContext(ctx, "Report refresh job finished with errors.")
		return fmt.Errorf("job completed with %d errors", errorCount)
	}
	summaryLog.InfoContext(ctx, "Report refresh job finished successfully.")
	return nil
}
