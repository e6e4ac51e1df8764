package report

import (
	"bank-reports/internal/event"
	"bank-reports/internal/infrastructure/monitoring"
	"bank-reports/internal/pkg/apperrors"
	"bank-reports/internal/pkg/moneyfmt"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	// The top-customers window slides with the invocation time rather than
	// covering a fixed calendar range.
	topCustomersLookbackMonths = 48
	topCustomersLimit          = 5

	dateLayout = "2006-01-02"
)

type ReportService struct {
	repo      Repository
	exporter  Exporter
	publisher event.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

var _ Service = (*ReportService)(nil)

type Option func(*ReportService)

// WithClock replaces the invocation-time source, pinning the sliding window
// of the top-customers report.
func WithClock(now func() time.Time) Option {
	return func(s *ReportService) { s.now = now }
}

// WithPublisher enables report.generated event publication.
func WithPublisher(p event.Publisher) Option {
	return func(s *ReportService) { s.publisher = p }
}

func NewReportService(repo Repository, exporter Exporter, logger *slog.Logger, opts ...Option) *ReportService {
	if repo == nil || exporter == nil || logger == nil {
		panic("ReportService dependencies cannot be nil")
	}
	s := &ReportService{
		repo:     repo,
		exporter: exporter,
		logger:   logger.With("component", "ReportService"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CustomersByLocation lists every customer with their city and country,
// ordered by country, city and customer name.
func (s *ReportService) CustomersByLocation(ctx context.Context) ([]CustomerLocationRow, error) {
	start := time.Now()
	recs, err := s.repo.CustomerLocations(ctx)
	if err != nil {
		return nil, s.fail(ctx, "customers_by_location", start, err)
	}

	rows := make([]CustomerLocationRow, 0, len(recs))
	records := make([][]string, 0, len(recs))
	for _, rec := range recs {
		row := CustomerLocationRow{Customer: rec.Customer, City: rec.City, Country: rec.Country}
		rows = append(rows, row)
		records = append(records, []string{row.Customer, row.City, row.Country})
	}

	if err := s.export(ctx, "customers_by_location", FileCustomersByLocation, HeaderCustomersByLocation, records, start); err != nil {
		return nil, err
	}
	return rows, nil
}

// BalanceByCurrency sums account balances per (country, currency) bucket.
// Amounts carry the currency's own symbol.
func (s *ReportService) BalanceByCurrency(ctx context.Context) ([]CurrencyBalanceRow, error) {
	start := time.Now()
	recs, err := s.repo.CurrencyBalances(ctx)
	if err != nil {
		return nil, s.fail(ctx, "balance_by_currency", start, err)
	}

	rows := make([]CurrencyBalanceRow, 0, len(recs))
	records := make([][]string, 0, len(recs))
	for _, rec := range recs {
		row := CurrencyBalanceRow{
			Country:  rec.Country,
			Currency: fmt.Sprintf("%s (%s)", rec.CurrencyName, rec.CurrencyCode),
			Total:    moneyfmt.ForSymbol(rec.CurrencySymbol).Amount(rec.Total),
		}
		rows = append(rows, row)
		records = append(records, []string{row.Country, row.Currency, row.Total})
	}

	if err := s.export(ctx, "balance_by_currency", FileBalanceByCurrency, HeaderBalanceByCurrency, records, start); err != nil {
		return nil, err
	}
	return rows, nil
}

// ActiveLoansByDNI reports a customer's active loans, most recent first.
// A DNI with no matching customer yields apperrors.ErrNotFound; a customer
// with no active loans yields an empty, non-nil slice. Callers must be able
// to distinguish the two outcomes.
func (s *ReportService) ActiveLoansByDNI(ctx context.Context, dni string) ([]ActiveLoanRow, error) {
	start := time.Now()
	if dni == "" {
		return nil, fmt.Errorf("%w: dni must not be empty", apperrors.ErrInvalidArgument)
	}

	if _, err := s.repo.FindCustomerByDNI(ctx, dni); err != nil {
		return nil, s.fail(ctx, "active_loans", start, err)
	}

	recs, err := s.repo.ActiveLoansByDNI(ctx, dni)
	if err != nil {
		return nil, s.fail(ctx, "active_loans", start, err)
	}

	rows := make([]ActiveLoanRow, 0, len(recs))
	records := make([][]string, 0, len(recs))
	for _, rec := range recs {
		row := ActiveLoanRow{
			LoanID:    strconv.FormatInt(rec.LoanID, 10),
			Amount:    moneyfmt.ForSymbol(rec.CurrencySymbol).Amount(rec.Amount),
			Rate:      moneyfmt.Percent(rec.Rate),
			StartDate: rec.StartDate.Format(dateLayout),
			EndDate:   rec.EndDate.Format(dateLayout),
			Currency:  rec.CurrencyCode,
		}
		rows = append(rows, row)
		records = append(records, []string{row.LoanID, row.Amount, row.Rate, row.StartDate, row.EndDate, row.Currency})
	}

	if err := s.export(ctx, "active_loans", ActiveLoansFilename(dni), HeaderActiveLoans, records, start); err != nil {
		return nil, err
	}
	return rows, nil
}

// TopCustomersByVolume ranks the five customers who moved the most through
// transfers and withdrawals over the trailing 48 months. The 1-based Puesto
// rank is assigned by output order, not stored.
func (s *ReportService) TopCustomersByVolume(ctx context.Context) ([]TopCustomerRow, error) {
	start := time.Now()
	since := s.now().AddDate(0, -topCustomersLookbackMonths, 0)

	recs, err := s.repo.TopCustomersByVolume(ctx, since, topCustomersLimit)
	if err != nil {
		return nil, s.fail(ctx, "top_customers", start, err)
	}

	rows := make([]TopCustomerRow, 0, len(recs))
	records := make([][]string, 0, len(recs))
	for i, rec := range recs {
		row := TopCustomerRow{
			Rank:     strconv.Itoa(i + 1),
			Customer: rec.FirstName + " " + rec.LastName,
			Total:    moneyfmt.Plain.Amount(rec.Total),
		}
		rows = append(rows, row)
		records = append(records, []string{row.Rank, row.Customer, row.Total})
	}

	if err := s.export(ctx, "top_customers", FileTopCustomers, HeaderTopCustomers, records, start); err != nil {
		return nil, err
	}
	return rows, nil
}

// PendingInstallments groups pending installments per (loan, customer DNI).
// Amounts always use the literal "$" prefix, whatever the loan currency.
func (s *ReportService) PendingInstallments(ctx context.Context) ([]PendingInstallmentRow, error) {
	start := time.Now()
	recs, err := s.repo.PendingInstallments(ctx)
	if err != nil {
		return nil, s.fail(ctx, "pending_installments", start, err)
	}

	rows := make([]PendingInstallmentRow, 0, len(recs))
	records := make([][]string, 0, len(recs))
	for _, rec := range recs {
		row := PendingInstallmentRow{
			LoanID:       strconv.FormatInt(rec.LoanID, 10),
			DNI:          rec.DNI,
			PendingCount: strconv.FormatInt(rec.PendingCount, 10),
			Total:        moneyfmt.Plain.Amount(rec.Total),
		}
		rows = append(rows, row)
		records = append(records, []string{row.LoanID, row.DNI, row.PendingCount, row.Total})
	}

	if err := s.export(ctx, "pending_installments", FilePendingInstallments, HeaderPendingInstallments, records, start); err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateCustomerSummaryView creates or replaces v_resumen_cliente. Safe to
// re-run.
func (s *ReportService) CreateCustomerSummaryView(ctx context.Context) error {
	if err := s.repo.CreateCustomerSummaryView(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to create customer summary view", "view", SummaryViewName, "error", err)
		return fmt.Errorf("%w: %w", apperrors.ErrViewCreation, err)
	}
	s.logger.InfoContext(ctx, "Customer summary view created", "view", SummaryViewName)
	return nil
}

// CustomerSummary reads v_resumen_cliente verbatim and exports it.
func (s *ReportService) CustomerSummary(ctx context.Context) ([]CustomerSummaryRow, error) {
	start := time.Now()
	recs, err := s.repo.CustomerSummaries(ctx)
	if err != nil {
		return nil, s.fail(ctx, "customer_summary", start, err)
	}

	rows := make([]CustomerSummaryRow, 0, len(recs))
	records := make([][]string, 0, len(recs))
	for _, rec := range recs {
		row := CustomerSummaryRow{
			FullName: rec.FullName,
			Accounts: strconv.FormatInt(rec.Accounts, 10),
			Loans:    strconv.FormatInt(rec.Loans, 10),
			Balance:  moneyfmt.Plain.Amount(rec.Balance),
		}
		rows = append(rows, row)
		records = append(records, []string{row.FullName, row.Accounts, row.Loans, row.Balance})
	}

	if err := s.export(ctx, "customer_summary", FileCustomerSummary, HeaderCustomerSummary, records, start); err != nil {
		return nil, err
	}
	return rows, nil
}

// RefreshCustomerSummary runs the two-step view lifecycle: create-or-replace,
// then read. A create failure short-circuits; the read never runs on a stale
// or missing definition.
func (s *ReportService) RefreshCustomerSummary(ctx context.Context) ([]CustomerSummaryRow, error) {
	if err := s.CreateCustomerSummaryView(ctx); err != nil {
		return nil, err
	}
	return s.CustomerSummary(ctx)
}

func (s *ReportService) fail(ctx context.Context, name string, start time.Time, err error) error {
	monitoring.RecordReportRun(name, "error", time.Since(start))
	s.logger.ErrorContext(ctx, "Report query failed", "report", name, "error", err)
	return err
}

func (s *ReportService) export(ctx context.Context, name, filename string, header []string, records [][]string, start time.Time) error {
	if err := s.exporter.Export(filename, header, records); err != nil {
		monitoring.RecordReportRun(name, "error", time.Since(start))
		s.logger.ErrorContext(ctx, "Report export failed", "report", name, "file", filename, "error", err)
		return apperrors.WrapExportError(err, "failed to export "+name)
	}

	monitoring.RecordReportRun(name, "success", time.Since(start))
	monitoring.RecordRowsExported(name, len(records))
	s.logger.InfoContext(ctx, "Report generated", "report", name, "file", filename, "rows", len(records))
	s.publishGenerated(ctx, name, filename, len(records))
	return nil
}

func (s *ReportService) publishGenerated(ctx context.Context, name, filename string, rows int) {
	if s.publisher == nil {
		return
	}
	evt := event.ReportGeneratedEvent{
		RunID:       uuid.NewString(),
		Report:      name,
		RowCount:    rows,
		File:        filename,
		GeneratedAt: s.now(),
	}
	if err := s.publisher.PublishReportGenerated(ctx, evt); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish report event", "report", name, "error", err)
	}
}
