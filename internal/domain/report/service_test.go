package report

import (
	"bank-reports/internal/event"
	"bank-reports/internal/pkg/apperrors"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) CustomerLocations(ctx context.Context) ([]LocationRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]LocationRecord), args.Error(1)
}

func (m *mockRepository) CurrencyBalances(ctx context.Context) ([]BalanceRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]BalanceRecord), args.Error(1)
}

func (m *mockRepository) FindCustomerByDNI(ctx context.Context, dni string) (*CustomerRecord, error) {
	args := m.Called(ctx, dni)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CustomerRecord), args.Error(1)
}

func (m *mockRepository) ActiveLoansByDNI(ctx context.Context, dni string) ([]ActiveLoanRecord, error) {
	args := m.Called(ctx, dni)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ActiveLoanRecord), args.Error(1)
}

func (m *mockRepository) TopCustomersByVolume(ctx context.Context, since time.Time, limit int) ([]TopCustomerRecord, error) {
	args := m.Called(ctx, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]TopCustomerRecord), args.Error(1)
}

func (m *mockRepository) PendingInstallments(ctx context.Context) ([]PendingInstallmentRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]PendingInstallmentRecord), args.Error(1)
}

func (m *mockRepository) CreateCustomerSummaryView(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockRepository) CustomerSummaries(ctx context.Context) ([]SummaryRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]SummaryRecord), args.Error(1)
}

type fakeExporter struct {
	calls    int
	filename string
	header   []string
	records  [][]string
	err      error
}

func (f *fakeExporter) Export(filename string, header []string, records [][]string) error {
	f.calls++
	f.filename = filename
	f.header = header
	f.records = records
	return f.err
}

type fakePublisher struct {
	events []event.ReportGeneratedEvent
}

func (f *fakePublisher) PublishReportGenerated(_ context.Context, e event.ReportGeneratedEvent) error {
	f.events = append(f.events, e)
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCustomersByLocationExportsAndReturnsRows(t *testing.T) {
	repo := new(mockRepository)
	exp := &fakeExporter{}
	svc := NewReportService(repo, exp, testLogger)

	repo.On("CustomerLocations", mock.Anything).Return([]LocationRecord{
		{Customer: "Juan Pérez", City: "Buenos Aires", Country: "Argentina"},
		{Customer: "María García", City: "Bogotá", Country: "Colombia"},
	}, nil)

	rows, err := svc.CustomersByLocation(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Juan Pérez", rows[0].Customer)

	assert.Equal(t, FileCustomersByLocation, exp.filename)
	assert.Equal(t, HeaderCustomersByLocation, exp.header)
	assert.Equal(t, []string{"Juan Pérez", "Buenos Aires", "Argentina"}, exp.records[0])
	repo.AssertExpectations(t)
}

func TestCustomersByLocationQueryFailureSkipsExport(t *testing.T) {
	repo := new(mockRepository)
	exp := &fakeExporter{}
	svc := NewReportService(repo, exp, testLogger)

	repo.On("CustomerLocations", mock.Anything).Return(nil, apperrors.ErrDatabase)

	rows, err := svc.CustomersByLocation(context.Background())
	assert.Nil(t, rows)
	assert.True(t, errors.Is(err, apperrors.ErrDatabase))
	assert.Zero(t, exp.calls, "export must not run on query failure")
}

func TestBalanceByCurrencyUsesEachCurrencysOwnSymbol(t *testing.T) {
	repo := new(mockRepository)
	exp := &fakeExporter{}
	svc := NewReportService(repo, exp, testLogger)

	repo.On("CurrencyBalances", mock.Anything).Return([]BalanceRecord{
		{Country: "Argentina", CurrencyName: "Peso Argentino", CurrencyCode: "ARS", CurrencySymbol: "$", Total: 3600000.00},
		{Country: "Perú", CurrencyName: "Sol Peruano", CurrencyCode: "PEN", CurrencySymbol: "S/", Total: 125000.50},
		{Country: "España", CurrencyName: "Euro", CurrencyCode: "EUR", CurrencySymbol: "€", Total: 98000.00},
	}, nil)

	rows, err := svc.BalanceByCurrency(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Peso Argentino (ARS)", rows[0].Currency)
	assert.Equal(t, "$ 3,600,000.00", rows[0].Total)
	assert.Equal(t, "S/ 125,000.50", rows[1].Total)
	assert.Equal(t, "€ 98,000.00", rows[2].Total)
	assert.Equal(t, FileBalanceByCurrency, exp.filename)
}

func TestActiveLoansByDNIRejectsEmptyDNI(t *testing.T) {
	repo := new(mockRepository)
	exp := &fakeExporter{}
	svc := NewReportService(repo, exp, testLogger)

	_, err := svc.ActiveLoansByDNI(context.Background(), "")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidArgument))
	assert.Zero(t, exp.calls)
}

func TestActiveLoansByDNIUnknownCustomerIsNotFound(t *testing.T) {
	repo := new(mockRepository)
	exp := &fakeExporter{}
	svc := NewReportService(repo, exp, testLogger)

	repo.On("FindCustomerByDNI", mock.Anything, "99999999").Return(nil, apperrors.ErrNotFound)

	rows, err := svc.ActiveLoansByDNI(context.Background(), "99999999")
	assert.Nil(t, rows)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Zero(t, exp.calls, "nothing must be exported for an unknown DNI")
	repo.AssertNotCalled(t, "ActiveLoansByDNI", mock.Anything, mock.Anything)
}

func TestActiveLoansByDNIKnownCustomerWithoutLoansIsEmptyNotNotFound(t *testing.T) {
	repo := new(mockRepository)
	exp := &fakeExporter{}
	svc := NewReportService(repo, exp, testLogger)

	repo.On("FindCustomerByDNI", mock.Anything, "20000278").Return(&CustomerRecord{ID: 278}, nil)
	repo.On("ActiveLoansByDNI", mock.Anything, "20000278").Return([]ActiveLoanRecord{}, nil)

	rows, err := svc.ActiveLoansByDNI(context.Background(), "20000278")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Len(t, rows, 0)
	assert.Equal(t, 1, exp.calls, "an empty report file is still written")
	assert.Equal(t, "prestamos_activos_20000278.csv", exp.filename)
}

func TestActiveLoansByDNIFormatsLoanRow(t *testing.T) {
	repo := new(mockRepository)
	exp := &fakeExporter{}
	svc := NewReportService(repo, exp, testLogger)

	repo.On("FindCustomerByDNI", mock.Anything, "20000190").Return(&CustomerRecord{ID: 190}, nil)
	repo.On("ActiveLoansByDNI", mock.Anything, "20000190").Return([]ActiveLoanRecord{
		{
			LoanID:         7,
			Amount:         50000.00,
			Rate:           15.50,
			StartDate:      time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			EndDate:        time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
			CurrencyCode:   "ARS",
			CurrencySymbol: "$",
		},
	}, nil)

	rows, err := svc.ActiveLoansByDNI(context.Background(), "20000190")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "7", rows[0].LoanID)
	assert.Equal(t, "$ 50,000.00", rows[0].Amount)
	assert.Equal(t, "15.50%", rows[0].Rate)
	assert.Equal(t, "2024-01-15", rows[0].StartDate)
	assert.Equal(t, "2026-01-15", rows[0].EndDate)
	assert.Equal(t, "ARS", rows[0].Currency)
	assert.Equal(t, "prestamos_activos_20000190.csv", exp.filename)
	assert.Equal(t, HeaderActiveLoans, exp.header)
}

func TestTopCustomersByVolumeWindowSlidesWithClock(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	wantSince := time.Date(2022, 8, 31, 10, 0, 0, 0, time.UTC)

	repo := new(mockRepository)
	exp := &fakeExporter{}
	svc := NewReportService(repo, exp, testLogger, WithClock(fixedClock(now)))

	repo.On("TopCustomersByVolume", mock.Anything, wantSince, 5).Return([]TopCustomerRecord{
		{CustomerID: 1, FirstName: "Juan", LastName: "Pérez", Total: 288765.09},
		{CustomerID: 2, FirstName: "María", LastName: "García", Total: 275546.89},
	}, nil)

	rows, err := svc.TopCustomersByVolume(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.LessOrEqual(t, len(rows), 5)
	assert.Equal(t, "1", rows[0].Rank)
	assert.Equal(t, "Juan Pérez", rows[0].Customer)
	assert.Equal(t, "$ 288,765.09", rows[0].Total)
	assert.Equal(t, "2", rows[1].Rank)
	repo.AssertExpectations(t)
}

func TestPendingInstallmentsAlwaysUsesLiteralDollarPrefix(t *testing.T) {
	repo := new(mockRepository)
	exp := &fakeExporter{}
	svc := NewReportService(repo, exp, testLogger)

	repo.On("PendingInstallments", mock.Anything).Return([]PendingInstallmentRecord{
		{LoanID: 7, DNI: "20000190", PendingCount: 8, Total: 32798.96},
		{LoanID: 11, DNI: "20000278", PendingCount: 3, Total: 17295.36},
	}, nil)

	rows, err := svc.PendingInstallments(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "$ 32,798.96", rows[0].Total)
	assert.Equal(t, "8", rows[0].PendingCount)
	assert.Equal(t, "$ 17,295.36", rows[1].Total)
	assert.Equal(t, FilePendingInstallments, exp.filename)
}

func TestRefreshCustomerSummaryShortCircuitsOnCreateFailure(t *testing.T) {
	repo := new(mockRepository)
	exp := &fakeExporter{}
	svc := NewReportService(repo, exp, testLogger)

	repo.On("CreateCustomerSummaryView", mock.Anything).Return(apperrors.ErrDatabase)

	rows, err := svc.RefreshCustomerSummary(context.Background())
	assert.Nil(t, rows)
	assert.True(t, errors.Is(err, apperrors.ErrViewCreation))
	repo.AssertNotCalled(t, "CustomerSummaries", mock.Anything)
	assert.Zero(t, exp.calls)
}

func TestRefreshCustomerSummaryCreatesThenReads(t *testing.T) {
	repo := new(mockRepository)
	exp := &fakeExporter{}
	svc := NewReportService(repo, exp, testLogger)

	repo.On("CreateCustomerSummaryView", mock.Anything).Return(nil)
	repo.On("CustomerSummaries", mock.Anything).Return([]SummaryRecord{
		{FullName: "Juan Pérez", Accounts: 1, Loans: 2, Balance: 121704.74},
		{FullName: "María García", Accounts: 0, Loans: 0, Balance: 0},
	}, nil)

	rows, err := svc.RefreshCustomerSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "$ 121,704.74", rows[0].Balance)
	assert.Equal(t, "0", rows[1].Accounts)
	assert.Equal(t, "$ 0.00", rows[1].Balance)
	assert.Equal(t, FileCustomerSummary, exp.filename)
	repo.AssertExpectations(t)
}

func TestExportFailureIsReportedAsExportError(t *testing.T) {
	repo := new(mockRepository)
	exp := &fakeExporter{err: errors.New("disk full")}
	svc := NewReportService(repo, exp, testLogger)

	repo.On("CustomerLocations", mock.Anything).Return([]LocationRecord{
		{Customer: "Juan Pérez", City: "Buenos Aires", Country: "Argentina"},
	}, nil)

	rows, err := svc.CustomersByLocation(context.Background())
	assert.Nil(t, rows)
	assert.True(t, errors.Is(err, apperrors.ErrExport))
}

func TestReportGeneratedEventIsPublished(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	repo := new(mockRepository)
	exp := &fakeExporter{}
	pub := &fakePublisher{}
	svc := NewReportService(repo, exp, testLogger, WithClock(fixedClock(now)), WithPublisher(pub))

	repo.On("PendingInstallments", mock.Anything).Return([]PendingInstallmentRecord{
		{LoanID: 7, DNI: "20000190", PendingCount: 8, Total: 32798.96},
	}, nil)

	_, err := svc.PendingInstallments(context.Background())
	require.NoError(t, err)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "pending_installments", pub.events[0].Report)
	assert.Equal(t, 1, pub.events[0].RowCount)
	assert.Equal(t, FilePendingInstallments, pub.events[0].File)
	assert.NotEmpty(t, pub.events[0].RunID)
	assert.Equal(t, now, pub.events[0].GeneratedAt)
}
