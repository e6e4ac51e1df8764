package batch

import (
	"bank-reports/internal/domain/report"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type mockReportService struct {
	mock.Mock
}

func (m *mockReportService) CustomersByLocation(ctx context.Context) ([]report.CustomerLocationRow, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]report.CustomerLocationRow)
	return rows, args.Error(1)
}

func (m *mockReportService) BalanceByCurrency(ctx context.Context) ([]report.CurrencyBalanceRow, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]report.CurrencyBalanceRow)
	return rows, args.Error(1)
}

func (m *mockReportService) ActiveLoansByDNI(ctx context.Context, dni string) ([]report.ActiveLoanRow, error) {
	args := m.Called(ctx, dni)
	rows, _ := args.Get(0).([]report.ActiveLoanRow)
	return rows, args.Error(1)
}

func (m *mockReportService) TopCustomersByVolume(ctx context.Context) ([]report.TopCustomerRow, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]report.TopCustomerRow)
	return rows, args.Error(1)
}

func (m *mockReportService) PendingInstallments(ctx context.Context) ([]report.PendingInstallmentRow, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]report.PendingInstallmentRow)
	return rows, args.Error(1)
}

func (m *mockReportService) CreateCustomerSummaryView(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockReportService) CustomerSummary(ctx context.Context) ([]report.CustomerSummaryRow, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]report.CustomerSummaryRow)
	return rows, args.Error(1)
}

func (m *mockReportService) RefreshCustomerSummary(ctx context.Context) ([]report.CustomerSummaryRow, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]report.CustomerSummaryRow)
	return rows, args.Error(1)
}

func expectAllReports(svc *mockReportService) {
	svc.On("CustomersByLocation", mock.Anything).Return([]report.CustomerLocationRow{{}}, nil)
	svc.On("BalanceByCurrency", mock.Anything).Return([]report.CurrencyBalanceRow{{}}, nil)
	svc.On("TopCustomersByVolume", mock.Anything).Return([]report.TopCustomerRow{{}}, nil)
	svc.On("PendingInstallments", mock.Anything).Return([]report.PendingInstallmentRow{{}}, nil)
	svc.On("RefreshCustomerSummary", mock.Anything).Return([]report.CustomerSummaryRow{{}}, nil)
}

func TestNewRefreshReportsJobPanicsOnNilService(t *testing.T) {
	assert.Panics(t, func() {
		NewRefreshReportsJob(nil, testLogger)
	})
}

func TestRefreshReportsJobRunsAllScheduledReports(t *testing.T) {
	svc := new(mockReportService)
	expectAllReports(svc)

	job := NewRefreshReportsJob(svc, testLogger)
	err := job.Run(context.Background())

	require.NoError(t, err)
	svc.AssertExpectations(t)
	svc.AssertNotCalled(t, "ActiveLoansByDNI", mock.Anything, mock.Anything)
}

func TestRefreshReportsJobContinuesAfterFailure(t *testing.T) {
	svc := new(mockReportService)
	svc.On("CustomersByLocation", mock.Anything).Return(nil, errors.New("query failed"))
	svc.On("BalanceByCurrency", mock.Anything).Return([]report.CurrencyBalanceRow{{}}, nil)
	svc.On("TopCustomersByVolume", mock.Anything).Return([]report.TopCustomerRow{{}}, nil)
	svc.On("PendingInstallments", mock.Anything).Return([]report.PendingInstallmentRow{{}}, nil)
	svc.On("RefreshCustomerSummary", mock.Anything).Return([]report.CustomerSummaryRow{{}}, nil)

	job := NewRefreshReportsJob(svc, testLogger)
	err := job.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 errors")
	svc.AssertExpectations(t)
}

func TestRefreshReportsJobStopsWhenContextCancelled(t *testing.T) {
	svc := new(mockReportService)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := NewRefreshReportsJob(svc, testLogger)
	err := job.Run(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	svc.AssertNotCalled(t, "CustomersByLocation", mock.Anything)
}
