// Package report defines the six banking report contracts: the raw records
// read from the relational schema, the formatted rows handed back to callers
// and written to CSV, and the service that ties query, formatting and export
// together.
package report

import (
	"context"
	"time"
)

// Export filenames. Active loans is the only report with a dynamic name,
// see ActiveLoansFilename.
const (
	FileCustomersByLocation = "clientes_ubicacion.csv"
	FileBalanceByCurrency   = "saldo_por_moneda.csv"
	FileTopCustomers        = "top_clientes.csv"
	FilePendingInstallments = "cuotas_pendientes.csv"
	FileCustomerSummary     = "resumen_cliente.csv"
)

// SummaryViewName is the persisted view created by the summary lifecycle.
const SummaryViewName = "v_resumen_cliente"

// CSV header rows. Downstream consumers parse these files by header text,
// so the vocabulary and order are part of the contract.
var (
	HeaderCustomersByLocation = []string{"Cliente", "Ciudad", "País"}
	HeaderBalanceByCurrency   = []string{"País", "Moneda", "Saldo Total"}
	HeaderActiveLoans         = []string{"ID Préstamo", "Monto Total", "Tasa Interés", "Fecha Inicio", "Fecha Fin", "Moneda"}
	HeaderTopCustomers        = []string{"Puesto", "Cliente", "Total Movido"}
	HeaderPendingInstallments = []string{"Préstamo", "DNI Cliente", "Cuotas Pendientes", "Monto Total a Pagar"}
	HeaderCustomerSummary     = []string{"Nombre Completo", "Cantidad Cuentas", "Cantidad Préstamos", "Saldo Total"}
)

// ActiveLoansFilename returns the per-customer export name for the active
// loans report.
func ActiveLoansFilename(dni string) string {
	return "prestamos_activos_" + dni + ".csv"
}

// Raw records as read from the database, before display formatting.

type LocationRecord struct {
	Customer string
	City     string
	Country  string
}

type BalanceRecord struct {
	Country        string
	CurrencyName   string
	CurrencyCode   string
	CurrencySymbol string
	Total          float64
}

type CustomerRecord struct {
	ID        int64
	FirstName string
	LastName  string
}

type ActiveLoanRecord struct {
	LoanID         int64
	Amount         float64
	Rate           float64
	StartDate      time.Time
	EndDate        time.Time
	CurrencyCode   string
	CurrencySymbol string
}

type TopCustomerRecord struct {
	CustomerID int64
	FirstName  string
	LastName   string
	Total      float64
}

type PendingInstallmentRecord struct {
	LoanID       int64
	DNI          string
	PendingCount int64
	Total        float64
}

type SummaryRecord struct {
	FullName string
	Accounts int64
	Loans    int64
	Balance  float64
}

// Formatted rows returned to callers and exported. Field values are display
// strings; the exported file and the in-memory result are field-for-field
// identical.

type CustomerLocationRow struct {
	Customer string `json:"cliente"`
	City     string `json:"ciudad"`
	Country  string `json:"pais"`
}

type CurrencyBalanceRow struct {
	Country  string `json:"pais"`
	Currency string `json:"moneda"`
	Total    string `json:"saldoTotal"`
}

type ActiveLoanRow struct {
	LoanID    string `json:"idPrestamo"`
	Amount    string `json:"montoTotal"`
	Rate      string `json:"tasaInteres"`
	StartDate string `json:"fechaInicio"`
	EndDate   string `json:"fechaFin"`
	Currency  string `json:"moneda"`
}

type TopCustomerRow struct {
	Rank     string `json:"puesto"`
	Customer string `json:"cliente"`
	Total    string `json:"totalMovido"`
}

type PendingInstallmentRow struct {
	LoanID       string `json:"prestamo"`
	DNI          string `json:"dniCliente"`
	PendingCount string `json:"cuotasPendientes"`
	Total        string `json:"montoTotalAPagar"`
}

type CustomerSummaryRow struct {
	FullName string `json:"nombreCompleto"`
	Accounts string `json:"cantidadCuentas"`
	Loans    string `json:"cantidadPrestamos"`
	Balance  string `json:"saldoTotal"`
}

// Repository is the read side of the reporting schema plus the single DDL
// operation (summary view creation). FindCustomerByDNI returns
// apperrors.ErrNotFound when no customer carries the given national ID.
type Repository interface {
	CustomerLocations(ctx context.Context) ([]LocationRecord, error)
	CurrencyBalances(ctx context.Context) ([]BalanceRecord, error)
	FindCustomerByDNI(ctx context.Context, dni string) (*CustomerRecord, error)
	ActiveLoansByDNI(ctx context.Context, dni string) ([]ActiveLoanRecord, error)
	TopCustomersByVolume(ctx context.Context, since time.Time, limit int) ([]TopCustomerRecord, error)
	PendingInstallments(ctx context.Context) ([]PendingInstallmentRecord, error)
	CreateCustomerSummaryView(ctx context.Context) error
	CustomerSummaries(ctx context.Context) ([]SummaryRecord, error)
}

// Exporter persists a fully formatted row set under a fixed filename.
type Exporter interface {
	Export(filename string, header []string, records [][]string) error
}

// Service is the caller-facing contract for the six report operations.
type Service interface {
	CustomersByLocation(ctx context.Context) ([]CustomerLocationRow, error)
	BalanceByCurrency(ctx context.Context) ([]CurrencyBalanceRow, error)
	ActiveLoansByDNI(ctx context.Context, dni string) ([]ActiveLoanRow, error)
	TopCustomersByVolume(ctx context.Context) ([]TopCustomerRow, error)
	PendingInstallments(ctx context.Context) ([]PendingInstallmentRow, error)
	CreateCustomerSummaryView(ctx context.Context) error
	CustomerSummary(ctx context.Context) ([]CustomerSummaryRow, error)
	RefreshCustomerSummary(ctx context.Context) ([]CustomerSummaryRow, error)
}
