package postgres

import (
	"bank-reports/internal/domain/report"
	"bank-reports/internal/infrastructure/monitoring"
	"bank-reports/internal/pkg/apperrors"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"
)

type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

var errMsgFormat = "%w: %w"

// ReportRepository runs the read queries and the single DDL statement of the
// reporting engine against the banking schema.
type ReportRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ report.Repository = (*ReportRepository)(nil)

func NewReportRepository(db DBPool, logger *slog.Logger) *ReportRepository {
	return &ReportRepository{db: db, logger: logger.With("component", "ReportRepository")}
}

func (r *ReportRepository) CustomerLocations(ctx context.Context) ([]report.LocationRecord, error) {
	query := `
        SELECT DISTINCT
            u.nombre || ' ' || u.apellido AS cliente,
            c.nombre AS ciudad,
            p.nombre AS pais
        FROM usuario u
        JOIN ciudad c ON u.id_ciudad = c.id_ciudad
        JOIN pais p ON c.id_pais = p.id_pais
        ORDER BY pais, ciudad, cliente`

	status := "success"
	startTime := time.Now()

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		monitoring.RecordDBQuery("CustomerLocations", "error", time.Since(startTime))
		r.logger.ErrorContext(ctx, "Failed to query customer locations", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	records := make([]report.LocationRecord, 0)
	for rows.Next() {
		var rec report.LocationRecord
		if err := rows.Scan(&rec.Customer, &rec.City, &rec.Country); err != nil {
			status = "error"
			r.logger.ErrorContext(ctx, "Failed to scan customer location row", "error", err)
			monitoring.RecordDBQuery("CustomerLocations", status, time.Since(startTime))
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		status = "error"
		r.logger.ErrorContext(ctx, "Error iterating customer location rows", "error", err)
		monitoring.RecordDBQuery("CustomerLocations", status, time.Since(startTime))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	monitoring.RecordDBQuery("CustomerLocations", status, time.Since(startTime))
	return records, nil
}

func (r *ReportRepository) CurrencyBalances(ctx context.Context) ([]report.BalanceRecord, error) {
	// Grouping keys are (country id, currency id): a customer's accounts may
	// span currencies, so buckets never key on the customer.
	query := `
        SELECT
            p.nombre AS pais,
            tm.nombre AS moneda_nombre,
            tm.codigo AS moneda_codigo,
            tm.simbolo AS moneda_simbolo,
            ROUND(SUM(c.saldo), 2) AS saldo_total
        FROM cuenta c
        JOIN usuario u ON c.id_usuario = u.id_usuario
        JOIN ciudad ci ON u.id_ciudad = ci.id_ciudad
        JOIN pais p ON ci.id_pais = p.id_pais
        JOIN producto pr ON c.id_producto = pr.id_producto
        JOIN tipo_moneda tm ON pr.id_moneda = tm.id_moneda
        GROUP BY p.id_pais, p.nombre, tm.id_moneda, tm.nombre, tm.codigo, tm.simbolo
        ORDER BY p.nombre, tm.nombre`

	startTime := time.Now()

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		monitoring.RecordDBQuery("CurrencyBalances", "error", time.Since(startTime))
		r.logger.ErrorContext(ctx, "Failed to query currency balances", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	records := make([]report.BalanceRecord, 0)
	for rows.Next() {
		var rec report.BalanceRecord
		if err := rows.Scan(&rec.Country, &rec.CurrencyName, &rec.CurrencyCode, &rec.CurrencySymbol, &rec.Total); err != nil {
			monitoring.RecordDBQuery("CurrencyBalances", "error", time.Since(startTime))
			r.logger.ErrorContext(ctx, "Failed to scan currency balance row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		monitoring.RecordDBQuery("CurrencyBalances", "error", time.Since(startTime))
		r.logger.ErrorContext(ctx, "Error iterating currency balance rows", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	monitoring.RecordDBQuery("CurrencyBalances", "success", time.Since(startTime))
	return records, nil
}

func (r *ReportRepository) FindCustomerByDNI(ctx context.Context, dni string) (*report.CustomerRecord, error) {
	query := `
        SELECT id_usuario, nombre, apellido
        FROM usuario
        WHERE dni = $1`

	startTime := time.Now()

	var rec report.CustomerRecord
	err := r.db.QueryRow(ctx, query, dni).Scan(&rec.ID, &rec.FirstName, &rec.LastName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			monitoring.RecordDBQuery("FindCustomerByDNI", "success", time.Since(startTime))
			r.logger.WarnContext(ctx, "Customer not found", "dni", dni)
			return nil, apperrors.ErrNotFound
		}
		monitoring.RecordDBQuery("FindCustomerByDNI", "error", time.Since(startTime))
		r.logger.ErrorContext(ctx, "Failed to look up customer by DNI", "dni", dni, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	monitoring.RecordDBQuery("FindCustomerByDNI", "success", time.Since(startTime))
	return &rec, nil
}

func (r *ReportRepository) ActiveLoansByDNI(ctx context.Context, dni string) ([]report.ActiveLoanRecord, error) {
	query := `
        SELECT
            p.id_prestamo,
            p.monto_total,
            p.tasa_interes,
            p.fecha_inicio,
            p.fecha_fin,
            tm.codigo AS moneda_codigo,
            tm.simbolo AS moneda_simbolo
        FROM prestamo p
        JOIN usuario u ON p.id_usuario = u.id_usuario
        JOIN tipo_moneda tm ON p.id_moneda = tm.id_moneda
        WHERE u.dni = $1 AND p.estado = 'activo'
        ORDER BY p.fecha_inicio DESC`

	startTime := time.Now()

	rows, err := r.db.Query(ctx, query, dni)
	if err != nil {
		monitoring.RecordDBQuery("ActiveLoansByDNI", "error", time.Since(startTime))
		r.logger.ErrorContext(ctx, "Failed to query active loans", "dni", dni, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	records := make([]report.ActiveLoanRecord, 0)
	for rows.Next() {
		var rec report.ActiveLoanRecord
		if err := rows.Scan(&rec.LoanID, &rec.Amount, &rec.Rate, &rec.StartDate, &rec.EndDate, &rec.CurrencyCode, &rec.CurrencySymbol); err != nil {
			monitoring.RecordDBQuery("ActiveLoansByDNI", "error", time.Since(startTime))
			r.logger.ErrorContext(ctx, "Failed to scan active loan row", "dni", dni, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		monitoring.RecordDBQuery("ActiveLoansByDNI", "error", time.Since(startTime))
		r.logger.ErrorContext(ctx, "Error iterating active loan rows", "dni", dni, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	monitoring.RecordDBQuery("ActiveLoansByDNI", "success", time.Since(startTime))
	return records, nil
}

func (r *ReportRepository) TopCustomersByVolume(ctx context.Context, since time.Time, limit int) ([]report.TopCustomerRecord, error) {
	// Only transfers and withdrawals count toward moved volume. Ties on the
	// summed total break by customer id so reruns are stable.
	query := `
        SELECT
            u.id_usuario,
            u.nombre,
            u.apellido,
            ROUND(SUM(t.monto), 2) AS total_movido
        FROM transaccion t
        JOIN cuenta c ON t.id_cuenta_origen = c.id_cuenta
        JOIN usuario u ON c.id_usuario = u.id_usuario
        WHERE t.tipo IN ('transferencia', 'retiro')
          AND t.fecha >= $1
        GROUP BY u.id_usuario, u.nombre, u.apellido
        ORDER BY total_movido DESC, u.id_usuario ASC
        LIMIT $2`

	startTime := time.Now()

	rows, err := r.db.Query(ctx, query, since, limit)
	if err != nil {
		monitoring.RecordDBQuery("TopCustomersByVolume", "error", time.Since(startTime))
		r.logger.ErrorContext(ctx, "Failed to query top customers", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	records := make([]report.TopCustomerRecord, 0, limit)
	for rows.Next() {
		var rec report.TopCustomerRecord
		if err := rows.Scan(&rec.CustomerID, &rec.FirstName, &rec.LastName, &rec.Total); err != nil {
			monitoring.RecordDBQuery("TopCustomersByVolume", "error", time.Since(startTime))
			r.logger.ErrorContext(ctx, "Failed to scan top customer row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		monitoring.RecordDBQuery("TopCustomersByVolume", "error", time.Since(startTime))
		r.logger.ErrorContext(ctx, "Error iterating top customer rows", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	monitoring.RecordDBQuery("TopCustomersByVolume", "success", time.Since(startTime))
	return records, nil
}

func (r *ReportRepository) PendingInstallments(ctx context.Context) ([]report.PendingInstallmentRecord, error) {
	query := `
        SELECT
            p.id_prestamo,
            u.dni,
            COUNT(c.id_cuota) AS cuotas_pendientes,
            ROUND(SUM(c.monto), 2) AS monto_total
        FROM cuota c
        JOIN prestamo p ON c.id_prestamo = p.id_prestamo
        JOIN usuario u ON p.id_usuario = u.id_usuario
        WHERE c.estado = 'pendiente'
        GROUP BY p.id_prestamo, u.dni
        ORDER BY p.id_prestamo`

	startTime := time.Now()

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		monitoring.RecordDBQuery("PendingInstallments", "error", time.Since(startTime))
		r.logger.ErrorContext(ctx, "Failed to query pending installments", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	records := make([]report.PendingInstallmentRecord, 0)
	for rows.Next() {
		var rec report.PendingInstallmentRecord
		if err := rows.Scan(&rec.LoanID, &rec.DNI, &rec.PendingCount, &rec.Total); err != nil {
			monitoring.RecordDBQuery("PendingInstallments", "error", time.Since(startTime))
			r.logger.ErrorContext(ctx, "Failed to scan pending installment row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		monitoring.RecordDBQuery("PendingInstallments", "error", time.Since(startTime))
		r.logger.ErrorContext(ctx, "Error iterating pending installment rows", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	monitoring.RecordDBQuery("PendingInstallments", "success", time.Since(startTime))
	return records, nil
}

// createSummaryViewSQL uses LEFT JOINs so customers without accounts or loans
// still appear, and COUNT(DISTINCT ...) so a customer with N accounts and M
// loans does not inflate either count through join fan-out.
const createSummaryViewSQL = `
        CREATE OR REPLACE VIEW v_resumen_cliente AS
        SELECT
            u.id_usuario,
            u.nombre || ' ' || u.apellido AS nombre_completo,
            COALESCE(COUNT(DISTINCT c.id_cuenta), 0) AS cantidad_cuentas,
            COALESCE(COUNT(DISTINCT p.id_prestamo), 0) AS cantidad_prestamos,
            COALESCE(ROUND(SUM(c.saldo), 2), 0.00) AS saldo_total
        FROM usuario u
        LEFT JOIN cuenta c ON u.id_usuario = c.id_usuario
        LEFT JOIN prestamo p ON u.id_usuario = p.id_usuario
        GROUP BY u.id_usuario, u.nombre, u.apellido
        ORDER BY nombre_completo`

func (r *ReportRepository) CreateCustomerSummaryView(ctx context.Context) error {
	startTime := time.Now()

	if _, err := r.db.Exec(ctx, createSummaryViewSQL); err != nil {
		monitoring.RecordDBQuery("CreateCustomerSummaryView", "error", time.Since(startTime))
		r.logger.ErrorContext(ctx, "Failed to create customer summary view", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	monitoring.RecordDBQuery("CreateCustomerSummaryView", "success", time.Since(startTime))
	return nil
}

func (r *ReportRepository) CustomerSummaries(ctx context.Context) ([]report.SummaryRecord, error) {
	query := `
        SELECT
            nombre_completo,
            cantidad_cuentas,
            cantidad_prestamos,
            saldo_total
        FROM v_resumen_cliente`

	startTime := time.Now()

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		monitoring.RecordDBQuery("CustomerSummaries", "error", time.Since(startTime))
		r.logger.ErrorContext(ctx, "Failed to query customer summaries", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	records := make([]report.SummaryRecord, 0)
	for rows.Next() {
		var rec report.SummaryRecord
		if err := rows.Scan(&rec.FullName, &rec.Accounts, &rec.Loans, &rec.Balance); err != nil {
			monitoring.RecordDBQuery("CustomerSummaries", "error", time.Since(startTime))
			r.logger.ErrorContext(ctx, "Failed to scan customer summary row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		monitoring.RecordDBQuery("CustomerSummaries", "error", time.Since(startTime))
		r.logger.ErrorContext(ctx, "Error iterating customer summary rows", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	monitoring.RecordDBQuery("CustomerSummaries", "success", time.Since(startTime))
	return records, nil
}
