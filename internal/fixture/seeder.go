package fixture

import (
	"bank-reports/internal/pkg/apperrors"
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// schemaDDL creates the reporting schema when missing. Idempotent, so the
// seeder can run against an empty database or an existing one.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS pais (
	id_pais BIGINT PRIMARY KEY,
	nombre TEXT NOT NULL,
	codigo_iso TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS ciudad (
	id_ciudad BIGINT PRIMARY KEY,
	nombre TEXT NOT NULL,
	id_pais BIGINT NOT NULL REFERENCES pais(id_pais)
);
CREATE TABLE IF NOT EXISTS sede (
	id_sede BIGINT PRIMARY KEY,
	nombre TEXT NOT NULL,
	direccion TEXT NOT NULL,
	id_ciudad BIGINT NOT NULL REFERENCES ciudad(id_ciudad)
);
CREATE TABLE IF NOT EXISTS tipo_moneda (
	id_moneda BIGINT PRIMARY KEY,
	nombre TEXT NOT NULL,
	codigo TEXT NOT NULL,
	simbolo TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS producto (
	id_producto BIGINT PRIMARY KEY,
	nombre TEXT NOT NULL,
	tipo TEXT NOT NULL,
	descripcion TEXT,
	id_moneda BIGINT NOT NULL REFERENCES tipo_moneda(id_moneda)
);
CREATE TABLE IF NOT EXISTS usuario (
	id_usuario BIGINT PRIMARY KEY,
	nombre TEXT NOT NULL,
	apellido TEXT NOT NULL,
	dni TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL,
	telefono TEXT,
	fecha_nacimiento DATE,
	id_ciudad BIGINT NOT NULL REFERENCES ciudad(id_ciudad)
);
CREATE TABLE IF NOT EXISTS cuenta (
	id_cuenta BIGINT PRIMARY KEY,
	numero_cuenta TEXT NOT NULL UNIQUE,
	saldo NUMERIC(14,2) NOT NULL,
	fecha_apertura DATE NOT NULL,
	id_usuario BIGINT NOT NULL REFERENCES usuario(id_usuario),
	id_producto BIGINT NOT NULL REFERENCES producto(id_producto),
	id_sede BIGINT NOT NULL REFERENCES sede(id_sede)
);
CREATE TABLE IF NOT EXISTS tarjeta (
	id_tarjeta BIGINT PRIMARY KEY,
	numero_tarjeta TEXT NOT NULL,
	tipo TEXT NOT NULL,
	limite_credito NUMERIC(14,2),
	fecha_emision DATE NOT NULL,
	fecha_vencimiento DATE NOT NULL,
	id_usuario BIGINT NOT NULL REFERENCES usuario(id_usuario),
	id_cuenta BIGINT NOT NULL REFERENCES cuenta(id_cuenta)
);
CREATE TABLE IF NOT EXISTS prestamo (
	id_prestamo BIGINT PRIMARY KEY,
	id_usuario BIGINT NOT NULL REFERENCES usuario(id_usuario),
	monto_total NUMERIC(14,2) NOT NULL,
	tasa_interes NUMERIC(5,2) NOT NULL,
	fecha_inicio DATE NOT NULL,
	fecha_fin DATE NOT NULL,
	estado TEXT NOT NULL,
	id_moneda BIGINT NOT NULL REFERENCES tipo_moneda(id_moneda)
);
CREATE TABLE IF NOT EXISTS cuota (
	id_cuota BIGINT PRIMARY KEY,
	id_prestamo BIGINT NOT NULL REFERENCES prestamo(id_prestamo),
	numero_cuota INT NOT NULL,
	monto NUMERIC(14,2) NOT NULL,
	fecha_vencimiento DATE NOT NULL,
	fecha_pago DATE,
	estado TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS transaccion (
	id_transaccion BIGINT PRIMARY KEY,
	id_cuenta_origen BIGINT NOT NULL REFERENCES cuenta(id_cuenta),
	id_cuenta_destino BIGINT REFERENCES cuenta(id_cuenta),
	monto NUMERIC(14,2) NOT NULL,
	fecha TIMESTAMP NOT NULL,
	tipo TEXT NOT NULL,
	descripcion TEXT
);
`

// Tables in dependency order; truncation runs in reverse.
var tableOrder = []string{
	"pais", "ciudad", "sede", "tipo_moneda", "producto",
	"usuario", "cuenta", "tarjeta", "prestamo", "cuota", "transaccion",
}

// DBPool is the pgx surface the seeder needs, satisfied by *pgxpool.Pool.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Seeder struct {
	db     DBPool
	logger *slog.Logger
}

func NewSeeder(db DBPool, logger *slog.Logger) *Seeder {
	if db == nil || logger == nil {
		panic("Seeder dependencies cannot be nil")
	}
	return &Seeder{db: db, logger: logger.With("component", "Seeder")}
}

// Seed creates the schema if needed, clears it and loads the dataset.
func (s *Seeder) Seed(ctx context.Context, ds *Dataset) error {
	s.logger.InfoContext(ctx, "Creating schema if missing.")
	if _, err := s.db.Exec(ctx, schemaDDL); err != nil {
		return apperrors.WrapDatabaseError(err, "failed to create schema")
	}

	s.logger.InfoContext(ctx, "Clearing existing data.")
	for i := len(tableOrder) - 1; i >= 0; i-- {
		if _, err := s.db.Exec(ctx, "DELETE FROM "+tableOrder[i]); err != nil {
			return apperrors.WrapDatabaseError(err, fmt.Sprintf("failed to clear table %s", tableOrder[i]))
		}
	}

	batch := &pgx.Batch{}
	queueDataset(batch, ds)

	s.logger.InfoContext(ctx, "Inserting dataset.",
		slog.Int("users", len(ds.Users)),
		slog.Int("accounts", len(ds.Accounts)),
		slog.Int("loans", len(ds.Loans)),
		slog.Int("installments", len(ds.Installments)),
		slog.Int("transactions", len(ds.Transactions)),
	)

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return apperrors.WrapDatabaseError(err, fmt.Sprintf("batch insert failed at statement %d", i))
		}
	}

	s.logger.InfoContext(ctx, "Dataset seeded.")
	return nil
}

func queueDataset(batch *pgx.Batch, ds *Dataset) {
	for _, c := range ds.Countries {
		batch.Queue("INSERT INTO pais (id_pais, nombre, codigo_iso) VALUES ($1, $2, $3)",
			c.ID, c.Name, c.ISO)
	}
	for _, c := range ds.Cities {
		batch.Queue("INSERT INTO ciudad (id_ciudad, nombre, id_pais) VALUES ($1, $2, $3)",
			c.ID, c.Name, c.CountryID)
	}
	for _, b := range ds.Branches {
		batch.Queue("INSERT INTO sede (id_sede, nombre, direccion, id_ciudad) VALUES ($1, $2, $3, $4)",
			b.ID, b.Name, b.Address, b.CityID)
	}
	for _, c := range ds.Currencies {
		batch.Queue("INSERT INTO tipo_moneda (id_moneda, nombre, codigo, simbolo) VALUES ($1, $2, $3, $4)",
			c.ID, c.Name, c.Code, c.Symbol)
	}
	for _, p := range ds.Products {
		batch.Queue("INSERT INTO producto (id_producto, nombre, tipo, descripcion, id_moneda) VALUES ($1, $2, $3, $4, $5)",
			p.ID, p.Name, p.Type, p.Description, p.CurrencyID)
	}
	for _, u := range ds.Users {
		batch.Queue(`INSERT INTO usuario (id_usuario, nombre, apellido, dni, email, telefono, fecha_nacimiento, id_ciudad)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			u.ID, u.FirstName, u.LastName, u.DNI, u.Email, u.Phone, u.BirthDate, u.CityID)
	}
	for _, a := range ds.Accounts {
		batch.Queue(`INSERT INTO cuenta (id_cuenta, numero_cuenta, saldo, fecha_apertura, id_usuario, id_producto, id_sede)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			a.ID, a.Number, a.Balance, a.OpenedAt, a.UserID, a.ProductID, a.BranchID)
	}
	for _, c := range ds.Cards {
		batch.Queue(`INSERT INTO tarjeta (id_tarjeta, numero_tarjeta, tipo, limite_credito, fecha_emision, fecha_vencimiento, id_usuario, id_cuenta)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, c.Number, c.Type, c.CreditLimit, c.IssuedAt, c.ExpiresAt, c.UserID, c.AccountID)
	}
	for _, l := range ds.Loans {
		batch.Queue(`INSERT INTO prestamo (id_prestamo, id_usuario, monto_total, tasa_interes, fecha_inicio, fecha_fin, estado, id_moneda)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			l.ID, l.UserID, l.Amount, l.Rate, l.StartDate, l.EndDate, l.Status, l.CurrencyID)
	}
	for _, i := range ds.Installments {
		batch.Queue(`INSERT INTO cuota (id_cuota, id_prestamo, numero_cuota, monto, fecha_vencimiento, fecha_pago, estado)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			i.ID, i.LoanID, i.Number, i.Amount, i.DueDate, i.PaidDate, i.Status)
	}
	for _, t := range ds.Transactions {
		batch.Queue(`INSERT INTO transaccion (id_transaccion, id_cuenta_origen, id_cuenta_destino, monto, fecha, tipo, descripcion)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			t.ID, t.OriginAccount, t.DestAccount, t.Amount, t.Timestamp, t.Type, t.Description)
	}
}
