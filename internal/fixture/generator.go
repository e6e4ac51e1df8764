// Package fixture generates a deterministic synthetic dataset for the
// reporting schema: catalogs, customers, accounts, cards, loans with their
// installment schedules and a transaction history. The same seed always
// produces the same dataset.
package fixture

import (
	"fmt"
	"math/rand"
	"time"
)

const (
	DefaultUsers        = 300
	DefaultLoans        = 90
	DefaultTransactions = 8000
)

// Config bounds the generated volume. Now anchors every relative date
// (installment due dates, the transaction window) so a fixed value yields a
// fully reproducible dataset.
type Config struct {
	Users        int
	Loans        int
	Transactions int
	Now          time.Time
}

func (c Config) withDefaults() Config {
	if c.Users <= 0 {
		c.Users = DefaultUsers
	}
	if c.Loans <= 0 {
		c.Loans = DefaultLoans
	}
	if c.Transactions <= 0 {
		c.Transactions = DefaultTransactions
	}
	if c.Now.IsZero() {
		c.Now = time.Now()
	}
	return c
}

type Country struct {
	ID   int64
	Name string
	ISO  string
}

type City struct {
	ID        int64
	Name      string
	CountryID int64
}

type Branch struct {
	ID      int64
	Name    string
	Address string
	CityID  int64
}

type Currency struct {
	ID     int64
	Name   string
	Code   string
	Symbol string
}

type Product struct {
	ID          int64
	Name        string
	Type        string
	Description string
	CurrencyID  int64
}

type User struct {
	ID        int64
	FirstName string
	LastName  string
	DNI       string
	Email     string
	Phone     string
	BirthDate time.Time
	CityID    int64
}

type Account struct {
	ID        int64
	Number    string
	Balance   float64
	OpenedAt  time.Time
	UserID    int64
	ProductID int64
	BranchID  int64
}

type Card struct {
	ID          int64
	Number      string
	Type        string
	CreditLimit *float64
	IssuedAt    time.Time
	ExpiresAt   time.Time
	UserID      int64
	AccountID   int64
}

type Loan struct {
	ID         int64
	UserID     int64
	Amount     float64
	Rate       float64
	StartDate  time.Time
	EndDate    time.Time
	Status     string
	CurrencyID int64
}

type Installment struct {
	ID       int64
	LoanID   int64
	Number   int
	Amount   float64
	DueDate  time.Time
	PaidDate *time.Time
	Status   string
}

type Transaction struct {
	ID            int64
	OriginAccount int64
	DestAccount   *int64
	Amount        float64
	Timestamp     time.Time
	Type          string
	Description   string
}

// Dataset is the full generated state, ordered so that each slice can be
// inserted before the ones that reference it.
type Dataset struct {
	Countries    []Country
	Cities       []City
	Branches     []Branch
	Currencies   []Currency
	Products     []Product
	Users        []User
	Accounts     []Account
	Cards        []Card
	Loans        []Loan
	Installments []Installment
	Transactions []Transaction
}

var (
	LoanStatuses        = []string{"activo", "pagado", "en mora"}
	InstallmentStatuses = []string{"pagada", "pendiente", "vencida"}
	TransactionTypes    = []string{"depósito", "retiro", "transferencia", "pago cuota", "compra tarjeta"}
)

var firstNames = []string{
	"Luis", "Carla", "Juan", "Ana", "Diego", "María", "Pedro", "Lucía", "Andrés", "Sofía",
	"Martín", "Valentina", "Matías", "Camila", "Nicolás", "Florencia", "Facundo", "Agustina",
	"Santiago", "Julieta", "Tomás", "Micaela", "Franco", "Rocío", "Ezequiel", "Belén",
	"Ignacio", "Daiana", "Luciano", "Pilar", "Alan", "Morena", "Brian", "Melina", "Leandro",
	"Celeste", "Gonzalo", "Jazmín", "Maximiliano", "Noelia", "Sebastián", "Aldana",
	"Federico", "Ludmila", "Ariel", "Carolina", "Hernán", "Estefanía", "Ramiro", "Olivia",
}

var lastNames = []string{
	"Molina", "Gómez", "Pérez", "Fernández", "López", "Rodríguez", "Hernández", "Silva",
	"Cárdenas", "Blanco", "Sosa", "Torres", "Ramírez", "Herrera", "Gutiérrez", "Méndez",
	"Ortiz", "Rojas", "Castro", "Vargas", "Suárez", "Delgado", "Ponce", "Navarro",
	"Paz", "Romero", "Arias", "Luna", "Cabrera", "Ríos", "Morales", "Bravo", "Ojeda",
	"Ferreyra", "Medina", "Acosta", "Figueroa", "Cordero", "Aguirre", "Pereyra",
	"Ludueña", "Quiroga", "Benítez", "Salazar", "Campos", "Aguilar",
}

func catalogs() ([]Country, []City, []Branch, []Currency, []Product) {
	countries := []Country{
		{1, "Argentina", "AR"}, {2, "Colombia", "CO"}, {3, "México", "MX"},
		{4, "Perú", "PE"}, {5, "España", "ES"},
	}
	cities := []City{
		{1, "Buenos Aires", 1}, {2, "Córdoba", 1}, {3, "Rosario", 1},
		{4, "Bogotá", 2}, {5, "Medellín", 2},
		{6, "Ciudad de México", 3}, {7, "Guadalajara", 3},
		{8, "Lima", 4}, {9, "Arequipa", 4},
		{10, "Madrid", 5}, {11, "Barcelona", 5},
	}
	branches := []Branch{
		{1, "Sede Central BA", "Av. Corrientes 123", 1},
		{2, "Sede Córdoba", "Bv. San Juan 456", 2},
		{3, "Sede Bogotá", "Calle 100 7-21", 4},
		{4, "Sede CDMX", "Paseo de la Reforma 222", 6},
		{5, "Sede Guadalajara", "Av. Chapultepec 234", 7},
		{6, "Sede Lima", "Av. Larco 345", 8},
		{7, "Sede Madrid", "Calle de Alcalá 101", 10},
	}
	currencies := []Currency{
		{1, "Peso Argentino", "ARS", "$"},
		{2, "Peso Colombiano", "COP", "$"},
		{3, "Peso Mexicano", "MXN", "$"},
		{4, "Sol Peruano", "PEN", "S/"},
		{5, "Euro", "EUR", "€"},
	}
	products := make([]Product, 0, len(currencies)*2)
	id := int64(1)
	for _, cur := range currencies {
		products = append(products,
			Product{id, "Cuenta Corriente " + cur.Code, "cuenta corriente", "Cuenta " + cur.Code, cur.ID},
			Product{id + 1, "Caja de Ahorro " + cur.Code, "cuenta ahorro", "Ahorro " + cur.Code, cur.ID},
		)
		id += 2
	}
	return countries, cities, branches, currencies, products
}

// cityProducts maps each city to the two account products denominated in its
// country's currency. Accounts opened through this table are always coherent
// with the holder's location.
func cityProducts(cities []City, products []Product) map[int64][]int64 {
	byCurrency := make(map[int64][]int64)
	for _, p := range products {
		byCurrency[p.CurrencyID] = append(byCurrency[p.CurrencyID], p.ID)
	}
	// Country and currency catalogs share IDs: country N uses currency N.
	byCity := make(map[int64][]int64, len(cities))
	for _, c := range cities {
		byCity[c.ID] = byCurrency[c.CountryID]
	}
	return byCity
}

func randomDate(rng *rand.Rand, start time.Time, spanDays int) time.Time {
	return start.AddDate(0, 0, rng.Intn(spanDays+1))
}

// Generate builds the whole dataset from a seed. The output satisfies the
// schema's referential and business coherence rules: account currency follows
// the holder's country, installment statuses follow the loan status and the
// due date, and debit transactions never drive a balance negative.
func Generate(seed int64, cfg Config) *Dataset {
	cfg = cfg.withDefaults()
	rng := rand.New(rand.NewSource(seed))

	ds := &Dataset{}
	ds.Countries, ds.Cities, ds.Branches, ds.Currencies, ds.Products = catalogs()
	productsByCity := cityProducts(ds.Cities, ds.Products)

	generateUsersAccountsCards(rng, cfg, ds, productsByCity)
	generateLoans(rng, cfg, ds)
	generateTransactions(rng, cfg, ds)
	return ds
}

func generateUsersAccountsCards(rng *rand.Rand, cfg Config, ds *Dataset, productsByCity map[int64][]int64) {
	ds.Users = make([]User, 0, cfg.Users)
	ds.Accounts = make([]Account, 0, cfg.Users)
	ds.Cards = make([]Card, 0, cfg.Users)

	birthEpoch := time.Date(1975, 1, 1, 0, 0, 0, 0, time.UTC)
	openEpoch := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
	issueEpoch := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 1; i <= cfg.Users; i++ {
		first := firstNames[rng.Intn(len(firstNames))]
		last := lastNames[rng.Intn(len(lastNames))]
		cityID := int64(rng.Intn(len(ds.Cities)) + 1)
		user := User{
			ID:        int64(i),
			FirstName: first,
			LastName:  last,
			DNI:       fmt.Sprintf("%d", 20000000+i),
			Email:     fmt.Sprintf("user%d@mail.com", i),
			Phone:     fmt.Sprintf("+57 9 %d %04d-%04d", 11+rng.Intn(5), 4000+rng.Intn(6000), 1000+rng.Intn(9000)),
			BirthDate: randomDate(rng, birthEpoch, 7300),
			CityID:    cityID,
		}
		ds.Users = append(ds.Users, user)

		products := productsByCity[cityID]
		account := Account{
			ID:        int64(i),
			Number:    fmt.Sprintf("CBU%010d", i),
			Balance:   round2(1500 + rng.Float64()*93500),
			OpenedAt:  randomDate(rng, openEpoch, 1800),
			UserID:    user.ID,
			ProductID: products[rng.Intn(len(products))],
			BranchID:  int64(rng.Intn(len(ds.Branches)) + 1),
		}
		ds.Accounts = append(ds.Accounts, account)

		card := Card{
			ID:        int64(i),
			Number:    fmt.Sprintf("4%015d", rng.Int63n(1e15)),
			Type:      "débito",
			IssuedAt:  randomDate(rng, issueEpoch, 900),
			UserID:    user.ID,
			AccountID: account.ID,
		}
		if rng.Intn(2) == 1 {
			card.Type = "crédito"
			limit := round2(50000 + rng.Float64()*150000)
			card.CreditLimit = &limit
		}
		card.ExpiresAt = card.IssuedAt.AddDate(4, 0, 0)
		ds.Cards = append(ds.Cards, card)
	}
}

func generateLoans(rng *rand.Rand, cfg Config, ds *Dataset) {
	ds.Loans = make([]Loan, 0, cfg.Loans)
	loanEpoch := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	installmentID := int64(1)

	for p := 1; p <= cfg.Loans; p++ {
		status := "en mora"
		if rng.Float64() < 0.8 {
			status = LoanStatuses[rng.Intn(2)]
		}
		start := randomDate(rng, loanEpoch, 600)
		loan := Loan{
			ID:         int64(p),
			UserID:     int64(rng.Intn(cfg.Users) + 1),
			Amount:     round2(50000 + rng.Float64()*400000),
			Rate:       round2(15 + rng.Float64()*10),
			StartDate:  start,
			EndDate:    start.AddDate(1, 0, 0),
			Status:     status,
			CurrencyID: 1,
		}
		ds.Loans = append(ds.Loans, loan)

		count := 5 + rng.Intn(37)
		amount := round2(loan.Amount / float64(count))
		for c := 1; c <= count; c++ {
			due := start.AddDate(0, 0, 30*c)
			inst := Installment{
				ID:      installmentID,
				LoanID:  loan.ID,
				Number:  c,
				Amount:  amount,
				DueDate: due,
			}
			paid := status == "pagado" || (status == "activo" && rng.Float64() < 0.65)
			if paid {
				paidDate := due.AddDate(0, 0, rng.Intn(11)-5)
				inst.PaidDate = &paidDate
				inst.Status = "pagada"
			} else if due.Before(cfg.Now) {
				inst.Status = "vencida"
			} else {
				inst.Status = "pendiente"
			}
			ds.Installments = append(ds.Installments, inst)
			installmentID++
		}
	}
}

func generateTransactions(rng *rand.Rand, cfg Config, ds *Dataset) {
	balances := make(map[int64]float64, len(ds.Accounts))
	for _, a := range ds.Accounts {
		balances[a.ID] = a.Balance
	}

	txEpoch := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	ds.Transactions = make([]Transaction, 0, cfg.Transactions)
	id := int64(1)

	for len(ds.Transactions) < cfg.Transactions {
		origin := int64(rng.Intn(len(ds.Accounts)) + 1)
		txType := TransactionTypes[rng.Intn(len(TransactionTypes))]

		var amount float64
		switch txType {
		case "depósito":
			amount = 10 + rng.Float64()*19990
		case "retiro":
			amount = 10 + rng.Float64()*4990
		case "transferencia":
			amount = 100 + rng.Float64()*49900
		case "pago cuota":
			amount = 100 + rng.Float64()*4900
		case "compra tarjeta":
			amount = 10 + rng.Float64()*2990
		}
		amount = round2(amount)

		var dest *int64
		switch txType {
		case "retiro", "pago cuota", "compra tarjeta":
			if balances[origin] < amount {
				continue
			}
			balances[origin] -= amount
		case "transferencia":
			d := int64(rng.Intn(len(ds.Accounts)) + 1)
			for d == origin {
				d = int64(rng.Intn(len(ds.Accounts)) + 1)
			}
			if balances[origin] < amount {
				continue
			}
			balances[origin] -= amount
			balances[d] += amount
			dest = &d
		default:
			balances[origin] += amount
		}

		day := randomDate(rng, txEpoch, 900)
		ts := time.Date(day.Year(), day.Month(), day.Day(),
			8+rng.Intn(13), rng.Intn(60), rng.Intn(60), 0, time.UTC)

		ds.Transactions = append(ds.Transactions, Transaction{
			ID:            id,
			OriginAccount: origin,
			DestAccount:   dest,
			Amount:        amount,
			Timestamp:     ts,
			Type:          txType,
			Description:   txType + " automática",
		})
		id++
	}
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
