package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/airbill/internal/client/domain"
	clientrepo "github.com/smallbiznis/airbill/internal/client/repository"
	clientservice "github.com/smallbiznis/airbill/internal/client/service"
	"github.com/smallbiznis/airbill/internal/config"
	invoicedomain "github.com/smallbiznis/airbill/internal/invoice/domain"
	invoiceservice "github.com/smallbiznis/airbill/internal/invoice/service"
	"github.com/smallbiznis/airbill/internal/rollup"
	stationdomain "github.com/smallbiznis/airbill/internal/station/domain"
	stationservice "github.com/smallbiznis/airbill/internal/station/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE stations (
			id BIGINT PRIMARY KEY,
			guard SMALLINT NOT NULL DEFAULT 1,
			name TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			bank_name TEXT NOT NULL DEFAULT '',
			account_name TEXT NOT NULL DEFAULT '',
			account_number TEXT NOT NULL DEFAULT '',
			logo_url TEXT NOT NULL DEFAULT '',
			invoice_prefix TEXT NOT NULL,
			receipt_prefix TEXT NOT NULL,
			invoice_counter BIGINT NOT NULL DEFAULT 0,
			receipt_counter BIGINT NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_stations_guard ON stations(guard)`,
		`CREATE TABLE clients (
			id BIGINT PRIMARY KEY,
			company_name TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			total_invoiced BIGINT NOT NULL DEFAULT 0,
			total_paid BIGINT NOT NULL DEFAULT 0,
			outstanding_balance BIGINT NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			metadata TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_clients_company_name ON clients(company_name)`,
		`CREATE TABLE invoices (
			id BIGINT PRIMARY KEY,
			invoice_number TEXT NOT NULL,
			client_id BIGINT NOT NULL,
			invoice_type TEXT NOT NULL DEFAULT 'proforma',
			invoice_date DATETIME NOT NULL,
			total_slots BIGINT NOT NULL DEFAULT 0,
			subtotal BIGINT NOT NULL DEFAULT 0,
			vat_rate REAL NOT NULL DEFAULT 7.5,
			vat_amount BIGINT NOT NULL DEFAULT 0,
			total_amount BIGINT NOT NULL DEFAULT 0,
			amount_in_words TEXT NOT NULL DEFAULT '',
			advance_required BIGINT NOT NULL DEFAULT 0,
			amount_paid BIGINT NOT NULL DEFAULT 0,
			outstanding_balance BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			payment_terms TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_invoices_number ON invoices(invoice_number)`,
		`CREATE TABLE invoice_lines (
			id BIGINT PRIMARY KEY,
			invoice_id BIGINT NOT NULL,
			line_no INTEGER NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			duration TEXT NOT NULL DEFAULT '',
			daily_slots BIGINT NOT NULL DEFAULT 0,
			campaign_days BIGINT NOT NULL DEFAULT 0,
			rate_per_slot BIGINT NOT NULL DEFAULT 0,
			total_slots BIGINT NOT NULL DEFAULT 0,
			line_total BIGINT NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE payments (
			id BIGINT PRIMARY KEY,
			invoice_id BIGINT NOT NULL,
			receipt_number TEXT NOT NULL,
			amount BIGINT NOT NULL,
			payment_method TEXT NOT NULL,
			reference TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			received_by TEXT NOT NULL DEFAULT '',
			position TEXT NOT NULL DEFAULT '',
			date_received DATETIME NOT NULL,
			balance_before BIGINT NOT NULL DEFAULT 0,
			balance_after BIGINT NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_payments_receipt_number ON payments(receipt_number)`,
		`CREATE TABLE rollup_backlog (
			id BIGINT PRIMARY KEY,
			client_id BIGINT NOT NULL,
			enqueued_at DATETIME NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE UNIQUE INDEX ux_rollup_backlog_client_id ON rollup_backlog(client_id)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db
}

type fixture struct {
	db        *gorm.DB
	node      *snowflake.Node
	clients   clientdomain.Service
	stations  stationdomain.Service
	invoices  invoicedomain.Service
	rollupSvc *rollup.Service
	clientID  string
}

func newFixture(t *testing.T, nodeID int64) *fixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	cfg := config.Config{
		DefaultVATRate: 7.5,
		Station: config.StationConfig{
			Name:          "Emirate FM 98.5 FM",
			Address:       "Ilorin, Kwara State",
			InvoicePrefix: "EFM/ADV/",
			ReceiptPrefix: "REC/",
		},
	}

	clients := clientservice.New(clientservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  clientrepo.Provide(),
	})
	stations := stationservice.New(stationservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Cfg:   cfg,
	})
	rollupSvc := rollup.New(rollup.Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clients: clients,
	})
	invoices := invoiceservice.New(invoiceservice.Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Cfg:        cfg,
		StationSvc: stations,
		ClientSvc:  clients,
		Rollup:     rollupSvc,
	})

	client, err := clients.Create(context.Background(), clientdomain.CreateClientRequest{
		CompanyName: "Kwara Breweries Ltd",
		Address:     "12 Unity Road, Ilorin",
		Email:       "accounts@kwarabrew.example",
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	return &fixture{
		db:        db,
		node:      node,
		clients:   clients,
		stations:  stations,
		invoices:  invoices,
		rollupSvc: rollupSvc,
		clientID:  client.ID.String(),
	}
}

func TestCreateInvoiceComputesTotals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 30)

	invoice, err := f.invoices.Create(ctx, invoicedomain.CreateInvoiceRequest{
		ClientID: f.clientID,
		Lines: []invoicedomain.LineInput{
			{Description: "Morning jingle", Duration: "60s", DailySlots: 2, CampaignDays: 10, RatePerSlot: 1000},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(20), invoice.TotalSlots)
	assert.Equal(t, int64(20000), invoice.Subtotal)
	assert.Equal(t, 7.5, invoice.VATRate)
	assert.Equal(t, int64(1500), invoice.VATAmount)
	assert.Equal(t, int64(21500), invoice.TotalAmount)
	assert.Equal(t, int64(21500), invoice.AdvanceRequired)
	assert.Equal(t, int64(21500), invoice.OutstandingBalance)
	assert.Equal(t, int64(0), invoice.AmountPaid)
	assert.Equal(t, invoicedomain.StatusPending, invoice.Status)
	assert.Equal(t, invoicedomain.TypeProforma, invoice.InvoiceType)
	assert.Equal(t, "Two Hundred and Fifteen Naira Only", invoice.AmountInWords)
	assert.Equal(t, invoicedomain.DefaultPaymentTerms, invoice.PaymentTerms)

	year := time.Now().UTC().Year()
	assert.Equal(t, fmt.Sprintf("EFM/ADV/%d/001", year), invoice.InvoiceNumber)
	require.Len(t, invoice.Lines, 1)
	assert.Equal(t, int64(20000), invoice.Lines[0].LineTotal)

	// Rollups reflect the issued invoice.
	client, err := f.clients.GetByID(ctx, f.clientID)
	require.NoError(t, err)
	assert.Equal(t, int64(21500), client.TotalInvoiced)
	assert.Equal(t, int64(21500), client.OutstandingBalance)
}

func TestCreateInvoiceSequentialNumbers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 31)

	year := time.Now().UTC().Year()
	for i := 1; i <= 3; i++ {
		invoice, err := f.invoices.Create(ctx, invoicedomain.CreateInvoiceRequest{
			ClientID: f.clientID,
			Lines: []invoicedomain.LineInput{
				{Description: "Spot", DailySlots: 1, CampaignDays: 1, RatePerSlot: 1000},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("EFM/ADV/%d/%03d", year, i), invoice.InvoiceNumber)
	}
}

func TestCreateInvoiceUnknownClient(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 32)

	_, err := f.invoices.Create(ctx, invoicedomain.CreateInvoiceRequest{
		ClientID: f.node.Generate().String(),
		Lines: []invoicedomain.LineInput{
			{DailySlots: 1, CampaignDays: 1, RatePerSlot: 1000},
		},
	})
	assert.ErrorIs(t, err, invoicedomain.ErrClientNotFound)
}

func TestUpdateInvoiceReplacesLines(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 33)

	invoice, err := f.invoices.Create(ctx, invoicedomain.CreateInvoiceRequest{
		ClientID: f.clientID,
		Lines: []invoicedomain.LineInput{
			{Description: "Spot", DailySlots: 2, CampaignDays: 10, RatePerSlot: 1000},
		},
	})
	require.NoError(t, err)

	updated, err := f.invoices.Update(ctx, invoice.ID.String(), invoicedomain.UpdateInvoiceRequest{
		Lines: []invoicedomain.LineInput{
			{Description: "Spot", DailySlots: 2, CampaignDays: 10, RatePerSlot: 1000},
			{Description: "Sponsorship mention", DailySlots: 1, CampaignDays: 10, RatePerSlot: 500},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(30), updated.TotalSlots)
	assert.Equal(t, int64(25000), updated.Subtotal)
	assert.Equal(t, int64(1875), updated.VATAmount)
	assert.Equal(t, int64(26875), updated.TotalAmount)
	assert.Equal(t, int64(26875), updated.OutstandingBalance)
	require.Len(t, updated.Lines, 2)
	assert.Equal(t, invoice.InvoiceNumber, updated.InvoiceNumber)
}

func TestUpdateInvoiceManualStatusRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 34)

	invoice, err := f.invoices.Create(ctx, invoicedomain.CreateInvoiceRequest{
		ClientID: f.clientID,
		Lines: []invoicedomain.LineInput{
			{DailySlots: 1, CampaignDays: 1, RatePerSlot: 1000},
		},
	})
	require.NoError(t, err)

	paid := invoicedomain.StatusPaid
	_, err = f.invoices.Update(ctx, invoice.ID.String(), invoicedomain.UpdateInvoiceRequest{Status: &paid})
	assert.ErrorIs(t, err, invoicedomain.ErrManualStatusOnly)

	cancelled := invoicedomain.StatusCancelled
	updated, err := f.invoices.Update(ctx, invoice.ID.String(), invoicedomain.UpdateInvoiceRequest{Status: &cancelled})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusCancelled, updated.Status)

	// Cancelled invoices are read-only.
	notes := "late edit"
	_, err = f.invoices.Update(ctx, invoice.ID.String(), invoicedomain.UpdateInvoiceRequest{Notes: &notes})
	assert.ErrorIs(t, err, invoicedomain.ErrNotEditable)
}

func TestDeleteInvoiceRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 35)

	invoice, err := f.invoices.Create(ctx, invoicedomain.CreateInvoiceRequest{
		ClientID: f.clientID,
		Lines: []invoicedomain.LineInput{
			{DailySlots: 1, CampaignDays: 1, RatePerSlot: 1000},
		},
	})
	require.NoError(t, err)

	// A recorded payment blocks deletion.
	require.NoError(t, f.db.Exec(
		`INSERT INTO payments (id, invoice_id, receipt_number, amount, payment_method, date_received, created_at)
		 VALUES (?, ?, 'REC/TEST/001', 100, 'Cash', ?, ?)`,
		f.node.Generate(), invoice.ID, time.Now().UTC(), time.Now().UTC(),
	).Error)
	err = f.invoices.Delete(ctx, invoice.ID.String())
	assert.ErrorIs(t, err, invoicedomain.ErrNotDeletable)

	require.NoError(t, f.db.Exec(`DELETE FROM payments`).Error)
	require.NoError(t, f.invoices.Delete(ctx, invoice.ID.String()))

	_, err = f.invoices.GetByID(ctx, invoice.ID.String())
	assert.ErrorIs(t, err, invoicedomain.ErrNotFound)

	var lineCount int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(1) FROM invoice_lines`).Scan(&lineCount).Error)
	assert.Equal(t, int64(0), lineCount)
}

func TestListInvoicesFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 36)

	first, err := f.invoices.Create(ctx, invoicedomain.CreateInvoiceRequest{
		ClientID: f.clientID,
		Lines:    []invoicedomain.LineInput{{DailySlots: 1, CampaignDays: 1, RatePerSlot: 1000}},
	})
	require.NoError(t, err)
	_, err = f.invoices.Create(ctx, invoicedomain.CreateInvoiceRequest{
		ClientID: f.clientID,
		Lines:    []invoicedomain.LineInput{{DailySlots: 1, CampaignDays: 1, RatePerSlot: 2000}},
	})
	require.NoError(t, err)

	cancelled := invoicedomain.StatusCancelled
	_, err = f.invoices.Update(ctx, first.ID.String(), invoicedomain.UpdateInvoiceRequest{Status: &cancelled})
	require.NoError(t, err)

	all, err := f.invoices.List(ctx, invoicedomain.ListInvoiceRequest{ClientID: f.clientID})
	require.NoError(t, err)
	assert.Len(t, all.Invoices, 2)

	pending, err := f.invoices.List(ctx, invoicedomain.ListInvoiceRequest{Status: invoicedomain.StatusPending})
	require.NoError(t, err)
	assert.Len(t, pending.Invoices, 1)
}

func TestSnapshotAssemblesView(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 37)

	invoice, err := f.invoices.Create(ctx, invoicedomain.CreateInvoiceRequest{
		ClientID: f.clientID,
		Lines:    []invoicedomain.LineInput{{DailySlots: 2, CampaignDays: 10, RatePerSlot: 1000}},
	})
	require.NoError(t, err)

	snapshot, err := f.invoices.Snapshot(ctx, invoice.ID.String())
	require.NoError(t, err)

	assert.Equal(t, invoice.InvoiceNumber, snapshot.Invoice.InvoiceNumber)
	assert.Equal(t, "Kwara Breweries Ltd", snapshot.Client.CompanyName)
	assert.Equal(t, "Emirate FM 98.5 FM", snapshot.Station.Name)
	assert.Empty(t, snapshot.Payments)
	require.Len(t, snapshot.Invoice.Lines, 1)
}
