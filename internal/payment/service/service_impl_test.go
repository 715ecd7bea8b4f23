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
	paymentdomain "github.com/smallbiznis/airbill/internal/payment/domain"
	paymentservice "github.com/smallbiznis/airbill/internal/payment/service"
	"github.com/smallbiznis/airbill/internal/rollup"
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
	db       *gorm.DB
	node     *snowflake.Node
	clients  clientdomain.Service
	invoices invoicedomain.Service
	payments paymentdomain.Service
	clientID string
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
	payments := paymentservice.New(paymentservice.Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		StationSvc: stations,
		Rollup:     rollupSvc,
	})

	client, err := clients.Create(context.Background(), clientdomain.CreateClientRequest{
		CompanyName: "Kwara Breweries Ltd",
		Address:     "12 Unity Road, Ilorin",
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	return &fixture{
		db:       db,
		node:     node,
		clients:  clients,
		invoices: invoices,
		payments: payments,
		clientID: client.ID.String(),
	}
}

func (f *fixture) issueInvoice(t *testing.T, ratePerSlot int64) invoicedomain.Invoice {
	t.Helper()
	invoice, err := f.invoices.Create(context.Background(), invoicedomain.CreateInvoiceRequest{
		ClientID: f.clientID,
		Lines: []invoicedomain.LineInput{
			{Description: "Spot", DailySlots: 2, CampaignDays: 10, RatePerSlot: ratePerSlot},
		},
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	return invoice
}

func TestRecordFullPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 40)

	// 20 slots at 1000 kobo, 7.5% VAT: total 21500.
	invoice := f.issueInvoice(t, 1000)
	require.Equal(t, int64(21500), invoice.TotalAmount)

	payment, err := f.payments.Record(ctx, paymentdomain.RecordPaymentRequest{
		InvoiceID:     invoice.ID.String(),
		Amount:        21500,
		PaymentMethod: paymentdomain.MethodBankTransfer,
		Reference:     "TRF/0099",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(21500), payment.BalanceBefore)
	assert.Equal(t, int64(0), payment.BalanceAfter)
	year := time.Now().UTC().Year()
	assert.Equal(t, fmt.Sprintf("REC/%d/001", year), payment.ReceiptNumber)

	settled, err := f.invoices.GetByID(ctx, invoice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusPaid, settled.Status)
	assert.Equal(t, int64(21500), settled.AmountPaid)
	assert.Equal(t, int64(0), settled.OutstandingBalance)

	client, err := f.clients.GetByID(ctx, f.clientID)
	require.NoError(t, err)
	assert.Equal(t, int64(21500), client.TotalPaid)
	assert.Equal(t, int64(0), client.OutstandingBalance)
}

func TestRecordPartialPayments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 41)

	invoice := f.issueInvoice(t, 1000)

	first, err := f.payments.Record(ctx, paymentdomain.RecordPaymentRequest{
		InvoiceID:     invoice.ID.String(),
		Amount:        10000,
		PaymentMethod: paymentdomain.MethodCash,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(21500), first.BalanceBefore)
	assert.Equal(t, int64(11500), first.BalanceAfter)

	partial, err := f.invoices.GetByID(ctx, invoice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusPartial, partial.Status)

	second, err := f.payments.Record(ctx, paymentdomain.RecordPaymentRequest{
		InvoiceID:     invoice.ID.String(),
		Amount:        11500,
		PaymentMethod: paymentdomain.MethodPOS,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11500), second.BalanceBefore)
	assert.Equal(t, int64(0), second.BalanceAfter)

	year := time.Now().UTC().Year()
	assert.Equal(t, fmt.Sprintf("REC/%d/002", year), second.ReceiptNumber)

	settled, err := f.invoices.GetByID(ctx, invoice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusPaid, settled.Status)
}

func TestRecordOverpaymentRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 42)

	invoice := f.issueInvoice(t, 1000)

	_, err := f.payments.Record(ctx, paymentdomain.RecordPaymentRequest{
		InvoiceID:     invoice.ID.String(),
		Amount:        21501,
		PaymentMethod: paymentdomain.MethodCash,
	})
	assert.ErrorIs(t, err, paymentdomain.ErrOverpayment)

	// Nothing changed: no payment row, no counter consumed, invoice intact.
	var count int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(1) FROM payments`).Scan(&count).Error)
	assert.Equal(t, int64(0), count)

	var receiptCounter int64
	require.NoError(t, f.db.Raw(`SELECT receipt_counter FROM stations WHERE guard = 1`).Scan(&receiptCounter).Error)
	assert.Equal(t, int64(0), receiptCounter)

	unchanged, err := f.invoices.GetByID(ctx, invoice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusPending, unchanged.Status)
	assert.Equal(t, int64(0), unchanged.AmountPaid)
}

func TestRecordOnSettledInvoiceRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 43)

	invoice := f.issueInvoice(t, 1000)
	_, err := f.payments.Record(ctx, paymentdomain.RecordPaymentRequest{
		InvoiceID:     invoice.ID.String(),
		Amount:        21500,
		PaymentMethod: paymentdomain.MethodCash,
	})
	require.NoError(t, err)

	_, err = f.payments.Record(ctx, paymentdomain.RecordPaymentRequest{
		InvoiceID:     invoice.ID.String(),
		Amount:        1,
		PaymentMethod: paymentdomain.MethodCash,
	})
	assert.ErrorIs(t, err, paymentdomain.ErrOverpayment)
}

func TestRecordOnCancelledInvoiceRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 44)

	invoice := f.issueInvoice(t, 1000)
	cancelled := invoicedomain.StatusCancelled
	_, err := f.invoices.Update(ctx, invoice.ID.String(), invoicedomain.UpdateInvoiceRequest{Status: &cancelled})
	require.NoError(t, err)

	_, err = f.payments.Record(ctx, paymentdomain.RecordPaymentRequest{
		InvoiceID:     invoice.ID.String(),
		Amount:        100,
		PaymentMethod: paymentdomain.MethodCash,
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvoiceClosed)
}

func TestRecordValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 45)

	invoice := f.issueInvoice(t, 1000)

	_, err := f.payments.Record(ctx, paymentdomain.RecordPaymentRequest{
		InvoiceID:     invoice.ID.String(),
		Amount:        0,
		PaymentMethod: paymentdomain.MethodCash,
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidAmount)

	_, err = f.payments.Record(ctx, paymentdomain.RecordPaymentRequest{
		InvoiceID:     invoice.ID.String(),
		Amount:        100,
		PaymentMethod: "Barter",
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidMethod)

	_, err = f.payments.Record(ctx, paymentdomain.RecordPaymentRequest{
		InvoiceID:     f.node.Generate().String(),
		Amount:        100,
		PaymentMethod: paymentdomain.MethodCash,
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvoiceNotFound)
}

func TestReceiptView(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 46)

	invoice := f.issueInvoice(t, 1000)
	payment, err := f.payments.Record(ctx, paymentdomain.RecordPaymentRequest{
		InvoiceID:     invoice.ID.String(),
		Amount:        10000,
		PaymentMethod: paymentdomain.MethodCheque,
	})
	require.NoError(t, err)

	receipt, err := f.payments.Receipt(ctx, payment.ID.String())
	require.NoError(t, err)

	assert.Equal(t, invoice.InvoiceNumber, receipt.InvoiceNumber)
	assert.Equal(t, "Kwara Breweries Ltd", receipt.ClientName)
	assert.Equal(t, "Emirate FM 98.5 FM", receipt.StationName)
	assert.Equal(t, "One Hundred Naira Only", receipt.AmountInWords)
	assert.Equal(t, payment.ReceiptNumber, receipt.Payment.ReceiptNumber)
}
