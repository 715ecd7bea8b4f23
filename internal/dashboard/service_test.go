package dashboard_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/airbill/internal/dashboard"
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
		`CREATE TABLE clients (
			id BIGINT PRIMARY KEY,
			company_name TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE invoices (
			id BIGINT PRIMARY KEY,
			invoice_number TEXT NOT NULL,
			client_id BIGINT NOT NULL,
			total_amount BIGINT NOT NULL DEFAULT 0,
			outstanding_balance BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			invoice_date DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE payments (
			id BIGINT PRIMARY KEY,
			invoice_id BIGINT NOT NULL,
			receipt_number TEXT NOT NULL,
			amount BIGINT NOT NULL,
			payment_method TEXT NOT NULL,
			date_received DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE rollup_backlog (
			id BIGINT PRIMARY KEY,
			client_id BIGINT NOT NULL,
			enqueued_at DATETIME NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT NOT NULL DEFAULT ''
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	node, err := snowflake.NewNode(70)
	require.NoError(t, err)

	now := time.Now().UTC()
	clientID := node.Generate()
	inactiveID := node.Generate()
	require.NoError(t, db.Exec(
		`INSERT INTO clients (id, company_name, is_active, created_at, updated_at)
		 VALUES (?, 'Active Co', 1, ?, ?), (?, 'Dormant Co', 0, ?, ?)`,
		clientID, now, now, inactiveID, now, now,
	).Error)

	paidID := node.Generate()
	pendingID := node.Generate()
	cancelledID := node.Generate()
	require.NoError(t, db.Exec(
		`INSERT INTO invoices (id, invoice_number, client_id, total_amount, outstanding_balance, status, invoice_date, created_at)
		 VALUES (?, 'EFM/ADV/2026/001', ?, 21500, 0, 'paid', ?, ?),
		        (?, 'EFM/ADV/2026/002', ?, 10000, 10000, 'pending', ?, ?),
		        (?, 'EFM/ADV/2026/003', ?, 99999, 99999, 'cancelled', ?, ?)`,
		paidID, clientID, now, now,
		pendingID, clientID, now, now.Add(time.Second),
		cancelledID, clientID, now, now.Add(2*time.Second),
	).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO payments (id, invoice_id, receipt_number, amount, payment_method, date_received, created_at)
		 VALUES (?, ?, 'REC/2026/001', 21500, 'Cash', ?, ?)`,
		node.Generate(), paidID, now, now,
	).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO rollup_backlog (id, client_id, enqueued_at) VALUES (?, ?, ?)`,
		node.Generate(), clientID, now,
	).Error)

	svc := dashboard.New(dashboard.Params{DB: db, Log: zap.NewNop()})
	summary, err := svc.Summary(ctx)
	require.NoError(t, err)

	// Totals span every invoice, the cancelled one included.
	assert.Equal(t, int64(131499), summary.TotalInvoiced)
	assert.Equal(t, int64(21500), summary.TotalCollected)
	assert.Equal(t, int64(109999), summary.TotalOutstanding)
	assert.Equal(t, int64(3), summary.InvoiceCount)
	assert.Equal(t, int64(1), summary.ActiveClientCount)
	assert.Equal(t, int64(1), summary.PendingRollupCount)

	assert.Equal(t, int64(1), summary.StatusBreakdown["paid"])
	assert.Equal(t, int64(1), summary.StatusBreakdown["pending"])
	assert.Equal(t, int64(1), summary.StatusBreakdown["cancelled"])

	require.Len(t, summary.RecentInvoices, 3)
	assert.Equal(t, "EFM/ADV/2026/003", summary.RecentInvoices[0].InvoiceNumber)
	assert.Equal(t, "Active Co", summary.RecentInvoices[0].ClientName)

	require.Len(t, summary.RecentPayments, 1)
	assert.Equal(t, "REC/2026/001", summary.RecentPayments[0].ReceiptNumber)
	assert.Equal(t, "EFM/ADV/2026/001", summary.RecentPayments[0].InvoiceNumber)
}
