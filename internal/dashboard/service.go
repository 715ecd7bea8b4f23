// Package dashboard aggregates ledger-wide figures for the landing view.
package dashboard

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Summary is the landing view payload. All amounts are in kobo.
type Summary struct {
	TotalInvoiced      int64            `json:"total_invoiced"`
	TotalCollected     int64            `json:"total_collected"`
	TotalOutstanding   int64            `json:"total_outstanding"`
	InvoiceCount       int64            `json:"invoice_count"`
	ActiveClientCount  int64            `json:"active_client_count"`
	StatusBreakdown    map[string]int64 `json:"status_breakdown"`
	RecentInvoices     []RecentInvoice  `json:"recent_invoices"`
	RecentPayments     []RecentPayment  `json:"recent_payments"`
	PendingRollupCount int64            `json:"pending_rollup_count"`
}

type RecentInvoice struct {
	ID            snowflake.ID `json:"id" gorm:"column:id"`
	InvoiceNumber string       `json:"invoice_number" gorm:"column:invoice_number"`
	ClientName    string       `json:"client_name" gorm:"column:company_name"`
	TotalAmount   int64        `json:"total_amount" gorm:"column:total_amount"`
	Status        string       `json:"status" gorm:"column:status"`
	InvoiceDate   time.Time    `json:"invoice_date" gorm:"column:invoice_date"`
}

type RecentPayment struct {
	ID            snowflake.ID `json:"id" gorm:"column:id"`
	ReceiptNumber string       `json:"receipt_number" gorm:"column:receipt_number"`
	InvoiceNumber string       `json:"invoice_number" gorm:"column:invoice_number"`
	Amount        int64        `json:"amount" gorm:"column:amount"`
	PaymentMethod string       `json:"payment_method" gorm:"column:payment_method"`
	DateReceived  time.Time    `json:"date_received" gorm:"column:date_received"`
}

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(p Params) *Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("dashboard.service"),
	}
}

func (s *Service) Summary(ctx context.Context) (Summary, error) {
	var summary Summary

	var totals struct {
		TotalInvoiced    int64 `gorm:"column:total_invoiced"`
		TotalOutstanding int64 `gorm:"column:total_outstanding"`
		InvoiceCount     int64 `gorm:"column:invoice_count"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(total_amount), 0) AS total_invoiced,
		        COALESCE(SUM(outstanding_balance), 0) AS total_outstanding,
		        COUNT(1) AS invoice_count
		 FROM invoices`,
	).Scan(&totals).Error; err != nil {
		return Summary{}, err
	}
	summary.TotalInvoiced = totals.TotalInvoiced
	summary.TotalOutstanding = totals.TotalOutstanding
	summary.InvoiceCount = totals.InvoiceCount

	if err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(p.amount), 0) FROM payments p`,
	).Scan(&summary.TotalCollected).Error; err != nil {
		return Summary{}, err
	}

	if err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM clients WHERE is_active = ?`, true,
	).Scan(&summary.ActiveClientCount).Error; err != nil {
		return Summary{}, err
	}

	var breakdown []struct {
		Status string `gorm:"column:status"`
		Count  int64  `gorm:"column:count"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT status, COUNT(1) AS count FROM invoices GROUP BY status`,
	).Scan(&breakdown).Error; err != nil {
		return Summary{}, err
	}
	summary.StatusBreakdown = make(map[string]int64, len(breakdown))
	for _, row := range breakdown {
		summary.StatusBreakdown[row.Status] = row.Count
	}

	if err := s.db.WithContext(ctx).Raw(
		`SELECT i.id, i.invoice_number, c.company_name, i.total_amount, i.status, i.invoice_date
		 FROM invoices i
		 JOIN clients c ON c.id = i.client_id
		 ORDER BY i.created_at DESC
		 LIMIT 5`,
	).Scan(&summary.RecentInvoices).Error; err != nil {
		return Summary{}, err
	}

	if err := s.db.WithContext(ctx).Raw(
		`SELECT p.id, p.receipt_number, i.invoice_number, p.amount, p.payment_method, p.date_received
		 FROM payments p
		 JOIN invoices i ON i.id = p.invoice_id
		 ORDER BY p.created_at DESC
		 LIMIT 5`,
	).Scan(&summary.RecentPayments).Error; err != nil {
		return Summary{}, err
	}

	if err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM rollup_backlog`,
	).Scan(&summary.PendingRollupCount).Error; err != nil {
		return Summary{}, err
	}

	return summary, nil
}
