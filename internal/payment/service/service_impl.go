package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/airbill/internal/invoice/domain"
	"github.com/smallbiznis/airbill/internal/invoice/format"
	obsmetrics "github.com/smallbiznis/airbill/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/airbill/internal/payment/domain"
	"github.com/smallbiznis/airbill/internal/rollup"
	stationdomain "github.com/smallbiznis/airbill/internal/station/domain"
	"github.com/smallbiznis/airbill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	StationSvc stationdomain.Service
	Rollup     *rollup.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	stationSvc stationdomain.Service
	rollup     *rollup.Service
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) paymentdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		stationSvc: p.StationSvc,
		rollup:     p.Rollup,
		obsMetrics: p.ObsMetrics,
	}
}

// invoiceRow is the slice of invoice state the reconciler touches.
type invoiceRow struct {
	ID                 snowflake.ID                `gorm:"column:id"`
	ClientID           snowflake.ID                `gorm:"column:client_id"`
	TotalAmount        int64                       `gorm:"column:total_amount"`
	AmountPaid         int64                       `gorm:"column:amount_paid"`
	OutstandingBalance int64                       `gorm:"column:outstanding_balance"`
	Status             invoicedomain.InvoiceStatus `gorm:"column:status"`
}

// Record applies one payment against an invoice. The invoice row is locked
// for the whole reconciliation so concurrent receipts against the same
// invoice serialize: insert the payment, recompute amount_paid from the
// payments table, rederive the status, then backfill balance_after.
func (s *Service) Record(ctx context.Context, req paymentdomain.RecordPaymentRequest) (paymentdomain.Payment, error) {
	invoiceID, err := snowflake.ParseString(strings.TrimSpace(req.InvoiceID))
	if err != nil || invoiceID == 0 {
		return paymentdomain.Payment{}, paymentdomain.ErrInvoiceNotFound
	}
	if req.Amount <= 0 {
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidAmount
	}
	method := strings.TrimSpace(req.PaymentMethod)
	if !paymentdomain.ValidMethod(method) {
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidMethod
	}

	dateReceived := time.Now().UTC()
	if req.DateReceived != nil {
		dateReceived = req.DateReceived.UTC()
	}

	var (
		payment  paymentdomain.Payment
		clientID snowflake.ID
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoice invoiceRow
		if err := tx.WithContext(ctx).Raw(
			`SELECT id, client_id, total_amount, amount_paid, outstanding_balance, status
			 FROM invoices
			 WHERE id = ?`+db.ForUpdate(tx),
			invoiceID,
		).Scan(&invoice).Error; err != nil {
			return err
		}
		if invoice.ID == 0 {
			return paymentdomain.ErrInvoiceNotFound
		}
		if invoice.Status == invoicedomain.StatusCancelled || invoice.Status == invoicedomain.StatusDraft {
			return paymentdomain.ErrInvoiceClosed
		}
		if req.Amount > invoice.OutstandingBalance {
			return paymentdomain.ErrOverpayment
		}

		receiptNumber, err := s.stationSvc.NextReceiptNumber(ctx, tx)
		if err != nil {
			return err
		}

		payment = paymentdomain.Payment{
			ID:            s.genID.Generate(),
			InvoiceID:     invoice.ID,
			ReceiptNumber: receiptNumber,
			Amount:        req.Amount,
			PaymentMethod: method,
			Reference:     strings.TrimSpace(req.Reference),
			Notes:         strings.TrimSpace(req.Notes),
			ReceivedBy:    strings.TrimSpace(req.ReceivedBy),
			Position:      strings.TrimSpace(req.Position),
			DateReceived:  dateReceived,
			BalanceBefore: invoice.OutstandingBalance,
			CreatedAt:     time.Now().UTC(),
		}
		if err := tx.WithContext(ctx).Exec(
			`INSERT INTO payments (
				id, invoice_id, receipt_number, amount, payment_method, reference, notes,
				received_by, position, date_received, balance_before, balance_after, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
			payment.ID,
			payment.InvoiceID,
			payment.ReceiptNumber,
			payment.Amount,
			payment.PaymentMethod,
			payment.Reference,
			payment.Notes,
			payment.ReceivedBy,
			payment.Position,
			payment.DateReceived,
			payment.BalanceBefore,
			payment.CreatedAt,
		).Error; err != nil {
			return err
		}

		var amountPaid int64
		if err := tx.WithContext(ctx).Raw(
			`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = ?`,
			invoice.ID,
		).Scan(&amountPaid).Error; err != nil {
			return err
		}

		outstanding := invoice.TotalAmount - amountPaid
		status := invoicedomain.DeriveStatus(invoice.Status, amountPaid, invoice.TotalAmount)
		if err := tx.WithContext(ctx).Exec(
			`UPDATE invoices
			 SET amount_paid = ?, outstanding_balance = ?, status = ?, updated_at = ?
			 WHERE id = ?`,
			amountPaid,
			outstanding,
			string(status),
			time.Now().UTC(),
			invoice.ID,
		).Error; err != nil {
			return err
		}

		payment.BalanceAfter = outstanding
		if err := tx.WithContext(ctx).Exec(
			`UPDATE payments SET balance_after = ? WHERE id = ?`,
			payment.BalanceAfter,
			payment.ID,
		).Error; err != nil {
			return err
		}

		clientID = invoice.ClientID
		return s.rollup.Mark(ctx, tx, clientID)
	})
	if err != nil {
		return paymentdomain.Payment{}, err
	}

	s.obsMetrics.RecordPaymentRecorded(ctx, payment.PaymentMethod)
	if err := s.rollup.Refresh(ctx, clientID); err != nil {
		s.log.Warn("client rollup deferred after payment",
			zap.String("receipt_number", payment.ReceiptNumber), zap.Error(err))
	}
	return payment, nil
}

func (s *Service) List(ctx context.Context, req paymentdomain.ListPaymentRequest) (paymentdomain.ListPaymentResponse, error) {
	query := `SELECT id, invoice_id, receipt_number, amount, payment_method, reference, notes,
	                 received_by, position, date_received, balance_before, balance_after, created_at
	          FROM payments`
	var args []any
	if raw := strings.TrimSpace(req.InvoiceID); raw != "" {
		invoiceID, err := snowflake.ParseString(raw)
		if err != nil {
			return paymentdomain.ListPaymentResponse{}, paymentdomain.ErrInvoiceNotFound
		}
		query += " WHERE invoice_id = ?"
		args = append(args, invoiceID)
	}
	query += " ORDER BY date_received DESC"

	var payments []paymentdomain.Payment
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&payments).Error; err != nil {
		return paymentdomain.ListPaymentResponse{}, err
	}
	return paymentdomain.ListPaymentResponse{Payments: payments}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (paymentdomain.Payment, error) {
	paymentID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || paymentID == 0 {
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidPaymentID
	}

	var payment paymentdomain.Payment
	if err := s.db.WithContext(ctx).Raw(
		`SELECT id, invoice_id, receipt_number, amount, payment_method, reference, notes,
		        received_by, position, date_received, balance_before, balance_after, created_at
		 FROM payments
		 WHERE id = ?`,
		paymentID,
	).Scan(&payment).Error; err != nil {
		return paymentdomain.Payment{}, err
	}
	if payment.ID == 0 {
		return paymentdomain.Payment{}, paymentdomain.ErrNotFound
	}
	return payment, nil
}

// Receipt assembles the render-ready view of one payment.
func (s *Service) Receipt(ctx context.Context, id string) (paymentdomain.Receipt, error) {
	payment, err := s.GetByID(ctx, id)
	if err != nil {
		return paymentdomain.Receipt{}, err
	}

	var header struct {
		InvoiceNumber string `gorm:"column:invoice_number"`
		ClientName    string `gorm:"column:company_name"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT i.invoice_number, c.company_name
		 FROM invoices i
		 JOIN clients c ON c.id = i.client_id
		 WHERE i.id = ?`,
		payment.InvoiceID,
	).Scan(&header).Error; err != nil {
		return paymentdomain.Receipt{}, err
	}

	station, err := s.stationSvc.Get(ctx)
	if err != nil {
		return paymentdomain.Receipt{}, err
	}

	return paymentdomain.Receipt{
		Payment:       payment,
		InvoiceNumber: header.InvoiceNumber,
		ClientName:    header.ClientName,
		AmountInWords: format.AmountInWords(payment.Amount),
		StationName:   station.Name,
	}, nil
}
