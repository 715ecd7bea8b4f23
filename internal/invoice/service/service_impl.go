package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/airbill/internal/client/domain"
	"github.com/smallbiznis/airbill/internal/config"
	"github.com/smallbiznis/airbill/internal/invoice/calc"
	invoicedomain "github.com/smallbiznis/airbill/internal/invoice/domain"
	"github.com/smallbiznis/airbill/internal/invoice/format"
	obsmetrics "github.com/smallbiznis/airbill/internal/observability/metrics"
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
	Cfg        config.Config
	StationSvc stationdomain.Service
	ClientSvc  clientdomain.Service
	Rollup     *rollup.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	cfg        config.Config
	stationSvc stationdomain.Service
	clientSvc  clientdomain.Service
	rollup     *rollup.Service
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) invoicedomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("invoice.service"),
		genID:      p.GenID,
		cfg:        p.Cfg,
		stationSvc: p.StationSvc,
		clientSvc:  p.ClientSvc,
		rollup:     p.Rollup,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	client, err := s.clientSvc.GetByID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, clientdomain.ErrNotFound) || errors.Is(err, clientdomain.ErrInvalidClientID) {
			return invoicedomain.Invoice{}, invoicedomain.ErrClientNotFound
		}
		return invoicedomain.Invoice{}, err
	}

	invoiceType := req.InvoiceType
	if invoiceType == "" {
		invoiceType = invoicedomain.TypeProforma
	}
	if !invoicedomain.ValidType(invoiceType) {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidType
	}

	vatRate := s.cfg.DefaultVATRate
	if req.VATRate != nil {
		vatRate = *req.VATRate
	}
	totals, err := calc.Compute(toCalcLines(req.Lines), vatRate)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	if req.AdvanceRequired < 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidAdvance
	}
	advance := req.AdvanceRequired
	if advance == 0 {
		advance = totals.TotalAmount
	}

	invoiceDate := time.Now().UTC()
	if req.InvoiceDate != nil {
		invoiceDate = req.InvoiceDate.UTC()
	}
	paymentTerms := strings.TrimSpace(req.PaymentTerms)
	if paymentTerms == "" {
		paymentTerms = invoicedomain.DefaultPaymentTerms
	}

	now := time.Now().UTC()
	invoice := invoicedomain.Invoice{
		ID:                 s.genID.Generate(),
		ClientID:           client.ID,
		InvoiceType:        invoiceType,
		InvoiceDate:        invoiceDate,
		TotalSlots:         totals.TotalSlots,
		Subtotal:           totals.Subtotal,
		VATRate:            vatRate,
		VATAmount:          totals.VATAmount,
		TotalAmount:        totals.TotalAmount,
		AmountInWords:      format.AmountInWords(totals.TotalAmount),
		AdvanceRequired:    advance,
		AmountPaid:         0,
		OutstandingBalance: totals.TotalAmount,
		Status:             invoicedomain.StatusPending,
		PaymentTerms:       paymentTerms,
		Notes:              strings.TrimSpace(req.Notes),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := s.stationSvc.NextInvoiceNumber(ctx, tx)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = number

		if err := s.insertInvoice(ctx, tx, &invoice); err != nil {
			return err
		}
		lines, err := s.insertLines(ctx, tx, invoice.ID, totals.Lines, now)
		if err != nil {
			return err
		}
		invoice.Lines = lines
		return s.rollup.Mark(ctx, tx, invoice.ClientID)
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.obsMetrics.RecordInvoiceIssued(ctx, string(invoice.InvoiceType))
	if err := s.rollup.Refresh(ctx, invoice.ClientID); err != nil {
		s.log.Warn("client rollup deferred after invoice create",
			zap.String("invoice_number", invoice.InvoiceNumber), zap.Error(err))
	}
	return invoice, nil
}

func (s *Service) Update(ctx context.Context, id string, req invoicedomain.UpdateInvoiceRequest) (invoicedomain.Invoice, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	var updated invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.loadInvoice(ctx, tx, invoiceID, true)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}
		if !invoice.CanEdit() {
			return invoicedomain.ErrNotEditable
		}

		if req.InvoiceType != nil {
			if !invoicedomain.ValidType(*req.InvoiceType) {
				return invoicedomain.ErrInvalidType
			}
			invoice.InvoiceType = *req.InvoiceType
		}
		if req.InvoiceDate != nil {
			invoice.InvoiceDate = req.InvoiceDate.UTC()
		}
		if req.VATRate != nil {
			invoice.VATRate = *req.VATRate
		}
		if req.PaymentTerms != nil {
			invoice.PaymentTerms = strings.TrimSpace(*req.PaymentTerms)
		}
		if req.Notes != nil {
			invoice.Notes = strings.TrimSpace(*req.Notes)
		}
		if req.Status != nil {
			status := *req.Status
			if !invoicedomain.ValidStatus(status) {
				return invoicedomain.ErrInvalidStatus
			}
			// partial/paid only ever come from the payment ledger.
			if status != invoicedomain.StatusDraft &&
				status != invoicedomain.StatusCancelled &&
				status != invoicedomain.StatusPending {
				return invoicedomain.ErrManualStatusOnly
			}
			invoice.Status = status
		}

		calcLines, replaceLines := []calc.Line(nil), false
		if req.Lines != nil {
			calcLines = toCalcLines(req.Lines)
			replaceLines = true
		} else {
			existing, err := s.loadLines(ctx, tx, invoice.ID)
			if err != nil {
				return err
			}
			for _, line := range existing {
				calcLines = append(calcLines, calc.Line{
					Description:  line.Description,
					Duration:     line.Duration,
					DailySlots:   line.DailySlots,
					CampaignDays: line.CampaignDays,
					RatePerSlot:  line.RatePerSlot,
				})
			}
		}

		totals, err := calc.Compute(calcLines, invoice.VATRate)
		if err != nil {
			return err
		}
		invoice.TotalSlots = totals.TotalSlots
		invoice.Subtotal = totals.Subtotal
		invoice.VATAmount = totals.VATAmount
		invoice.TotalAmount = totals.TotalAmount
		invoice.AmountInWords = format.AmountInWords(totals.TotalAmount)

		if req.AdvanceRequired != nil {
			if *req.AdvanceRequired < 0 {
				return invoicedomain.ErrInvalidAdvance
			}
			invoice.AdvanceRequired = *req.AdvanceRequired
		}
		if invoice.AdvanceRequired == 0 {
			invoice.AdvanceRequired = invoice.TotalAmount
		}

		invoice.Status = invoicedomain.DeriveStatus(invoice.Status, invoice.AmountPaid, invoice.TotalAmount)
		invoice.OutstandingBalance = invoice.TotalAmount - invoice.AmountPaid
		invoice.UpdatedAt = time.Now().UTC()

		if err := s.updateInvoice(ctx, tx, invoice); err != nil {
			return err
		}

		if replaceLines {
			if err := tx.WithContext(ctx).Exec(
				`DELETE FROM invoice_lines WHERE invoice_id = ?`, invoice.ID,
			).Error; err != nil {
				return err
			}
			lines, err := s.insertLines(ctx, tx, invoice.ID, totals.Lines, invoice.UpdatedAt)
			if err != nil {
				return err
			}
			invoice.Lines = lines
		} else {
			lines, err := s.loadLines(ctx, tx, invoice.ID)
			if err != nil {
				return err
			}
			invoice.Lines = lines
		}

		updated = *invoice
		return s.rollup.Mark(ctx, tx, invoice.ClientID)
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	if err := s.rollup.Refresh(ctx, updated.ClientID); err != nil {
		s.log.Warn("client rollup deferred after invoice update",
			zap.String("invoice_number", updated.InvoiceNumber), zap.Error(err))
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	invoiceID, err := parseID(id)
	if err != nil {
		return err
	}

	var clientID snowflake.ID
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.loadInvoice(ctx, tx, invoiceID, true)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}

		var paymentCount int64
		if err := tx.WithContext(ctx).Raw(
			`SELECT COUNT(1) FROM payments WHERE invoice_id = ?`, invoice.ID,
		).Scan(&paymentCount).Error; err != nil {
			return err
		}
		if paymentCount > 0 || !invoice.CanDelete() {
			return invoicedomain.ErrNotDeletable
		}

		if err := tx.WithContext(ctx).Exec(
			`DELETE FROM invoice_lines WHERE invoice_id = ?`, invoice.ID,
		).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Exec(
			`DELETE FROM invoices WHERE id = ?`, invoice.ID,
		).Error; err != nil {
			return err
		}
		clientID = invoice.ClientID
		return s.rollup.Mark(ctx, tx, clientID)
	})
	if err != nil {
		return err
	}

	if err := s.rollup.Refresh(ctx, clientID); err != nil {
		s.log.Warn("client rollup deferred after invoice delete", zap.Error(err))
	}
	return nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	query := `SELECT id, invoice_number, client_id, invoice_type, invoice_date,
	                 total_slots, subtotal, vat_rate, vat_amount, total_amount, amount_in_words,
	                 advance_required, amount_paid, outstanding_balance,
	                 status, payment_terms, notes, created_at, updated_at
	          FROM invoices`
	var (
		conditions []string
		args       []any
	)
	if raw := strings.TrimSpace(req.ClientID); raw != "" {
		clientID, err := snowflake.ParseString(raw)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrClientNotFound
		}
		conditions = append(conditions, "client_id = ?")
		args = append(args, clientID)
	}
	if req.Status != "" {
		if !invoicedomain.ValidStatus(req.Status) {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidStatus
		}
		conditions = append(conditions, "status = ?")
		args = append(args, string(req.Status))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY invoice_date DESC"

	var invoices []invoicedomain.Invoice
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&invoices).Error; err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}
	return invoicedomain.ListInvoiceResponse{Invoices: invoices}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	invoice, err := s.loadInvoice(ctx, s.db, invoiceID, false)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if invoice == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrNotFound
	}

	lines, err := s.loadLines(ctx, s.db, invoice.ID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	invoice.Lines = lines
	return *invoice, nil
}

// Snapshot assembles the render-ready view handed to external presentation
// components (PDF, HTML). It is read-only.
func (s *Service) Snapshot(ctx context.Context, id string) (invoicedomain.Snapshot, error) {
	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return invoicedomain.Snapshot{}, err
	}

	client, err := s.clientSvc.GetByID(ctx, invoice.ClientID.String())
	if err != nil {
		return invoicedomain.Snapshot{}, err
	}
	station, err := s.stationSvc.Get(ctx)
	if err != nil {
		return invoicedomain.Snapshot{}, err
	}

	var rows []struct {
		ID            snowflake.ID `gorm:"column:id"`
		ReceiptNumber string       `gorm:"column:receipt_number"`
		Amount        int64        `gorm:"column:amount"`
		Method        string       `gorm:"column:payment_method"`
		DateReceived  time.Time    `gorm:"column:date_received"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT id, receipt_number, amount, payment_method, date_received
		 FROM payments
		 WHERE invoice_id = ?
		 ORDER BY date_received ASC`,
		invoice.ID,
	).Scan(&rows).Error; err != nil {
		return invoicedomain.Snapshot{}, err
	}

	payments := make([]invoicedomain.PaymentSummary, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, invoicedomain.PaymentSummary{
			ID:            row.ID.String(),
			ReceiptNumber: row.ReceiptNumber,
			Amount:        row.Amount,
			Method:        row.Method,
			DateReceived:  row.DateReceived,
		})
	}

	return invoicedomain.Snapshot{
		Invoice:  invoice,
		Client:   client,
		Station:  station,
		Payments: payments,
	}, nil
}

func (s *Service) insertInvoice(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO invoices (
			id, invoice_number, client_id, invoice_type, invoice_date,
			total_slots, subtotal, vat_rate, vat_amount, total_amount, amount_in_words,
			advance_required, amount_paid, outstanding_balance,
			status, payment_terms, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.InvoiceNumber,
		invoice.ClientID,
		string(invoice.InvoiceType),
		invoice.InvoiceDate,
		invoice.TotalSlots,
		invoice.Subtotal,
		invoice.VATRate,
		invoice.VATAmount,
		invoice.TotalAmount,
		invoice.AmountInWords,
		invoice.AdvanceRequired,
		invoice.AmountPaid,
		invoice.OutstandingBalance,
		string(invoice.Status),
		invoice.PaymentTerms,
		invoice.Notes,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	).Error
}

func (s *Service) updateInvoice(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET invoice_type = ?, invoice_date = ?,
		     total_slots = ?, subtotal = ?, vat_rate = ?, vat_amount = ?, total_amount = ?,
		     amount_in_words = ?, advance_required = ?, amount_paid = ?, outstanding_balance = ?,
		     status = ?, payment_terms = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		string(invoice.InvoiceType),
		invoice.InvoiceDate,
		invoice.TotalSlots,
		invoice.Subtotal,
		invoice.VATRate,
		invoice.VATAmount,
		invoice.TotalAmount,
		invoice.AmountInWords,
		invoice.AdvanceRequired,
		invoice.AmountPaid,
		invoice.OutstandingBalance,
		string(invoice.Status),
		invoice.PaymentTerms,
		invoice.Notes,
		invoice.UpdatedAt,
		invoice.ID,
	).Error
}

func (s *Service) loadInvoice(ctx context.Context, tx *gorm.DB, id snowflake.ID, forUpdate bool) (*invoicedomain.Invoice, error) {
	query := `SELECT id, invoice_number, client_id, invoice_type, invoice_date,
	                 total_slots, subtotal, vat_rate, vat_amount, total_amount, amount_in_words,
	                 advance_required, amount_paid, outstanding_balance,
	                 status, payment_terms, notes, created_at, updated_at
	          FROM invoices
	          WHERE id = ?`
	if forUpdate {
		query += db.ForUpdate(tx)
	}

	var invoice invoicedomain.Invoice
	if err := tx.WithContext(ctx).Raw(query, id).Scan(&invoice).Error; err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (s *Service) loadLines(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) ([]invoicedomain.InvoiceLine, error) {
	var lines []invoicedomain.InvoiceLine
	err := tx.WithContext(ctx).Raw(
		`SELECT id, invoice_id, line_no, description, duration,
		        daily_slots, campaign_days, rate_per_slot, total_slots, line_total, created_at
		 FROM invoice_lines
		 WHERE invoice_id = ?
		 ORDER BY line_no ASC`,
		invoiceID,
	).Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Service) insertLines(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID, computed []calc.ComputedLine, now time.Time) ([]invoicedomain.InvoiceLine, error) {
	lines := make([]invoicedomain.InvoiceLine, 0, len(computed))
	for i, line := range computed {
		record := invoicedomain.InvoiceLine{
			ID:           s.genID.Generate(),
			InvoiceID:    invoiceID,
			LineNo:       i + 1,
			Description:  strings.TrimSpace(line.Description),
			Duration:     strings.TrimSpace(line.Duration),
			DailySlots:   line.DailySlots,
			CampaignDays: line.CampaignDays,
			RatePerSlot:  line.RatePerSlot,
			TotalSlots:   line.TotalSlots,
			LineTotal:    line.LineTotal,
			CreatedAt:    now,
		}
		if err := tx.WithContext(ctx).Exec(
			`INSERT INTO invoice_lines (
				id, invoice_id, line_no, description, duration,
				daily_slots, campaign_days, rate_per_slot, total_slots, line_total, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.ID,
			record.InvoiceID,
			record.LineNo,
			record.Description,
			record.Duration,
			record.DailySlots,
			record.CampaignDays,
			record.RatePerSlot,
			record.TotalSlots,
			record.LineTotal,
			record.CreatedAt,
		).Error; err != nil {
			return nil, err
		}
		lines = append(lines, record)
	}
	return lines, nil
}

func toCalcLines(inputs []invoicedomain.LineInput) []calc.Line {
	lines := make([]calc.Line, 0, len(inputs))
	for _, input := range inputs {
		lines = append(lines, calc.Line{
			Description:  input.Description,
			Duration:     input.Duration,
			DailySlots:   input.DailySlots,
			CampaignDays: input.CampaignDays,
			RatePerSlot:  input.RatePerSlot,
		})
	}
	return lines
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, invoicedomain.ErrInvalidInvoiceID
	}
	return id, nil
}
