package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/airbill/internal/config"
	stationdomain "github.com/smallbiznis/airbill/internal/station/domain"
	"github.com/smallbiznis/airbill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxSequenceAttempts bounds retries when the counter row is contended.
const maxSequenceAttempts = 3

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Cfg   config.Config
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	cfg   config.Config
}

func New(p Params) stationdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("station.service"),
		genID: p.GenID,
		cfg:   p.Cfg,
	}
}

func (s *Service) Get(ctx context.Context) (stationdomain.Station, error) {
	if err := s.ensure(ctx, s.db); err != nil {
		return stationdomain.Station{}, err
	}
	return s.load(ctx, s.db, false)
}

func (s *Service) Update(ctx context.Context, req stationdomain.UpdateStationRequest) (stationdomain.Station, error) {
	if err := s.ensure(ctx, s.db); err != nil {
		return stationdomain.Station{}, err
	}

	var updated stationdomain.Station
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		station, err := s.load(ctx, tx, true)
		if err != nil {
			return err
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return stationdomain.ErrInvalidName
			}
			station.Name = name
		}
		if req.Address != nil {
			address := strings.TrimSpace(*req.Address)
			if address == "" {
				return stationdomain.ErrInvalidAddress
			}
			station.Address = address
		}
		if req.Phone != nil {
			station.Phone = strings.TrimSpace(*req.Phone)
		}
		if req.Email != nil {
			station.Email = strings.ToLower(strings.TrimSpace(*req.Email))
		}
		if req.BankName != nil {
			station.BankName = strings.TrimSpace(*req.BankName)
		}
		if req.AccountName != nil {
			station.AccountName = strings.TrimSpace(*req.AccountName)
		}
		if req.AccountNumber != nil {
			station.AccountNumber = strings.TrimSpace(*req.AccountNumber)
		}
		if req.LogoURL != nil {
			station.LogoURL = strings.TrimSpace(*req.LogoURL)
		}
		if req.InvoicePrefix != nil {
			prefix := strings.TrimSpace(*req.InvoicePrefix)
			if prefix == "" {
				return stationdomain.ErrInvalidPrefix
			}
			station.InvoicePrefix = prefix
		}
		if req.ReceiptPrefix != nil {
			prefix := strings.TrimSpace(*req.ReceiptPrefix)
			if prefix == "" {
				return stationdomain.ErrInvalidPrefix
			}
			station.ReceiptPrefix = prefix
		}

		now := time.Now().UTC()
		if err := tx.WithContext(ctx).Exec(
			`UPDATE stations
			 SET name = ?, address = ?, phone = ?, email = ?,
			     bank_name = ?, account_name = ?, account_number = ?, logo_url = ?,
			     invoice_prefix = ?, receipt_prefix = ?, updated_at = ?
			 WHERE id = ?`,
			station.Name,
			station.Address,
			station.Phone,
			station.Email,
			station.BankName,
			station.AccountName,
			station.AccountNumber,
			station.LogoURL,
			station.InvoicePrefix,
			station.ReceiptPrefix,
			now,
			station.ID,
		).Error; err != nil {
			return err
		}

		station.UpdatedAt = now
		updated = station
		return nil
	})
	if err != nil {
		return stationdomain.Station{}, err
	}
	return updated, nil
}

// NextInvoiceNumber increments the invoice counter inside the caller's
// transaction and formats the post-increment value. The UPDATE holds the row
// lock until the transaction commits, so concurrent callers cannot observe
// the same counter value.
func (s *Service) NextInvoiceNumber(ctx context.Context, tx *gorm.DB) (string, error) {
	return s.nextNumber(ctx, tx, "invoice_counter", "invoice_prefix")
}

// NextReceiptNumber is NextInvoiceNumber for receipts.
func (s *Service) NextReceiptNumber(ctx context.Context, tx *gorm.DB) (string, error) {
	return s.nextNumber(ctx, tx, "receipt_counter", "receipt_prefix")
}

func (s *Service) nextNumber(ctx context.Context, tx *gorm.DB, counterColumn, prefixColumn string) (string, error) {
	if tx == nil {
		tx = s.db
	}
	if err := s.ensure(ctx, tx); err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt < maxSequenceAttempts; attempt++ {
		result := tx.WithContext(ctx).Exec(
			fmt.Sprintf(`UPDATE stations SET %s = %s + 1, updated_at = ? WHERE guard = 1`, counterColumn, counterColumn),
			time.Now().UTC(),
		)
		if result.Error != nil {
			lastErr = result.Error
			// Reissuing the UPDATE is only safe where the failure left the
			// transaction usable; elsewhere the caller retries the whole
			// transaction against ErrSequencing.
			if db.IsRetryableInTx(tx, result.Error) {
				continue
			}
			return "", stationdomain.ErrSequencing
		}
		if result.RowsAffected == 0 {
			return "", stationdomain.ErrSequencing
		}

		var row struct {
			Counter int64  `gorm:"column:counter"`
			Prefix  string `gorm:"column:prefix"`
		}
		if err := tx.WithContext(ctx).Raw(
			fmt.Sprintf(`SELECT %s AS counter, %s AS prefix FROM stations WHERE guard = 1`, counterColumn, prefixColumn),
		).Scan(&row).Error; err != nil {
			return "", stationdomain.ErrSequencing
		}

		year := time.Now().UTC().Year()
		return fmt.Sprintf("%s%d/%03d", row.Prefix, year, row.Counter), nil
	}

	s.log.Warn("document sequence exhausted retries", zap.Error(lastErr))
	return "", stationdomain.ErrSequencing
}

// ensure lazily creates the singleton row with configured defaults. The
// unique guard index makes concurrent first accesses converge on one row.
func (s *Service) ensure(ctx context.Context, tx *gorm.DB) error {
	var id snowflake.ID
	if err := tx.WithContext(ctx).Raw(
		`SELECT id FROM stations WHERE guard = 1`,
	).Scan(&id).Error; err != nil {
		return err
	}
	if id != 0 {
		return nil
	}

	now := time.Now().UTC()
	err := tx.WithContext(ctx).Exec(
		db.InsertIgnore(tx)+` INTO stations (
			id, guard, name, address, phone, email,
			bank_name, account_name, account_number, logo_url,
			invoice_prefix, invoice_counter, receipt_prefix, receipt_counter,
			created_at, updated_at
		) VALUES (?, 1, ?, ?, ?, ?, '', '', '', '', ?, 0, ?, 0, ?, ?)`+
			db.ConflictDoNothing(tx, "guard"),
		s.genID.Generate(),
		s.cfg.Station.Name,
		s.cfg.Station.Address,
		s.cfg.Station.Phone,
		s.cfg.Station.Email,
		s.cfg.Station.InvoicePrefix,
		s.cfg.Station.ReceiptPrefix,
		now,
		now,
	).Error
	if err != nil && !db.IsDuplicateKeyErr(err) {
		return err
	}
	return nil
}

func (s *Service) load(ctx context.Context, tx *gorm.DB, forUpdate bool) (stationdomain.Station, error) {
	query := `SELECT id, guard, name, address, phone, email,
	                 bank_name, account_name, account_number, logo_url,
	                 invoice_prefix, invoice_counter, receipt_prefix, receipt_counter,
	                 created_at, updated_at
	          FROM stations
	          WHERE guard = 1`
	if forUpdate {
		query += db.ForUpdate(tx)
	}

	var station stationdomain.Station
	if err := tx.WithContext(ctx).Raw(query).Scan(&station).Error; err != nil {
		return stationdomain.Station{}, err
	}
	return station, nil
}
