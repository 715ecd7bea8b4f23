package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/airbill/internal/client/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("client.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateClientRequest) (domain.Client, error) {
	name := strings.TrimSpace(req.CompanyName)
	if name == "" {
		return domain.Client{}, domain.ErrInvalidCompanyName
	}
	address := strings.TrimSpace(req.Address)
	if address == "" {
		return domain.Client{}, domain.ErrInvalidAddress
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email != "" && !strings.Contains(email, "@") {
		return domain.Client{}, domain.ErrInvalidEmail
	}

	existing, err := s.repo.FindByCompanyName(ctx, s.db, name)
	if err != nil {
		return domain.Client{}, err
	}
	if existing != nil {
		return domain.Client{}, domain.ErrDuplicateCompanyName
	}

	now := time.Now().UTC()
	client := domain.Client{
		ID:          s.genID.Generate(),
		CompanyName: name,
		Address:     address,
		Phone:       strings.TrimSpace(req.Phone),
		Email:       email,
		IsActive:    true,
		Metadata:    req.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, &client); err != nil {
		return domain.Client{}, err
	}
	return client, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateClientRequest) (domain.Client, error) {
	clientID, err := s.parseID(id)
	if err != nil {
		return domain.Client{}, err
	}

	client, err := s.repo.FindByID(ctx, s.db, clientID)
	if err != nil {
		return domain.Client{}, err
	}
	if client == nil {
		return domain.Client{}, domain.ErrNotFound
	}

	if req.CompanyName != nil {
		name := strings.TrimSpace(*req.CompanyName)
		if name == "" {
			return domain.Client{}, domain.ErrInvalidCompanyName
		}
		if !strings.EqualFold(name, client.CompanyName) {
			existing, err := s.repo.FindByCompanyName(ctx, s.db, name)
			if err != nil {
				return domain.Client{}, err
			}
			if existing != nil && existing.ID != client.ID {
				return domain.Client{}, domain.ErrDuplicateCompanyName
			}
		}
		client.CompanyName = name
	}
	if req.Address != nil {
		address := strings.TrimSpace(*req.Address)
		if address == "" {
			return domain.Client{}, domain.ErrInvalidAddress
		}
		client.Address = address
	}
	if req.Phone != nil {
		client.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != "" && !strings.Contains(email, "@") {
			return domain.Client{}, domain.ErrInvalidEmail
		}
		client.Email = email
	}
	if req.IsActive != nil {
		client.IsActive = *req.IsActive
	}
	if req.Metadata != nil {
		client.Metadata = req.Metadata
	}

	client.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, client); err != nil {
		return domain.Client{}, err
	}
	return *client, nil
}

// Delete removes a client with no invoices. Clients that have been billed
// are deactivated instead, so invoice references stay resolvable.
func (s *Service) Delete(ctx context.Context, id string) error {
	clientID, err := s.parseID(id)
	if err != nil {
		return err
	}

	client, err := s.repo.FindByID(ctx, s.db, clientID)
	if err != nil {
		return err
	}
	if client == nil {
		return domain.ErrNotFound
	}

	count, err := s.repo.CountInvoices(ctx, s.db, clientID)
	if err != nil {
		return err
	}
	if count > 0 {
		return domain.ErrHasInvoices
	}

	return s.repo.Delete(ctx, s.db, clientID)
}

func (s *Service) List(ctx context.Context, req domain.ListClientRequest) (domain.ListClientResponse, error) {
	clients, err := s.repo.List(ctx, s.db, req)
	if err != nil {
		return domain.ListClientResponse{}, err
	}
	return domain.ListClientResponse{Clients: clients}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Client, error) {
	clientID, err := s.parseID(id)
	if err != nil {
		return domain.Client{}, err
	}
	client, err := s.repo.FindByID(ctx, s.db, clientID)
	if err != nil {
		return domain.Client{}, err
	}
	if client == nil {
		return domain.Client{}, domain.ErrNotFound
	}
	return *client, nil
}

// RefreshFinancials recomputes the cached rollups from source records. The
// sums run against the full invoice and payment sets so a refresh heals any
// earlier inconsistency rather than compounding it.
func (s *Service) RefreshFinancials(ctx context.Context, id snowflake.ID) error {
	if id == 0 {
		return domain.ErrInvalidClientID
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists snowflake.ID
		if err := tx.WithContext(ctx).Raw(
			`SELECT id FROM clients WHERE id = ?`, id,
		).Scan(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrNotFound
		}

		var totals struct {
			TotalInvoiced int64 `gorm:"column:total_invoiced"`
			TotalPaid     int64 `gorm:"column:total_paid"`
		}
		if err := tx.WithContext(ctx).Raw(
			`SELECT
				COALESCE((SELECT SUM(total_amount) FROM invoices
				          WHERE client_id = ?), 0) AS total_invoiced,
				COALESCE((SELECT SUM(p.amount) FROM payments p
				          JOIN invoices i ON i.id = p.invoice_id
				          WHERE i.client_id = ?), 0) AS total_paid`,
			id,
			id,
		).Scan(&totals).Error; err != nil {
			return err
		}

		return tx.WithContext(ctx).Exec(
			`UPDATE clients
			 SET total_invoiced = ?, total_paid = ?, outstanding_balance = ?, updated_at = ?
			 WHERE id = ?`,
			totals.TotalInvoiced,
			totals.TotalPaid,
			totals.TotalInvoiced-totals.TotalPaid,
			time.Now().UTC(),
			id,
		).Error
	})
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidClientID
	}
	return id, nil
}
