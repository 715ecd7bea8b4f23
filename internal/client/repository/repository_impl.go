package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/airbill/internal/client/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO clients (
			id, company_name, address, phone, email,
			total_invoiced, total_paid, outstanding_balance,
			is_active, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, 0, 0, 0, ?, ?, ?, ?)`,
		client.ID,
		client.CompanyName,
		client.Address,
		client.Phone,
		client.Email,
		client.IsActive,
		client.Metadata,
		client.CreatedAt,
		client.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Client, error) {
	var client domain.Client
	err := db.WithContext(ctx).Raw(
		`SELECT id, company_name, address, phone, email,
		        total_invoiced, total_paid, outstanding_balance,
		        is_active, metadata, created_at, updated_at
		 FROM clients
		 WHERE id = ?`,
		id,
	).Scan(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == 0 {
		return nil, nil
	}
	return &client, nil
}

func (r *repo) FindByCompanyName(ctx context.Context, db *gorm.DB, name string) (*domain.Client, error) {
	var client domain.Client
	err := db.WithContext(ctx).Raw(
		`SELECT id, company_name, address, phone, email,
		        total_invoiced, total_paid, outstanding_balance,
		        is_active, metadata, created_at, updated_at
		 FROM clients
		 WHERE LOWER(company_name) = LOWER(?)`,
		strings.TrimSpace(name),
	).Scan(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == 0 {
		return nil, nil
	}
	return &client, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, req domain.ListClientRequest) ([]domain.Client, error) {
	query := `SELECT id, company_name, address, phone, email,
	                 total_invoiced, total_paid, outstanding_balance,
	                 is_active, metadata, created_at, updated_at
	          FROM clients`
	var (
		conditions []string
		args       []any
	)
	if req.ActiveOnly {
		conditions = append(conditions, "is_active = ?")
		args = append(args, true)
	}
	if search := strings.TrimSpace(req.Search); search != "" {
		conditions = append(conditions, "(LOWER(company_name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?))")
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY company_name ASC"

	var clients []domain.Client
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Exec(
		`UPDATE clients
		 SET company_name = ?, address = ?, phone = ?, email = ?, is_active = ?, metadata = ?, updated_at = ?
		 WHERE id = ?`,
		client.CompanyName,
		client.Address,
		client.Phone,
		client.Email,
		client.IsActive,
		client.Metadata,
		client.UpdatedAt,
		client.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM clients WHERE id = ?`, id).Error
}

func (r *repo) CountInvoices(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM invoices WHERE client_id = ?`,
		id,
	).Scan(&count).Error
	return count, err
}
