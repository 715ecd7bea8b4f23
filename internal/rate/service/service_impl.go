package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	ratedomain "github.com/smallbiznis/airbill/internal/rate/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func New(p Params) ratedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("rate.service"),
		genID: p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, req ratedomain.CreateRateRequest) (ratedomain.Rate, error) {
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return ratedomain.Rate{}, ratedomain.ErrInvalidCategory
	}
	if req.Price < 0 {
		return ratedomain.Rate{}, ratedomain.ErrInvalidAmount
	}

	now := time.Now().UTC()
	rate := ratedomain.Rate{
		ID:          s.genID.Generate(),
		Category:    category,
		Duration:    strings.TrimSpace(req.Duration),
		TimeSlot:    strings.TrimSpace(req.TimeSlot),
		Platform:    strings.TrimSpace(req.Platform),
		Price:       req.Price,
		Description: strings.TrimSpace(req.Description),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.db.WithContext(ctx).Exec(
		`INSERT INTO rates (id, category, duration, time_slot, platform, price, description, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rate.ID,
		rate.Category,
		rate.Duration,
		rate.TimeSlot,
		rate.Platform,
		rate.Price,
		rate.Description,
		rate.IsActive,
		rate.CreatedAt,
		rate.UpdatedAt,
	).Error
	if err != nil {
		return ratedomain.Rate{}, err
	}
	return rate, nil
}

func (s *Service) Update(ctx context.Context, id string, req ratedomain.UpdateRateRequest) (ratedomain.Rate, error) {
	rateID, err := parseID(id)
	if err != nil {
		return ratedomain.Rate{}, err
	}

	var updated ratedomain.Rate
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rate, err := s.load(ctx, tx, rateID)
		if err != nil {
			return err
		}
		if rate == nil {
			return ratedomain.ErrNotFound
		}

		if req.Category != nil {
			category := strings.TrimSpace(*req.Category)
			if category == "" {
				return ratedomain.ErrInvalidCategory
			}
			rate.Category = category
		}
		if req.Duration != nil {
			rate.Duration = strings.TrimSpace(*req.Duration)
		}
		if req.TimeSlot != nil {
			rate.TimeSlot = strings.TrimSpace(*req.TimeSlot)
		}
		if req.Platform != nil {
			rate.Platform = strings.TrimSpace(*req.Platform)
		}
		if req.Price != nil {
			if *req.Price < 0 {
				return ratedomain.ErrInvalidAmount
			}
			rate.Price = *req.Price
		}
		if req.Description != nil {
			rate.Description = strings.TrimSpace(*req.Description)
		}
		if req.IsActive != nil {
			rate.IsActive = *req.IsActive
		}
		rate.UpdatedAt = time.Now().UTC()

		if err := tx.WithContext(ctx).Exec(
			`UPDATE rates
			 SET category = ?, duration = ?, time_slot = ?, platform = ?, price = ?, description = ?, is_active = ?, updated_at = ?
			 WHERE id = ?`,
			rate.Category,
			rate.Duration,
			rate.TimeSlot,
			rate.Platform,
			rate.Price,
			rate.Description,
			rate.IsActive,
			rate.UpdatedAt,
			rate.ID,
		).Error; err != nil {
			return err
		}
		updated = *rate
		return nil
	})
	if err != nil {
		return ratedomain.Rate{}, err
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	rateID, err := parseID(id)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Exec(`DELETE FROM rates WHERE id = ?`, rateID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ratedomain.ErrNotFound
	}
	return nil
}

func (s *Service) List(ctx context.Context, req ratedomain.ListRateRequest) (ratedomain.ListRateResponse, error) {
	query := `SELECT id, category, duration, time_slot, platform, price, description, is_active, created_at, updated_at
	          FROM rates`
	var (
		conditions []string
		args       []any
	)
	if category := strings.TrimSpace(req.Category); category != "" {
		conditions = append(conditions, "LOWER(category) = LOWER(?)")
		args = append(args, category)
	}
	if req.ActiveOnly {
		conditions = append(conditions, "is_active = ?")
		args = append(args, true)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY category ASC, price ASC"

	var rates []ratedomain.Rate
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&rates).Error; err != nil {
		return ratedomain.ListRateResponse{}, err
	}
	return ratedomain.ListRateResponse{Rates: rates}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (ratedomain.Rate, error) {
	rateID, err := parseID(id)
	if err != nil {
		return ratedomain.Rate{}, err
	}
	rate, err := s.load(ctx, s.db, rateID)
	if err != nil {
		return ratedomain.Rate{}, err
	}
	if rate == nil {
		return ratedomain.Rate{}, ratedomain.ErrNotFound
	}
	return *rate, nil
}

func (s *Service) load(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*ratedomain.Rate, error) {
	var rate ratedomain.Rate
	if err := tx.WithContext(ctx).Raw(
		`SELECT id, category, duration, time_slot, platform, price, description, is_active, created_at, updated_at
		 FROM rates
		 WHERE id = ?`,
		id,
	).Scan(&rate).Error; err != nil {
		return nil, err
	}
	if rate.ID == 0 {
		return nil, nil
	}
	return &rate, nil
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, ratedomain.ErrInvalidRateID
	}
	return id, nil
}
