// Package rollup keeps client financial rollups in step with invoice and
// payment mutations. A mutation marks the client inside its own transaction,
// then refreshes inline after commit; the mark is only cleared once a
// refresh succeeds, so a crash or failure between commit and refresh leaves
// the client queued for the sweeper and no rollup pass is ever skipped.
package rollup

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/airbill/internal/client/domain"
	obsmetrics "github.com/smallbiznis/airbill/internal/observability/metrics"
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
	Clients    clientdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clients    clientdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) *Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("rollup.service"),
		genID:      p.GenID,
		clients:    p.Clients,
		obsMetrics: p.ObsMetrics,
	}
}

// Mark queues the client for a rollup recompute inside the caller's
// transaction, committing or rolling back with the mutation itself. The
// duplicate-suppressing insert keeps at most one entry per client.
func (s *Service) Mark(ctx context.Context, tx *gorm.DB, clientID snowflake.ID) error {
	return tx.WithContext(ctx).Exec(
		db.InsertIgnore(tx)+` INTO rollup_backlog (id, client_id, enqueued_at, attempts, last_error)
		 VALUES (?, ?, ?, 0, '')`+db.ConflictDoNothing(tx, "client_id"),
		s.genID.Generate(),
		clientID,
		time.Now().UTC(),
	).Error
}

// Refresh recomputes one client's rollups and, on success, clears the mark
// left by the triggering mutation. On failure the client stays queued for
// the sweeper and the error is returned so callers can observe it; the
// mutation itself has already committed and is never rolled back.
func (s *Service) Refresh(ctx context.Context, clientID snowflake.ID) error {
	err := s.clients.RefreshFinancials(ctx, clientID)
	if err == nil {
		s.obsMetrics.RecordRollupRun(ctx, "inline")
		if clearErr := s.db.WithContext(ctx).Exec(
			`DELETE FROM rollup_backlog WHERE client_id = ?`,
			clientID,
		).Error; clearErr != nil {
			// The sweeper will redo one refresh; that is idempotent.
			s.log.Warn("failed to clear rollup mark",
				zap.String("client_id", clientID.String()),
				zap.Error(clearErr),
			)
		}
		return nil
	}

	s.obsMetrics.RecordRollupFailure(ctx, "inline")
	s.log.Warn("client rollup failed, queued for retry",
		zap.String("client_id", clientID.String()),
		zap.Error(err),
	)
	if enqueueErr := s.enqueue(ctx, clientID, err); enqueueErr != nil {
		s.log.Error("failed to queue rollup backlog entry",
			zap.String("client_id", clientID.String()),
			zap.Error(enqueueErr),
		)
	}
	return err
}

// Drain retries every queued rollup once. Entries that succeed are removed;
// the rest keep their attempt count and last error for inspection.
func (s *Service) Drain(ctx context.Context) error {
	var entries []struct {
		ID       snowflake.ID `gorm:"column:id"`
		ClientID snowflake.ID `gorm:"column:client_id"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT id, client_id FROM rollup_backlog ORDER BY enqueued_at ASC`,
	).Scan(&entries).Error; err != nil {
		return err
	}

	for _, entry := range entries {
		if err := s.clients.RefreshFinancials(ctx, entry.ClientID); err != nil {
			s.obsMetrics.RecordRollupFailure(ctx, "sweep")
			if markErr := s.db.WithContext(ctx).Exec(
				`UPDATE rollup_backlog SET attempts = attempts + 1, last_error = ? WHERE id = ?`,
				err.Error(),
				entry.ID,
			).Error; markErr != nil {
				s.log.Error("failed to mark rollup backlog attempt", zap.Error(markErr))
			}
			continue
		}
		s.obsMetrics.RecordRollupRun(ctx, "sweep")
		if err := s.db.WithContext(ctx).Exec(
			`DELETE FROM rollup_backlog WHERE id = ?`,
			entry.ID,
		).Error; err != nil {
			return err
		}
	}
	return nil
}

// Pending returns the number of queued rollups.
func (s *Service) Pending(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Raw(`SELECT COUNT(1) FROM rollup_backlog`).Scan(&count).Error
	return count, err
}

// enqueue records a failed refresh outside any transaction. The insert is
// duplicate-suppressing, so a client already marked just gets its last
// error updated.
func (s *Service) enqueue(ctx context.Context, clientID snowflake.ID, cause error) error {
	if err := s.db.WithContext(ctx).Exec(
		db.InsertIgnore(s.db)+` INTO rollup_backlog (id, client_id, enqueued_at, attempts, last_error)
		 VALUES (?, ?, ?, 0, '')`+db.ConflictDoNothing(s.db, "client_id"),
		s.genID.Generate(),
		clientID,
		time.Now().UTC(),
	).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).Exec(
		`UPDATE rollup_backlog SET last_error = ? WHERE client_id = ?`,
		cause.Error(),
		clientID,
	).Error
}
