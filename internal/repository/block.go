package repository

import (
	"context"
	"time"

	"github.com/abp0107/whatsapp-clone/internal/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BlockRepository struct {
	pool *pgxpool.Pool
}

func NewBlockRepository(pool *pgxpool.Pool) *BlockRepository {
	return &BlockRepository{pool: pool}
}

func (r *BlockRepository) IsBlocked(ctx context.Context, blockerID, blockedID string) (bool, error) {
	defer logger.DeferLogDuration("block.IsBlocked", time.Now())()
	var blocked bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM blocks WHERE blocker_id = $1 AND blocked_id = $2)`, blockerID, blockedID,
	).Scan(&blocked)
	if err != nil {
		return false, wrap("blockRepo.IsBlocked", err)
	}
	return blocked, nil
}

func (r *BlockRepository) Block(ctx context.Context, blockerID, blockedID string) error {
	defer logger.DeferLogDuration("block.Block", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO blocks (blocker_id, blocked_id, blocked_at) VALUES ($1, $2, now())
		 ON CONFLICT (blocker_id, blocked_id) DO UPDATE SET blocked_at = EXCLUDED.blocked_at`,
		blockerID, blockedID,
	)
	return wrap("blockRepo.Block", err)
}

func (r *BlockRepository) Unblock(ctx context.Context, blockerID, blockedID string) error {
	defer logger.DeferLogDuration("block.Unblock", time.Now())()
	_, err := r.pool.Exec(ctx, `DELETE FROM blocks WHERE blocker_id = $1 AND blocked_id = $2`, blockerID, blockedID)
	return wrap("blockRepo.Unblock", err)
}
