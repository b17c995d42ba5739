package repository

import (
	"context"
	"time"

	"github.com/abp0107/whatsapp-clone/internal/logger"
	"github.com/abp0107/whatsapp-clone/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

const summaryCols = `owner_id, peer_id, peer_name, peer_phone, last_message, last_message_at, unread_count`

type SummaryRepository struct {
	pool *pgxpool.Pool
}

func NewSummaryRepository(pool *pgxpool.Pool) *SummaryRepository {
	return &SummaryRepository{pool: pool}
}

func scanSummary(s interface{ Scan(dest ...any) error }, c *model.ChatSummary) error {
	return s.Scan(&c.OwnerID, &c.PeerID, &c.PeerName, &c.PeerPhone, &c.LastMessage, &c.LastMessageAt, &c.UnreadCount)
}

func (r *SummaryRepository) ResetUnread(ctx context.Context, ownerID, peerID string) error {
	defer logger.DeferLogDuration("summary.ResetUnread", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE chat_summaries SET unread_count = 0 WHERE owner_id = $1 AND peer_id = $2`, ownerID, peerID,
	)
	if err != nil {
		return wrap("summaryRepo.ResetUnread", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SummaryRepository) GetSummary(ctx context.Context, ownerID, peerID string) (*model.ChatSummary, error) {
	defer logger.DeferLogDuration("summary.Get", time.Now())()
	c := &model.ChatSummary{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+summaryCols+` FROM chat_summaries WHERE owner_id = $1 AND peer_id = $2`, ownerID, peerID,
	)
	if err := scanSummary(row, c); err != nil {
		return nil, wrap("summaryRepo.Get", err)
	}
	return c, nil
}

func (r *SummaryRepository) ListSummaries(ctx context.Context, ownerID string) ([]model.ChatSummary, error) {
	defer logger.DeferLogDuration("summary.List", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+summaryCols+` FROM chat_summaries WHERE owner_id = $1
		 ORDER BY last_message_at DESC, peer_id ASC`, ownerID,
	)
	if err != nil {
		return nil, wrap("summaryRepo.List", err)
	}
	defer rows.Close()

	var list []model.ChatSummary
	for rows.Next() {
		var c model.ChatSummary
		if err := scanSummary(rows, &c); err != nil {
			return nil, wrap("summaryRepo.List scan", err)
		}
		list = append(list, c)
	}
	return list, wrap("summaryRepo.List rows", rows.Err())
}
