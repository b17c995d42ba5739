package repository

import (
	"context"
	"errors"
	"time"

	"github.com/abp0107/whatsapp-clone/internal/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ContactRepository struct {
	pool *pgxpool.Pool
}

func NewContactRepository(pool *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{pool: pool}
}

// SaveName — имя, под которым owner записал peer (вне основного потока: -dev сидинг, тесты).
func (r *ContactRepository) SaveName(ctx context.Context, ownerID, peerID, name string) error {
	defer logger.DeferLogDuration("contact.SaveName", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO contacts (owner_id, peer_id, name) VALUES ($1, $2, $3)
		 ON CONFLICT (owner_id, peer_id) DO UPDATE SET name = EXCLUDED.name`,
		ownerID, peerID, name,
	)
	return wrap("contactRepo.SaveName", err)
}

func (r *ContactRepository) GetSavedName(ctx context.Context, ownerID, peerID string) (string, error) {
	defer logger.DeferLogDuration("contact.GetSavedName", time.Now())()
	var name string
	err := r.pool.QueryRow(ctx,
		`SELECT name FROM contacts WHERE owner_id = $1 AND peer_id = $2`, ownerID, peerID,
	).Scan(&name)
	if err = wrap("contactRepo.GetSavedName", err); errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return name, err
}
