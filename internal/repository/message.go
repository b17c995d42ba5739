package repository

import (
	"context"
	"time"

	"github.com/abp0107/whatsapp-clone/internal/apperr"
	"github.com/abp0107/whatsapp-clone/internal/logger"
	"github.com/abp0107/whatsapp-clone/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

const upsertSenderSummary = `
INSERT INTO chat_summaries (owner_id, peer_id, peer_name, peer_phone, last_message, last_message_at, unread_count)
VALUES ($1, $2, $3, $4, $5, $6, 0)
ON CONFLICT (owner_id, peer_id) DO UPDATE SET
	peer_name = EXCLUDED.peer_name,
	peer_phone = EXCLUDED.peer_phone,
	last_message = EXCLUDED.last_message,
	last_message_at = EXCLUDED.last_message_at,
	unread_count = 0`

// Счётчик получателя: нет строки — 1, есть — прежнее значение + 1 (в одной инструкции, без гонки чтения).
const upsertReceiverSummary = `
INSERT INTO chat_summaries (owner_id, peer_id, peer_name, peer_phone, last_message, last_message_at, unread_count)
VALUES ($1, $2, $3, $4, $5, $6, 1)
ON CONFLICT (owner_id, peer_id) DO UPDATE SET
	peer_name = EXCLUDED.peer_name,
	peer_phone = EXCLUDED.peer_phone,
	last_message = EXCLUDED.last_message,
	last_message_at = EXCLUDED.last_message_at,
	unread_count = chat_summaries.unread_count + 1`

// SendMessage — одна транзакция: проверка блокировки, сообщение, обе сводки.
func (r *MessageRepository) SendMessage(ctx context.Context, p model.SendParams) (*model.Message, error) {
	defer logger.DeferLogDuration("msg.Send", time.Now())()
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, wrap("msgRepo.Send begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var blocked bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM blocks WHERE blocker_id = $1 AND blocked_id = $2)`, p.SenderID, p.ReceiverID,
	).Scan(&blocked); err != nil {
		return nil, wrap("msgRepo.Send block", err)
	}
	if blocked {
		return nil, apperr.ErrBlocked
	}

	m := &model.Message{
		ID:             uuid.New().String(),
		ConversationID: p.ConversationID(),
		SenderID:       p.SenderID,
		ReceiverID:     p.ReceiverID,
		Body:           p.Body,
		SenderName:     p.SenderName,
		ReceiverName:   p.ReceiverName,
	}
	// clock_timestamp, а не now(): now() одинаков внутри транзакции и не упорядочивает сообщения.
	if err := tx.QueryRow(ctx,
		`INSERT INTO messages (id, conversation_id, sender_id, receiver_id, body, is_read, sender_name, receiver_name, created_at)
		 VALUES ($1, $2, $3, $4, $5, false, $6, $7, clock_timestamp())
		 RETURNING created_at`,
		m.ID, m.ConversationID, m.SenderID, m.ReceiverID, m.Body, m.SenderName, m.ReceiverName,
	).Scan(&m.CreatedAt); err != nil {
		return nil, wrap("msgRepo.Send insert", err)
	}

	if _, err := tx.Exec(ctx, upsertSenderSummary,
		p.SenderID, p.ReceiverID, p.ReceiverName, p.ReceiverPhone, p.Body, m.CreatedAt,
	); err != nil {
		return nil, wrap("msgRepo.Send sender summary", err)
	}
	if _, err := tx.Exec(ctx, upsertReceiverSummary,
		p.ReceiverID, p.SenderID, p.SenderName, p.SenderPhone, p.Body, m.CreatedAt,
	); err != nil {
		return nil, wrap("msgRepo.Send receiver summary", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrap("msgRepo.Send commit", err)
	}
	return m, nil
}

func (r *MessageRepository) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	defer logger.DeferLogDuration("msg.List", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, conversation_id, sender_id, receiver_id, body, is_read, sender_name, receiver_name, created_at
		 FROM messages WHERE conversation_id = $1
		 ORDER BY created_at ASC, id ASC`, conversationID,
	)
	if err != nil {
		return nil, wrap("msgRepo.List", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.ReceiverID, &m.Body, &m.IsRead,
			&m.SenderName, &m.ReceiverName, &m.CreatedAt); err != nil {
			return nil, wrap("msgRepo.List scan", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, wrap("msgRepo.List rows", rows.Err())
}
