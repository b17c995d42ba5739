package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Store собирает репозитории Postgres в один бэкенд (STORE_BACKEND=postgres).
type Store struct {
	*ProfileRepository
	*ContactRepository
	*BlockRepository
	*MessageRepository
	*SummaryRepository
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		ProfileRepository: NewProfileRepository(pool),
		ContactRepository: NewContactRepository(pool),
		BlockRepository:   NewBlockRepository(pool),
		MessageRepository: NewMessageRepository(pool),
		SummaryRepository: NewSummaryRepository(pool),
	}
}
