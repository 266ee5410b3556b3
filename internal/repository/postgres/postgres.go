package postgres

import (
	"context"
	"database/sql"

	"rentaldesk-bff/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.SubmissionRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                   db,
		SubmissionRepository: NewSubmissionRepository(db),
	}
}

// Ping checks the journal database, used by the health endpoints.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
