package services

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/strathlearn/api/internal/db"
)

func (s *Service) RunInTransaction(ctx context.Context, fn func(tx *db.Queries) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	queries := db.New(tx)

	if err := fn(queries); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Service) getDB() *db.Queries {
	return db.New(s.pool)
}

func (s *Service) RunInTransactionWithOptions(ctx context.Context, txOptions pgx.TxOptions, fn func(tx *db.Queries) error) error {
	tx, err := s.pool.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	queries := db.New(tx)

	if err := fn(queries); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
