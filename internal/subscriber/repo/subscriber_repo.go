package repo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/subscriber/entity"
)

type SubscriberRepo struct {
	db *sqlx.DB
}

func NewSubscriberRepo(db *sqlx.DB) *SubscriberRepo {
	return &SubscriberRepo{db: db}
}

// List returns every subscriber ordered by id.
func (r *SubscriberRepo) List(ctx context.Context) ([]entity.Subscriber, error) {
	const q = `SELECT id, name, COALESCE(email, '') AS email FROM subscribers ORDER BY id`
	var out []entity.Subscriber
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

// EnsureTable creates subscribers if missing.
func (r *SubscriberRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS subscribers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Upsert inserts subs, updating the name and email of existing ids.
func (r *SubscriberRepo) Upsert(ctx context.Context, subs []entity.Subscriber) error {
	const q = `
INSERT INTO subscribers (id, name, email) VALUES (:id, :name, NULLIF(:email, ''))
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email`
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, s := range subs {
		if _, err := tx.NamedExecContext(ctx, q, s); err != nil {
			return fmt.Errorf("upsert subscriber %s: %w", s.ID, err)
		}
	}
	return tx.Commit()
}
