package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore keeps the state as a single JSONB row in Postgres, for
// deployments where the server does not own a local disk.
type PGStore struct {
	pool *pgxpool.Pool
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS app_state (
	id INT PRIMARY KEY CHECK (id = 1),
	state JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func NewPGStore(ctx context.Context, databaseURL string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

func (p *PGStore) Close() {
	p.pool.Close()
}

func (p *PGStore) Load(ctx context.Context) (State, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx, `SELECT state FROM app_state WHERE id = 1`).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultState(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("failed to load state: %w", err)
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		log.Printf("WARN: stored state is unreadable, starting fresh: %v", err)
		return DefaultState(), nil
	}
	return state, nil
}

func (p *PGStore) Save(ctx context.Context, state State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO app_state (id, state) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state, updated_at = now()`, raw)
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}
