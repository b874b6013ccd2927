package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool}

	// Auto-migrate schema
	if err := client.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func (p *PostgresClient) Migrate() error {
	ctx := context.Background()

	// Admin users (for the membership API)
	_, err := p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(20) DEFAULT 'user',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("create users table: %w", err)
	}

	// Sender membership tiers. expires_at is written by the admin endpoint
	// but not consulted when resolving a tier.
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS memberships (
			user_id VARCHAR(128) PRIMARY KEY,
			level VARCHAR(20) NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("create memberships table: %w", err)
	}

	// Per-period send counters. The period label (a day or month string)
	// is part of the key, so elapsed periods simply stop being addressed.
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS quota_counters (
			user_id VARCHAR(128) NOT NULL,
			period_label VARCHAR(10) NOT NULL,
			count INT NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, period_label)
		);
	`)
	if err != nil {
		return fmt.Errorf("create quota_counters table: %w", err)
	}

	// Conversation history, newest rows last by id.
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS conversation_turns (
			id BIGSERIAL PRIMARY KEY,
			user_id VARCHAR(128) NOT NULL,
			role VARCHAR(10) NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_conversation_turns_user ON conversation_turns (user_id, id DESC);
	`)
	if err != nil {
		return fmt.Errorf("create conversation_turns table: %w", err)
	}

	// Cached upstream tokens with their own expiry.
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS api_tokens (
			name VARCHAR(50) PRIMARY KEY,
			token TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create api_tokens table: %w", err)
	}

	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
