package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"edupair/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBConfig holds database connection parameters
type DBConfig struct {
	DSN string
}

// LoadDBConfig loads database configuration from environment variables
func LoadDBConfig() (*DBConfig, error) {
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	sslMode := getEnv("DB_SSLMODE", "disable")

	if dbHost == "" || dbPort == "" || dbUser == "" || dbName == "" {
		return nil, fmt.Errorf("database environment variables not set (DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME)")
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		dbHost, dbPort, dbUser, dbPassword, dbName, sslMode)

	return &DBConfig{DSN: dsn}, nil
}

// ConnectDB establishes a connection to the PostgreSQL database
func ConnectDB(ctx context.Context, cfg *DBConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	var err error

	maxRetries := 5
	retryInterval := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		pool, err = pgxpool.New(ctx, cfg.DSN)
		if err == nil {
			err = pool.Ping(ctx)
			if err == nil {
				logger.Info("connected to PostgreSQL")
				return pool, nil
			}
			pool.Close()
		}
		logger.Warn("failed to connect to database, retrying",
			"attempt", i+1, "max_attempts", maxRetries, "retry_in", retryInterval, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return nil, fmt.Errorf("unable to connect to database after %d attempts: %w", maxRetries, err)
}

// Schema creates the users, sessions and credit_ledger tables if they don't exist.
const Schema = `
	CREATE TABLE IF NOT EXISTS users (
		username TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL,
		credits INTEGER NOT NULL DEFAULT 10 CHECK (credits >= 0),
		bio TEXT NOT NULL DEFAULT '',
		skills TEXT[] NOT NULL DEFAULT '{}',
		interests TEXT[] NOT NULL DEFAULT '{}',
		enrolled_session_ids TEXT[] NOT NULL DEFAULT '{}',
		taught_session_ids TEXT[], -- legacy, never written
		schema_version SMALLINT NOT NULL DEFAULT 1,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		teacher TEXT NOT NULL, -- username, intentionally not a foreign key
		credits_required INTEGER NOT NULL DEFAULT 5 CHECK (credits_required > 0),
		enrolled_students TEXT[] NOT NULL DEFAULT '{}',
		is_booked BOOLEAN NOT NULL DEFAULT FALSE, -- legacy
		legacy_session_ids TEXT[], -- legacy
		schema_version SMALLINT NOT NULL DEFAULT 1,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS credit_ledger (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL,
		amount INTEGER NOT NULL,
		kind VARCHAR(32) NOT NULL CHECK (kind IN ('signup_grant', 'offer_reward', 'enrollment_debit', 'teaching_reward')),
		session_id TEXT,
		schema_version SMALLINT NOT NULL DEFAULT 1,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_teacher ON sessions(teacher);
	CREATE INDEX IF NOT EXISTS idx_sessions_enrolled_students ON sessions USING GIN (enrolled_students);
	CREATE INDEX IF NOT EXISTS idx_credit_ledger_username ON credit_ledger(username);
	CREATE INDEX IF NOT EXISTS idx_credit_ledger_created_at ON credit_ledger(created_at);

	-- One debit per (student, session): the idempotency key of an enrollment attempt
	CREATE UNIQUE INDEX IF NOT EXISTS uq_credit_ledger_enrollment
		ON credit_ledger(username, session_id) WHERE kind = 'enrollment_debit';

	CREATE OR REPLACE FUNCTION update_updated_at_column()
	RETURNS TRIGGER AS $$
	BEGIN
	   NEW.updated_at = NOW();
	   RETURN NEW;
	END;
	$$ language 'plpgsql';

	DO $$
	BEGIN
		IF NOT EXISTS (
			SELECT 1
			FROM pg_trigger
			WHERE tgname = 'set_users_updated_at' AND tgrelid = 'users'::regclass
		) THEN
			CREATE TRIGGER set_users_updated_at
			BEFORE UPDATE ON users
			FOR EACH ROW
			EXECUTE FUNCTION update_updated_at_column();
		END IF;
	END
	$$;
`

// Execer is the part of a pool AutoMigrate needs
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// AutoMigrate creates tables if they don't exist
func AutoMigrate(ctx context.Context, db Execer, logger *slog.Logger) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("unable to apply migrations: %w", err)
	}

	logger.Info("AutoMigrate applied successfully", "schema_version", model.SchemaVersion)
	return nil
}
