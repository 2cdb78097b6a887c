package secrets

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"petavatar/internal/domain"
)

// PostgresStore resolves credentials from the api_credentials table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a credential resolver backed by PostgreSQL.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) APIKey(ctx context.Context) (string, error) {
	return s.secret(ctx, CredentialAPIKey)
}

func (s *PostgresStore) secret(ctx context.Context, name string) (string, error) {
	row := s.pool.QueryRow(ctx, `SELECT secret FROM api_credentials WHERE name = $1;`, name)
	var secret string
	if err := row.Scan(&secret); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", domain.Wrap(domain.KindDependency, "query credential", err)
	}
	return strings.TrimSpace(secret), nil
}

// SetAPIKey upserts the gateway API key.
func (s *PostgresStore) SetAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.E(domain.KindValidation, "api key is required")
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO api_credentials (name, secret, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (name) DO UPDATE SET secret = EXCLUDED.secret, updated_at = now();
`, CredentialAPIKey, key)
	if err != nil {
		return domain.Wrap(domain.KindDependency, "upsert credential", err)
	}
	return nil
}

var _ Resolver = (*PostgresStore)(nil)
