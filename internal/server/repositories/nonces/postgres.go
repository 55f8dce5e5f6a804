package nonces

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/dmitrijs2005/yieldvault/internal/dbx"
	"github.com/dmitrijs2005/yieldvault/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Put upserts the nonce for address.
func (r *PostgresRepository) Put(ctx context.Context, address, nonce string, validity time.Duration) error {
	query := `
		INSERT INTO auth_nonces (address, nonce, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (address) DO UPDATE
		SET nonce = EXCLUDED.nonce, expires_at = EXCLUDED.expires_at
	`
	if _, err := r.db.ExecContext(ctx, query, address, nonce, time.Now().Add(validity)); err != nil {
		return fmt.Errorf("error performing sql request: %v", err)
	}
	return nil
}

// Consume deletes the nonce row and returns it in one statement, so a nonce
// can never be redeemed twice.
func (r *PostgresRepository) Consume(ctx context.Context, address string) (*models.Nonce, error) {
	query := `
		DELETE FROM auth_nonces
		WHERE address = $1
		RETURNING nonce, expires_at
	`
	n := &models.Nonce{Address: address}
	if err := r.db.QueryRowContext(ctx, query, address).Scan(&n.Value, &n.Expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
