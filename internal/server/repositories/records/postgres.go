package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/dmitrijs2005/yieldvault/internal/dbx"
	"github.com/dmitrijs2005/yieldvault/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, address, kind string) (*models.Record, error) {
	query := `
		SELECT data, updated_at FROM records
		WHERE address = $1 AND kind = $2
	`

	rec := &models.Record{Address: address, Kind: kind}
	var data []byte
	if err := r.db.QueryRowContext(ctx, query, address, kind).Scan(&data, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	rec.Data = data

	return rec, nil
}

func (r *PostgresRepository) Put(ctx context.Context, record *models.Record) error {
	query := `
		INSERT INTO records (address, kind, data, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (address, kind) DO UPDATE
		SET data = EXCLUDED.data, updated_at = NOW()
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query, record.Address, record.Kind, []byte(record.Data)).Scan(&record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, address, kind string) error {
	query := `
		DELETE FROM records
		WHERE address = $1 AND kind = $2
	`

	res, err := r.db.ExecContext(ctx, query, address, kind)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
