// Package records declares the server-side storage contract for the
// per-address profile documents (onboarding, preferences, delegations).
package records

import (
	"context"

	"github.com/dmitrijs2005/yieldvault/internal/server/models"
)

// Repository stores one JSON document per (address, kind).
type Repository interface {
	// Get returns the record or common.ErrorNotFound.
	Get(ctx context.Context, address, kind string) (*models.Record, error)

	// Put creates or replaces the record and sets its UpdatedAt.
	Put(ctx context.Context, record *models.Record) error

	// Delete removes the record. A missing record yields common.ErrorNotFound.
	Delete(ctx context.Context, address, kind string) error
}
