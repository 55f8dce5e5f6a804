// Package nonces declares the server-side repository for single-use
// wallet sign-in challenges.
package nonces

import (
	"context"
	"time"

	"github.com/dmitrijs2005/yieldvault/internal/server/models"
)

// Repository issues and consumes sign-in nonces. At most one nonce is live
// per address; issuing a new one replaces the previous.
type Repository interface {
	// Put stores nonce for address with an expiry of now+validity.
	Put(ctx context.Context, address, nonce string, validity time.Duration) error

	// Consume atomically removes and returns the nonce for address.
	// Implementations return common.ErrorNotFound when none is stored.
	Consume(ctx context.Context, address string) (*models.Nonce, error)
}
