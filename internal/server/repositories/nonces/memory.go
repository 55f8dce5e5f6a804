package nonces

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/dmitrijs2005/yieldvault/internal/server/models"
)

// MemoryRepository keeps nonces in a map.
type MemoryRepository struct {
	mu   sync.Mutex
	data map[string]models.Nonce
	now  func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{data: make(map[string]models.Nonce), now: time.Now}
}

func (r *MemoryRepository) Put(_ context.Context, address, nonce string, validity time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[address] = models.Nonce{Address: address, Value: nonce, Expires: r.now().Add(validity)}
	return nil
}

func (r *MemoryRepository) Consume(_ context.Context, address string) (*models.Nonce, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.data[address]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(r.data, address)
	return &n, nil
}
