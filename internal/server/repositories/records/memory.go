package records

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/dmitrijs2005/yieldvault/internal/server/models"
)

type memKey struct{ address, kind string }

// MemoryRepository keeps records in a map. Contents are lost on restart.
type MemoryRepository struct {
	mu   sync.RWMutex
	data map[memKey]models.Record
	now  func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{data: make(map[memKey]models.Record), now: time.Now}
}

func (r *MemoryRepository) Get(_ context.Context, address, kind string) (*models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.data[memKey{address, kind}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	rec.Data = bytes.Clone(rec.Data)
	return &rec, nil
}

func (r *MemoryRepository) Put(_ context.Context, record *models.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record.UpdatedAt = r.now().UTC()
	stored := *record
	stored.Data = bytes.Clone(record.Data)
	r.data[memKey{record.Address, record.Kind}] = stored
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, address, kind string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := memKey{address, kind}
	if _, ok := r.data[k]; !ok {
		return common.ErrorNotFound
	}
	delete(r.data, k)
	return nil
}
