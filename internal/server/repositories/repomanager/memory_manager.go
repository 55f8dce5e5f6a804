package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/yieldvault/internal/dbx"
	"github.com/dmitrijs2005/yieldvault/internal/server/repositories/nonces"
	"github.com/dmitrijs2005/yieldvault/internal/server/repositories/records"
)

// MemoryRepositoryManager hands out the same in-memory repositories for every
// call. Data is lost when the process exits.
type MemoryRepositoryManager struct {
	records *records.MemoryRepository
	nonces  *nonces.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		records: records.NewMemoryRepository(),
		nonces:  nonces.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *MemoryRepositoryManager) Records(dbx.DBTX) records.Repository { return m.records }

func (m *MemoryRepositoryManager) Nonces(dbx.DBTX) nonces.Repository { return m.nonces }
