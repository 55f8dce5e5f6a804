// Package services contains server-side business logic behind the REST
// handlers: profile documents, wallet sign-in and ledger export presigning.
package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/dmitrijs2005/yieldvault/internal/server/models"
	"github.com/dmitrijs2005/yieldvault/internal/server/repositories/repomanager"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// ProfileService stores one JSON document per (wallet address, kind).
type ProfileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewProfileService constructs a ProfileService. db may be nil for backends
// that do not use SQL.
func NewProfileService(db *sql.DB, m repomanager.RepositoryManager) *ProfileService {
	return &ProfileService{db: db, repomanager: m}
}

// NormalizeAddress validates a 0x-prefixed 20-byte hex address and returns
// its lowercase form.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !strings.HasPrefix(address, "0x") && !strings.HasPrefix(address, "0X") {
		return "", common.ErrInvalidAddress
	}
	if !ethcommon.IsHexAddress(address) {
		return "", common.ErrInvalidAddress
	}
	return strings.ToLower(ethcommon.HexToAddress(address).Hex()), nil
}

func checkKind(kind string) error {
	if !slices.Contains(models.Kinds, kind) {
		return fmt.Errorf("%w: %q", common.ErrUnknownKind, kind)
	}
	return nil
}

// Get returns the stored document or common.ErrorNotFound.
func (s *ProfileService) Get(ctx context.Context, kind, address string) (*models.Record, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	addr, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	return s.repomanager.Records(s.db).Get(ctx, addr, kind)
}

// Save replaces the document. data must be a non-null JSON value.
func (s *ProfileService) Save(ctx context.Context, kind, address string, data json.RawMessage) (*models.Record, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	addr, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || !json.Valid(trimmed) {
		return nil, common.ErrInvalidPayload
	}

	rec := &models.Record{Address: addr, Kind: kind, Data: json.RawMessage(trimmed)}
	if err := s.repomanager.Records(s.db).Put(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes the document. A missing document yields common.ErrorNotFound.
func (s *ProfileService) Delete(ctx context.Context, kind, address string) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	addr, err := NormalizeAddress(address)
	if err != nil {
		return err
	}
	return s.repomanager.Records(s.db).Delete(ctx, addr, kind)
}
