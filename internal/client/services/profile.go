package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/yieldvault/internal/client/client"
	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/dmitrijs2005/yieldvault/internal/ledger"
	"github.com/dmitrijs2005/yieldvault/internal/logging"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// ProfileKinds are the record types the backend stores per address.
var ProfileKinds = []string{"onboarding", "preferences", "delegations"}

// LedgerSnapshot is the document uploaded by Export.
type LedgerSnapshot struct {
	Address    string          `json:"address"`
	ChainID    int64           `json:"chainId"`
	ExportedAt time.Time       `json:"exportedAt"`
	Records    []ledger.Record `json:"records"`
}

// ProfileService talks to the backend on behalf of the current account.
type ProfileService interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, kind string) (json.RawMessage, error)
	Save(ctx context.Context, kind string, data json.RawMessage) error
	Delete(ctx context.Context, kind string) error
	SignIn(ctx context.Context) error
	Export(ctx context.Context) (*client.Export, error)
}

type profileService struct {
	api      client.Client
	accounts AccountService
	funds    FundsService
	log      logging.Logger

	now func() time.Time
}

func NewProfileService(api client.Client, accounts AccountService, funds FundsService, log logging.Logger) ProfileService {
	return &profileService{
		api:      api,
		accounts: accounts,
		funds:    funds,
		log:      log.With("module", "profile"),
		now:      time.Now,
	}
}

func (s *profileService) Ping(ctx context.Context) error {
	return s.api.Ping(ctx)
}

func (s *profileService) target(kind string) (string, string, error) {
	kind = strings.ToLower(kind)
	valid := false
	for _, k := range ProfileKinds {
		if k == kind {
			valid = true
			break
		}
	}
	if !valid {
		return "", "", fmt.Errorf("%w: %s", common.ErrUnknownKind, kind)
	}

	addr := s.accounts.Address()
	if addr == (ethcommon.Address{}) {
		return "", "", ErrNoAccount
	}
	return kind, strings.ToLower(addr.Hex()), nil
}

func (s *profileService) Get(ctx context.Context, kind string) (json.RawMessage, error) {
	kind, addr, err := s.target(kind)
	if err != nil {
		return nil, err
	}
	return s.api.GetRecord(ctx, kind, addr)
}

func (s *profileService) Save(ctx context.Context, kind string, data json.RawMessage) error {
	kind, addr, err := s.target(kind)
	if err != nil {
		return err
	}
	if !json.Valid(data) {
		return fmt.Errorf("%w: not valid JSON", common.ErrInvalidPayload)
	}
	return s.api.SaveRecord(ctx, kind, addr, data)
}

func (s *profileService) Delete(ctx context.Context, kind string) error {
	kind, addr, err := s.target(kind)
	if err != nil {
		return err
	}
	return s.api.DeleteRecord(ctx, kind, addr)
}

// SignIn needs the wallet unlocked.
func (s *profileService) SignIn(ctx context.Context) error {
	if !s.accounts.Unlocked() {
		return ErrLocked
	}
	addr := strings.ToLower(s.accounts.Address().Hex())
	if err := s.api.SignIn(ctx, addr, s.accounts.Sign); err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	s.log.Info(ctx, "signed in", "address", addr)
	return nil
}

// Export uploads the full ledger of the current account to a presigned slot.
// A missing or expired session is renewed once.
func (s *profileService) Export(ctx context.Context) (*client.Export, error) {
	records, err := s.funds.History(ctx)
	if err != nil {
		return nil, err
	}
	body, err := json.MarshalIndent(LedgerSnapshot{
		Address:    strings.ToLower(s.accounts.Address().Hex()),
		ChainID:    s.accounts.ChainID(),
		ExportedAt: s.now().UTC(),
		Records:    records,
	}, "", "  ")
	if err != nil {
		return nil, err
	}

	exp, err := s.api.CreateExport(ctx)
	if errors.Is(err, client.ErrNotSignedIn) || errors.Is(err, client.ErrUnauthorized) {
		if err := s.SignIn(ctx); err != nil {
			return nil, err
		}
		exp, err = s.api.CreateExport(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("create export: %w", err)
	}

	if err := s.api.UploadExport(ctx, exp.URL, body); err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}
	s.log.Info(ctx, "ledger exported", "key", exp.Key, "records", len(records))
	return exp, nil
}
