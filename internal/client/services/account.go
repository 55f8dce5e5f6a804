// Package services contains the application services behind the yieldvault
// wallet CLI. This file defines the account service: key import, unlock and
// lock, the active network, and message signing for backend sign-in.
package services

import (
	"context"
	"crypto/ecdsa"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/yieldvault/internal/chain"
	"github.com/dmitrijs2005/yieldvault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/dmitrijs2005/yieldvault/internal/logging"
	"github.com/dmitrijs2005/yieldvault/internal/signin"
	"github.com/dmitrijs2005/yieldvault/internal/wallet"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

var (
	ErrLocked    = errors.New("wallet is locked")
	ErrNoAccount = errors.New("no account: import a key first")

	ErrUnknownStrategy = errors.New("unknown strategy")
)

// Account is the connected wallet. *wallet.Wallet satisfies it.
type Account interface {
	Address() ethcommon.Address
	Client() (chain.Client, error)
	Unlock(key *ecdsa.PrivateKey)
	Lock()
	Watch(address ethcommon.Address)
	Unlocked() bool
	ChainID() int64
	SwitchNetwork(ctx context.Context, chainID int64) error
}

// AccountService manages the single local account.
//
// Contract:
//   - Import: seal a hex private key under a passphrase and unlock with it.
//   - Restore: watch the stored address read-only, without a passphrase.
//   - Unlock / Lock: load or drop the signing key.
//   - SwitchNetwork: reconnect the wallet to another configured chain.
//   - Sign: personal-sign a message with the unlocked key.
type AccountService interface {
	Import(ctx context.Context, hexKey string, passphrase []byte) (ethcommon.Address, error)
	Restore(ctx context.Context) (ethcommon.Address, error)
	Unlock(ctx context.Context, passphrase []byte) (ethcommon.Address, error)
	Lock()
	Address() ethcommon.Address
	Unlocked() bool
	ChainID() int64
	SwitchNetwork(ctx context.Context, chainID int64) error
	Sign(message string) (string, error)
}

type accountService struct {
	account Account
	db      *sql.DB
	log     logging.Logger

	mu  sync.Mutex
	key *ecdsa.PrivateKey
}

func NewAccountService(account Account, db *sql.DB, log logging.Logger) AccountService {
	return &accountService{account: account, db: db, log: log.With("module", "account")}
}

func (s *accountService) getKeystore() *wallet.Keystore {
	return wallet.NewKeystore(metadata.NewSQLiteRepository(s.db))
}

func (s *accountService) Import(ctx context.Context, hexKey string, passphrase []byte) (ethcommon.Address, error) {
	ks := s.getKeystore()
	addr, err := ks.Import(ctx, hexKey, passphrase)
	if err != nil {
		return ethcommon.Address{}, err
	}
	key, err := ks.Unlock(ctx, passphrase)
	if err != nil {
		return ethcommon.Address{}, err
	}
	s.install(key)
	s.log.Info(ctx, "key imported", "address", addr.Hex())
	return addr, nil
}

// Restore returns ErrNoAccount when nothing has been imported yet.
func (s *accountService) Restore(ctx context.Context) (ethcommon.Address, error) {
	addr, err := s.getKeystore().Address(ctx)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ethcommon.Address{}, ErrNoAccount
		}
		return ethcommon.Address{}, err
	}
	s.account.Watch(addr)
	return addr, nil
}

func (s *accountService) Unlock(ctx context.Context, passphrase []byte) (ethcommon.Address, error) {
	key, err := s.getKeystore().Unlock(ctx, passphrase)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ethcommon.Address{}, ErrNoAccount
		}
		return ethcommon.Address{}, err
	}
	s.install(key)
	return s.account.Address(), nil
}

func (s *accountService) install(key *ecdsa.PrivateKey) {
	s.mu.Lock()
	s.key = key
	s.mu.Unlock()
	s.account.Unlock(key)
}

func (s *accountService) Lock() {
	s.mu.Lock()
	s.key = nil
	s.mu.Unlock()
	s.account.Lock()
}

func (s *accountService) Address() ethcommon.Address {
	return s.account.Address()
}

func (s *accountService) Unlocked() bool {
	return s.account.Unlocked()
}

func (s *accountService) ChainID() int64 {
	return s.account.ChainID()
}

func (s *accountService) SwitchNetwork(ctx context.Context, chainID int64) error {
	if err := s.account.SwitchNetwork(ctx, chainID); err != nil {
		return fmt.Errorf("switch network: %w", err)
	}
	return nil
}

func (s *accountService) Sign(message string) (string, error) {
	s.mu.Lock()
	key := s.key
	s.mu.Unlock()
	if key == nil {
		return "", ErrLocked
	}
	return signin.Sign(message, key)
}
