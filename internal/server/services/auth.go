package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/dmitrijs2005/yieldvault/internal/server/auth"
	"github.com/dmitrijs2005/yieldvault/internal/server/config"
	"github.com/dmitrijs2005/yieldvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/yieldvault/internal/signin"
)

// AuthService implements wallet sign-in: the server issues a nonce, the
// wallet signs signin.Message(nonce), and a valid signature is exchanged
// for a session JWT.
type AuthService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	nonceValidityDuration       time.Duration
	now                         func() time.Time
}

// NewAuthService constructs an AuthService from repositories and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *AuthService {
	return &AuthService{
		db:                          db,
		repomanager:                 m,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		nonceValidityDuration:       cfg.NonceValidityDuration,
		now:                         time.Now,
	}
}

// IssueNonce stores a fresh nonce for address and returns the message the
// wallet must sign.
func (s *AuthService) IssueNonce(ctx context.Context, address string) (string, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return "", err
	}
	nonce, err := common.MakeRandHexString(16)
	if err != nil {
		return "", common.ErrorInternal
	}
	if err := s.repomanager.Nonces(s.db).Put(ctx, addr, nonce, s.nonceValidityDuration); err != nil {
		return "", fmt.Errorf("error storing nonce: %w", err)
	}
	return signin.Message(nonce), nil
}

// Login consumes the pending nonce for address and verifies signature.
// The nonce is spent whether or not the signature checks out.
func (s *AuthService) Login(ctx context.Context, address, signature string) (string, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return "", err
	}

	nonce, err := s.repomanager.Nonces(s.db).Consume(ctx, addr)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		return "", common.ErrorInternal
	}
	if nonce.Expires.Before(s.now()) {
		return "", common.ErrNonceExpired
	}

	signer, err := signin.Recover(signin.Message(nonce.Value), signature)
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(signer.Hex(), addr) {
		return "", common.ErrorUnauthorized
	}

	token, err := auth.GenerateToken(addr, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", common.ErrorInternal
	}
	return token, nil
}

// Authenticate returns the wallet address bound to a session token.
func (s *AuthService) Authenticate(token string) (string, error) {
	return auth.GetAddressFromToken(token, s.jwtSecret)
}
