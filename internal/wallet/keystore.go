package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/dmitrijs2005/yieldvault/internal/cryptox"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const keystoreKey = "keystore"

// KeyValue is the part of the local metadata store the keystore needs.
type KeyValue interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type keystoreEntry struct {
	Address string             `json:"address"`
	Key     *cryptox.SealedKey `json:"key"`
}

// Keystore persists one passphrase-sealed private key.
type Keystore struct {
	store KeyValue
}

func NewKeystore(store KeyValue) *Keystore {
	return &Keystore{store: store}
}

// Import validates a hex private key, seals it and replaces any stored key.
func (k *Keystore) Import(ctx context.Context, hexKey string, passphrase []byte) (ethcommon.Address, error) {
	priv, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return ethcommon.Address{}, fmt.Errorf("parse private key: %w", err)
	}
	raw := crypto.FromECDSA(priv)
	defer common.WipeByteArray(raw)

	sealed, err := cryptox.SealPrivateKey(raw, passphrase)
	if err != nil {
		return ethcommon.Address{}, fmt.Errorf("seal private key: %w", err)
	}

	addr := crypto.PubkeyToAddress(priv.PublicKey)
	data, err := json.Marshal(keystoreEntry{Address: addr.Hex(), Key: sealed})
	if err != nil {
		return ethcommon.Address{}, err
	}
	if err := k.store.Set(ctx, keystoreKey, data); err != nil {
		return ethcommon.Address{}, err
	}
	return addr, nil
}

// Address of the stored key, or common.ErrorNotFound.
func (k *Keystore) Address(ctx context.Context) (ethcommon.Address, error) {
	e, err := k.load(ctx)
	if err != nil {
		return ethcommon.Address{}, err
	}
	return ethcommon.HexToAddress(e.Address), nil
}

// Unlock decrypts the stored key. A wrong passphrase is common.ErrorUnauthorized.
func (k *Keystore) Unlock(ctx context.Context, passphrase []byte) (*ecdsa.PrivateKey, error) {
	e, err := k.load(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := e.Key.Open(passphrase)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(raw)

	priv, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	return priv, nil
}

// Forget deletes the stored key.
func (k *Keystore) Forget(ctx context.Context) error {
	return k.store.Delete(ctx, keystoreKey)
}

func (k *Keystore) load(ctx context.Context) (*keystoreEntry, error) {
	data, err := k.store.Get(ctx, keystoreKey)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("keystore: %w", common.ErrorNotFound)
	}
	var e keystoreEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode keystore: %w", err)
	}
	if e.Key == nil {
		return nil, fmt.Errorf("keystore: %w", common.ErrorNotFound)
	}
	return &e, nil
}
