// Package cryptox seals the wallet's signing key at rest: argon2id derives
// an AES-256 key from the passphrase and AES-GCM encrypts the key bytes.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/dmitrijs2005/yieldvault/internal/common"
	"golang.org/x/crypto/argon2"
)

const saltSize = 16

// SealedKey is what the keystore persists. None of it is secret on its own.
type SealedKey struct {
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// DeriveKey stretches passphrase into a 32-byte AES key.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}

// SealPrivateKey encrypts privateKey under passphrase with a fresh salt and nonce.
func SealPrivateKey(privateKey, passphrase []byte) (*SealedKey, error) {
	salt := common.GenerateRandByteArray(saltSize)
	key := DeriveKey(passphrase, salt)
	defer common.WipeByteArray(key)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := common.GenerateRandByteArray(gcm.NonceSize())

	return &SealedKey{
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: gcm.Seal(nil, nonce, privateKey, nil),
	}, nil
}

// Open decrypts the sealed key. A wrong passphrase yields common.ErrorUnauthorized.
func (s *SealedKey) Open(passphrase []byte) ([]byte, error) {
	key := DeriveKey(passphrase, s.Salt)
	defer common.WipeByteArray(key)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(s.Nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("bad nonce length %d", len(s.Nonce))
	}

	plain, err := gcm.Open(nil, s.Nonce, s.Ciphertext, nil)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}
	return plain, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
