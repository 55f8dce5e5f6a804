// Package signin implements the wallet sign-in challenge shared by the
// client and the server: an EIP-191 personal_sign over a fixed message
// that embeds a server-issued nonce.
package signin

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/ethereum/go-ethereum/accounts"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const messagePrefix = "Sign in to yieldvault\nNonce: "

// Message returns the text a wallet signs for nonce.
func Message(nonce string) string {
	return messagePrefix + nonce
}

// Sign produces a 65-byte personal signature (v in {27,28}) as 0x-hex.
func Sign(message string, key *ecdsa.PrivateKey) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		return "", err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// Recover returns the address that produced signature over message.
// Both the {0,1} and {27,28} recovery id conventions are accepted.
func Recover(message, signature string) (ethcommon.Address, error) {
	sig, err := hexutil.Decode(strings.TrimSpace(signature))
	if err != nil {
		return ethcommon.Address{}, fmt.Errorf("%w: %v", common.ErrorUnauthorized, err)
	}
	if len(sig) != crypto.SignatureLength {
		return ethcommon.Address{}, fmt.Errorf("%w: signature must be %d bytes", common.ErrorUnauthorized, crypto.SignatureLength)
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return ethcommon.Address{}, fmt.Errorf("%w: %v", common.ErrorUnauthorized, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
