package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/yieldvault/internal/common"
)

// getSimpleText and getSecret are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getSecret = GetSecret

var errPassphraseMismatch = errors.New("passphrases do not match")

// Import asks for a hex private key and a new passphrase (twice), seals the
// key in the local store and unlocks the wallet with it.
func (a *App) Import(ctx context.Context) error {
	key, err := getSecret(a.out, "Private key (hex)")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(key)

	pass, err := getSecret(a.out, "New passphrase")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pass)

	again, err := getSecret(a.out, "Repeat passphrase")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(again)

	if !bytes.Equal(pass, again) {
		return errPassphraseMismatch
	}

	addr, err := a.accounts.Import(ctx, string(key), pass)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Imported", addr.Hex())
	return nil
}

func (a *App) Unlock(ctx context.Context) error {
	pass, err := getSecret(a.out, "Passphrase")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pass)

	addr, err := a.accounts.Unlock(ctx, pass)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return errors.New("wrong passphrase")
		}
		return err
	}
	fmt.Fprintln(a.out, "Unlocked", addr.Hex())
	return nil
}

func (a *App) Lock(context.Context) error {
	a.accounts.Lock()
	fmt.Fprintln(a.out, "Locked")
	return nil
}

// Network without arguments prints the current chain id.
func (a *App) Network(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, "Chain:", a.accounts.ChainID())
		return nil
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("usage: network <chain-id>")
	}
	if err := a.accounts.SwitchNetwork(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Switched to chain", id)
	return nil
}
