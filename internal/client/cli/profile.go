package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/yieldvault/internal/common"
)

var getMultiline = GetMultiline

// Profile shows, replaces or deletes one backend record of the current
// account. "show" is the default action.
func (a *App) Profile(ctx context.Context, kind string, args []string) error {
	action := "show"
	if len(args) > 0 {
		action = args[0]
	}

	switch action {
	case "show":
		data, err := a.profiles.Get(ctx, kind)
		if errors.Is(err, common.ErrorNotFound) {
			fmt.Fprintf(a.out, "No %s saved\n", kind)
			return nil
		}
		if err != nil {
			return err
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, data, "", "  "); err != nil {
			return err
		}
		fmt.Fprintln(a.out, pretty.String())
		return nil

	case "set":
		text, err := getMultiline(a.reader, fmt.Sprintf("Enter %s as JSON", kind), a.out)
		if err != nil {
			return err
		}
		if err := a.profiles.Save(ctx, kind, json.RawMessage(text)); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Saved %s\n", kind)
		return nil

	case "delete":
		if err := a.profiles.Delete(ctx, kind); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Deleted %s\n", kind)
		return nil

	default:
		return fmt.Errorf("usage: %s [show|set|delete]", kind)
	}
}

// Login signs a backend challenge with the unlocked key.
func (a *App) Login(ctx context.Context) error {
	if err := a.profiles.SignIn(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed in")
	return nil
}

func (a *App) Export(ctx context.Context) error {
	exp, err := a.profiles.Export(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Ledger exported to", exp.Key)
	return nil
}
