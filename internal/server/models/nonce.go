package models

import "time"

// Nonce is a single-use sign-in challenge issued to a wallet address.
type Nonce struct {
	Address string
	Value   string
	Expires time.Time
}
