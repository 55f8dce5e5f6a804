package client

import (
	"context"
	"encoding/json"
	"time"
)

// Export is a presigned upload slot for a ledger snapshot.
type Export struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SignFunc signs a sign-in challenge with the wallet key and returns the
// 0x-hex signature.
type SignFunc func(message string) (string, error)

// Client is the backend API as the wallet sees it.
type Client interface {
	Ping(ctx context.Context) error

	GetRecord(ctx context.Context, kind, address string) (json.RawMessage, error)
	SaveRecord(ctx context.Context, kind, address string, data json.RawMessage) error
	DeleteRecord(ctx context.Context, kind, address string) error

	SignIn(ctx context.Context, address string, sign SignFunc) error
	CreateExport(ctx context.Context) (*Export, error)
	UploadExport(ctx context.Context, url string, body []byte) error
}
