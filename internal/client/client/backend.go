package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/dmitrijs2005/yieldvault/internal/netx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const requestTimeout = 10 * time.Second

// BackendClient talks JSON over HTTP to the REST API and uses the gRPC
// health service for reachability checks. It keeps the session token from
// the last successful SignIn.
type BackendClient struct {
	baseURL string
	http    *http.Client
	conn    *grpc.ClientConn
	health  healthpb.HealthClient

	mu    sync.RWMutex
	token string
}

// NewBackendClient prepares both transports. No connection is made until
// the first call.
func NewBackendClient(baseURL, healthAddr string) (*BackendClient, error) {
	conn, err := grpc.NewClient(healthAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &BackendClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
		conn:    conn,
		health:  healthpb.NewHealthClient(conn),
	}, nil
}

func (c *BackendClient) Close() error {
	return c.conn.Close()
}

// Ping succeeds only when the backend reports SERVING.
func (c *BackendClient) Ping(ctx context.Context) error {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", ErrUnavailable, resp.GetStatus())
	}
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (c *BackendClient) sessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *BackendClient) do(ctx context.Context, method, path string, query url.Values, body any, auth bool, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		token := c.sessionToken()
		if token == "" {
			return ErrNotSignedIn
		}
		req.Header.Set("Authorization", common.AuthorizationScheme+" "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && err != io.EOF {
		return fmt.Errorf("%w: decode %s %s: %v", ErrUnavailable, method, path, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return common.ErrorNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, env.Error)
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, env.Error)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: %s %s: %d %s", ErrUnavailable, method, path, resp.StatusCode, env.Error)
	}

	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

func (c *BackendClient) GetRecord(ctx context.Context, kind, address string) (json.RawMessage, error) {
	var data json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/"+kind, url.Values{"address": {address}}, nil, false, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *BackendClient) SaveRecord(ctx context.Context, kind, address string, data json.RawMessage) error {
	body := map[string]any{"address": address, "data": data}
	return c.do(ctx, http.MethodPost, "/api/"+kind, nil, body, false, nil)
}

func (c *BackendClient) DeleteRecord(ctx context.Context, kind, address string) error {
	return c.do(ctx, http.MethodDelete, "/api/"+kind, url.Values{"address": {address}}, nil, false, nil)
}

// SignIn runs the nonce/sign/login exchange and keeps the returned token.
func (c *BackendClient) SignIn(ctx context.Context, address string, sign SignFunc) error {
	var challenge struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/nonce", url.Values{"address": {address}}, nil, false, &challenge); err != nil {
		return err
	}

	sig, err := sign(challenge.Message)
	if err != nil {
		return err
	}

	var session struct {
		Token string `json:"token"`
	}
	body := map[string]string{"address": address, "signature": sig}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, body, false, &session); err != nil {
		return err
	}

	c.mu.Lock()
	c.token = session.Token
	c.mu.Unlock()
	return nil
}

func (c *BackendClient) CreateExport(ctx context.Context) (*Export, error) {
	exp := &Export{}
	if err := c.do(ctx, http.MethodPost, "/api/exports", nil, nil, true, exp); err != nil {
		return nil, err
	}
	return exp, nil
}

func (c *BackendClient) UploadExport(ctx context.Context, target string, body []byte) error {
	return netx.UploadToPresignedURL(ctx, target, "application/json", body)
}
