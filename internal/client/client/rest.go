package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/healthsync/internal/client/models"
	"github.com/dmitrijs2005/healthsync/internal/common"
)

const (
	loginPath   = "/auth/login"
	refreshPath = "/auth/refresh"
	pingPath    = "/ping"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 1 << 20

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// RESTClient implements Client over JSON/HTTP.
type RESTClient struct {
	baseURL string
	http    *http.Client
	tokens  tokenStore
	now     func() time.Time

	// refreshMu keeps concurrent callers from refreshing twice.
	refreshMu sync.Mutex
}

func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	return &RESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

func (c *RESTClient) Session() Session  { return c.tokens.get() }
func (c *RESTClient) Restore(s Session) { c.tokens.set(s) }

func (c *RESTClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// roundTrip sends one request and returns the body of a 2xx response.
func (c *RESTClient) roundTrip(ctx context.Context, method, path string, body any, token string) ([]byte, error) {
	op := method + " " + path

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode body: %w", op, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, networkError(ctx, op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, networkError(ctx, op, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &common.ServerError{Status: resp.StatusCode, Message: errorMessage(data)}
	}
	return data, nil
}

func errorMessage(body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Error != "" {
			return e.Error
		}
		if e.Message != "" {
			return e.Message
		}
	}
	return strings.TrimSpace(string(body))
}

// refresh exchanges the refresh token for a new pair. stale is the access
// token the caller saw; if another goroutine already replaced it, nothing
// is sent.
func (c *RESTClient) refresh(ctx context.Context, stale string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	cur := c.tokens.get()
	if cur.AccessToken != stale && cur.AccessToken != "" {
		return nil
	}
	if cur.RefreshToken == "" {
		return common.ErrRefreshTokenMissing
	}

	data, err := c.roundTrip(ctx, http.MethodPost, refreshPath, map[string]string{"refresh_token": cur.RefreshToken}, "")
	if err != nil {
		return err
	}
	var tr tokenResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return fmt.Errorf("decode refresh response: %w", err)
	}
	if tr.RefreshToken == "" {
		tr.RefreshToken = cur.RefreshToken
	}
	c.tokens.set(Session{AccessToken: tr.AccessToken, RefreshToken: tr.RefreshToken})
	return nil
}

// authorized performs an authenticated call: the access token is refreshed
// up front when it is known to be expired, and once more on a 401.
func (c *RESTClient) authorized(ctx context.Context, method, path string, body any) ([]byte, error) {
	s := c.tokens.get()
	if s.RefreshToken != "" && tokenExpired(s.AccessToken, c.now()) {
		if err := c.refresh(ctx, s.AccessToken); err != nil {
			return nil, err
		}
		s = c.tokens.get()
	}

	data, err := c.roundTrip(ctx, method, path, body, s.AccessToken)
	if err == nil || s.RefreshToken == "" {
		return data, err
	}

	var se *common.ServerError
	if !errors.As(err, &se) || se.Status != http.StatusUnauthorized {
		return nil, err
	}
	if err := c.refresh(ctx, s.AccessToken); err != nil {
		return nil, err
	}
	return c.roundTrip(ctx, method, path, body, c.tokens.get().AccessToken)
}

func decodePayload(data []byte) (models.Payload, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var p models.Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return p, nil
}

func (c *RESTClient) Fetch(ctx context.Context, endpoint string) (models.Payload, error) {
	data, err := c.authorized(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return decodePayload(data)
}

func (c *RESTClient) Send(ctx context.Context, method models.Method, endpoint string, payload models.Payload) (models.Payload, error) {
	var body any
	if payload != nil {
		body = payload
	}
	data, err := c.authorized(ctx, string(method), endpoint, body)
	if err != nil {
		return nil, err
	}
	return decodePayload(data)
}

func (c *RESTClient) Ping(ctx context.Context) error {
	_, err := c.roundTrip(ctx, http.MethodGet, pingPath, nil, "")
	return err
}

func (c *RESTClient) Login(ctx context.Context, username, password string) error {
	data, err := c.roundTrip(ctx, http.MethodPost, loginPath,
		map[string]string{"username": username, "password": password}, "")
	if err != nil {
		return err
	}
	var tr tokenResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if tr.AccessToken == "" {
		return fmt.Errorf("login response carries no access token")
	}
	c.tokens.set(Session{AccessToken: tr.AccessToken, RefreshToken: tr.RefreshToken})
	return nil
}
