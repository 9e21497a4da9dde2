// Package client talks to the poivault HTTP API. Coordinates never leave
// the caller in plaintext: callers encrypt with a crypto.CoordinateCipher
// before using this package and decrypt what it returns.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/poivault/poivault-go/internal/model"
)

// MaxBatch is the largest number of POIs the server accepts in one bulk request.
const MaxBatch = 1000

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New returns a client for the API rooted at baseURL. token may be empty
// for Login.
func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (model.AuthResponse, error) {
	var resp model.AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", model.LoginRequest{Email: email, Password: password}, &resp)
	return resp, err
}

// BulkCreate stores pois in a single atomic request.
func (c *Client) BulkCreate(ctx context.Context, pois []model.CreatePOIRequest) ([]model.POI, error) {
	if len(pois) > MaxBatch {
		return nil, fmt.Errorf("batch of %d exceeds limit of %d", len(pois), MaxBatch)
	}
	var created []model.POI
	err := c.do(ctx, http.MethodPost, "/api/pois/bulk", model.BulkCreateRequest{POIs: pois}, &created)
	return created, err
}

// Search runs an encrypted proximity query.
func (c *Client) Search(ctx context.Context, q model.SearchQuery) ([]model.SearchResult, error) {
	var results []model.SearchResult
	err := c.do(ctx, http.MethodPost, "/api/search", q, &results)
	return results, err
}

// History returns the caller's most recent searches.
func (c *Client) History(ctx context.Context) ([]model.SearchHistoryEntry, error) {
	var entries []model.SearchHistoryEntry
	err := c.do(ctx, http.MethodGet, "/api/search/history", nil, &entries)
	return entries, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&e)
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
