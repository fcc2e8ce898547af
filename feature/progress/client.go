// Package progress is the client for a KOReader-compatible progress sync
// server. Progress records are keyed by the partial-content fingerprint of
// the book file; both ends compute the digest independently and compare by
// value.
package progress

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	acceptHeader = "application/vnd.koreader.v1+json"
	authUserHdr  = "x-auth-user"
	authKeyHdr   = "x-auth-key"
)

// Config holds configuration for the progress sync server.
type Config struct {
	// Enabled turns remote progress lookups on.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Server is the sync server base URL.
	Server string `mapstructure:"server" default:"https://sync.koreader.rocks:443"`
	// Username is the sync account name.
	Username string `mapstructure:"username" default:""`
	// Password is the sync account password. Sent as an MD5 digest, the way
	// KOReader itself does.
	Password string `mapstructure:"password" default:""`
	// TimeoutSeconds is the per-request timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

// Document is a progress record as the server returns it. A book with no
// remote record comes back as the zero value.
type Document struct {
	// Document is the fingerprint the record is keyed by.
	Document string `json:"document,omitempty"`
	// Percentage is the 0-1 read fraction.
	Percentage float64 `json:"percentage,omitempty"`
	// Progress is an opaque location token (an xpointer for EPUBs).
	Progress string `json:"progress,omitempty"`
	// Device and DeviceID name the reporting device.
	Device   string `json:"device,omitempty"`
	DeviceID string `json:"device_id,omitempty"`
	// Timestamp is the server-side update time, seconds since epoch.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Client talks to one sync server with one account.
type Client struct {
	baseURL string
	user    string
	key     string
	http    *http.Client
	sf      singleflight.Group
}

// NewClient creates a client from the configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Server == "" {
		return nil, fmt.Errorf("progress: server URL is required")
	}
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	sum := md5.Sum([]byte(cfg.Password))
	return &Client{
		baseURL: strings.TrimSuffix(cfg.Server, "/"),
		user:    cfg.Username,
		key:     hex.EncodeToString(sum[:]),
		http:    &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", acceptHeader)
	if c.user != "" {
		req.Header.Set(authUserHdr, c.user)
		req.Header.Set(authKeyHdr, c.key)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("progress: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("progress: %s %s: unexpected status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("progress: decode response: %w", err)
	}
	return nil
}

// Healthcheck verifies the server is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/healthcheck", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Authorize verifies the configured credentials.
func (c *Client) Authorize(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/users/auth", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// GetProgress fetches the progress record for a fingerprint. ok is false
// when the server has no record for that digest. Concurrent lookups for the
// same digest are collapsed into one request.
func (c *Client) GetProgress(ctx context.Context, digest string) (*Document, bool, error) {
	v, err, _ := c.sf.Do(digest, func() (any, error) {
		req, err := c.newRequest(ctx, http.MethodGet, "/syncs/progress/"+digest, nil)
		if err != nil {
			return nil, err
		}
		var doc Document
		if err := c.do(req, &doc); err != nil {
			return nil, err
		}
		return &doc, nil
	})
	if err != nil {
		return nil, false, err
	}
	doc := v.(*Document)
	if doc.Document == "" && doc.Percentage == 0 && doc.Progress == "" {
		return nil, false, nil
	}
	return doc, true, nil
}

// UpdateProgress pushes a progress record to the server.
func (c *Client) UpdateProgress(ctx context.Context, doc *Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("progress: marshal record: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPut, "/syncs/progress", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("content-type", "application/json")
	return c.do(req, nil)
}
