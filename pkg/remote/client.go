// Package remote syncs glossary snapshots against an HTTP endpoint. The
// protocol is deliberately dumb: one gzipped JSON document per glossary,
// fetched and replaced whole, merged client-side with last-write-wins.
package remote

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/glossarkit/glossar/pkg/exchange"
)

const snapshotPath = "/glossary.json.gz"

const userAgent = "glossar-cli"

// ErrNotFound is returned by Pull when the remote has no snapshot yet.
var ErrNotFound = errors.New("remote snapshot not found")

// Client talks to a snapshot endpoint.
type Client struct {
	BaseURL string
	Token   string

	// HTTPClient is used for requests; nil means a client with a 30s timeout.
	HTTPClient *http.Client
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Token:   token,
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (c *Client) newRequest(ctx context.Context, method string, body *bytes.Buffer) (*http.Request, error) {
	url := c.BaseURL + snapshotPath
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return req, nil
}

// Pull fetches and decodes the remote snapshot. Returns ErrNotFound when the
// remote reports 404 (first sync from this endpoint).
func (c *Client) Pull(ctx context.Context) (*exchange.Snapshot, error) {
	req, err := c.newRequest(ctx, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("pull snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pull snapshot: remote returned status %s", resp.Status)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("pull snapshot: not gzip data: %w", err)
	}
	defer gz.Close()

	snap, err := exchange.DecodeSnapshot(gz)
	if err != nil {
		return nil, fmt.Errorf("pull snapshot: %w", err)
	}
	return snap, nil
}

// Push uploads the snapshot, replacing whatever the remote holds.
func (c *Client) Push(ctx context.Context, snap *exchange.Snapshot) error {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := exchange.EncodeSnapshot(gz, snap); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("push snapshot: compress: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/gzip")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("push snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("push snapshot: remote returned status %s", resp.Status)
	}
	return nil
}
