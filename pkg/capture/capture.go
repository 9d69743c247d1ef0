// Package capture turns a web page into a Source Reference: it fetches the
// URL and extracts the title, byline, and site name with readability.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-shiori/go-readability"
)

// maxBodySize caps how much HTML is read from untrusted URLs.
const maxBodySize = 10 * 1024 * 1024 // 10 MB

// Page is the extracted metadata of a captured web page.
type Page struct {
	URL      string
	Title    string
	Byline   string
	SiteName string
	Excerpt  string
}

// Fetcher fetches and extracts pages. The zero value is usable.
type Fetcher struct {
	// Client is used for requests; nil means a client with a 30s timeout.
	Client *http.Client
}

// Fetch downloads rawURL and extracts its metadata.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("capture: invalid url %q: %w", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	// Some sites refuse requests without browser-like headers.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,de;q=0.8")

	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("capture: fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("capture: %s returned status %d", rawURL, resp.StatusCode)
	}
	if resp.ContentLength > int64(maxBodySize) {
		return nil, fmt.Errorf("capture: content length %d exceeds limit of %d bytes", resp.ContentLength, maxBodySize)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("capture: read body: %w", err)
	}
	if int64(len(body)) >= int64(maxBodySize) {
		return nil, fmt.Errorf("capture: response body exceeded limit of %d bytes", maxBodySize)
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("capture: extract %s: %w", rawURL, err)
	}

	page := &Page{
		URL:      rawURL,
		Title:    article.Title,
		Byline:   article.Byline,
		SiteName: article.SiteName,
		Excerpt:  article.Excerpt,
	}
	if page.SiteName == "" {
		page.SiteName = parsedURL.Host
	}
	return page, nil
}
