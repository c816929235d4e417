package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kvcheck/pkg/platform/sentinel"
)

// DocumentStore fetches a named document. Missing documents are reported as
// sentinel.ErrNotFound.
type DocumentStore interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// DirStore serves documents from a local directory.
type DirStore struct {
	Dir string
}

func (s DirStore) Fetch(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, filepath.Base(name)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// SharePointStore downloads files from a document library through the
// SharePoint REST API.
type SharePointStore struct {
	siteURL string
	library string
	token   string
	client  *http.Client
}

// SharePointOption configures a SharePointStore.
type SharePointOption func(*SharePointStore)

// WithHTTPClient replaces the default client (30s timeout).
func WithHTTPClient(c *http.Client) SharePointOption {
	return func(s *SharePointStore) {
		s.client = c
	}
}

// WithBearerToken sets the access token sent with every request.
func WithBearerToken(token string) SharePointOption {
	return func(s *SharePointStore) {
		s.token = token
	}
}

// NewSharePointStore creates a store for library on the site at siteURL.
func NewSharePointStore(siteURL, library string, opts ...SharePointOption) (*SharePointStore, error) {
	if _, err := url.ParseRequestURI(siteURL); err != nil {
		return nil, fmt.Errorf("invalid sharepoint site url: %w", err)
	}
	if strings.TrimSpace(library) == "" {
		return nil, errors.New("sharepoint library is required")
	}
	s := &SharePointStore{
		siteURL: strings.TrimRight(siteURL, "/"),
		library: strings.Trim(library, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// fileURL is the $value endpoint of a file in the library.
func (s *SharePointStore) fileURL(name string) string {
	site, _ := url.Parse(s.siteURL)
	relative := site.Path + "/" + s.library + "/" + name
	// single quotes are doubled inside the OData string literal
	relative = strings.ReplaceAll(relative, "'", "''")
	return s.siteURL + "/_api/web/GetFileByServerRelativeUrl('" + (&url.URL{Path: relative}).EscapedPath() + "')/$value"
}

func (s *SharePointStore) Fetch(ctx context.Context, name string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.fileURL(name), nil)
	if err != nil {
		return nil, fmt.Errorf("build sharepoint request: %w", err)
	}
	req.Header.Set("Accept", "application/octet-stream")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w: %w", name, sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", name, sentinel.ErrNotFound)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("fetch %s: status %d: %w", name, resp.StatusCode, sentinel.ErrUnavailable)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch %s: unexpected status %d", name, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}
