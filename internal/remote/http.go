package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cv-go/internal/cv"
)

// DefaultTimeout bounds every request made by HTTPRemote.
const DefaultTimeout = 60 * time.Second

// HTTPRemote talks to a cv-server file store. Every request carries the
// pre-shared key in the configured header.
type HTTPRemote struct {
	baseURL    string
	headerName string
	apiKey     string
	client     *http.Client
}

var _ cv.Remote = (*HTTPRemote)(nil)

// NewHTTPRemote creates a client for the server at baseURL.
func NewHTTPRemote(baseURL, headerName, apiKey string) (*HTTPRemote, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q must use http or https", baseURL)
	}
	if headerName == "" {
		headerName = "X-Api-Key"
	}
	return &HTTPRemote{
		baseURL:    strings.TrimRight(baseURL, "/"),
		headerName: headerName,
		apiKey:     apiKey,
		client:     &http.Client{Timeout: DefaultTimeout},
	}, nil
}

// WithClient replaces the HTTP client, e.g. for tests.
func (h *HTTPRemote) WithClient(c *http.Client) *HTTPRemote {
	h.client = c
	return h
}

func (h *HTTPRemote) fileURL(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return h.baseURL + "/files/" + strings.Join(segs, "/"), nil
}

func (h *HTTPRemote) do(ctx context.Context, method, target string, body io.Reader, size int64) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.ContentLength = size
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	req.Header.Set(h.headerName, h.apiKey)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	return resp, nil
}

// statusError converts an unexpected response into an error. 404 maps to
// cv.ErrNotFound.
func statusError(resp *http.Response, key string) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", cv.ErrNotFound, key)
	case http.StatusUnauthorized:
		return fmt.Errorf("server rejected the api key")
	default:
		return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
}

func (h *HTTPRemote) List(ctx context.Context) ([]string, error) {
	resp, err := h.do(ctx, http.MethodGet, h.baseURL+"/files", nil, 0)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "/files")
	}
	var keys []string
	if err := json.NewDecoder(resp.Body).Decode(&keys); err != nil {
		return nil, fmt.Errorf("decoding file list: %w", err)
	}
	return keys, nil
}

func (h *HTTPRemote) Get(ctx context.Context, key string, w io.Writer) error {
	target, err := h.fileURL(key)
	if err != nil {
		return err
	}
	resp, err := h.do(ctx, http.MethodGet, target, nil, 0)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp, key)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	return nil
}

func (h *HTTPRemote) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	target, err := h.fileURL(key)
	if err != nil {
		return err
	}
	resp, err := h.do(ctx, http.MethodPut, target, r, size)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	default:
		return statusError(resp, key)
	}
}

func (h *HTTPRemote) Delete(ctx context.Context, key string) error {
	target, err := h.fileURL(key)
	if err != nil {
		return err
	}
	resp, err := h.do(ctx, http.MethodDelete, target, nil, 0)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	default:
		return statusError(resp, key)
	}
}
