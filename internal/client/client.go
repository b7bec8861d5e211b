// Package client talks to the audiosearch HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/himanishpuri/audiosearch/internal/browser"
	"github.com/himanishpuri/audiosearch/pkg/logger"
	"github.com/himanishpuri/audiosearch/pkg/models"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("api error: %d %s", e.StatusCode, e.Message)
}

// retryLogger routes retryablehttp's logging through the package logger.
type retryLogger struct {
	log *logger.Logger
}

func (l retryLogger) Error(msg string, keysAndValues ...any) {
	l.log.Warnf("%s %v", msg, keysAndValues)
}

func (l retryLogger) Warn(msg string, keysAndValues ...any) {
	l.log.Warnf("%s %v", msg, keysAndValues)
}

func (l retryLogger) Info(msg string, keysAndValues ...any) {}

func (l retryLogger) Debug(msg string, keysAndValues ...any) {
	l.log.Debugf("%s %v", msg, keysAndValues)
}

type Client struct {
	httpClient *http.Client
	baseURL    string
}

type Option func(*retryablehttp.Client)

// WithRetries enables retrying failed requests. The default is none.
func WithRetries(n int) Option {
	return func(c *retryablehttp.Client) {
		c.RetryMax = n
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *retryablehttp.Client) {
		c.HTTPClient.Timeout = d
	}
}

// WithRetryWait bounds the backoff between retries.
func WithRetryWait(minWait, maxWait time.Duration) Option {
	return func(c *retryablehttp.Client) {
		c.RetryWaitMin = minWait
		c.RetryWaitMax = maxWait
	}
}

func New(baseURL string, opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.HTTPClient.Timeout = 60 * time.Second
	rc.Logger = retryLogger{log: logger.GetLogger().With("client")}
	// Hand the last response back instead of a generic "giving up" error.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	for _, opt := range opts {
		opt(rc)
	}

	return &Client{
		httpClient: rc.StandardClient(),
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// PlayURL is the absolute playback URL of a dataset file.
func (c *Client) PlayURL(filename string) string {
	return c.baseURL + browser.PlayURL(filename)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var er models.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&er) == nil {
			apiErr.Message = er.Message
			if apiErr.Message == "" {
				apiErr.Message = er.Error
			}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// GetDataset lists the dataset filenames. It satisfies
// browser.DatasetSource.
func (c *Client) GetDataset(ctx context.Context) ([]string, error) {
	var files []string
	if err := c.do(ctx, http.MethodGet, "/api/audio/dataset", "", nil, &files); err != nil {
		return nil, err
	}
	if files == nil {
		files = []string{}
	}
	return files, nil
}

// Query uploads a clip and returns the similar dataset files.
func (c *Client) Query(ctx context.Context, path string) (*models.QueryResult, error) {
	body, contentType, err := multipartFiles("file", []string{path})
	if err != nil {
		return nil, err
	}
	var res models.QueryResult
	if err := c.do(ctx, http.MethodPost, "/api/audio/upload", contentType, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// MatchHashes submits fingerprints computed on the client.
func (c *Client) MatchHashes(ctx context.Context, hashes map[uint32]uint32) (*models.QueryResult, error) {
	body, err := json.Marshal(map[string]any{"hashes": hashes})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal hashes: %w", err)
	}
	var res models.QueryResult
	if err := c.do(ctx, http.MethodPost, "/api/audio/match/hashes", "application/json", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UploadDataset adds files to the server's dataset.
func (c *Client) UploadDataset(ctx context.Context, paths []string) (*models.DatasetUploadResponse, error) {
	body, contentType, err := multipartFiles("files[]", paths)
	if err != nil {
		return nil, err
	}
	var res models.DatasetUploadResponse
	if err := c.do(ctx, http.MethodPost, "/api/audio/dataset", contentType, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Browse fetches one page of the server-side browser.
func (c *Client) Browse(ctx context.Context, term string, page int) (*browser.PageView, error) {
	q := url.Values{}
	if term != "" {
		q.Set("q", term)
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	path := "/api/audio/browse"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var view browser.PageView
	if err := c.do(ctx, http.MethodGet, path, "", nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// DeleteFile removes a dataset file and its fingerprints.
func (c *Client) DeleteFile(ctx context.Context, filename string) error {
	return c.do(ctx, http.MethodDelete, "/api/audio/dataset/"+url.PathEscape(filename), "", nil, nil)
}

// Metrics returns index and dataset counts.
func (c *Client) Metrics(ctx context.Context) (*models.HealthMetrics, error) {
	var m models.HealthMetrics
	if err := c.do(ctx, http.MethodGet, "/api/health/metrics", "", nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// multipartFiles buffers the files into a multipart body so a retry can
// resend it.
func multipartFiles(field string, paths []string) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open %s: %w", p, err)
		}
		part, err := mw.CreateFormFile(field, filepath.Base(p))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		f.Close()
		if err != nil {
			return nil, "", fmt.Errorf("failed to add %s to form: %w", p, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalise form: %w", err)
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
