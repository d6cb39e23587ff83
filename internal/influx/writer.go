package influx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxErrBody caps how much of a failed response is kept in StatusError.
const maxErrBody = 512

// ErrMissingToken is returned when a write is requested without credentials.
var ErrMissingToken = errors.New("influx: missing token")

// StatusError is returned for any non-2xx write response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("influx write: status %d", e.Code)
	}
	return fmt.Sprintf("influx write: status %d: %s", e.Code, e.Body)
}

// Writer posts line protocol batches to the InfluxDB v2 write API.
type Writer struct {
	URL    string
	Org    string
	Bucket string
	Token  string
	Client *http.Client
}

func NewWriter(baseURL, org, bucket, token string, timeout time.Duration) *Writer {
	return &Writer{
		URL:    baseURL,
		Org:    org,
		Bucket: bucket,
		Token:  token,
		Client: &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the full write URL including org, bucket and ms precision.
func (w *Writer) Endpoint() string {
	q := url.Values{}
	q.Set("org", w.Org)
	q.Set("bucket", w.Bucket)
	q.Set("precision", "ms")
	return strings.TrimRight(w.URL, "/") + "/api/v2/write?" + q.Encode()
}

// Write sends all lines in a single request. The batch either lands or the
// call fails; there is no partial success. An empty batch sends nothing and
// returns nil.
func (w *Writer) Write(ctx context.Context, lines []string) error {
	if w.Token == "" {
		return ErrMissingToken
	}
	if len(lines) == 0 {
		return nil
	}
	body := strings.Join(lines, "\n")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.Endpoint(), bytes.NewReader([]byte(body)))
	if err != nil {
		return fmt.Errorf("influx write: %w", err)
	}
	req.Header.Set("Authorization", "Token "+w.Token)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("influx write: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	return nil
}
