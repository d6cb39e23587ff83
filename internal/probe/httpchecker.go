package probe

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxDrain bounds how much of a response body is read before closing.
const maxDrain = 64 << 10

// HTTPChecker issues one request per attempt and treats any status below
// 500 as reachable. Redirects are followed.
type HTTPChecker struct {
	Client    *http.Client
	Method    string
	UserAgent string
}

func NewHTTPChecker(method, userAgent string, timeout time.Duration) *HTTPChecker {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DisableKeepAlives = true
	return &HTTPChecker{
		Client:    &http.Client{Timeout: timeout, Transport: tr},
		Method:    strings.ToUpper(method),
		UserAgent: userAgent,
	}
}

func (h *HTTPChecker) Check(ctx context.Context, target string) Result {
	method := h.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return Result{Target: target, Type: CheckHTTP, Error: err.Error(), Attempts: 1}
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}

	start := time.Now()
	resp, err := h.Client.Do(req)
	latency := elapsedMS(start)
	if err != nil {
		return Result{Target: target, Type: CheckHTTP, RTTMS: latency, Error: err.Error(), Attempts: 1}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))

	return Result{
		Target:   target,
		Type:     CheckHTTP,
		RTTMS:    latency,
		Success:  resp.StatusCode < http.StatusInternalServerError,
		Response: HTTPStatus(resp.StatusCode),
		Attempts: 1,
	}
}
