package probe

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/upstreamprobe/internal/notify"
)

// Settings are the timing knobs shared by every probe in a round.
type Settings struct {
	Timeout     time.Duration
	Retries     int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

type DNSParams struct {
	Settings
	QueryName string
}

type HTTPParams struct {
	Settings
	Method    string
	UserAgent string
}

// Runner fans a retry-wrapped checker out over a target list.
// Results always come back in input order.
type Runner struct {
	Sink        notify.Sink
	Concurrency int // <= 1 probes sequentially

	// Sleep overrides the backoff wait; nil uses a real timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (r *Runner) RunDNS(ctx context.Context, resolvers []string, p DNSParams) ([]Result, error) {
	return r.Run(ctx, CheckDNS, resolvers, NewDNSChecker(p.QueryName, p.Timeout), p.Settings)
}

func (r *Runner) RunHTTP(ctx context.Context, targets []string, p HTTPParams) ([]Result, error) {
	return r.Run(ctx, CheckHTTP, targets, NewHTTPChecker(p.Method, p.UserAgent, p.Timeout), p.Settings)
}

// Run probes every target with inner, retrying per s. The only error is an
// invalid retry budget; per-target failures are reported inside the results.
func (r *Runner) Run(ctx context.Context, typ CheckType, targets []string, inner Checker, s Settings) ([]Result, error) {
	rc, err := NewRetryChecker(inner, s.Retries, s.BackoffBase, s.BackoffMax)
	if err != nil {
		return nil, err
	}
	rc.Sleep = r.Sleep
	sink := notify.OrNop(r.Sink)

	results := make([]Result, len(targets))
	var g errgroup.Group
	g.SetLimit(max(1, r.Concurrency))
	for i, target := range targets {
		g.Go(func() error {
			results[i] = checkIsolated(ctx, rc, typ, target)
			sink.Event("probe_result", Fields(results[i])...)
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// checkIsolated keeps a misbehaving checker from taking down the round.
func checkIsolated(ctx context.Context, c Checker, typ CheckType, target string) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = Result{Target: target, Type: typ, Error: fmt.Sprintf("probe panic: %v", p), Attempts: 1}
		}
	}()
	return c.Check(ctx, target)
}

// Fields renders a Result as log fields.
func Fields(r Result) []zap.Field {
	fs := []zap.Field{
		zap.String("target", r.Target),
		zap.String("check_type", string(r.Type)),
		zap.Float64("rtt_ms", math.Round(r.RTTMS*1000)/1000),
		zap.Bool("success", r.Success),
		zap.Int("attempts", r.Attempts),
	}
	if code, ok := r.HTTPStatus(); ok {
		fs = append(fs, zap.Int("http_status", code))
	}
	if code, ok := r.DNSRcode(); ok {
		fs = append(fs, zap.Int("dns_rcode", code))
	}
	if r.Error != "" {
		fs = append(fs, zap.String("error", r.Error))
	}
	return fs
}
