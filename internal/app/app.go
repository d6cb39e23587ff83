// Package app wires one probe round: probe, encode, then write or dry-run.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/upstreamprobe/internal/config"
	"github.com/hamed0406/upstreamprobe/internal/influx"
	"github.com/hamed0406/upstreamprobe/internal/metrics"
	"github.com/hamed0406/upstreamprobe/internal/notify"
	"github.com/hamed0406/upstreamprobe/internal/probe"
)

// LineWriter ships an encoded batch. *influx.Writer satisfies it.
type LineWriter interface {
	Write(ctx context.Context, lines []string) error
}

type Options struct {
	Write    bool   // false means dry-run
	Token    string // required when Write is set
	Sink     notify.Sink
	Recorder *metrics.Recorder // optional
	Textfile string            // optional; needs Recorder

	// Writer overrides the InfluxDB writer built from the config.
	Writer LineWriter
	// Sleep overrides the retry backoff wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Prober runs rounds against one validated config.
type Prober struct {
	cfg  *config.Config
	opts Options
}

func New(cfg *config.Config, opts Options) *Prober {
	opts.Sink = notify.OrNop(opts.Sink)
	return &Prober{cfg: cfg, opts: opts}
}

// Round probes every DNS resolver and HTTP target once and ships the lines.
// It fails only for a missing token or a failed write.
func (p *Prober) Round(ctx context.Context) error {
	results, err := p.Probe(ctx)
	if err != nil {
		return err
	}
	if rec := p.opts.Recorder; rec != nil {
		rec.Observe(results)
		defer p.finishMetrics()
	}

	lines := influx.Lines(p.cfg.Influx.Measurement, p.cfg.App.Vlan, results)
	sink := p.opts.Sink

	if !p.opts.Write {
		sink.Event("dry_run", zap.Int("count", len(lines)), zap.Strings("lines", lines))
		return nil
	}
	if p.opts.Token == "" && p.opts.Writer == nil {
		sink.Event("write_skipped", zap.String("reason", "missing_influx_token"))
		return influx.ErrMissingToken
	}
	if err := p.writer().Write(ctx, lines); err != nil {
		sink.Event("write_failed", zap.Error(err))
		if p.opts.Recorder != nil {
			p.opts.Recorder.WriteFailed()
		}
		return fmt.Errorf("write %d lines: %w", len(lines), err)
	}
	sink.Event("write_ok", zap.Int("count", len(lines)))
	return nil
}

// Probe runs the DNS then the HTTP fan-out; DNS results come first.
func (p *Prober) Probe(ctx context.Context) ([]probe.Result, error) {
	app := p.cfg.App
	settings := probe.Settings{
		Timeout:     app.Timeout(),
		Retries:     app.Retries,
		BackoffBase: app.BackoffBase(),
		BackoffMax:  app.BackoffMax(),
	}
	runner := &probe.Runner{Sink: p.opts.Sink, Concurrency: app.Concurrency, Sleep: p.opts.Sleep}

	dnsResults, err := runner.RunDNS(ctx, p.cfg.DNS.Resolvers, probe.DNSParams{
		Settings:  settings,
		QueryName: p.cfg.DNS.QueryName,
	})
	if err != nil {
		return nil, err
	}
	httpResults, err := runner.RunHTTP(ctx, p.cfg.HTTP.Targets, probe.HTTPParams{
		Settings:  settings,
		Method:    p.cfg.HTTP.Method,
		UserAgent: app.UserAgent,
	})
	if err != nil {
		return nil, err
	}
	return append(dnsResults, httpResults...), nil
}

func (p *Prober) writer() LineWriter {
	if p.opts.Writer != nil {
		return p.opts.Writer
	}
	in := p.cfg.Influx
	return influx.NewWriter(in.URL, in.Org, in.Bucket, p.opts.Token, p.cfg.App.Timeout())
}

func (p *Prober) finishMetrics() {
	rec := p.opts.Recorder
	rec.RoundDone()
	if p.opts.Textfile == "" {
		return
	}
	if err := rec.WriteTextfile(p.opts.Textfile); err != nil {
		p.opts.Sink.Event("textfile_failed", zap.String("path", p.opts.Textfile), zap.Error(err))
	}
}
