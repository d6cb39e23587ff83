package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/upstreamprobe/internal/notify"
)

// Loop repeats Round on a fixed interval.
type Loop struct {
	Interval time.Duration
	Round    func(ctx context.Context) error
	Sink     notify.Sink
}

func NewLoop(interval time.Duration, round func(ctx context.Context) error, sink notify.Sink) *Loop {
	if interval < 0 {
		interval = 0
	}
	return &Loop{Interval: interval, Round: round, Sink: notify.OrNop(sink)}
}

// Run does an immediate pass, then one per tick until ctx is cancelled.
// With a zero Interval it runs a single round and returns that round's error.
// Round errors never stop a running loop.
func (l *Loop) Run(ctx context.Context) error {
	if l.Interval == 0 {
		return l.runOnce(ctx)
	}
	t := time.NewTicker(l.Interval)
	defer t.Stop()

	// immediate pass
	_ = l.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			l.sink().Event("scheduler_stopped")
			return nil
		case <-t.C:
			_ = l.runOnce(ctx)
		}
	}
}

func (l *Loop) runOnce(ctx context.Context) error {
	start := time.Now()
	err := l.Round(ctx)
	fields := []zap.Field{zap.Duration("elapsed", time.Since(start))}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	l.sink().Event("round_done", fields...)
	return err
}

func (l *Loop) sink() notify.Sink { return notify.OrNop(l.Sink) }
