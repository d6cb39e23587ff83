package probe

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fake checker you can control
type fakeChecker struct {
	results []Result
	i       int
}

func (f *fakeChecker) Check(ctx context.Context, target string) Result {
	f.i++
	if f.i > len(f.results) {
		return Result{Target: target, Success: false, Error: "no more"}
	}
	return f.results[f.i-1]
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func TestRetryChecker_SucceedsAfterRetry(t *testing.T) {
	f := &fakeChecker{
		results: []Result{
			{Success: false, Error: "first fail"},
			{Success: true, Response: DNSRcode(0)},
		},
	}
	rec := &sleepRecorder{}
	rc := &RetryChecker{
		Inner:       f,
		Retries:     3,
		BackoffBase: 10 * time.Millisecond,
		BackoffMax:  time.Second,
		Sleep:       rec.sleep,
	}
	out := rc.Check(context.Background(), "1.1.1.1")
	if !out.Success {
		t.Fatalf("expected success after retry, got %+v", out)
	}
	if f.i != 2 {
		t.Fatalf("want 2 attempts, got %d", f.i)
	}
	if out.Attempts != 2 {
		t.Fatalf("want Attempts=2, got %d", out.Attempts)
	}
	if len(rec.delays) != 1 || rec.delays[0] != 10*time.Millisecond {
		t.Fatalf("want one 10ms sleep, got %v", rec.delays)
	}
}

func TestRetryChecker_AlwaysFailingSleepsRetriesTimes(t *testing.T) {
	for _, retries := range []int{0, 1, 2, 5} {
		f := &fakeChecker{}
		rec := &sleepRecorder{}
		rc := &RetryChecker{
			Inner:       f,
			Retries:     retries,
			BackoffBase: 100 * time.Millisecond,
			BackoffMax:  300 * time.Millisecond,
			Sleep:       rec.sleep,
		}
		out := rc.Check(context.Background(), "x")
		if out.Success {
			t.Fatalf("retries=%d: expected failure", retries)
		}
		if f.i != retries+1 {
			t.Fatalf("retries=%d: want %d attempts, got %d", retries, retries+1, f.i)
		}
		if len(rec.delays) != retries {
			t.Fatalf("retries=%d: want %d sleeps, got %v", retries, retries, rec.delays)
		}
		want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
		for i, d := range rec.delays {
			if d != want[i] {
				t.Fatalf("retries=%d: delay %d want %v got %v", retries, i, want[i], d)
			}
		}
	}
}

func TestRetryChecker_ReturnsLastFailure(t *testing.T) {
	f := &fakeChecker{
		results: []Result{
			{Success: false, Response: DNSRcode(2)},
			{Success: false, Error: "i/o timeout"},
		},
	}
	rc := &RetryChecker{Inner: f, Retries: 1, Sleep: (&sleepRecorder{}).sleep}
	out := rc.Check(context.Background(), "x")
	if out.Error != "i/o timeout" {
		t.Fatalf("want last attempt's error, got %+v", out)
	}
	if _, ok := out.DNSRcode(); ok {
		t.Fatalf("earlier rcode must not leak into final result: %+v", out)
	}
}

func TestRetryChecker_NoSleepAfterSuccess(t *testing.T) {
	f := &fakeChecker{results: []Result{{Success: true}}}
	rec := &sleepRecorder{}
	rc := &RetryChecker{Inner: f, Retries: 4, BackoffBase: time.Second, BackoffMax: time.Second, Sleep: rec.sleep}
	out := rc.Check(context.Background(), "x")
	if !out.Success || f.i != 1 || len(rec.delays) != 0 {
		t.Fatalf("want single attempt and no sleep, got attempts=%d sleeps=%v", f.i, rec.delays)
	}
}

func TestRetryChecker_BaseAboveMaxIsCapped(t *testing.T) {
	rec := &sleepRecorder{}
	rc := &RetryChecker{Inner: &fakeChecker{}, Retries: 2, BackoffBase: time.Second, BackoffMax: 250 * time.Millisecond, Sleep: rec.sleep}
	rc.Check(context.Background(), "x")
	for _, d := range rec.delays {
		if d != 250*time.Millisecond {
			t.Fatalf("want all delays capped at 250ms, got %v", rec.delays)
		}
	}
}

func TestRetryChecker_StopsWhenSleepFails(t *testing.T) {
	f := &fakeChecker{}
	rc := &RetryChecker{
		Inner:   f,
		Retries: 5,
		Sleep:   func(ctx context.Context, d time.Duration) error { return context.Canceled },
	}
	out := rc.Check(context.Background(), "x")
	if f.i != 1 || out.Attempts != 1 {
		t.Fatalf("want retrying to stop after first sleep error, got %d attempts", f.i)
	}
}

func TestRetryChecker_DefaultSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fakeChecker{}
	rc := &RetryChecker{Inner: f, Retries: 3, BackoffBase: time.Hour, BackoffMax: time.Hour}

	done := make(chan Result, 1)
	go func() { done <- rc.Check(ctx, "x") }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled context should cut the backoff short")
	}
	if f.i != 1 {
		t.Fatalf("want 1 attempt, got %d", f.i)
	}
}

func TestNewRetryChecker_RejectsNegativeRetries(t *testing.T) {
	if _, err := NewRetryChecker(&fakeChecker{}, -1, 0, 0); !errors.Is(err, ErrNegativeRetries) {
		t.Fatalf("want ErrNegativeRetries, got %v", err)
	}
	rc, err := NewRetryChecker(&fakeChecker{}, 0, 0, 0)
	if err != nil || rc.Retries != 0 {
		t.Fatalf("zero retries should be accepted: %v", err)
	}
}

func TestRetryChecker_PanicsOnNegativeRetries(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for negative retries")
		}
	}()
	rc := &RetryChecker{Inner: &fakeChecker{}, Retries: -1}
	rc.Check(context.Background(), "x")
}
