package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []string
}

func (e *eventRecorder) Event(name string, fields ...zap.Field) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, name)
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestRunner_PreservesInputOrder(t *testing.T) {
	delays := map[string]time.Duration{"a": 30 * time.Millisecond, "b": 0, "c": 10 * time.Millisecond}
	chk := CheckerFunc(func(ctx context.Context, target string) Result {
		time.Sleep(delays[target])
		return Result{Target: target, Type: CheckHTTP, Success: true, Response: HTTPStatus(200)}
	})

	for _, conc := range []int{0, 1, 3} {
		rec := &eventRecorder{}
		r := &Runner{Sink: rec, Concurrency: conc, Sleep: noSleep}
		out, err := r.Run(context.Background(), CheckHTTP, []string{"a", "b", "c"}, chk, Settings{})
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if len(out) != 3 || out[0].Target != "a" || out[1].Target != "b" || out[2].Target != "c" {
			t.Fatalf("concurrency=%d: order broken: %+v", conc, out)
		}
		if len(rec.events) != 3 {
			t.Fatalf("concurrency=%d: want 3 probe_result events, got %v", conc, rec.events)
		}
	}
}

func TestRunner_FailureIsolation(t *testing.T) {
	chk := CheckerFunc(func(ctx context.Context, target string) Result {
		switch target {
		case "boom":
			panic("checker exploded")
		case "down":
			return Result{Target: target, Type: CheckDNS, Error: "connection refused"}
		}
		return Result{Target: target, Type: CheckDNS, Success: true, Response: DNSRcode(0)}
	})

	r := &Runner{Concurrency: 2, Sleep: noSleep}
	out, err := r.Run(context.Background(), CheckDNS, []string{"down", "boom", "up"}, chk, Settings{Retries: 1})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out[0].Success || out[0].Attempts != 2 {
		t.Fatalf("down target should fail after 2 attempts, got %+v", out[0])
	}
	if out[1].Success || out[1].Error == "" || out[1].Type != CheckDNS {
		t.Fatalf("panicking target should become a failed result, got %+v", out[1])
	}
	if !out[2].Success {
		t.Fatalf("healthy target must still be probed, got %+v", out[2])
	}
}

func TestRunner_RunsConcurrently(t *testing.T) {
	var inFlight, peak int32
	chk := CheckerFunc(func(ctx context.Context, target string) Result {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return Result{Target: target, Success: true}
	})

	r := &Runner{Concurrency: 2}
	if _, err := r.Run(context.Background(), CheckHTTP, []string{"1", "2", "3", "4"}, chk, Settings{}); err != nil {
		t.Fatal(err)
	}
	if p := atomic.LoadInt32(&peak); p > 2 {
		t.Fatalf("concurrency limit exceeded: peak %d", p)
	}
}

func TestRunner_RejectsNegativeRetries(t *testing.T) {
	r := &Runner{}
	if _, err := r.RunHTTP(context.Background(), []string{"http://x"}, HTTPParams{Settings: Settings{Retries: -1}}); err == nil {
		t.Fatal("want error for negative retries")
	}
}

func TestRunner_RunHTTPAndDNS(t *testing.T) {
	var hits int32
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer s.Close()

	r := &Runner{Sleep: noSleep}
	settings := Settings{Timeout: 2 * time.Second, Retries: 2, BackoffBase: time.Millisecond, BackoffMax: time.Millisecond}

	httpOut, err := r.RunHTTP(context.Background(), []string{s.URL}, HTTPParams{Settings: settings, Method: "GET", UserAgent: "t"})
	if err != nil {
		t.Fatal(err)
	}
	if !httpOut[0].Success || httpOut[0].Attempts != 2 {
		t.Fatalf("want success on second attempt, got %+v", httpOut[0])
	}

	addr := startDNS(t, dns.RcodeSuccess)
	dnsOut, err := r.RunDNS(context.Background(), []string{addr}, DNSParams{Settings: settings, QueryName: "example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if !dnsOut[0].Success || dnsOut[0].Type != CheckDNS {
		t.Fatalf("want dns success, got %+v", dnsOut[0])
	}
}

func TestFields(t *testing.T) {
	fs := Fields(Result{Target: "t", Type: CheckHTTP, RTTMS: 1.23456, Response: HTTPStatus(503), Attempts: 3})
	keys := map[string]bool{}
	for _, f := range fs {
		keys[f.Key] = true
	}
	if !keys["http_status"] || keys["dns_rcode"] || keys["error"] {
		t.Fatalf("unexpected field set: %v", keys)
	}
}
