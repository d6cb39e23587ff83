package probe

import "context"

// CheckType identifies which protocol a Result was produced by.
type CheckType string

const (
	CheckDNS  CheckType = "dns"
	CheckHTTP CheckType = "http"
)

// Response is the protocol-level answer a checker received, if any.
// It is either an HTTPStatus or a DNSRcode; a nil Response means the
// attempt failed before any response arrived.
type Response interface {
	isResponse()
}

// HTTPStatus is the status code of a received HTTP response.
type HTTPStatus int

// DNSRcode is the response code of a received DNS message.
type DNSRcode int

func (HTTPStatus) isResponse() {}
func (DNSRcode) isResponse()   {}

// Result is the outcome of one probe against one target.
//
// Fields:
//   - RTTMS: elapsed milliseconds of the last attempt, always set.
//   - Response: nil on transport failure, otherwise matches Type.
//   - Error: set only when Response is nil.
//   - Attempts: how many attempts produced this result (1 without retries).
type Result struct {
	Target   string
	Type     CheckType
	RTTMS    float64
	Success  bool
	Response Response
	Error    string
	Attempts int
}

// HTTPStatus returns the HTTP status code, if one was received.
func (r Result) HTTPStatus() (int, bool) {
	s, ok := r.Response.(HTTPStatus)
	return int(s), ok
}

// DNSRcode returns the DNS response code, if one was received.
func (r Result) DNSRcode() (int, bool) {
	c, ok := r.Response.(DNSRcode)
	return int(c), ok
}

// Checker performs a single attempt against a target.
// Implementations never return errors; failures are carried in the Result.
type Checker interface {
	Check(ctx context.Context, target string) Result
}

// CheckerFunc adapts a plain function to the Checker interface.
type CheckerFunc func(ctx context.Context, target string) Result

func (f CheckerFunc) Check(ctx context.Context, target string) Result {
	return f(ctx, target)
}
