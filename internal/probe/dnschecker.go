package probe

import (
	"context"
	"net"
	"time"

	"github.com/miekg/dns"
)

const defaultDNSPort = "53"

// DNSChecker sends a single A query for QueryName to the resolver passed
// as the Check target. Only rcode NOERROR counts as success.
type DNSChecker struct {
	QueryName string
	Timeout   time.Duration
}

func NewDNSChecker(queryName string, timeout time.Duration) *DNSChecker {
	return &DNSChecker{QueryName: queryName, Timeout: timeout}
}

func (d *DNSChecker) Check(ctx context.Context, resolver string) Result {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(d.QueryName), dns.TypeA)
	msg.RecursionDesired = true

	client := &dns.Client{Net: "udp", Timeout: d.Timeout}

	start := time.Now()
	resp, _, err := client.ExchangeContext(ctx, msg, resolverAddr(resolver))
	rtt := elapsedMS(start)

	if err != nil {
		return Result{Target: resolver, Type: CheckDNS, RTTMS: rtt, Error: err.Error(), Attempts: 1}
	}
	if resp == nil {
		return Result{Target: resolver, Type: CheckDNS, RTTMS: rtt, Error: "empty dns response", Attempts: 1}
	}
	return Result{
		Target:   resolver,
		Type:     CheckDNS,
		RTTMS:    rtt,
		Success:  resp.Rcode == dns.RcodeSuccess,
		Response: DNSRcode(resp.Rcode),
		Attempts: 1,
	}
}

// resolverAddr appends the default DNS port when the resolver has none.
func resolverAddr(resolver string) string {
	if _, _, err := net.SplitHostPort(resolver); err == nil {
		return resolver
	}
	host := resolver
	if len(host) > 1 && host[0] == '[' && host[len(host)-1] == ']' {
		host = host[1 : len(host)-1]
	}
	return net.JoinHostPort(host, defaultDNSPort)
}

func elapsedMS(start time.Time) float64 {
	return time.Since(start).Seconds() * 1000 // ms
}
