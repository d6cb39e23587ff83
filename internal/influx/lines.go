package influx

import (
	"github.com/hamed0406/upstreamprobe/internal/lineproto"
	"github.com/hamed0406/upstreamprobe/internal/probe"
)

// Line encodes one probe result as a point tagged with vlan, target and check_type.
func Line(measurement, vlan string, r probe.Result) string {
	tags := []lineproto.Tag{
		{Key: "vlan", Value: vlan},
		{Key: "target", Value: r.Target},
		{Key: "check_type", Value: string(r.Type)},
	}
	fields := []lineproto.Field{
		lineproto.Float("rtt_ms", r.RTTMS),
		lineproto.Bool("success", r.Success),
	}
	if code, ok := r.HTTPStatus(); ok {
		fields = append(fields, lineproto.Int("http_status", int64(code)))
	}
	if code, ok := r.DNSRcode(); ok {
		fields = append(fields, lineproto.Int("dns_rcode", int64(code)))
	}
	return lineproto.Build(measurement, tags, fields)
}

func Lines(measurement, vlan string, results []probe.Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, Line(measurement, vlan, r))
	}
	return out
}
