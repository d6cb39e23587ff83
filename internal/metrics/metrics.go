package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hamed0406/upstreamprobe/internal/probe"
)

// Recorder mirrors the latest round into Prometheus gauges.
type Recorder struct {
	reg *prometheus.Registry

	up            *prometheus.GaugeVec
	rtt           *prometheus.GaugeVec
	attempts      *prometheus.GaugeVec
	rounds        prometheus.Counter
	writeFailures prometheus.Counter
}

func NewRecorder() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		up: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "upstream_probe_up",
				Help: "Probe success (1) or failure (0) in the latest round",
			},
			[]string{"check_type", "target"},
		),
		rtt: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "upstream_probe_rtt_seconds",
				Help: "Round-trip time of the final attempt in seconds",
			},
			[]string{"check_type", "target"},
		),
		attempts: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "upstream_probe_attempts",
				Help: "Attempts needed in the latest round",
			},
			[]string{"check_type", "target"},
		),
		rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "upstream_probe_rounds_total",
			Help: "Total number of completed probe rounds",
		}),
		writeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "upstream_probe_write_failures_total",
			Help: "Total number of failed InfluxDB writes",
		}),
	}
	r.reg.MustRegister(r.up, r.rtt, r.attempts, r.rounds, r.writeFailures)
	return r
}

// Registry exposes the private registry for handlers and textfile output.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

func (r *Recorder) Observe(results []probe.Result) {
	for _, res := range results {
		labels := prometheus.Labels{"check_type": string(res.Type), "target": res.Target}
		r.up.With(labels).Set(boolToFloat(res.Success))
		r.rtt.With(labels).Set(res.RTTMS / 1000)
		r.attempts.With(labels).Set(float64(res.Attempts))
	}
}

func (r *Recorder) RoundDone()   { r.rounds.Inc() }
func (r *Recorder) WriteFailed() { r.writeFailures.Inc() }

// WriteTextfile dumps the registry for the node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
