package prometheus

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	goConsole "github.com/MrEthical07/goConsole"
	"github.com/MrEthical07/goConsole/metrics/export/internaldefs"
)

const contentType = "text/plain; version=0.0.4; charset=utf-8"

// MetricsSource is what the exporter reads. *goConsole.Shell satisfies it.
type MetricsSource interface {
	MetricsSnapshot() goConsole.MetricsSnapshot
	AuditDropped() uint64
	AuditDelivered() uint64
}

// PrometheusExporter renders shell metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source MetricsSource
}

// NewPrometheusExporter creates an exporter reading from shell.
func NewPrometheusExporter(shell *goConsole.Shell) *PrometheusExporter {
	if shell == nil {
		return &PrometheusExporter{}
	}
	return &PrometheusExporter{source: shell}
}

// NewPrometheusExporterFromSource creates an exporter from a custom source.
func NewPrometheusExporterFromSource(source MetricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler returns an http.Handler that serves the rendered metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_ = p.Encode(w)
	})
}

// Render returns the current metrics as a string. It is "" when shell
// metrics are disabled and the audit dispatcher has seen nothing.
func (p *PrometheusExporter) Render() string {
	var b strings.Builder
	_ = p.Encode(&b)
	return b.String()
}

// Encode writes the exposition to w.
func (p *PrometheusExporter) Encode(w io.Writer) error {
	if p == nil || p.source == nil {
		return nil
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	delivered := p.source.AuditDelivered()
	metricsOn := len(snapshot.Counters) > 0 || len(snapshot.Histograms) > 0
	if !metricsOn && dropped == 0 && delivered == 0 {
		return nil
	}

	ew := &errWriter{w: w}

	if metricsOn {
		for _, fam := range internaldefs.Families {
			header(ew, fam.Name, fam.Help, "counter")
			for _, m := range fam.Members {
				ew.printf("%s{%s=%q} %d\n", fam.Name, fam.Label, m.Value, snapshot.Counters[m.ID])
			}
		}

		if raw, ok := snapshot.Histograms[goConsole.MetricModuleLoadLatency]; ok {
			cumulative := internaldefs.Cumulative(raw)
			header(ew, internaldefs.LatencyName, internaldefs.LatencyHelp, "histogram")
			for i, le := range internaldefs.LatencyBounds {
				ew.printf("%s_bucket{le=%q} %d\n", internaldefs.LatencyName, le, cumulative[i])
			}
			// The shell keeps bucket counts only, so the sum is not known.
			ew.printf("%s_sum 0\n", internaldefs.LatencyName)
			ew.printf("%s_count %d\n", internaldefs.LatencyName, cumulative[internaldefs.BucketCount-1])
		}
	}

	header(ew, internaldefs.AuditEntriesName, internaldefs.AuditEntriesHelp, "counter")
	ew.printf("%s{outcome=\"delivered\"} %d\n", internaldefs.AuditEntriesName, delivered)
	ew.printf("%s{outcome=\"dropped\"} %d\n", internaldefs.AuditEntriesName, dropped)

	return ew.err
}

func header(ew *errWriter, name, help, kind string) {
	ew.printf("# HELP %s %s\n", name, escapeHelp(help))
	ew.printf("# TYPE %s %s\n", name, kind)
}

func escapeHelp(help string) string {
	return strings.NewReplacer(`\`, `\\`, "\n", `\n`).Replace(help)
}

// errWriter remembers the first write error and skips later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
