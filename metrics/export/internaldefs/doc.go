// Package internaldefs maps shell counters onto labelled metric families and
// holds the latency bucket bounds, so the Prometheus and OTel exporters
// expose identical series.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
