// Package otel binds shell metrics to OpenTelemetry observable instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter family,
// with the family label carried as an attribute, plus gauges for the
// cumulative fragment latency buckets and a counter for audit delivery.
// A single callback reads [goConsole.Shell.MetricsSnapshot] per collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate shell state.
package otel
