package internaldefs

import (
	goConsole "github.com/MrEthical07/goConsole"
)

// Member is one labelled series of a Family, backed by a single shell
// counter.
type Member struct {
	ID    goConsole.MetricID
	Value string
}

// Family is a labelled counter: every member shares Name and Help and is
// told apart by Label.
type Family struct {
	Name    string
	Help    string
	Label   string
	Members []Member
}

// Families lists every exported counter family in exposition order.
var Families = []Family{
	{
		Name:  "goconsole_navigation_total",
		Help:  "Navigation requests by permission outcome.",
		Label: "outcome",
		Members: []Member{
			{ID: goConsole.MetricNavigation, Value: "allowed"},
			{ID: goConsole.MetricNavigationDenied, Value: "denied"},
			{ID: goConsole.MetricMissingTarget, Value: "missing_target"},
		},
	},
	{
		Name:  "goconsole_module_fragments_total",
		Help:  "Module fragment retrievals by outcome.",
		Label: "outcome",
		Members: []Member{
			{ID: goConsole.MetricModuleLoaded, Value: "loaded"},
			{ID: goConsole.MetricModuleFailed, Value: "failed"},
			{ID: goConsole.MetricResultDiscarded, Value: "discarded"},
		},
	},
	{
		Name:  "goconsole_search_events_total",
		Help:  "Search panel activity.",
		Label: "event",
		Members: []Member{
			{ID: goConsole.MetricSearch, Value: "searched"},
			{ID: goConsole.MetricSearchSelected, Value: "selected"},
		},
	},
	{
		Name:  "goconsole_session_events_total",
		Help:  "Session lifecycle transitions.",
		Label: "event",
		Members: []Member{
			{ID: goConsole.MetricLogin, Value: "login"},
			{ID: goConsole.MetricLogout, Value: "logout"},
			{ID: goConsole.MetricSessionExpired, Value: "expired"},
			{ID: goConsole.MetricMalformedToken, Value: "malformed"},
		},
	},
}

// LatencyName is the fragment retrieval latency histogram.
const (
	LatencyName = "goconsole_module_load_latency_seconds"
	LatencyHelp = "Module fragment retrieval latency."
)

// Audit dispatcher series.
const (
	AuditEntriesName = "goconsole_audit_entries_total"
	AuditEntriesHelp = "Audit entries leaving the dispatcher by outcome."
)

// LatencyBounds are the histogram upper bounds in seconds, matching the
// shell's millisecond buckets. The last bound is +Inf.
var LatencyBounds = [BucketCount]string{"0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "1", "+Inf"}

// BucketCount is the number of latency buckets the shell records.
const BucketCount = 8

// Cumulative turns the shell's per-bucket counts into running totals,
// zero-filling buckets raw does not carry.
func Cumulative(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
