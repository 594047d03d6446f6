// Package search implements the dashboard's global search: a small resident
// corpus of typed records, case-insensitive substring matching, tiered
// relevance scoring, debounced input and the result panel.
//
// Records are a closed set of variants ([Person], [Invoice], [Lead]); the
// per-kind field selection is an exhaustive type switch in record.go so a new
// variant fails loudly instead of falling through a string comparison.
package search
