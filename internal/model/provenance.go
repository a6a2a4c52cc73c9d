package model

import "fmt"

// Provenance maps a merged field path ("purchasePrice",
// "contingencies.inspection.days") to the page number that supplied its
// final value. Every non-null merged field traces to exactly one page
// whose role was permitted to set it.
type Provenance map[string]int

// Set records that field's value came from page. An existing entry is
// overwritten only when the value itself was overwritten, which is the
// caller's responsibility to guarantee.
func (p Provenance) Set(field string, page int) {
	p[field] = page
}

// Page returns the source page for a field, or 0 if the field was never
// merged.
func (p Provenance) Page(field string) int {
	return p[field]
}

// AuditLog accumulates human-readable narration of merge and temporal
// decisions. It is returned with the result so tests and reviewers can
// assert on the decision trail without capturing process logs.
type AuditLog struct {
	Entries []string
}

// Addf appends a formatted entry.
func (l *AuditLog) Addf(format string, args ...any) {
	l.Entries = append(l.Entries, fmt.Sprintf(format, args...))
}
