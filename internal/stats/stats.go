// Package stats computes summary statistics over record collections: counts,
// numeric sums and group-by tallies for the dashboard and the assistant.
package stats

import (
	"sort"
	"strconv"

	"github.com/airsial/opshub/internal/records"
)

// Tally is one bucket of a group-by count. Tallies preserve the order in
// which values were first encountered so equal counts rank deterministically.
type Tally struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Count returns the number of records in the snapshot.
func Count(recs []*records.Record) int {
	return len(recs)
}

// CountWhere returns how many records carry the given field value.
func CountWhere(recs []*records.Record, field, value string) int {
	n := 0
	for _, r := range recs {
		if r.Field(field) == value {
			n++
		}
	}
	return n
}

// SumNumeric sums a field across the snapshot, treating missing or
// non-numeric values as zero.
func SumNumeric(recs []*records.Record, field string) float64 {
	var sum float64
	for _, r := range recs {
		v, err := strconv.ParseFloat(r.Field(field), 64)
		if err != nil {
			continue
		}
		sum += v
	}
	return sum
}

// GroupTally counts records per distinct value of a field, in first-seen
// order. Records without the field at all land in an "Unknown" bucket.
func GroupTally(recs []*records.Record, field string) []Tally {
	index := make(map[string]int)
	var tallies []Tally
	for _, r := range recs {
		v, ok := r.Fields[field]
		if !ok {
			v = "Unknown"
		}
		if i, seen := index[v]; seen {
			tallies[i].Count++
			continue
		}
		index[v] = len(tallies)
		tallies = append(tallies, Tally{Value: v, Count: 1})
	}
	return tallies
}

// TopN returns the n highest-count tallies, descending. Ties keep the
// first-encountered order from GroupTally.
func TopN(tallies []Tally, n int) []Tally {
	out := make([]Tally, len(tallies))
	copy(out, tallies)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if n < len(out) {
		out = out[:n]
	}
	return out
}
