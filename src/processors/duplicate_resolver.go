// src/processors/duplicate_resolver.go
package processors

import "github.com/kaibayosung/ohsung-system/src/models"

// DefaultDedupTolerance absorbs rounding noise from spreadsheet re-exports.
const DefaultDedupTolerance = 1.0

// Resolution partitions a candidate batch.
type Resolution struct {
	ToPersist      []models.Record
	Skipped        []models.Record
	SkippedSamples []string
}

// Skip records a duplicate, keeping at most sampleLimit descriptions.
func (r *Resolution) Skip(rec models.Record, sampleLimit int) {
	r.Skipped = append(r.Skipped, rec)
	if sampleLimit <= 0 || len(r.SkippedSamples) < sampleLimit {
		r.SkippedSamples = append(r.SkippedSamples, rec.Describe())
	}
}

// PartitionDuplicates skips every candidate whose key matches any existing
// record. Candidates are not compared with each other.
func PartitionDuplicates(candidates, existing []models.Record, tolerance float64, sampleLimit int) Resolution {
	existingKeys := make(map[string][]models.DedupKey)
	for _, e := range existing {
		k := e.Key()
		existingKeys[e.RecordDate()] = append(existingKeys[e.RecordDate()], k)
	}

	var res Resolution
	for _, c := range candidates {
		if matchesAny(c.Key(), existingKeys[c.RecordDate()], tolerance) {
			res.Skip(c, sampleLimit)
			continue
		}
		res.ToPersist = append(res.ToPersist, c)
	}
	return res
}

func matchesAny(key models.DedupKey, pool []models.DedupKey, tolerance float64) bool {
	for _, k := range pool {
		if key.Equal(k, tolerance) {
			return true
		}
	}
	return false
}

// DateSpan returns the lexical min and max date of a batch. ISO dates order
// lexically.
func DateSpan(records []models.Record) (start, end string) {
	for _, r := range records {
		d := r.RecordDate()
		if start == "" || d < start {
			start = d
		}
		if end == "" || d > end {
			end = d
		}
	}
	return start, end
}
