package quality

import (
	"datalab/domain/dataset"
	domainQuality "datalab/domain/quality"
)

const maxDictionarySamples = 5

// BuildDictionary generates a data-dictionary entry per column: type,
// completeness, cardinality, observed range for continuous columns, and
// a few sample values in first-appearance order.
func (a *Auditor) BuildDictionary(ds *dataset.Dataset) []domainQuality.DictionaryEntry {
	entries := make([]domainQuality.DictionaryEntry, 0, len(ds.Table.Columns))

	for _, col := range ds.Table.Columns {
		entry := domainQuality.DictionaryEntry{
			Column: col,
			Type:   ds.Types[col],
		}

		seen := make(map[string]bool)
		for _, row := range ds.Table.Rows {
			v := row.Value(col)
			if v.IsMissing() {
				continue
			}
			entry.NonMissing++

			canonical := v.String()
			if !seen[canonical] {
				seen[canonical] = true
				if len(entry.SampleValues) < maxDictionarySamples {
					entry.SampleValues = append(entry.SampleValues, canonical)
				}
			}
		}
		entry.UniqueCount = len(seen)

		if n := ds.Table.RowCount(); n > 0 {
			entry.MissingPct = float64(n-entry.NonMissing) / float64(n) * 100
		}

		if ds.Types[col] == dataset.TypeContinuous {
			if values := ds.Table.NumericColumn(col); len(values) > 0 {
				min, max := values[0], values[0]
				for _, v := range values[1:] {
					if v < min {
						min = v
					}
					if v > max {
						max = v
					}
				}
				entry.Min = &min
				entry.Max = &max
			}
		}

		entries = append(entries, entry)
	}
	return entries
}
