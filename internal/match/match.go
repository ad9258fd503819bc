// Package match cross-references query phrase values against a reference index.
package match

import "github.com/ppiankov/decode/internal/model"

// Match returns one record per (query phrase, calculator, reference phrase)
// whose values are exactly equal under the same calculator.
//
// Output order is stable: query phrases as given, then the index's calculator
// order, then reference phrases in bucket order. Consumers truncate with Top,
// so this order is part of the contract.
//
// Phrases without letters are worth 0 and match reference phrases that are
// also worth 0.
func Match(values model.ValueMap, idx *Index) []model.MatchRecord {
	if idx == nil {
		return nil
	}

	var records []model.MatchRecord
	for _, pv := range values {
		for _, calc := range idx.calculators {
			v, ok := pv.Values[calc]
			if !ok {
				continue
			}
			for _, ref := range idx.bucket(calc, v) {
				records = append(records, model.MatchRecord{
					Phrase:     pv.Phrase,
					DBPhrase:   ref,
					Calculator: calc,
					Value:      v,
				})
			}
		}
	}
	return records
}

// Top returns at most n records from the front of the list
func Top(records []model.MatchRecord, n int) []model.MatchRecord {
	if n < 0 || len(records) <= n {
		return records
	}
	return records[:n]
}

// HasValue reports whether any record carries value v
func HasValue(records []model.MatchRecord, v int) bool {
	for _, r := range records {
		if r.Value == v {
			return true
		}
	}
	return false
}
