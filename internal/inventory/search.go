package inventory

import (
	"strings"

	"github.com/erazemk/opname/internal/model"
)

// Search returns the records whose item name, brand, category or location
// contains query, ignoring case. A blank query returns every record.
func Search(query string, records []model.Record) []model.Record {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return clone(records)
	}

	out := []model.Record{}
	for _, rec := range records {
		for _, field := range []string{rec.ItemName, rec.Brand, rec.Category, rec.Location} {
			if strings.Contains(strings.ToLower(field), q) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

// Summary counts records overall, by condition and by category.
type Summary struct {
	Total       int                     `json:"total"`
	ByCondition map[model.Condition]int `json:"byCondition"`
	ByCategory  map[string]int          `json:"byCategory"`
}

// Summarize counts records. Every known condition is present, with zero
// when no record has it.
func Summarize(records []model.Record) Summary {
	s := Summary{
		Total:       len(records),
		ByCondition: make(map[model.Condition]int, len(model.Conditions)),
		ByCategory:  map[string]int{},
	}
	for _, c := range model.Conditions {
		s.ByCondition[c] = 0
	}
	for _, rec := range records {
		s.ByCondition[rec.Condition]++
		s.ByCategory[rec.Category]++
	}
	return s
}
