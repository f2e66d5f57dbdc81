// Package transform splits lookup outcomes into a validated address set
// and a categorized error set. Validation problems surface as warnings;
// they never block the pipeline.
package transform

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaiqueMeireles/case-data-engineer/pkg/viacep"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Record is a validated, flattened address keyed by normalized CEP.
// Empty string is the absence marker; whitespace-only payload fields are
// normalized to it and persisted as NULL.
type Record struct {
	Cep          string
	Street       string
	Complement   string
	Unit         string
	Neighborhood string
	City         string
	StateCode    string
	StateName    string
	Region       string
	IBGE         string
	GIA          string
	AreaCode     string
	SIAFI        string
}

// Category classifies a failure for reporting.
type Category string

const (
	CategoryInvalidFormat Category = "invalid_format"
	CategoryNotFound      Category = "not_found"
	CategoryConnection    Category = "connection_error"
	CategoryOther         Category = "other"
)

// ErrorRecord is the reporting projection of a failed lookup.
type ErrorRecord struct {
	Cep       string
	Message   string
	Category  Category
	Timestamp time.Time
}

// Result is what a completed run always yields: both sets, either of
// which may be empty. Partial success is a normal outcome.
type Result struct {
	Validated []Record
	Errors    []ErrorRecord
	Warnings  []string
}

// Process partitions outcomes, flattens and deduplicates the successes,
// and projects the failures into categorized error records.
func Process(outcomes []viacep.Outcome) Result {
	logger := log.With().Str("component", "transform").Logger()
	now := time.Now()

	var res Result
	seen := make(map[string]int) // cep -> index into res.Validated
	duplicates := 0

	for _, out := range outcomes {
		if !out.Success() {
			res.Errors = append(res.Errors, ErrorRecord{
				Cep:       out.Key,
				Message:   out.Message,
				Category:  Classify(out.Message),
				Timestamp: now,
			})
			continue
		}

		rec := flatten(out.Key, out.Address)

		if first, dup := seen[rec.Cep]; dup {
			duplicates++
			if !sameFields(res.Validated[first], rec) {
				res.warn(&logger, fmt.Sprintf(
					"cep %s has inconsistent data across duplicate records; keeping first", rec.Cep))
			}
			continue
		}

		seen[rec.Cep] = len(res.Validated)
		res.Validated = append(res.Validated, rec)
	}

	if duplicates > 0 {
		res.warn(&logger, fmt.Sprintf("dropped %d duplicate cep record(s)", duplicates))
	}

	res.checkStructure(&logger)

	logger.Info().
		Int("validated", len(res.Validated)).
		Int("errors", len(res.Errors)).
		Int("warnings", len(res.Warnings)).
		Msg("Outcome processing complete")

	return res
}

// flatten maps a payload onto a Record. The payload's own cep field is
// dropped in favor of the canonical lookup key, and every field is
// whitespace-normalized.
func flatten(key string, addr *viacep.Address) Record {
	return Record{
		Cep:          key,
		Street:       normalize(addr.Street),
		Complement:   normalize(addr.Complement),
		Unit:         normalize(addr.Unit),
		Neighborhood: normalize(addr.Neighborhood),
		City:         normalize(addr.City),
		StateCode:    normalize(addr.StateCode),
		StateName:    normalize(addr.StateName),
		Region:       normalize(addr.Region),
		IBGE:         normalize(addr.IBGE),
		GIA:          normalize(addr.GIA),
		AreaCode:     normalize(addr.AreaCode),
		SIAFI:        normalize(addr.SIAFI),
	}
}

// normalize collapses empty and whitespace-only values to the absence
// marker.
func normalize(v string) string {
	return strings.TrimSpace(v)
}

// sameFields compares every non-key field of two records.
func sameFields(a, b Record) bool {
	a.Cep, b.Cep = "", ""
	return a == b
}

// checkStructure runs the non-blocking structural checks: a street must
// be present, and a state code must be exactly 2 characters when set.
func (r *Result) checkStructure(logger *zerolog.Logger) {
	missingStreet := 0
	badStateCode := 0

	for _, rec := range r.Validated {
		if rec.Street == "" {
			missingStreet++
		}
		if rec.StateCode != "" && len(rec.StateCode) != 2 {
			badStateCode++
		}
	}

	if missingStreet > 0 {
		r.warn(logger, fmt.Sprintf("%d record(s) with missing street", missingStreet))
	}
	if badStateCode > 0 {
		r.warn(logger, fmt.Sprintf("%d record(s) with invalid state code", badStateCode))
	}
}

func (r *Result) warn(logger *zerolog.Logger, msg string) {
	logger.Warn().Msg(msg)
	r.Warnings = append(r.Warnings, msg)
}

// Classify assigns an error category by case-insensitive substring match
// on the failure message, in priority order.
func Classify(message string) Category {
	m := strings.ToLower(message)
	switch {
	case strings.Contains(m, "invalid"):
		return CategoryInvalidFormat
	case strings.Contains(m, "not found"), strings.Contains(m, "inexistent"):
		return CategoryNotFound
	case strings.Contains(m, "connection"), strings.Contains(m, "http"):
		return CategoryConnection
	default:
		return CategoryOther
	}
}
