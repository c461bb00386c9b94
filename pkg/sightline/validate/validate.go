// Package validate applies per-field-kind validation to a merged record,
// producing a cleaned record plus a list of validation errors. A field
// failure drops that field, never the record.
package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sightline/sightline/pkg/sightline/schema"
)

var (
	capacityRe     = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*(kWh|kW|MWh|MW|GWh|GW)\s*$`)
	leadingFloatRe = regexp.MustCompile(`\d+(?:\.\d+)?`)
	nonNumericRe   = regexp.MustCompile(`[^\d.]`)
)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"1/2/2006",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2 2006",
}

// Validator checks merged records against the field schema.
type Validator struct {
	schema *schema.Schema
}

// New builds a validator for the given schema.
func New(s *schema.Schema) *Validator {
	return &Validator{schema: s}
}

// Validate returns the validated record and the collected error strings.
// Fields are visited in schema order, then unknown fields in sorted order,
// so error lists are stable. Re-validating a validated record yields the
// same record with no new errors.
func (v *Validator) Validate(record map[string]string) (map[string]string, []string) {
	validated := make(map[string]string, len(record))
	var errs []string

	for _, key := range v.recordKeys(record) {
		value := record[key]

		kind, known := v.schema.Kind(key)
		if !known {
			errs = append(errs, fmt.Sprintf("unknown field: %s", key))
			continue
		}

		lowerKey := strings.ToLower(key)
		switch {
		case kind == schema.KindDirect:
			if value != "" {
				validated[key] = value
			} else {
				errs = append(errs, fmt.Sprintf("empty value for %s", key))
			}

		case kind == schema.KindCategorical:
			vocab, ok := v.schema.Categories(key)
			if !ok {
				errs = append(errs, fmt.Sprintf("no categories defined for %s", key))
				break
			}
			if containsAnyCategory(value, vocab) {
				validated[key] = value
			} else {
				errs = append(errs, fmt.Sprintf("invalid category for %s: %s", key, value))
			}

		case strings.Contains(lowerKey, "date"):
			if normalized, ok := parseDate(value); ok {
				validated[key] = normalized
			} else {
				errs = append(errs, fmt.Sprintf("invalid date for %s: %s", key, value))
			}

		case strings.Contains(lowerKey, "capacity"):
			normalized, err := v.validateCapacity(key, value)
			if err != "" {
				errs = append(errs, err)
			} else {
				validated[key] = normalized
			}

		case strings.Contains(lowerKey, "cost"):
			if normalized, ok := parseCost(value); ok {
				validated[key] = normalized
			} else {
				errs = append(errs, fmt.Sprintf("invalid cost for %s: %s", key, value))
			}

		default:
			validated[key] = value
		}
	}

	if diag := v.checkCapacityConsistency(validated); diag != "" {
		errs = append(errs, diag)
	}

	return validated, errs
}

// recordKeys orders known fields by schema declaration, unknown fields
// alphabetically after them.
func (v *Validator) recordKeys(record map[string]string) []string {
	var keys []string
	for _, field := range v.schema.Fields() {
		if _, ok := record[field]; ok {
			keys = append(keys, field)
		}
	}
	var unknown []string
	for key := range record {
		if !v.schema.Has(key) {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return append(keys, unknown...)
}

// containsAnyCategory reports whether some canonical category appears in the
// value, case-insensitively. Canonicalized values trivially contain their
// own category, so validation is idempotent after the categorize step.
func containsAnyCategory(value string, vocab []string) bool {
	lower := strings.ToLower(value)
	for _, canonical := range vocab {
		if strings.Contains(lower, strings.ToLower(canonical)) {
			return true
		}
	}
	return false
}

func parseDate(value string) (string, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// validateCapacity parses "<number> <unit>" and checks the unit's
// dimensionality against the field name: a field declared in MWh needs an
// energy unit, a field declared in MW needs a power unit. The value is
// re-rendered in MW or MWh. Returns a non-empty error string on failure.
func (v *Validator) validateCapacity(key, value string) (string, string) {
	m := capacityRe.FindStringSubmatch(value)
	if m == nil {
		return "", fmt.Sprintf("invalid capacity for %s: %s", key, value)
	}
	magnitude, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return "", fmt.Sprintf("invalid capacity for %s: %s", key, value)
	}

	unit := strings.ToLower(m[2])
	isEnergy := strings.HasSuffix(unit, "h")
	switch {
	case strings.HasPrefix(unit, "g"):
		magnitude *= 1000
	case strings.HasPrefix(unit, "k"):
		magnitude /= 1000
	}

	lowerKey := strings.ToLower(key)
	wantEnergy := strings.Contains(lowerKey, "mwh")
	wantPower := !wantEnergy && strings.Contains(lowerKey, "mw")
	if (wantEnergy && !isEnergy) || (wantPower && isEnergy) {
		return "", fmt.Sprintf("invalid unit for %s: %s", key, value)
	}

	if isEnergy {
		return fmt.Sprintf("%.2f MWh", magnitude), ""
	}
	return fmt.Sprintf("%.2f MW", magnitude), ""
}

// parseCost strips currency symbols and the millions suffix, then re-renders
// as "$<amount>M".
func parseCost(value string) (string, bool) {
	clean := nonNumericRe.ReplaceAllString(strings.ReplaceAll(value, "M", ""), "")
	if clean == "" {
		return "", false
	}
	cost, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("$%.2fM", cost), true
}

const consistencyTolerance = 0.10

// checkCapacityConsistency flags records where power x duration strays from
// energy by more than 10%. Diagnostic only; no field is dropped.
func (v *Validator) checkCapacityConsistency(validated map[string]string) string {
	power, okP := leadingFloat(validated[schema.FieldPowerMW])
	duration, okD := leadingFloat(validated[schema.FieldDurationH])
	energy, okE := leadingFloat(validated[schema.FieldEnergyMWh])
	if !okP || !okD || !okE || energy == 0 {
		return ""
	}

	implied := power * duration
	deviation := (implied - energy) / energy
	if deviation < 0 {
		deviation = -deviation
	}
	if deviation <= consistencyTolerance {
		return ""
	}
	return fmt.Sprintf(
		"inconsistent capacity: %.2f MW x %.2f h = %.2f MWh deviates from reported %.2f MWh",
		power, duration, implied, energy,
	)
}

func leadingFloat(value string) (float64, bool) {
	m := leadingFloatRe.FindString(value)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
