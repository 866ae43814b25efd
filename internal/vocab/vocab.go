// Package vocab holds the closed vocabularies the models were trained on and
// validates incoming categorical values against them. Validation always runs
// before any model is invoked; models never see unvalidated input.
package vocab

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// Field names of the categorical request inputs. These match the training
// dataset column names, spaces included.
const (
	FieldRegion   = "Region"
	FieldSoilType = "Soil Type"
	FieldCropName = "Crop Name"
)

// MissingFieldError reports required fields absent or empty in a request.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s required", joinFields(e.Fields))
}

// joinFields renders a field list the way the API reports it:
// "Region is", "Region and Soil Type are",
// "Region, Soil Type, and Crop Name are".
func joinFields(fields []string) string {
	switch len(fields) {
	case 0:
		return "fields are"
	case 1:
		return fields[0] + " is"
	case 2:
		return fields[0] + " and " + fields[1] + " are"
	default:
		return strings.Join(fields[:len(fields)-1], ", ") + ", and " + fields[len(fields)-1] + " are"
	}
}

// InvalidValueError reports a value outside a field's closed vocabulary.
type InvalidValueError struct {
	Field string
	Value string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("Invalid %s: %s", e.Field, e.Value)
}

// Vocabulary maps each categorical field to its ordered set of allowed
// values, fixed at training time. Immutable once loaded.
type Vocabulary struct {
	values map[string][]string
	sets   map[string]map[string]struct{}
}

// New builds a Vocabulary from a field→values record.
func New(values map[string][]string) *Vocabulary {
	v := &Vocabulary{
		values: make(map[string][]string, len(values)),
		sets:   make(map[string]map[string]struct{}, len(values)),
	}
	for field, vals := range values {
		ordered := make([]string, len(vals))
		copy(ordered, vals)
		v.values[field] = ordered

		set := make(map[string]struct{}, len(vals))
		for _, val := range vals {
			set[val] = struct{}{}
		}
		v.sets[field] = set
	}
	return v
}

// Load reads a vocabulary record from a JSON file.
func Load(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read vocabulary: %w", err)
	}

	var values map[string][]string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("could not parse vocabulary: %w", err)
	}

	return New(values), nil
}

// Values returns the allowed values for a field, in vocabulary order.
func (v *Vocabulary) Values(field string) []string {
	return v.values[field]
}

// Fields returns the vocabulary's field names, sorted.
func (v *Vocabulary) Fields() []string {
	fields := make([]string, 0, len(v.values))
	for field := range v.values {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Contains reports whether value is in field's vocabulary.
func (v *Vocabulary) Contains(field, value string) bool {
	_, ok := v.sets[field][value]
	return ok
}

// Record returns the full field→values mapping for serving to clients.
func (v *Vocabulary) Record() map[string][]string {
	return v.values
}

// RequireFields checks that every named field has a non-empty value and
// fails fast with one error naming all missing fields.
func RequireFields(present map[string]string, fields ...string) error {
	var missing []string
	for _, field := range fields {
		if present[field] == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return &MissingFieldError{Fields: missing}
	}
	return nil
}

// Validate checks each given field's value against its vocabulary, in the
// order provided, failing with the first offending field. Required-fields
// checks are assumed to have already passed.
func (v *Vocabulary) Validate(values map[string]string, fields ...string) error {
	for _, field := range fields {
		if !v.Contains(field, values[field]) {
			return &InvalidValueError{Field: field, Value: values[field]}
		}
	}
	return nil
}
