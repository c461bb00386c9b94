// Package extract holds the extraction stages that turn raw document text
// into sparse field maps: fixed regex rules, a technology vocabulary scan,
// an injected entity-recognition model, and an LLM terminology resolver.
// Each stage is independent; absence of a field means "not found", never
// an error.
package extract

// Field is a single extracted value with its confidence in [0, 1].
type Field struct {
	Value      string
	Confidence float64
}

// Fields maps canonical field names to extracted values.
type Fields map[string]Field

// Merge returns the union of a and b; values from b win on collision.
func Merge(a, b Fields) Fields {
	out := make(Fields, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
