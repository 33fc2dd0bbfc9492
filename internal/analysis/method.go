package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMethod is returned when a method id is not recognised.
var ErrUnknownMethod = errors.New("unknown analysis method")

// Method identifies one analysis.
type Method string

const (
	MethodFrequency Method = "frequency"
	MethodEntropy   Method = "entropy"
	MethodSentiment Method = "sentiment"
	MethodPOS       Method = "pos"
)

// AllMethods lists every method in display order.
var AllMethods = []Method{MethodFrequency, MethodEntropy, MethodSentiment, MethodPOS}

var methodLabels = map[Method]string{
	MethodFrequency: "Word Frequency",
	MethodEntropy:   "Entropy Analysis",
	MethodSentiment: "Sentiment Analysis",
	MethodPOS:       "POS Tagging",
}

// Label is the human readable name of m.
func (m Method) Label() string {
	if l, ok := methodLabels[m]; ok {
		return l
	}
	return string(m)
}

// Placeholder reports whether m yields random stand-in values.
func (m Method) Placeholder() bool {
	return m == MethodSentiment || m == MethodPOS
}

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	_, ok := methodLabels[m]
	return ok
}

// ParseMethod accepts an id case-insensitively. A few aliases are tolerated.
func ParseMethod(s string) (Method, error) {
	id := strings.ToLower(strings.TrimSpace(s))
	switch id {
	case "freq", "word_frequency", "words":
		return MethodFrequency, nil
	case "pos_tagging", "tags":
		return MethodPOS, nil
	}
	m := Method(id)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
	return m, nil
}

// MethodInfo describes a method for catalogues.
type MethodInfo struct {
	ID          Method `json:"id"`
	Label       string `json:"label"`
	Placeholder bool   `json:"placeholder"`
}

// Catalogue returns every method with its label.
func Catalogue() []MethodInfo {
	out := make([]MethodInfo, 0, len(AllMethods))
	for _, m := range AllMethods {
		out = append(out, MethodInfo{ID: m, Label: m.Label(), Placeholder: m.Placeholder()})
	}
	return out
}

// MethodSet is a set of methods. The zero value is empty and usable.
type MethodSet uint8

func (m Method) bit() MethodSet {
	for i, known := range AllMethods {
		if known == m {
			return 1 << i
		}
	}
	return 0
}

// NewMethodSet builds a set from methods, ignoring unknown values.
func NewMethodSet(methods ...Method) MethodSet {
	var s MethodSet
	for _, m := range methods {
		s |= m.bit()
	}
	return s
}

// ParseMethods parses ids such as []string{"frequency", "pos"}. Each entry
// may itself be a comma separated list. Blank entries are skipped.
func ParseMethods(ids []string) (MethodSet, error) {
	var s MethodSet
	for _, raw := range ids {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			m, err := ParseMethod(part)
			if err != nil {
				return 0, err
			}
			s = s.With(m)
		}
	}
	return s, nil
}

// Has reports whether m is in the set.
func (s MethodSet) Has(m Method) bool {
	b := m.bit()
	return b != 0 && s&b != 0
}

// With returns the set including m.
func (s MethodSet) With(m Method) MethodSet { return s | m.bit() }

// Without returns the set excluding m.
func (s MethodSet) Without(m Method) MethodSet { return s &^ m.bit() }

// Toggle flips membership of m.
func (s MethodSet) Toggle(m Method) MethodSet { return s ^ m.bit() }

// Empty reports whether no method is selected.
func (s MethodSet) Empty() bool { return s == 0 }

// Len returns the number of selected methods.
func (s MethodSet) Len() int {
	n := 0
	for _, m := range AllMethods {
		if s.Has(m) {
			n++
		}
	}
	return n
}

// Methods returns the members in display order.
func (s MethodSet) Methods() []Method {
	out := make([]Method, 0, len(AllMethods))
	for _, m := range AllMethods {
		if s.Has(m) {
			out = append(out, m)
		}
	}
	return out
}

// IDs returns the member ids in display order.
func (s MethodSet) IDs() []string {
	methods := s.Methods()
	out := make([]string, len(methods))
	for i, m := range methods {
		out[i] = string(m)
	}
	return out
}

func (s MethodSet) String() string {
	return strings.Join(s.IDs(), ",")
}

// MarshalJSON encodes the set as an ordered list of ids.
func (s MethodSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

// UnmarshalJSON decodes a list of ids.
func (s *MethodSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	parsed, err := ParseMethods(ids)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
