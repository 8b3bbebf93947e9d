package model

import (
	"sort"
	"strings"
)

// Params is the opaque parameter bundle of a scenario. The harness forwards
// it untouched to the simulation driver.
type Params map[string]any

// Scenario is one named, independent parameterisation of a simulation.
type Scenario struct {
	Name   string `json:"name" yaml:"name"`
	Params Params `json:"params" yaml:"params"`
}

// Scenarios maps unique scenario names to their parameters.
type Scenarios map[string]Params

// Sorted returns the scenarios ordered by name.
func (s Scenarios) Sorted() []Scenario {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]Scenario, len(names))
	for i, n := range names {
		out[i] = Scenario{Name: n, Params: s[n]}
	}
	return out
}

// FileName turns a scenario name into a safe artifact base name. Letters,
// digits and "-_.=" are kept; every other byte, and a leading dot, is written
// as %XX. Distinct non-empty names give distinct file names.
func FileName(name string) string {
	if name == "" {
		return "scenario"
	}
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '-', c == '_', c == '=', c == '.' && i > 0:
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0F])
		}
	}
	return b.String()
}
