package sweep

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/optses/core/model"
)

// Grid describes a cartesian product of parameter values over a base bundle.
// Axis keys are dotted paths into the bundle ("opt_params.max_fec").
type Grid struct {
	// Name is a template whose {key} placeholders are replaced by the axis
	// values. Empty means "key=value" pairs joined by spaces.
	Name string           `json:"name" yaml:"name"`
	Base map[string]any   `json:"base" yaml:"base"`
	Axes map[string][]any `json:"axes" yaml:"axes"`
}

// File is the on-disk scenario definition.
type File struct {
	Scenarios map[string]map[string]any `yaml:"scenarios"`
	Grid      *Grid                     `yaml:"grid"`
}

// Expand returns one scenario per combination of axis values, ordered by
// axis key then value position.
func (g Grid) Expand() ([]model.Scenario, error) {
	if len(g.Axes) == 0 {
		return nil, fmt.Errorf("grid without axes")
	}
	keys := make([]string, 0, len(g.Axes))
	for k, vals := range g.Axes {
		if len(vals) == 0 {
			return nil, fmt.Errorf("axis %q has no values", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []model.Scenario
	combo := make([]any, len(keys))
	var walk func(i int) error
	walk = func(i int) error {
		if i == len(keys) {
			p := deepCopy(g.Base)
			for j, k := range keys {
				if err := setPath(p, k, combo[j]); err != nil {
					return err
				}
			}
			out = append(out, model.Scenario{Name: g.name(keys, combo), Params: model.Params(p)})
			return nil
		}
		for _, v := range g.Axes[keys[i]] {
			combo[i] = v
			if err := walk(i + 1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(0); err != nil {
		return nil, err
	}
	return out, nil
}

func (g Grid) name(keys []string, vals []any) string {
	if g.Name == "" {
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%v", k[strings.LastIndex(k, ".")+1:], vals[i])
		}
		return strings.Join(parts, " ")
	}
	pairs := make([]string, 0, 2*len(keys))
	for i, k := range keys {
		pairs = append(pairs, "{"+k+"}", fmt.Sprint(vals[i]))
	}
	return strings.NewReplacer(pairs...).Replace(g.Name)
}

// setPath assigns v at a dotted path, creating intermediate maps.
func setPath(m map[string]any, path string, v any) error {
	parts := strings.Split(path, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p]
		if !ok {
			child := map[string]any{}
			m[p] = child
			m = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: %q is not a mapping", path, p)
		}
		m = child
	}
	m[parts[len(parts)-1]] = v
	return nil
}

func deepCopy(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if child, ok := v.(map[string]any); ok {
			out[k] = deepCopy(child)
			continue
		}
		out[k] = v
	}
	return out
}

// Collect merges explicit scenarios with the expanded grid, sorted by name.
// Names must be unique across both.
func (f File) Collect() ([]model.Scenario, error) {
	all := model.Scenarios{}
	for name, p := range f.Scenarios {
		all[name] = model.Params(p)
	}
	if f.Grid != nil {
		expanded, err := f.Grid.Expand()
		if err != nil {
			return nil, err
		}
		for _, sc := range expanded {
			if _, dup := all[sc.Name]; dup {
				return nil, fmt.Errorf("duplicate scenario %q", sc.Name)
			}
			all[sc.Name] = sc.Params
		}
	}
	return all.Sorted(), nil
}

// LoadScenarios reads a YAML scenario file.
func LoadScenarios(path string) ([]model.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return f.Collect()
}
