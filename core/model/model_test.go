package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableAppend(t *testing.T) {
	tbl := NewTable("price", "soc")
	now := time.Unix(0, 0).UTC()
	require.NoError(t, tbl.Append(now, 42, 0.5))
	require.NoError(t, tbl.Append(now.Add(time.Hour), 40, 0.6))
	assert.Error(t, tbl.Append(now, 1))

	assert.Equal(t, 2, tbl.Len())
	soc, ok := tbl.Column("soc")
	require.True(t, ok)
	assert.Equal(t, []float64{0.5, 0.6}, soc)
	assert.Equal(t, []float64{40, 0.6}, tbl.Row(1))
	_, ok = tbl.Column("missing")
	assert.False(t, ok)
}

func TestScenariosSorted(t *testing.T) {
	s := Scenarios{"b": {"x": 1}, "a": {"x": 2}, "c": nil}
	out := s.Sorted()
	require.Len(t, out, 3)
	assert.Equal(t, "a", out[0].Name)
	assert.Equal(t, 2, out[0].Params["x"])
	assert.Equal(t, "c", out[2].Name)
}

func TestFileName(t *testing.T) {
	cases := map[string]string{
		"2021 LP fec=1.0 r=2.0": "2021%20LP%20fec=1.0%20r=2.0",
		"../etc/passwd":         "%2E.%2Fetc%2Fpasswd",
		"":                      "scenario",
		"plain-name_1":          "plain-name_1",
		"100%":                  "100%25",
		"été":                   "%C3%A9t%C3%A9",
	}
	for in, want := range cases {
		assert.Equal(t, want, FileName(in), in)
	}
}

func TestFileNameDistinct(t *testing.T) {
	names := []string{"2021 LP", "2021_LP", "2021/LP", "2021%20LP", ".hidden", "hidden", "a..b", "a._b"}
	seen := make(map[string]string)
	for _, n := range names {
		f := FileName(n)
		prev, dup := seen[f]
		assert.False(t, dup, "%q and %q both map to %q", prev, n, f)
		seen[f] = n
	}
}
