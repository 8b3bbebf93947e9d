package results

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/optses/core/model"
)

func sampleTable(t *testing.T) *model.Table {
	t.Helper()
	tbl := model.NewTable("price", "soc")
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, tbl.Append(start, 42.5, 0.5))
	require.NoError(t, tbl.Append(start.Add(15*time.Minute), -3, 0.51125))
	return tbl
}

func TestCSVStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewCSVStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), "2021 LP fec=1", sampleTable(t)))

	path := filepath.Join(dir, "2021%20LP%20fec=1.csv")
	assert.Equal(t, path, s.Path("2021 LP fec=1"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "time,price,soc\n2021-01-01T00:00:00Z,42.5,0.5\n2021-01-01T00:15:00Z,-3,0.51125\n", string(data))

	back, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, sampleTable(t).Row(1), back.Row(1))
	assert.Equal(t, 2, back.Len())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files left behind")
}

func TestReadCSVInvalid(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"header": "price,soc\n",
		"time":   "time,soc\nnow,1\n",
		"value":  "time,soc\n2021-01-01T00:00:00Z,x\n",
	} {
		path := filepath.Join(dir, name+".csv")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		_, err := ReadCSV(path)
		assert.Error(t, err, name)
	}
	_, err := ReadCSV(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestFileStoresKeepSimilarNames(t *testing.T) {
	names := []string{"2021 LP", "2021_LP", "2021/LP"}
	for format, open := range map[string]func(dir string) (Store, error){
		"csv":   func(dir string) (Store, error) { return NewCSVStore(dir) },
		"jsonl": func(dir string) (Store, error) { return NewJSONLStore(dir) },
	} {
		dir := t.TempDir()
		s, err := open(dir)
		require.NoError(t, err)
		for _, n := range names {
			require.NoError(t, s.Save(context.Background(), n, sampleTable(t)), format)
		}
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, len(names), format)
	}
}

func TestJSONLStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONLStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), "A", sampleTable(t)))

	f, err := os.Open(filepath.Join(dir, "A.jsonl"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	var rows []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		rows = append(rows, r)
	}
	require.Len(t, rows, 2)
	assert.Equal(t, "2021-01-01T00:15:00Z", rows[1]["time"])
	assert.Equal(t, 0.51125, rows[1]["soc"])
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	tbl := sampleTable(t)
	var wg sync.WaitGroup
	for _, name := range []string{"A", "B", "C"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			assert.NoError(t, s.Save(ctx, name, tbl))
		}(name)
	}
	wg.Wait()
	// saving again replaces the rows
	require.NoError(t, s.Save(ctx, "A", sampleTable(t)))

	names, err := s.Scenarios(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, names)

	tbl, err = s.Load(ctx, "A", "price", "soc")
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, []float64{-3, 0.51125}, tbl.Row(1))

	all, err := s.Load(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, sampleTable(t).Columns, all.Columns)

	_, err = s.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewByFormat(t *testing.T) {
	dir := t.TempDir()
	for _, format := range []string{"", "csv", "jsonl", "sqlite"} {
		s, err := New(Config{Format: format, Dir: filepath.Join(dir, "out")})
		require.NoError(t, err, format)
		require.NoError(t, s.Close())
	}
	_, err := New(Config{Format: "parquet", Dir: dir})
	assert.Error(t, err)
	assert.Equal(t, []string{"csv", "jsonl", "sqlite"}, Formats())
}

func TestSaveCancelled(t *testing.T) {
	s, err := NewCSVStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Save(ctx, "A", sampleTable(t)), context.Canceled)
	_, err = os.Stat(s.Path("A"))
	assert.True(t, os.IsNotExist(err))
}
