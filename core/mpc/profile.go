package mpc

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrProfileTooShort is returned when the profile does not cover the run.
var ErrProfileTooShort = errors.New("price profile too short")

// Profile is a step-wise constant price series.
type Profile struct {
	Times  []time.Time
	Prices []float64
}

// LoadProfile reads a CSV file with a time column and a price column.
func LoadProfile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadProfile(f)
}

// ReadProfile parses a CSV price profile. The header must contain a "time"
// (or "timestamp") column and a "price" column. Times are RFC3339.
func ReadProfile(r io.Reader) (*Profile, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	ti, pi := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "time", "timestamp":
			ti = i
		case "price":
			pi = i
		}
	}
	if ti < 0 || pi < 0 {
		return nil, fmt.Errorf("profile header %v needs time and price columns", header)
	}

	p := &Profile{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(rec[ti]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(rec[pi]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if n := len(p.Times); n > 0 && !ts.After(p.Times[n-1]) {
			return nil, fmt.Errorf("line %d: time %s not increasing", line, ts)
		}
		p.Times = append(p.Times, ts)
		p.Prices = append(p.Prices, price)
	}
	if len(p.Times) == 0 {
		return nil, errors.New("empty price profile")
	}
	return p, nil
}

// Start returns the first timestamp.
func (p *Profile) Start() time.Time { return p.Times[0] }

// End returns the last timestamp.
func (p *Profile) End() time.Time { return p.Times[len(p.Times)-1] }

// At returns the price in effect at ts, holding the last known value.
func (p *Profile) At(ts time.Time) (float64, error) {
	if ts.Before(p.Times[0]) {
		return 0, fmt.Errorf("%w: %s before %s", ErrProfileTooShort, ts, p.Times[0])
	}
	i := sort.Search(len(p.Times), func(i int) bool { return p.Times[i].After(ts) })
	return p.Prices[i-1], nil
}

// WriteProfile encodes p in the format read by ReadProfile.
func WriteProfile(out io.Writer, p *Profile) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"time", "price"}); err != nil {
		return err
	}
	for i, ts := range p.Times {
		if err := w.Write([]string{ts.Format(time.RFC3339), strconv.FormatFloat(p.Prices[i], 'g', -1, 64)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ProfileCache shares parsed profiles between concurrent runs. Profiles are
// never modified after loading. Failed loads are not cached.
type ProfileCache struct {
	load  func(path string) (*Profile, error)
	group singleflight.Group
	mu    sync.RWMutex
	byKey map[string]*Profile
}

// NewProfileCache wraps load, which defaults to LoadProfile.
func NewProfileCache(load func(path string) (*Profile, error)) *ProfileCache {
	if load == nil {
		load = LoadProfile
	}
	return &ProfileCache{load: load, byKey: map[string]*Profile{}}
}

// Load returns the cached profile of path, loading it once.
func (c *ProfileCache) Load(path string) (*Profile, error) {
	c.mu.RLock()
	p, ok := c.byKey[path]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}
	v, err, _ := c.group.Do(path, func() (any, error) {
		c.mu.RLock()
		p, ok := c.byKey[path]
		c.mu.RUnlock()
		if ok {
			return p, nil
		}
		p, err := c.load(path)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.byKey[path] = p
		c.mu.Unlock()
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Profile), nil
}
