package rangetable

import (
	"math"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/floats"
)

var launcherEntries = []Entry{
	{0, 0}, {12, 800}, {18, 1000}, {24, 1150}, {30, 1250},
	{36, 1350}, {42, 1450}, {48, 1550}, {60, 1650},
}

func TestLookup(t *testing.T) {
	table, err := New(launcherEntries, 0)
	test.That(t, err, test.ShouldBeNil)

	for _, tc := range []struct {
		distance, want float64
	}{
		{24, 1150},
		{0, 0},
		{-5, 0},
		{0.1, 800},
		{12, 800},
		{12.0001, 1000},
		{59.9, 1650},
		{60, 1650},
		{60.5, 0},
		{1e9, 0},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{math.Inf(-1), 0},
	} {
		test.That(t, table.Lookup(tc.distance), test.ShouldEqual, tc.want)
	}
	test.That(t, table.MaxDistance(), test.ShouldEqual, 60.0)
	test.That(t, table.Fallback(), test.ShouldEqual, 0.0)
	test.That(t, table.Entries(), test.ShouldResemble, launcherEntries)
}

func TestLookupIsMonotoneForAscendingValues(t *testing.T) {
	table, err := New(launcherEntries, 1650)
	test.That(t, err, test.ShouldBeNil)
	var got []float64
	for d := 0.0; d <= 80; d += 0.5 {
		got = append(got, table.Lookup(d))
	}
	for i := 1; i < len(got); i++ {
		test.That(t, got[i], test.ShouldBeGreaterThanOrEqualTo, got[i-1])
	}
	test.That(t, floats.Max(got), test.ShouldEqual, 1650.0)
}

func TestNewErrors(t *testing.T) {
	_, err := New(nil, 0)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = New([]Entry{{12, 1}, {12, 2}}, 0)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "strictly ascending")

	_, err = New([]Entry{{12, 1}, {18, math.NaN()}}, 0)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "finite")

	_, err = New([]Entry{{12, 1}}, math.Inf(1))
	test.That(t, err, test.ShouldNotBeNil)

	// every problem is reported at once
	_, err = New([]Entry{{30, 1}, {20, 2}, {10, 3}}, 0)
	test.That(t, err.Error(), test.ShouldContainSubstring, "entry 1 (20) follows 30")
	test.That(t, err.Error(), test.ShouldContainSubstring, "entry 2 (10) follows 20")
}

func TestConfig(t *testing.T) {
	hood := 0.9
	cfg := Config{
		Entries:  []Entry{{0, 0}, {12, 0.1}, {60, 0.85}},
		Fallback: &hood,
	}
	test.That(t, cfg.Validate("hood"), test.ShouldBeNil)
	table, err := cfg.Build()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, table.Lookup(100), test.ShouldEqual, 0.9)

	cfg.Fallback = nil
	table, err = cfg.Build()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, table.Lookup(100), test.ShouldEqual, 0.0)

	bad := Config{Entries: []Entry{{10, 1}, {5, 1}}}
	err = bad.Validate("launcher.range_table")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldStartWith, "launcher.range_table")
}
