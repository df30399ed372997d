package model

import (
	"math"
	"testing"
)

func TestTimestampAddSaturates(t *testing.T) {
	ts := Timestamp(math.MaxInt64 - 5)
	if got := ts.Add(100); got != Timestamp(math.MaxInt64) {
		t.Fatalf("positive overflow should saturate, got %d", got)
	}

	ts = TimestampMin
	if got := ts.Add(-10); got != TimestampMin {
		t.Fatalf("negative overflow should saturate, got %d", got)
	}

	if got := Timestamp(1_000).Add(50); got != 1_050 {
		t.Fatalf("plain add mismatch: got %d", got)
	}
}

func TestPriceSentinel(t *testing.T) {
	p := InvalidPrice()
	if !IsInvalidPrice(p) {
		t.Fatal("sentinel should report invalid")
	}
	if IsInvalidPrice(1.07105) {
		t.Fatal("regular price reported invalid")
	}
	if !PriceEqual(1.07105, 1.07105+1e-12) {
		t.Fatal("prices within epsilon should compare equal")
	}
	if PriceEqual(1.07105, 1.07106) {
		t.Fatal("prices beyond epsilon should differ")
	}
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want Duration
	}{
		{"", 0},
		{"0", 0},
		{"1ns", 1},
		{"50us", 50_000},
		{"50micros", 50_000},
		{"10ms", 10_000_000},
		{"10millis", 10_000_000},
		{"2s", 2_000_000_000},
		{"2sec", 2_000_000_000},
	}
	for _, c := range cases {
		got, err := ParseDuration(c.in)
		if err != nil {
			t.Fatalf("parse %q: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("parse %q: got %d want %d", c.in, got, c.want)
		}
	}

	for _, bad := range []string{"10", "ms", "10parsec", "x10ms"} {
		if _, err := ParseDuration(bad); err == nil {
			t.Fatalf("parse %q should fail", bad)
		}
	}
}

func TestAppendScaledInt(t *testing.T) {
	cases := []struct {
		value int64
		scale int
		want  string
	}{
		{107105, 5, "1.07105"},
		{107105, 0, "107105"},
		{42, 5, "0.00042"},
		{-107105, 5, "-1.07105"},
		{100000, 5, "1.00000"},
	}
	for _, c := range cases {
		got := string(AppendScaledInt(nil, c.value, c.scale))
		if got != c.want {
			t.Fatalf("append %d scale %d: got %s want %s", c.value, c.scale, got, c.want)
		}
	}
}
