package decimal

import "testing"

func TestAdd(t *testing.T) {
	cases := []struct {
		name     string
		a, b     Num
		expected Num
	}{
		{"1 + 1", New(1, 0), New(1, 0), New(2, 0)},
		{"10 + 1", New(1, 1), New(1, 0), New(11, 0)},
		{"1.2 + 3.4", New(12, -1), New(34, -1), New(46, -1)},
		{"0 + 0", Zero, Zero, Zero},
		{"1e100 + 1e99", New(1, 100), New(1, 99), New(11, 99)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.a.Add(c.b); !got.Eq(c.expected) {
				t.Errorf("expected %s, got %s", c.expected, got)
			}
		})
	}
}

func TestSub(t *testing.T) {
	cases := []struct {
		name     string
		a, b     Num
		expected Num
	}{
		{"1 - 2", New(1, 0), New(2, 0), New(-1, 0)},
		{"1e100 - 1e99", New(1, 100), New(1, 99), New(9, 99)},
		{"subtraction to zero", New(1, 0), New(1, 0), Zero},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.a.Sub(c.b); !got.Eq(c.expected) {
				t.Errorf("expected %s, got %s", c.expected, got)
			}
		})
	}
}

func TestMul(t *testing.T) {
	cases := []struct {
		name     string
		a, b     Num
		expected Num
	}{
		{"2 * 3", New(2, 0), New(3, 0), New(6, 0)},
		{"multiply by zero", New(1234, -2), Zero, Zero},
		{"negative * positive", New(-5, 0), New(2, 0), New(-10, 0)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.a.Mul(c.b); !got.Eq(c.expected) {
				t.Errorf("expected %s, got %s", c.expected, got)
			}
		})
	}
}

func TestDiv(t *testing.T) {
	cases := []struct {
		name     string
		a, b     Num
		expected Num
	}{
		{"6 / 3", New(6, 0), New(3, 0), New(2, 0)},
		{"division by itself", New(123, -1), New(123, -1), New(1, 0)},
		{"non-terminating, rounds to precision", New(1, 0), New(3, 0), FromMustParse("0.33333333333333")},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.a.Div(c.b); !got.Eq(c.expected) {
				t.Errorf("expected %s, got %s", c.expected, got)
			}
		})
	}
}

func TestDivByZeroReturnsNaN(t *testing.T) {
	got := New(1, 0).Div(Zero)
	if !got.isNaN() {
		t.Errorf("expected NaN, got %s", got)
	}
}

func TestMod(t *testing.T) {
	cases := []struct {
		name     string
		a, b     Num
		expected Num
	}{
		{"7 mod 3", New(7, 0), New(3, 0), New(1, 0)},
		{"6 mod 3", New(6, 0), New(3, 0), Zero},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.a.Mod(c.b); !got.Eq(c.expected) {
				t.Errorf("expected %s, got %s", c.expected, got)
			}
		})
	}
}

func TestCmpAndOrdering(t *testing.T) {
	a, b := New(1, 0), New(1, 1)
	if a.Cmp(b) != -1 {
		t.Errorf("expected 1 < 10")
	}
	if !a.Lt(b) || a.Ge(b) {
		t.Errorf("expected Lt true, Ge false for 1 vs 10")
	}
	if !b.Gt(a) || b.Le(a) {
		t.Errorf("expected Gt true, Le false for 10 vs 1")
	}
}

func TestFromStringRoundTrips(t *testing.T) {
	cases := []string{"0", "1", "-1", "123.456", "-0.001", "-9.9e-9", "42.0", "1e3"}
	for _, s := range cases {
		t.Run(s, func(t *testing.T) {
			d, err := FromString(s)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}
			reparsed, err := FromString(d.String())
			if err != nil {
				t.Fatalf("reparse error: %v", err)
			}
			if !d.Eq(reparsed) {
				t.Errorf("expected %s, got %s", d, reparsed)
			}
		})
	}
}

func TestFromStringRejectsEmptyAndInvalid(t *testing.T) {
	for _, s := range []string{"", "invalid", "9e999"} {
		if _, err := FromString(s); err == nil {
			t.Errorf("expected error parsing %q", s)
		}
	}
}

func TestFromInt64ScalesOversizedCoefficients(t *testing.T) {
	// A Unix nanosecond timestamp overflows the 56-bit coefficient domain
	// and must scale down rather than wrap or panic.
	got := FromInt64(1732999999999999999)
	if got.ToInt64() == 0 {
		t.Fatalf("expected a nonzero scaled value, got %s", got)
	}
}

func TestIsZero(t *testing.T) {
	if !Zero.IsZero() {
		t.Errorf("expected Zero.IsZero()")
	}
	if New(1, 0).IsZero() {
		t.Errorf("expected New(1, 0) to not be zero")
	}
}

func TestToInt64TruncatesFraction(t *testing.T) {
	got := New(12345, -2).ToInt64() // 123.45
	if got != 123 {
		t.Errorf("expected 123, got %d", got)
	}
}

func TestString(t *testing.T) {
	cases := []struct {
		in       Num
		expected string
	}{
		{Zero, "0"},
		{New(123, -2), "1.23"},
		{New(-12345, -3), "-12.345"},
		{New(1, 10), "10000000000"},
		{New(-1, -10), "-0.0000000001"},
	}
	for _, c := range cases {
		t.Run(c.expected, func(t *testing.T) {
			if got := c.in.String(); got != c.expected {
				t.Errorf("expected %s, got %s", c.expected, got)
			}
		})
	}
}

// FromMustParse is a test helper: it parses a literal known at compile time
// to be valid, panicking on the malformed-input path the caller has ruled
// out, so table-driven cases can express expected values as plain strings.
func FromMustParse(s string) Num {
	n, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return n
}
