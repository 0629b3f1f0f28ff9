package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"1e5", 0, false},
		{"2.5E2", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseNonNegativeCentsAcceptsZero(t *testing.T) {
	got, err := ParseNonNegativeCents("0")
	if err != nil || got != 0 {
		t.Fatalf("expected 0, got %d (err=%v)", got, err)
	}
	if _, err := ParseNonNegativeCents("-0.01"); err == nil {
		t.Fatalf("expected error for negative discount")
	}
	if _, err := ParseNonNegativeCents("1e2"); err == nil {
		t.Fatalf("expected error for exponent notation")
	}
}

func TestSplitCentsExample(t *testing.T) {
	for i := 0; i < 3; i++ {
		got, err := SplitCents(1000, 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []int64{334, 333, 333}
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("run %d: expected %v, got %v", i, want, got)
			}
		}
	}
}

func TestSplitCentsProperties(t *testing.T) {
	totals := []int64{0, 1, 2, 7, 99, 100, 1000, 1001, 123456, 999999}
	for _, total := range totals {
		for n := 1; n <= 24; n++ {
			parts, err := SplitCents(total, n)
			if err != nil {
				t.Fatalf("split(%d,%d): %v", total, n, err)
			}
			if len(parts) != n {
				t.Fatalf("split(%d,%d) returned %d parts", total, n, len(parts))
			}
			var sum, lo, hi int64
			lo, hi = parts[0], parts[0]
			for i, p := range parts {
				if p < 0 {
					t.Fatalf("split(%d,%d) negative part %d", total, n, p)
				}
				if i > 0 && p > parts[i-1] {
					t.Fatalf("split(%d,%d) extra cent not front-loaded: %v", total, n, parts)
				}
				sum += p
				lo = min(lo, p)
				hi = max(hi, p)
			}
			if sum != total {
				t.Fatalf("split(%d,%d) sums to %d", total, n, sum)
			}
			if hi-lo > 1 {
				t.Fatalf("split(%d,%d) spread %d", total, n, hi-lo)
			}
		}
	}
}

func TestSplitCentsRejectsBadInput(t *testing.T) {
	if _, err := SplitCents(-1, 2); err == nil {
		t.Fatalf("expected error for negative total")
	}
	if _, err := SplitCents(100, 0); err == nil {
		t.Fatalf("expected error for n=0")
	}
	if _, err := SplitCents(100, MaxSplitParts+1); err == nil {
		t.Fatalf("expected error above MaxSplitParts")
	}
	if _, err := SplitCents(100, 1<<40); err == nil {
		t.Fatalf("expected error for huge n")
	}
}

func TestFormatSigned(t *testing.T) {
	cases := []struct {
		cents int64
		sign  int
		want  string
	}{
		{334, -1, "-3.34"},
		{334, 1, "3.34"},
		{0, -1, "0.00"},
		{0, 1, "0.00"},
		{5, -1, "-0.05"},
		{27000, -1, "-270.00"},
	}
	for _, tc := range cases {
		if got := FormatSigned(tc.cents, tc.sign); got != tc.want {
			t.Fatalf("FormatSigned(%d,%d) = %q, want %q", tc.cents, tc.sign, got, tc.want)
		}
	}
}

func TestSigned(t *testing.T) {
	if got := Signed(Expense, 250); got.Cents != -250 {
		t.Fatalf("expected -250, got %d", got.Cents)
	}
	if got := Signed(Income, 250); got.Cents != 250 {
		t.Fatalf("expected 250, got %d", got.Cents)
	}
	if got := (Money{Cents: -250}).String(); got != "-2.50" {
		t.Fatalf("expected -2.50, got %q", got)
	}
}
