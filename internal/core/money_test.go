package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		cur string
		out int64
		ok  bool
	}{
		{"1", "USD", 100, true},
		{"1.0", "USD", 100, true},
		{"1.23", "USD", 123, true},
		{"1,23", "EUR", 123, true},
		{"0.01", "USD", 1, true},
		{"1.005", "USD", 101, true}, // half-up rounding
		{"1.004", "USD", 100, true},
		{" 2.50 ", "GBP", 250, true},
		{"0", "USD", 0, true},
		{"1500", "JPY", 1500, true},
		{"1500.5", "JPY", 1501, true},
		{"-1", "USD", 0, false},
		{"abc", "USD", 0, false},
		{"1.2.3", "USD", 0, false},
		{"", "USD", 0, false},
		{".5", "USD", 50, true},
		{"12.", "USD", 1200, true},
		{".", "USD", 0, false},
		{"1.٥", "USD", 0, false},
		{"١٢", "USD", 0, false},
		{"1e3", "USD", 0, false},
		{"+1", "USD", 0, false},
		{"92233720368547758.08", "USD", 0, false},
		{"92233720368547758.07", "USD", 9223372036854775807, true},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in, tc.cur)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q %s expected %d, got %d (err=%v)", tc.in, tc.cur, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestValidateCurrency(t *testing.T) {
	for _, code := range []string{"USD", "EUR", "GBP", "JPY"} {
		if err := ValidateCurrency(code); err != nil {
			t.Fatalf("%s expected ok, got %v", code, err)
		}
	}
	for _, code := range []string{"", "usd", "XXXX", "ZZZ"} {
		if err := ValidateCurrency(code); err == nil {
			t.Fatalf("%q expected error", code)
		}
	}
}

func TestMinorDigits(t *testing.T) {
	if d := MinorDigits("USD"); d != 2 {
		t.Fatalf("USD expected 2 digits, got %d", d)
	}
	if d := MinorDigits("JPY"); d != 0 {
		t.Fatalf("JPY expected 0 digits, got %d", d)
	}
}
