package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAndRounding(t *testing.T) {
	a, err := Parse("10.005")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if a.String() != "10.01" {
		t.Fatalf("rounded to %s, want 10.01", a)
	}
	if _, err := Parse("not money"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestCents(t *testing.T) {
	a, _ := Parse("864.66")
	if got := a.Cents(); got != 86466 {
		t.Fatalf("cents = %d, want 86466", got)
	}
	if got := Zero.Cents(); got != 0 {
		t.Fatalf("zero cents = %d", got)
	}
}

func TestWithin(t *testing.T) {
	min, max := FromInt(5), FromInt(10000)
	cases := []struct {
		in   string
		want bool
	}{
		{"4.99", false},
		{"5.00", true},
		{"10000.00", true},
		{"10000.01", false},
	}
	for _, tc := range cases {
		a, _ := Parse(tc.in)
		if got := a.Within(min, max); got != tc.want {
			t.Fatalf("Within(%s) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFeeArithmetic(t *testing.T) {
	amount, _ := Parse("840.00")
	fee := amount.Mul(decimal.NewFromFloat(0.029)).Add(mustParse(t, "0.30")).Round2()
	if fee.String() != "24.66" {
		t.Fatalf("fee = %s, want 24.66", fee)
	}
	total := amount.Add(fee)
	if total.String() != "864.66" {
		t.Fatalf("total = %s, want 864.66", total)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	a, _ := Parse("123.45")
	raw, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Amount
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !a.Equal(back) {
		t.Fatalf("round trip %s != %s", a, back)
	}
}

func mustParse(t *testing.T, s string) Amount {
	t.Helper()
	a, err := Parse(s)
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return a
}
