package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

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
		{"+1", 0, false},
		{"1e3", 0, false},
		{"0", 0, false},
		{"0.004", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
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

func TestMoneyJSONIsBareNumber(t *testing.T) {
	b, err := json.Marshal(struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}{Money{Cents: 4000}, Money{Cents: 1234}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"a":40,"b":12.34}` {
		t.Fatalf("unexpected payload: %s", b)
	}
}

func TestMoneyUnmarshalAcceptsNumbersAndStrings(t *testing.T) {
	cases := map[string]int64{
		`100`:     10000,
		`12.340`:  1234,
		`-25`:     -2500,
		`"7.5"`:   750,
		`null`:    0,
		` 0.01 `:  1,
		`1000000`: 100000000,
	}
	for in, want := range cases {
		var m Money
		if err := json.Unmarshal([]byte(in), &m); err != nil {
			t.Fatalf("%s: unexpected error %v", in, err)
		}
		if m.Cents != want {
			t.Fatalf("%s: expected %d cents, got %d", in, want, m.Cents)
		}
	}

	var m Money
	if err := json.Unmarshal([]byte(`"abc"`), &m); err == nil {
		t.Fatal("expected error for non-numeric amount")
	}
}

func TestMoneyFromDecimalRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"-0.5", -50, false},
		{"46116860184273879.03", 4611686018427387903, false},
		{"0.004", 0, true},
		{"12.345", 0, true},
		{"1e20", 0, true},
		{"-1e20", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := MoneyFromDecimal(decimal.RequireFromString(tt.in))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("err = %v, want ErrInvalidAmount", err)
				}
				return
			}
			if err != nil || m.Cents != tt.want {
				t.Fatalf("got %d, %v; want %d", m.Cents, err, tt.want)
			}
		})
	}

	var m Money
	if err := json.Unmarshal([]byte(`1e20`), &m); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("overflowing JSON amount err = %v", err)
	}
	if err := json.Unmarshal([]byte(`0.004`), &m); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("sub-cent JSON amount err = %v", err)
	}
}

func TestMoneyArithmetic(t *testing.T) {
	income := Money{Cents: 10000}
	expense := Money{Cents: 4000}
	if got := income.Sub(expense); got.Cents != 6000 {
		t.Fatalf("balance = %d, want 6000", got.Cents)
	}
	if got := income.Add(expense).String(); got != "140.00" {
		t.Fatalf("sum = %s, want 140.00", got)
	}
	if got := (Money{Cents: 1050}).Float(); got != 10.5 {
		t.Fatalf("float = %v, want 10.5", got)
	}
}
