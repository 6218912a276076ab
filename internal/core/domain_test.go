package core

import (
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestParseKind(t *testing.T) {
	cases := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"income", KindIncome, true},
		{" Expense ", KindExpense, true},
		{"spesa", KindExpense, true},
		{"transfer", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseKind(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q: expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q: expected error", tc.in)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Date:        NewDate(2025, 1, 1),
		Kind:        KindIncome,
		Description: "salary",
		Amount:      Money{Cents: 100},
		Category:    "Work",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Date: Date{Time: time.Time{}}, Kind: KindIncome, Description: "a", Amount: Money{Cents: 1}, Category: "c"}, // zero date
		{Date: NewDate(2025, 1, 1), Kind: "gift", Description: "a", Amount: Money{Cents: 1}, Category: "c"},
		{Date: NewDate(2025, 1, 1), Kind: KindExpense, Description: "", Amount: Money{Cents: 1}, Category: "c"},
		{Date: NewDate(2025, 1, 1), Kind: KindExpense, Description: "a", Amount: Money{Cents: 0}, Category: "c"},
		{Date: NewDate(2025, 1, 1), Kind: KindExpense, Description: "a", Amount: Money{Cents: 1}, Category: " "},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
