package amortize

import (
	"errors"
	"math"
	"testing"
	"time"

	"envelopes/internal/core"
)

var testNow = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestCalculateDebtProgress(t *testing.T) {
	debt := core.Envelope{
		ID:      1,
		Name:    "Credit Card",
		Type:    core.EnvelopeDebt,
		Balance: core.Money{Cents: 60000},
	}

	tests := []struct {
		name     string
		env      core.Envelope
		txs      []core.Transaction
		wantPct  float64
		wantPaid float64
		wantErr  error
	}{
		{
			name:    "non-debt envelope is rejected",
			env:     core.Envelope{ID: 1, Type: core.EnvelopeSavings},
			wantErr: ErrNotDebtEnvelope,
		},
		{
			name:     "no payments yet",
			env:      debt,
			wantPct:  0,
			wantPaid: 0,
		},
		{
			name: "payments reduce the balance",
			env:  debt,
			txs: []core.Transaction{
				{EnvelopeID: 1, Type: core.TransactionExpense, Amount: core.Money{Cents: 20000}},
				{EnvelopeID: 1, Type: core.TransactionExpense, Amount: core.Money{Cents: 20000}},
			},
			wantPct:  40,
			wantPaid: 400,
		},
		{
			name: "other envelopes' transactions are ignored",
			env:  debt,
			txs: []core.Transaction{
				{EnvelopeID: 2, Type: core.TransactionExpense, Amount: core.Money{Cents: 50000}},
				{EnvelopeID: 1, Type: core.TransactionExpense, Amount: core.Money{Cents: 15000}},
			},
			wantPct:  20,
			wantPaid: 150,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateDebtProgress(tt.env, tt.txs)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !almostEqual(got.ProgressPercentage, tt.wantPct, 0.001) {
				t.Errorf("ProgressPercentage = %v, want %v", got.ProgressPercentage, tt.wantPct)
			}
			if !almostEqual(got.TotalPaid, tt.wantPaid, 0.001) {
				t.Errorf("TotalPaid = %v, want %v", got.TotalPaid, tt.wantPaid)
			}
			if !almostEqual(got.OriginalBalance, got.CurrentBalance+got.TotalPaid, 0.001) {
				t.Errorf("OriginalBalance = %v, want balance+paid = %v",
					got.OriginalBalance, got.CurrentBalance+got.TotalPaid)
			}
		})
	}
}

func TestCalculatePayoffProjection(t *testing.T) {
	t.Run("zero rate pays off in balance/payment months", func(t *testing.T) {
		got := CalculatePayoffProjection(1000, 0, 100, testNow)
		if !got.Reachable {
			t.Fatal("projection should be reachable")
		}
		if got.MonthsToPayoff != 10 {
			t.Errorf("MonthsToPayoff = %d, want 10", got.MonthsToPayoff)
		}
		if got.TotalInterestPaid != 0 {
			t.Errorf("TotalInterestPaid = %v, want 0", got.TotalInterestPaid)
		}
		if want := testNow.AddDate(0, 10, 0); !got.PayoffDate.Equal(want) {
			t.Errorf("PayoffDate = %v, want %v", got.PayoffDate, want)
		}
	})

	t.Run("payment below monthly interest never pays off", func(t *testing.T) {
		// 24% APR on 1000 accrues 20/month; a 10 payment loses ground.
		got := CalculatePayoffProjection(1000, 24, 10, testNow)
		if got.Reachable {
			t.Fatal("projection should not be reachable")
		}
		if got.MonthsToPayoff != 0 || got.TotalInterestPaid != 0 {
			t.Errorf("unreachable projection must zero numeric fields, got %+v", got)
		}
		if want := testNow.AddDate(50, 0, 0); !got.PayoffDate.Equal(want) {
			t.Errorf("PayoffDate = %v, want %v", got.PayoffDate, want)
		}
	})

	t.Run("zero balance is immediately paid off", func(t *testing.T) {
		got := CalculatePayoffProjection(0, 18, 100, testNow)
		if !got.Reachable || got.MonthsToPayoff != 0 {
			t.Errorf("got %+v, want immediate payoff", got)
		}
		if !got.PayoffDate.Equal(testNow) {
			t.Errorf("PayoffDate = %v, want %v", got.PayoffDate, testNow)
		}
	})

	t.Run("interest accrues with positive rate", func(t *testing.T) {
		got := CalculatePayoffProjection(1000, 12, 100, testNow)
		if !got.Reachable {
			t.Fatal("projection should be reachable")
		}
		if got.MonthsToPayoff != 11 {
			t.Errorf("MonthsToPayoff = %d, want 11", got.MonthsToPayoff)
		}
		if got.TotalInterestPaid <= 0 {
			t.Errorf("TotalInterestPaid = %v, want > 0", got.TotalInterestPaid)
		}
		if !almostEqual(got.TotalAmountPaid, 1000+got.TotalInterestPaid, 0.001) {
			t.Errorf("TotalAmountPaid = %v, want principal+interest", got.TotalAmountPaid)
		}
	})
}

func TestGenerateSchedule(t *testing.T) {
	t.Run("balances are non-increasing and reach zero", func(t *testing.T) {
		entries := GenerateSchedule(1000, 12, 100, 0, testNow)
		if len(entries) == 0 {
			t.Fatal("expected schedule entries")
		}
		prev := 1000.0
		for _, e := range entries {
			if e.RemainingBalance > prev {
				t.Fatalf("balance grew from %v to %v at payment %d", prev, e.RemainingBalance, e.PaymentNumber)
			}
			if !almostEqual(e.Payment, e.Principal+e.Interest, 0.001) {
				t.Errorf("payment %d: %v != principal %v + interest %v",
					e.PaymentNumber, e.Payment, e.Principal, e.Interest)
			}
			prev = e.RemainingBalance
		}
		last := entries[len(entries)-1]
		if last.RemainingBalance > 0.01 {
			t.Errorf("final balance = %v, want <= 0.01", last.RemainingBalance)
		}
	})

	t.Run("truncates at max payments", func(t *testing.T) {
		entries := GenerateSchedule(100000, 5, 100, 12, testNow)
		if len(entries) != 12 {
			t.Errorf("len(entries) = %d, want 12", len(entries))
		}
	})

	t.Run("default length is 60", func(t *testing.T) {
		entries := GenerateSchedule(100000, 0, 100, 0, testNow)
		if len(entries) != 60 {
			t.Errorf("len(entries) = %d, want 60", len(entries))
		}
	})

	t.Run("zero balance gives no schedule", func(t *testing.T) {
		if entries := GenerateSchedule(0, 12, 100, 0, testNow); entries != nil {
			t.Errorf("expected nil schedule, got %d entries", len(entries))
		}
	})

	t.Run("payments are dated one month apart", func(t *testing.T) {
		entries := GenerateSchedule(300, 0, 100, 0, testNow)
		for i, e := range entries {
			want := testNow.AddDate(0, i+1, 0)
			if !e.Date.Equal(want) {
				t.Errorf("payment %d date = %v, want %v", e.PaymentNumber, e.Date, want)
			}
		}
	})
}

func TestCalculateRequiredPayment(t *testing.T) {
	tests := []struct {
		name      string
		balance   float64
		apr       float64
		months    int
		want      float64
		tolerance float64
		wantErr   error
	}{
		{name: "zero rate divides evenly", balance: 1200, apr: 0, months: 12, want: 100, tolerance: 0},
		{name: "annuity formula at 12 percent", balance: 10000, apr: 12, months: 12, want: 888.49, tolerance: 0.01},
		{name: "zero balance needs nothing", balance: 0, apr: 12, months: 12, want: 0, tolerance: 0},
		{name: "zero months is invalid", balance: 1000, apr: 12, months: 0, wantErr: ErrInvalidTerm},
		{name: "negative months is invalid", balance: 1000, apr: 12, months: -3, wantErr: ErrInvalidTerm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateRequiredPayment(tt.balance, tt.apr, tt.months)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !almostEqual(got, tt.want, tt.tolerance+1e-9) {
				t.Errorf("payment = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateRequiredPayment_RoundTrip(t *testing.T) {
	// Paying the computed amount should retire the balance in the target term.
	payment, err := CalculateRequiredPayment(5000, 18, 24)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	proj := CalculatePayoffProjection(5000, 18, payment, testNow)
	if !proj.Reachable {
		t.Fatal("projection should be reachable")
	}
	if proj.MonthsToPayoff != 24 {
		t.Errorf("MonthsToPayoff = %d, want 24", proj.MonthsToPayoff)
	}
}

func TestCompareStrategies(t *testing.T) {
	t.Run("three strategies when minimum pays off", func(t *testing.T) {
		strategies := CompareStrategies(10000, 18, 300, testNow)
		if len(strategies) != 3 {
			t.Fatalf("len(strategies) = %d, want 3", len(strategies))
		}
		min, double, aggressive := strategies[0], strategies[1], strategies[2]

		if min.Name != "Minimum Payment" || min.InterestSaved != 0 {
			t.Errorf("baseline = %+v, want zero InterestSaved", min)
		}
		if double.Name != "Double Minimum" {
			t.Errorf("second strategy = %q, want Double Minimum", double.Name)
		}
		if double.InterestSaved <= 0 {
			t.Errorf("double minimum should save interest, got %v", double.InterestSaved)
		}
		if double.MonthsToPayoff >= min.MonthsToPayoff {
			t.Errorf("double minimum months %d not below minimum months %d",
				double.MonthsToPayoff, min.MonthsToPayoff)
		}
		if aggressive.Name != "Aggressive Payoff" {
			t.Errorf("third strategy = %q, want Aggressive Payoff", aggressive.Name)
		}
		if aggressive.MonthsToPayoff < aggressiveMinMonths-1 || aggressive.MonthsToPayoff > aggressiveMaxMonths {
			t.Errorf("aggressive months = %d, want within [%d,%d]",
				aggressive.MonthsToPayoff, aggressiveMinMonths, aggressiveMaxMonths)
		}
	})

	t.Run("unreachable strategies are excluded", func(t *testing.T) {
		// 24% APR on 10000 accrues 200/month; 90 and 180 both lose ground,
		// only the aggressive plan remains.
		strategies := CompareStrategies(10000, 24, 90, testNow)
		for _, s := range strategies {
			if s.Name == "Minimum Payment" || s.Name == "Double Minimum" {
				t.Errorf("unreachable strategy %q should be excluded", s.Name)
			}
		}
	})
}
