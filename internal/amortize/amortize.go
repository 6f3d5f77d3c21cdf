// Package amortize computes debt progress, payoff projections, payment
// schedules, and payoff strategy comparisons under fixed-rate, fixed-payment
// amortization.
//
// All functions are pure: they take fully materialized inputs plus an
// explicit reference time and return value results. Amounts are float64
// units; rounding to currency precision is a formatting concern and happens
// only at the presentation layer.
package amortize

import (
	"errors"
	"math"
	"time"

	"envelopes/internal/core"
)

const (
	// maxSimulationMonths caps the month-by-month simulation (~50 years) so
	// rounding artifacts can never produce a non-terminating loop.
	maxSimulationMonths = 600

	// balanceEpsilon is the residual below which a debt counts as paid off.
	balanceEpsilon = 0.01

	defaultScheduleLength = 60

	aggressiveMinMonths = 36
	aggressiveMaxMonths = 60
)

var (
	ErrNotDebtEnvelope = errors.New("envelope is not a debt envelope")
	ErrInvalidTerm     = errors.New("target months must be positive")
)

// Progress summarizes how far a debt envelope has been paid down.
//
// OriginalBalance is an estimate: current balance plus the sum of all
// positive payments recorded against the envelope. It understates the true
// original principal if any reduction happened outside tracked transactions
// (e.g. the initial loan event). That approximation is intentional; there is
// no stored ground truth to correct it against.
type Progress struct {
	CurrentBalance     float64 `json:"current_balance"`
	OriginalBalance    float64 `json:"original_balance"`
	TotalPaid          float64 `json:"total_paid"`
	ProgressPercentage float64 `json:"progress_percentage"` // clamped to [0,100]
	RemainingBalance   float64 `json:"remaining_balance"`
}

// CalculateDebtProgress derives payoff progress for a debt envelope from its
// transaction history. Returns ErrNotDebtEnvelope for any other envelope type.
func CalculateDebtProgress(env core.Envelope, txs []core.Transaction) (Progress, error) {
	if env.Type != core.EnvelopeDebt {
		return Progress{}, ErrNotDebtEnvelope
	}

	totalPaid := 0.0
	for _, tx := range txs {
		if tx.EnvelopeID == env.ID && tx.Amount.Cents > 0 {
			totalPaid += tx.Amount.Amount()
		}
	}

	balance := env.Balance.Amount()
	if balance < 0 {
		balance = 0
	}
	original := balance + totalPaid

	pct := 0.0
	if original > 0 {
		pct = clamp(totalPaid/original*100, 0, 100)
	}

	return Progress{
		CurrentBalance:     balance,
		OriginalBalance:    original,
		TotalPaid:          totalPaid,
		ProgressPercentage: pct,
		RemainingBalance:   balance,
	}, nil
}

// PayoffProjection is the outcome of simulating fixed monthly payments
// against a balance. Reachable distinguishes a finite payoff from the case
// where the payment never covers accruing interest; when Reachable is false
// the numeric fields are zero and PayoffDate is pinned 50 years out. Callers
// must check Reachable before formatting or arithmetic.
type PayoffProjection struct {
	Reachable         bool      `json:"reachable"`
	MonthsToPayoff    int       `json:"months_to_payoff"`
	TotalInterestPaid float64   `json:"total_interest_paid"`
	TotalAmountPaid   float64   `json:"total_amount_paid"`
	PayoffDate        time.Time `json:"payoff_date"`
}

// CalculatePayoffProjection simulates month-by-month amortization of balance
// at the given APR under a fixed monthly payment.
//
// A non-positive balance or payment short-circuits to an immediate
// zero-month result. A payment that does not cover one month of interest
// yields an unreachable projection.
func CalculatePayoffProjection(balance, apr, monthlyPayment float64, now time.Time) PayoffProjection {
	if balance <= 0 || monthlyPayment <= 0 {
		return PayoffProjection{
			Reachable:       true,
			TotalAmountPaid: balance,
			PayoffDate:      now,
		}
	}

	monthlyRate := apr / 100 / 12
	if monthlyRate > 0 && monthlyPayment <= balance*monthlyRate {
		return PayoffProjection{
			Reachable:  false,
			PayoffDate: now.AddDate(50, 0, 0),
		}
	}

	remaining := balance
	totalInterest := 0.0
	months := 0
	for remaining > balanceEpsilon && months < maxSimulationMonths {
		interest := remaining * monthlyRate
		principal := monthlyPayment - interest
		if principal > remaining {
			principal = remaining
		}
		totalInterest += interest
		remaining -= principal
		months++
	}

	return PayoffProjection{
		Reachable:         true,
		MonthsToPayoff:    months,
		TotalInterestPaid: totalInterest,
		TotalAmountPaid:   balance + totalInterest,
		PayoffDate:        now.AddDate(0, months, 0),
	}
}

// ScheduleEntry is one period of an amortization schedule. Entries are
// 1-indexed and RemainingBalance never goes below zero.
type ScheduleEntry struct {
	PaymentNumber    int       `json:"payment_number"`
	Date             time.Time `json:"date"`
	Payment          float64   `json:"payment"`
	Principal        float64   `json:"principal"`
	Interest         float64   `json:"interest"`
	RemainingBalance float64   `json:"remaining_balance"`
}

// GenerateSchedule returns per-period amortization entries for the given
// balance, APR, and monthly payment. The schedule stops once the balance
// drops to the payoff epsilon or after maxPayments periods, whichever comes
// first. maxPayments <= 0 selects the default of 60 periods.
func GenerateSchedule(balance, apr, monthlyPayment float64, maxPayments int, now time.Time) []ScheduleEntry {
	if maxPayments <= 0 {
		maxPayments = defaultScheduleLength
	}
	if balance <= 0 || monthlyPayment <= 0 {
		return nil
	}

	monthlyRate := apr / 100 / 12
	remaining := balance
	entries := make([]ScheduleEntry, 0, maxPayments)

	for n := 1; remaining > balanceEpsilon && n <= maxPayments; n++ {
		interest := remaining * monthlyRate
		principal := monthlyPayment - interest
		if principal > remaining {
			principal = remaining
		}
		remaining -= principal
		if remaining < 0 {
			remaining = 0
		}
		entries = append(entries, ScheduleEntry{
			PaymentNumber:    n,
			Date:             now.AddDate(0, n, 0),
			Payment:          principal + interest,
			Principal:        principal,
			Interest:         interest,
			RemainingBalance: remaining,
		})
		if principal <= 0 {
			// Payment does not cover interest; the balance only grows, so a
			// longer schedule adds no information.
			break
		}
	}

	return entries
}

// CalculateRequiredPayment solves the closed-form annuity formula
// PMT = PV*r*(1+r)^n / ((1+r)^n - 1) for the constant monthly payment that
// retires balance in targetMonths. The zero-rate case reduces exactly to
// balance/targetMonths.
func CalculateRequiredPayment(balance, apr float64, targetMonths int) (float64, error) {
	if targetMonths <= 0 {
		return 0, ErrInvalidTerm
	}
	if balance <= 0 {
		return 0, nil
	}

	monthlyRate := apr / 100 / 12
	if monthlyRate == 0 {
		return balance / float64(targetMonths), nil
	}

	n := float64(targetMonths)
	factor := math.Pow(1+monthlyRate, n)
	return balance * monthlyRate * factor / (factor - 1), nil
}

// Strategy is a named payoff scenario evaluated against the same balance and
// rate. InterestSaved is relative to the minimum-payment baseline and stays
// zero for the baseline itself or when the baseline never pays off.
type Strategy struct {
	Name              string    `json:"name"`
	MonthlyPayment    float64   `json:"monthly_payment"`
	MonthsToPayoff    int       `json:"months_to_payoff"`
	TotalInterestPaid float64   `json:"total_interest_paid"`
	InterestSaved     float64   `json:"interest_saved"`
	PayoffDate        time.Time `json:"payoff_date"`
}

// CompareStrategies evaluates minimum-payment, double-minimum, and an
// aggressive fixed-term payoff of the same debt. The aggressive term is half
// the minimum-payment payoff time clamped to [36,60] months. Strategies that
// never pay off are excluded from the result.
func CompareStrategies(balance, apr, minimumPayment float64, now time.Time) []Strategy {
	minProj := CalculatePayoffProjection(balance, apr, minimumPayment, now)

	aggressiveMonths := aggressiveMaxMonths
	if minProj.Reachable && minProj.MonthsToPayoff > 0 {
		aggressiveMonths = clampInt(minProj.MonthsToPayoff/2, aggressiveMinMonths, aggressiveMaxMonths)
	}
	aggressivePayment, err := CalculateRequiredPayment(balance, apr, aggressiveMonths)
	if err != nil {
		aggressivePayment = 0
	}

	candidates := []struct {
		name    string
		payment float64
	}{
		{"Minimum Payment", minimumPayment},
		{"Double Minimum", minimumPayment * 2},
		{"Aggressive Payoff", aggressivePayment},
	}

	strategies := make([]Strategy, 0, len(candidates))
	for _, c := range candidates {
		proj := CalculatePayoffProjection(balance, apr, c.payment, now)
		if !proj.Reachable {
			continue
		}
		s := Strategy{
			Name:              c.name,
			MonthlyPayment:    c.payment,
			MonthsToPayoff:    proj.MonthsToPayoff,
			TotalInterestPaid: proj.TotalInterestPaid,
			PayoffDate:        proj.PayoffDate,
		}
		if c.name != "Minimum Payment" && minProj.Reachable {
			if saved := minProj.TotalInterestPaid - proj.TotalInterestPaid; saved > 0 {
				s.InterestSaved = saved
			}
		}
		strategies = append(strategies, s)
	}

	return strategies
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
