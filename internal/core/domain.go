package core

import (
	"errors"
	"strings"
	"time"
)

const (
	EnvelopeRegular EnvelopeType = "regular"
	EnvelopeSavings EnvelopeType = "savings"
	EnvelopeDebt    EnvelopeType = "debt"
)

const (
	TransactionIncome     TransactionType = "income"
	TransactionExpense    TransactionType = "expense"
	TransactionTransfer   TransactionType = "transfer"
	TransactionAllocation TransactionType = "allocation"
)

type (
	EnvelopeType    string
	TransactionType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64 `json:"cents"`
	}

	// Envelope is a named budget bucket. Target, APR, and minimum payment
	// are meaningful only for savings and debt envelopes; zero values mean
	// "not set".
	Envelope struct {
		ID             int64        `json:"id"`
		Name           string       `json:"name"`
		Type           EnvelopeType `json:"type"`
		Balance        Money        `json:"balance"`
		TargetAmount   Money        `json:"target_amount"`
		TargetDate     Date         `json:"target_date"`
		APR            float64      `json:"apr"` // annual percentage rate, e.g. 18.5
		MinimumPayment Money        `json:"minimum_payment"`
		CreatedAt      time.Time    `json:"created_at"`
	}

	// Transaction is a movement of funds attributed to an envelope.
	Transaction struct {
		ID         int64           `json:"id"`
		EnvelopeID int64           `json:"envelope_id"`
		Type       TransactionType `json:"type"`
		Amount     Money           `json:"amount"`
		Date       Date            `json:"date"`
		CreatedAt  time.Time       `json:"created_at"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyName          = errors.New("empty envelope name")
	ErrInvalidEnvelope    = errors.New("invalid envelope type")
	ErrInvalidTransaction = errors.New("invalid transaction type")
	ErrInvalidAPR         = errors.New("invalid annual percentage rate")
)

// NewDate creates a new Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty returns true if the date is zero (optional dates).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (t EnvelopeType) Valid() bool {
	switch t {
	case EnvelopeRegular, EnvelopeSavings, EnvelopeDebt:
		return true
	default:
		return false
	}
}

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionIncome, TransactionExpense, TransactionTransfer, TransactionAllocation:
		return true
	default:
		return false
	}
}

func (e Envelope) Validate() error {
	if len(strings.TrimSpace(e.Name)) == 0 {
		return ErrEmptyName
	}
	if len(e.Name) > 100 {
		return errors.New("envelope name too long (max 100 characters)")
	}
	if !e.Type.Valid() {
		return ErrInvalidEnvelope
	}
	if e.APR < 0 {
		return ErrInvalidAPR
	}
	if e.TargetAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	if e.MinimumPayment.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.EnvelopeID <= 0 {
		return errors.New("transaction requires an envelope")
	}
	if !t.Type.Valid() {
		return ErrInvalidTransaction
	}
	if t.Amount.Cents == 0 {
		return ErrInvalidAmount
	}
	if t.Date.IsZero() {
		return errors.New("transaction date cannot be zero")
	}
	return nil
}

// IsContribution reports whether the transaction counts as a goal
// contribution: income, allocation, or transfer with a positive amount.
func (t Transaction) IsContribution() bool {
	switch t.Type {
	case TransactionIncome, TransactionAllocation, TransactionTransfer:
		return t.Amount.Cents > 0
	default:
		return false
	}
}
