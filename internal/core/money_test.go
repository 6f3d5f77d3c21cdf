package core

import (
	"errors"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "dot separator", input: "12.34", want: 1234},
		{name: "comma separator", input: "12,34", want: 1234},
		{name: "integer amount", input: "100", want: 10000},
		{name: "single decimal digit", input: "5.5", want: 550},
		{name: "leading dot", input: ".75", want: 75},
		{name: "trailing dot", input: "10.", want: 1000},
		{name: "third decimal rounds up", input: "1.005", want: 101},
		{name: "third decimal rounds down", input: "1.004", want: 100},
		{name: "whitespace trimmed", input: "  42,00  ", want: 4200},
		{name: "empty string", input: "", wantErr: true},
		{name: "negative rejected", input: "-5.00", wantErr: true},
		{name: "explicit plus rejected", input: "+5.00", wantErr: true},
		{name: "zero rejected", input: "0", wantErr: true},
		{name: "zero with decimals rejected", input: "0.00", wantErr: true},
		{name: "letters rejected", input: "12a.34", wantErr: true},
		{name: "two separators rejected", input: "1.2.3", wantErr: true},
		{name: "overflow rejected", input: "99999999999999999999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimalToCents(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("error = %v, want ErrInvalidAmount", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMoneyAmountRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		cents  int64
	}{
		{name: "positive", amount: 12.34, cents: 1234},
		{name: "negative", amount: -12.34, cents: -1234},
		{name: "zero", amount: 0, cents: 0},
		{name: "rounds half up", amount: 0.005, cents: 1},
		{name: "rounds half away from zero", amount: -0.005, cents: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := FromAmount(tt.amount)
			if m.Cents != tt.cents {
				t.Errorf("FromAmount(%v).Cents = %d, want %d", tt.amount, m.Cents, tt.cents)
			}
		})
	}

	if got := (Money{Cents: 1234}).Amount(); got != 12.34 {
		t.Errorf("Amount() = %v, want 12.34", got)
	}
}

func TestFormatCents(t *testing.T) {
	tests := []struct {
		name  string
		cents int64
		want  string
	}{
		{name: "small", cents: 50, want: "€0,50"},
		{name: "units", cents: 1234, want: "€12,34"},
		{name: "thousands grouped", cents: 123456, want: "€1.234,56"},
		{name: "millions grouped", cents: 123456789, want: "€1.234.567,89"},
		{name: "negative", cents: -1234, want: "-€12,34"},
		{name: "zero", cents: 0, want: "€0,00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatCents(tt.cents); got != tt.want {
				t.Errorf("FormatCents(%d) = %q, want %q", tt.cents, got, tt.want)
			}
		})
	}
}
