package core

import "math"

// payoffCeiling caps the amortization loop at 50 years. A payment that
// never outruns interest accrual terminates here and is reported as a
// normal, if unrealistic, projection rather than an error.
const payoffCeiling = 600

// PayoffStep is one month of an amortization schedule, in cents.
type PayoffStep struct {
	Month     int   `json:"month"`
	Payment   Money `json:"payment"`
	Principal Money `json:"principal"`
	Interest  Money `json:"interest"`
	Remaining Money `json:"remaining"`
}

// PayoffProjection is the derived payoff summary for a balance-bearing
// bill. It is computed on demand and never persisted.
type PayoffProjection struct {
	MonthsToPayoff    int          `json:"monthsToPayoff"`
	TotalInterestPaid Money        `json:"totalInterestPaid"`
	TotalAmountPaid   Money        `json:"totalAmountPaid"`
	MonthlyBreakdown  []PayoffStep `json:"monthlyBreakdown"`
}

// PayoffComparison holds the baseline projection next to the same
// balance paid down 20% and 50% faster.
type PayoffComparison struct {
	Current      PayoffProjection `json:"current"`
	SlightlyMore PayoffProjection `json:"slightlyMore"`
	Aggressive   PayoffProjection `json:"aggressive"`
}

// ComputePayoff produces a month-by-month payoff schedule for a balance
// under a fixed monthly payment and annual interest rate (percentage
// points). Inputs are decimal dollars; all iteration happens in cents.
//
// A non-positive balance or payment yields the zero projection: that is
// the defined degenerate case, not an error.
func ComputePayoff(balance, monthlyPayment, annualRatePercent float64) PayoffProjection {
	return computePayoffCents(CentsFromAmount(balance), CentsFromAmount(monthlyPayment), annualRatePercent)
}

func computePayoffCents(balanceCents, paymentCents int64, annualRatePercent float64) PayoffProjection {
	if balanceCents <= 0 || paymentCents <= 0 {
		return PayoffProjection{MonthlyBreakdown: []PayoffStep{}}
	}

	monthlyRate := annualRatePercent / 100 / 12
	remaining := balanceCents
	var totalInterest int64
	steps := make([]PayoffStep, 0, 16)

	for month := 1; month <= payoffCeiling && remaining > 0; month++ {
		interest := int64(math.Round(float64(remaining) * monthlyRate))
		payment := paymentCents
		// Cap the final payment so the balance cannot go negative.
		if payment > remaining+interest {
			payment = remaining + interest
		}
		principal := payment - interest
		remaining -= principal
		if remaining < 0 {
			remaining = 0
		}
		totalInterest += interest
		steps = append(steps, PayoffStep{
			Month:     month,
			Payment:   Money{Cents: payment},
			Principal: Money{Cents: principal},
			Interest:  Money{Cents: interest},
			Remaining: Money{Cents: remaining},
		})
	}

	return PayoffProjection{
		MonthsToPayoff:    len(steps),
		TotalInterestPaid: Money{Cents: totalInterest},
		TotalAmountPaid:   Money{Cents: balanceCents + totalInterest},
		MonthlyBreakdown:  steps,
	}
}

// ComputePayoffComparison runs the payoff three ways: the current
// payment, 20% more, and 50% more. The UI presents it as "pay X more a
// month, finish Y months sooner".
func ComputePayoffComparison(balance, currentPayment, annualRatePercent float64) PayoffComparison {
	balanceCents := CentsFromAmount(balance)
	paymentCents := CentsFromAmount(currentPayment)
	scaled := func(mult float64) int64 {
		return int64(math.Round(float64(paymentCents) * mult))
	}
	return PayoffComparison{
		Current:      computePayoffCents(balanceCents, paymentCents, annualRatePercent),
		SlightlyMore: computePayoffCents(balanceCents, scaled(1.2), annualRatePercent),
		Aggressive:   computePayoffCents(balanceCents, scaled(1.5), annualRatePercent),
	}
}
