package services

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/BLINDMO/honeycutt-budget-planner-sub000/internal/core"
)

// Decision is the user's choice for an unpaid recurring bill at
// rollover. Bills with no recorded decision carry over.
type Decision string

const (
	DecisionCarryOver Decision = "carry-over"
	DecisionRemove    Decision = "remove"
)

// RolloverResult is the complete output of a month rollover: the new
// active bill set, the grown history, and the advanced month pointer.
// Rollover is a pure function, so the caller observes either the old
// state or this result, never anything in between.
type RolloverResult struct {
	Bills       []core.Bill
	History     []core.HistoryItem
	ActiveMonth string
}

// Rollover transitions the active month's bill set into the next month:
// paid bills are archived, one-time bills dropped, unpaid decisions
// applied, balances recomputed from actual payments, variable amounts
// reset, zeroed balances removed, and every survivor gets its paid
// state cleared and its due date advanced with the anchor-day clamp.
func Rollover(bills []core.Bill, history []core.HistoryItem, decisions map[string]Decision, activeMonth string, now time.Time) RolloverResult {
	archived := make([]core.HistoryItem, 0, len(bills))
	next := make([]core.Bill, 0, len(bills))

	for _, b := range bills {
		if b.IsPaid {
			archived = append(archived, snapshotBill(b, now))
		}

		// One-time obligations do not persist: archived above when
		// paid, silently gone when not.
		if !b.Recurring() {
			continue
		}

		if !b.IsPaid && decisions[b.ID] == DecisionRemove {
			continue
		}

		if b.HasBalance {
			var paid int64
			if b.IsPaid {
				paid = b.PaidAmount.Cents
			}
			b.Balance.Cents = nextBalanceCents(b.Balance.Cents, paid, b.InterestRate)
			if b.Balance.Cents <= 0 && !b.IsCreditAccount {
				continue
			}
		} else {
			// Variable bills start the new month blank so the user
			// must enter the fresh amount.
			b.Amount = core.Money{}
		}

		next = append(next, carryForward(b))
	}

	newHistory := make([]core.HistoryItem, 0, len(archived)+len(history))
	newHistory = append(newHistory, archived...)
	newHistory = append(newHistory, history...)

	return RolloverResult{
		Bills:       next,
		History:     newHistory,
		ActiveMonth: core.AddMonthsToKey(activeMonth, 1),
	}
}

// nextBalanceCents applies one cycle of payment to a tracked balance.
//
// A payment covering the whole balance pays it off with no interest on
// the final cycle; that simplification favoring the user is deliberate,
// not standard amortization. Otherwise one month of interest accrues
// first and only the excess reduces principal.
func nextBalanceCents(balance, paid int64, annualRatePercent float64) int64 {
	if balance <= 0 {
		return 0
	}
	if paid >= balance {
		return 0
	}
	interest := int64(math.Round(float64(balance) * annualRatePercent / 100 / 12))
	principal := paid - interest
	if principal < 0 {
		principal = 0
	}
	balance -= principal
	if balance < 0 {
		balance = 0
	}
	return balance
}

// carryForward clears the paid state and advances the due date one
// month, holding the anchor day so short months never cause drift.
func carryForward(b core.Bill) core.Bill {
	b.OriginalDueDay = b.DueDay()
	nextMonth := core.AddMonthsToKey(core.MonthKeyOf(b.DueDate), 1)
	if due, err := core.DateInMonth(nextMonth, b.OriginalDueDay); err == nil {
		b.DueDate = due
	} else {
		b.DueDate = core.AddMonths(b.DueDate, 1)
	}
	b.IsPaid = false
	b.PaidAmount = core.Money{}
	b.PaidMethod = ""
	b.PaidDate = time.Time{}
	return b
}

func snapshotBill(b core.Bill, now time.Time) core.HistoryItem {
	return core.HistoryItem{
		ID:           uuid.NewString(),
		Name:         b.Name,
		PaidAmount:   b.PaidAmount,
		PaidMethod:   b.PaidMethod,
		PaidDate:     b.PaidDate,
		ArchivedDate: core.Midnight(now),
		DueDate:      b.DueDate,
		Frequency:    b.Frequency,
		HadBalance:   b.HasBalance,
		Balance:      b.Balance,
	}
}
