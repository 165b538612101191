// Package services holds the business logic of the budget planner: bill
// projection, the month rollover transaction, pay schedules and the
// aggregate-owning BudgetService.
package services

import (
	"sort"
	"time"

	"github.com/BLINDMO/honeycutt-budget-planner-sub000/internal/core"
)

// BillsForMonth returns the bills due in the target month, ascending by
// due date.
//
// A bill is included when its due date's month equals the target, or
// when it recurs monthly and originates in an earlier month, in which
// case it is projected forward into months it has not been rolled into
// yet. Non-recurring bills from earlier months are never projected
// forward.
func BillsForMonth(bills []core.Bill, targetMonth string) []core.Bill {
	out := make([]core.Bill, 0, len(bills))
	for _, b := range bills {
		billMonth := core.MonthKeyOf(b.DueDate)
		switch core.CompareMonths(billMonth, targetMonth) {
		case 0:
			out = append(out, b)
		case -1:
			if !b.Recurring() {
				continue
			}
			// Synthesize the due date with the anchor day clamped to
			// the target month, mirroring AddMonths exactly so that a
			// previewed bill and a rolled-over bill agree on the date.
			due, err := core.DateInMonth(targetMonth, b.DueDay())
			if err != nil {
				continue
			}
			projected := b
			projected.DueDate = due
			out = append(out, projected)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.Before(out[j].DueDate)
	})
	return out
}

// ActiveMonthComplete reports whether every bill projected for the
// active month is paid. Rollover may only start from a complete month.
func ActiveMonthComplete(bills []core.Bill, activeMonth string) bool {
	for _, b := range BillsForMonth(bills, activeMonth) {
		if !b.IsPaid {
			return false
		}
	}
	return true
}

// UpcomingBills returns the bills of the active month that are unpaid
// and due within n days of now, for the reminder strip.
func UpcomingBills(bills []core.Bill, activeMonth string, now time.Time, n int) []core.Bill {
	out := make([]core.Bill, 0)
	for _, b := range BillsForMonth(bills, activeMonth) {
		if !b.IsPaid && core.IsWithinDays(b.DueDate, now, n) {
			out = append(out, b)
		}
	}
	return out
}

// MonthTotals aggregates the cents due, paid and remaining for the
// bills projected into a month.
type MonthTotals struct {
	DueCents       int64 `json:"dueCents"`
	PaidCents      int64 `json:"paidCents"`
	RemainingCents int64 `json:"remainingCents"`
	BillCount      int   `json:"billCount"`
	PaidCount      int   `json:"paidCount"`
}

// TotalsForMonth computes the dashboard summary for a month.
func TotalsForMonth(bills []core.Bill, targetMonth string) MonthTotals {
	var t MonthTotals
	for _, b := range BillsForMonth(bills, targetMonth) {
		t.BillCount++
		t.DueCents += b.Amount.Cents
		if b.IsPaid {
			t.PaidCount++
			t.PaidCents += b.PaidAmount.Cents
		} else {
			t.RemainingCents += b.Amount.Cents
		}
	}
	return t
}
