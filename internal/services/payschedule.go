package services

import (
	"time"

	"github.com/BLINDMO/honeycutt-budget-planner-sub000/internal/core"
)

// payProjectionCeiling bounds the walk from an old last-pay date up to
// the present. A thousand steps is decades for every frequency.
const payProjectionCeiling = 1000

// NextPayDate returns the first pay date at or after the given day,
// walking forward from the income source's last known pay date.
func NextPayDate(p core.PayInfo, from time.Time) time.Time {
	day := core.Midnight(from)
	cur := core.Midnight(p.LastPayDate)
	for i := 0; i < payProjectionCeiling && cur.Before(day); i++ {
		cur = advancePayDate(p, cur)
	}
	return cur
}

// PayDatesInMonth lists the pay dates of an income source that fall in
// the keyed month.
func PayDatesInMonth(p core.PayInfo, monthKey string) []time.Time {
	start, err := core.DateInMonth(monthKey, 1)
	if err != nil {
		return nil
	}
	end := core.AddMonths(start, 1)

	out := make([]time.Time, 0, 5)
	cur := NextPayDate(p, start)
	for i := 0; i < payProjectionCeiling && cur.Before(end); i++ {
		out = append(out, cur)
		cur = advancePayDate(p, cur)
	}
	return out
}

// advancePayDate steps one pay cycle forward. Semimonthly alternates
// between the 1st and the 15th; monthly keeps the day-of-month with the
// usual clamp.
func advancePayDate(p core.PayInfo, cur time.Time) time.Time {
	switch p.Frequency {
	case core.PayWeekly:
		return cur.AddDate(0, 0, 7)
	case core.PayBiweekly:
		return cur.AddDate(0, 0, 14)
	case core.PaySemimonthly:
		if cur.Day() < 15 {
			return time.Date(cur.Year(), cur.Month(), 15, 0, 0, 0, 0, cur.Location())
		}
		n := core.AddMonths(cur, 1)
		return time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, cur.Location())
	default: // core.PayMonthly
		return core.AddMonths(cur, 1)
	}
}
