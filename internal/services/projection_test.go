package services

import (
	"testing"
	"time"

	"github.com/BLINDMO/honeycutt-budget-planner-sub000/internal/core"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func recurringBill(id, name string, due time.Time, cents int64) core.Bill {
	return core.Bill{
		ID:        id,
		Name:      name,
		Amount:    core.Money{Cents: cents},
		DueDate:   due,
		Frequency: core.Monthly,
	}
}

func TestBillsForMonthSameMonth(t *testing.T) {
	bills := []core.Bill{
		recurringBill("a", "Rent", date(2024, time.March, 1), 120000),
		recurringBill("b", "Internet", date(2024, time.March, 15), 6000),
		{ID: "c", Name: "Dentist", Amount: core.Money{Cents: 9000}, DueDate: date(2024, time.March, 20), Frequency: core.OneTime},
	}

	got := BillsForMonth(bills, "2024-03")
	if len(got) != 3 {
		t.Fatalf("got %d bills, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].DueDate.Before(got[i-1].DueDate) {
			t.Errorf("bills out of order: %v before %v", got[i].DueDate, got[i-1].DueDate)
		}
	}
}

func TestBillsForMonthForwardFill(t *testing.T) {
	// A recurring bill due 2024-01-05 projects into 2024-03 as
	// 2024-03-05 without having been rolled over.
	bills := []core.Bill{
		recurringBill("a", "Rent", date(2024, time.January, 5), 120000),
	}

	got := BillsForMonth(bills, "2024-03")
	if len(got) != 1 {
		t.Fatalf("got %d bills, want 1", len(got))
	}
	if want := date(2024, time.March, 5); !got[0].DueDate.Equal(want) {
		t.Errorf("projected due date = %v, want %v", got[0].DueDate, want)
	}
}

func TestBillsForMonthForwardFillClampsShortMonth(t *testing.T) {
	b := recurringBill("a", "Card", date(2024, time.January, 31), 5000)
	b.OriginalDueDay = 31

	got := BillsForMonth([]core.Bill{b}, "2024-02")
	if len(got) != 1 {
		t.Fatalf("got %d bills, want 1", len(got))
	}
	if want := date(2024, time.February, 29); !got[0].DueDate.Equal(want) {
		t.Errorf("projected due date = %v, want %v (leap-year clamp)", got[0].DueDate, want)
	}
}

func TestBillsForMonthExcludesOldOneTime(t *testing.T) {
	bills := []core.Bill{
		{ID: "c", Name: "Dentist", DueDate: date(2024, time.January, 20), Frequency: core.OneTime},
	}
	if got := BillsForMonth(bills, "2024-03"); len(got) != 0 {
		t.Errorf("one-time bill from January projected into March: %+v", got)
	}
}

func TestBillsForMonthExcludesFutureBills(t *testing.T) {
	bills := []core.Bill{
		recurringBill("a", "Rent", date(2024, time.May, 1), 120000),
	}
	if got := BillsForMonth(bills, "2024-03"); len(got) != 0 {
		t.Errorf("bill from May included in March: %+v", got)
	}
}

func TestProjectionMatchesRollover(t *testing.T) {
	// Viewing a recurring bill two months ahead must give the same due
	// date as actually rolling it over twice.
	b := recurringBill("a", "Card", date(2024, time.January, 31), 5000)
	b.OriginalDueDay = 31

	projected := BillsForMonth([]core.Bill{b}, "2024-03")[0].DueDate

	rolled := b
	for i := 0; i < 2; i++ {
		rolled.IsPaid = true
		rolled.PaidAmount = rolled.Amount
		res := Rollover([]core.Bill{rolled}, nil, nil, core.MonthKeyOf(rolled.DueDate), date(2024, time.January, 31))
		rolled = res.Bills[0]
	}

	if !projected.Equal(rolled.DueDate) {
		t.Errorf("projected %v != rolled-over %v", projected, rolled.DueDate)
	}
	if want := date(2024, time.March, 31); !projected.Equal(want) {
		t.Errorf("due date = %v, want %v (anchor day restored after February)", projected, want)
	}
}

func TestActiveMonthComplete(t *testing.T) {
	paid := recurringBill("a", "Rent", date(2024, time.March, 1), 120000)
	paid.IsPaid = true
	unpaid := recurringBill("b", "Internet", date(2024, time.March, 15), 6000)

	if ActiveMonthComplete([]core.Bill{paid, unpaid}, "2024-03") {
		t.Error("month with an unpaid bill reported complete")
	}
	if !ActiveMonthComplete([]core.Bill{paid}, "2024-03") {
		t.Error("month with all bills paid reported incomplete")
	}
	if !ActiveMonthComplete(nil, "2024-03") {
		t.Error("empty month should count as complete")
	}
}

func TestUpcomingBills(t *testing.T) {
	now := date(2024, time.March, 10)
	soon := recurringBill("a", "Internet", date(2024, time.March, 15), 6000)
	far := recurringBill("b", "Rent", date(2024, time.March, 30), 120000)
	paid := recurringBill("c", "Water", date(2024, time.March, 12), 3000)
	paid.IsPaid = true

	got := UpcomingBills([]core.Bill{soon, far, paid}, "2024-03", now, 7)
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("UpcomingBills = %+v, want just the unpaid bill due within 7 days", got)
	}
}

func TestTotalsForMonth(t *testing.T) {
	paid := recurringBill("a", "Rent", date(2024, time.March, 1), 120000)
	paid.IsPaid = true
	paid.PaidAmount = core.Money{Cents: 120000}
	unpaid := recurringBill("b", "Internet", date(2024, time.March, 15), 6000)

	got := TotalsForMonth([]core.Bill{paid, unpaid}, "2024-03")
	want := MonthTotals{DueCents: 126000, PaidCents: 120000, RemainingCents: 6000, BillCount: 2, PaidCount: 1}
	if got != want {
		t.Errorf("TotalsForMonth = %+v, want %+v", got, want)
	}
}
