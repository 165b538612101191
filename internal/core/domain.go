package core

import (
	"errors"
	"strings"
	"time"
)

// Bill frequencies. A monthly bill recurs at rollover; a one-time bill
// is dropped entirely when the month rolls past it.
const (
	OneTime Frequency = "one-time"
	Monthly Frequency = "monthly"
)

// Income frequencies for PayInfo.
const (
	PayWeekly      PayFrequency = "weekly"
	PayBiweekly    PayFrequency = "biweekly"
	PaySemimonthly PayFrequency = "semimonthly"
	PayMonthly     PayFrequency = "monthly"
)

type (
	Frequency    string
	PayFrequency string

	// Bill is a single obligation in the active set.
	Bill struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Amount    Money     `json:"amount"`  // 0 on a non-balance bill means "variable, not yet entered"
		DueDate   time.Time `json:"dueDate"`
		Frequency Frequency `json:"frequency"`

		IsPaid     bool      `json:"isPaid"`
		PaidAmount Money     `json:"paidAmount"`
		PaidMethod string    `json:"paidMethod,omitempty"`
		PaidDate   time.Time `json:"paidDate,omitempty"`

		// Balance-tracking fields for loans and credit cards.
		HasBalance      bool    `json:"hasBalance"`
		Balance         Money   `json:"balance"`
		MonthlyPayment  Money   `json:"monthlyPayment"`
		InterestRate    float64 `json:"interestRate"` // annual, percentage points (5.9 = 5.9%)
		IsCreditAccount bool    `json:"isCreditAccount"`

		Note string `json:"note,omitempty"`

		// OriginalDueDay anchors the day-of-month so that rolling
		// through a short month does not permanently drift the due
		// date (Jan 31 -> Feb 28 -> Mar 31, not Mar 28).
		OriginalDueDay int `json:"originalDueDay,omitempty"`
	}

	// HistoryItem is an immutable snapshot of a bill taken when it was
	// paid and rolled over. Never mutated, never deleted here.
	HistoryItem struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		PaidAmount   Money     `json:"paidAmount"`
		PaidMethod   string    `json:"paidMethod,omitempty"`
		PaidDate     time.Time `json:"paidDate"`
		ArchivedDate time.Time `json:"archivedDate"`
		DueDate      time.Time `json:"dueDate"`
		Frequency    Frequency `json:"frequency"`
		HadBalance   bool      `json:"hadBalance"`
		Balance      Money     `json:"balance"` // pre-rollover balance, for status display
	}

	// PayInfo is an income source. It travels with the aggregate but
	// does not participate in the rollover transaction.
	PayInfo struct {
		Name        string       `json:"name"`
		LastPayDate time.Time    `json:"lastPayDate"`
		Frequency   PayFrequency `json:"frequency"`
	}

	// BudgetAggregate is the whole persisted state: the single
	// in-memory source of truth owned by the session.
	BudgetAggregate struct {
		Bills       []Bill        `json:"bills"`
		PaidHistory []HistoryItem `json:"paidHistory"`
		LastReset   time.Time     `json:"lastReset"`
		IsFirstTime bool          `json:"isFirstTime"`
		Theme       string        `json:"theme,omitempty"`
		PayInfos    []PayInfo     `json:"payInfos"`
		ActiveMonth string        `json:"activeMonth"`
		Version     int           `json:"version"`
	}
)

// AggregateVersion is the current on-disk schema version.
const AggregateVersion = 1

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("empty bill name")
	ErrMissingDueDate   = errors.New("missing due date")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidRate      = errors.New("invalid interest rate")
)

// DefaultAggregate returns the state used when nothing has been
// persisted yet: empty bills and history, first-time flag set, and the
// active month pointing at the current calendar month.
func DefaultAggregate(now time.Time) BudgetAggregate {
	return BudgetAggregate{
		IsFirstTime: true,
		ActiveMonth: MonthKeyOf(now),
		Version:     AggregateVersion,
	}
}

// DueDay returns the anchor day-of-month for projecting this bill
// forward: the explicit OriginalDueDay when set, else the due date's day.
func (b Bill) DueDay() int {
	if b.OriginalDueDay > 0 {
		return b.OriginalDueDay
	}
	return b.DueDate.Day()
}

// Recurring reports whether the bill survives a month rollover.
func (b Bill) Recurring() bool {
	return b.Frequency == Monthly
}

func (b Bill) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if len(b.Name) > 200 {
		return errors.New("bill name too long (max 200 characters)")
	}
	if b.DueDate.IsZero() {
		return ErrMissingDueDate
	}
	switch b.Frequency {
	case OneTime, Monthly:
	default:
		return ErrInvalidFrequency
	}
	if b.Amount.Cents < 0 || b.PaidAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	if b.HasBalance {
		if b.Balance.Cents < 0 || b.MonthlyPayment.Cents < 0 {
			return ErrInvalidAmount
		}
		if b.InterestRate < 0 {
			return ErrInvalidRate
		}
	}
	return nil
}

func (p PayInfo) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.LastPayDate.IsZero() {
		return ErrMissingDueDate
	}
	switch p.Frequency {
	case PayWeekly, PayBiweekly, PaySemimonthly, PayMonthly:
		return nil
	default:
		return ErrInvalidFrequency
	}
}

// FindBill returns the index of the bill with the given id, or -1. A
// missing id is normal: UI state can lag the aggregate by one action.
func (a *BudgetAggregate) FindBill(id string) int {
	for i := range a.Bills {
		if a.Bills[i].ID == id {
			return i
		}
	}
	return -1
}
