package core

import (
	"testing"
	"time"
)

func validBill() Bill {
	return Bill{
		ID:        "b1",
		Name:      "Electric",
		Amount:    Money{Cents: 14500},
		DueDate:   date(2024, time.March, 5),
		Frequency: Monthly,
	}
}

func TestBillValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Bill)
		wantErr error
	}{
		{"valid", func(b *Bill) {}, nil},
		{"empty name", func(b *Bill) { b.Name = "  " }, ErrEmptyName},
		{"zero due date", func(b *Bill) { b.DueDate = time.Time{} }, ErrMissingDueDate},
		{"bad frequency", func(b *Bill) { b.Frequency = "fortnightly" }, ErrInvalidFrequency},
		{"negative amount", func(b *Bill) { b.Amount.Cents = -1 }, ErrInvalidAmount},
		{"negative balance", func(b *Bill) { b.HasBalance = true; b.Balance.Cents = -1 }, ErrInvalidAmount},
		{"negative rate", func(b *Bill) { b.HasBalance = true; b.InterestRate = -2 }, ErrInvalidRate},
		{"zero amount variable bill is fine", func(b *Bill) { b.Amount.Cents = 0 }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBill()
			tt.mutate(&b)
			if err := b.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBillDueDay(t *testing.T) {
	b := validBill()
	if got := b.DueDay(); got != 5 {
		t.Errorf("DueDay() = %d, want 5 (from due date)", got)
	}
	b.OriginalDueDay = 31
	if got := b.DueDay(); got != 31 {
		t.Errorf("DueDay() = %d, want 31 (anchor wins)", got)
	}
}

func TestPayInfoValidate(t *testing.T) {
	p := PayInfo{Name: "Salary", LastPayDate: date(2024, time.March, 1), Frequency: PayBiweekly}
	if err := p.Validate(); err != nil {
		t.Errorf("valid PayInfo: %v", err)
	}
	p.Frequency = "daily"
	if err := p.Validate(); err != ErrInvalidFrequency {
		t.Errorf("bad frequency: got %v, want ErrInvalidFrequency", err)
	}
}

func TestDefaultAggregate(t *testing.T) {
	now := date(2024, time.July, 19)
	a := DefaultAggregate(now)
	if !a.IsFirstTime {
		t.Error("IsFirstTime should be true")
	}
	if a.ActiveMonth != "2024-07" {
		t.Errorf("ActiveMonth = %q, want 2024-07", a.ActiveMonth)
	}
	if len(a.Bills) != 0 || len(a.PaidHistory) != 0 {
		t.Error("default aggregate should be empty")
	}
	if a.Version != AggregateVersion {
		t.Errorf("Version = %d, want %d", a.Version, AggregateVersion)
	}
}

func TestFindBill(t *testing.T) {
	a := BudgetAggregate{Bills: []Bill{validBill()}}
	if got := a.FindBill("b1"); got != 0 {
		t.Errorf("FindBill(b1) = %d, want 0", got)
	}
	if got := a.FindBill("nope"); got != -1 {
		t.Errorf("FindBill(nope) = %d, want -1", got)
	}
}
