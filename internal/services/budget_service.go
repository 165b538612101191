package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BLINDMO/honeycutt-budget-planner-sub000/internal/core"
)

// Repository persists the whole aggregate. The SQLite implementation
// lives in internal/storage.
type Repository interface {
	Load(ctx context.Context) (core.BudgetAggregate, error)
	Save(ctx context.Context, agg core.BudgetAggregate) error
}

// ChangePublisher emits change events after committed mutations. A nil
// publisher disables eventing; mutations never fail because of it.
type ChangePublisher interface {
	PublishChange(ctx context.Context, kind, billID, month string) error
}

// Change event kinds published to the snapshot queue.
const (
	ChangeBillAdded   = "bill-added"
	ChangeBillUpdated = "bill-updated"
	ChangeBillDeleted = "bill-deleted"
	ChangeBillPaid    = "bill-paid"
	ChangeBillUnpaid  = "bill-unpaid"
	ChangeRollover    = "rollover"
	ChangePayInfo     = "payinfo-updated"
	ChangeImported    = "imported"
)

var (
	// ErrReadOnlyMonth is returned for mutations attempted while
	// viewing an archived month.
	ErrReadOnlyMonth = errors.New("month is read-only")
	// ErrPreviewMonth is returned for structural edits attempted in a
	// future month preview.
	ErrPreviewMonth = errors.New("month is in preview")
	// ErrMonthIncomplete blocks rollover while unpaid bills remain.
	ErrMonthIncomplete = errors.New("active month has unpaid bills")
	// ErrRolloverNotAllowed blocks rollover outside the active month.
	ErrRolloverNotAllowed = errors.New("rollover only allowed from the active month")
)

// BudgetService owns the in-memory aggregate and exposes every
// operation of the planner as a synchronous transform followed by a
// full-state persist. It is the single writer; the mutex exists because
// the HTTP layer is concurrent even though the domain model is not.
type BudgetService struct {
	mu        sync.Mutex
	repo      Repository
	publisher ChangePublisher

	agg          core.BudgetAggregate
	viewingMonth string

	now func() time.Time
}

// NewBudgetService loads the persisted aggregate, falling back to the
// default state when nothing loads, and snaps the viewing cursor to the
// active month.
func NewBudgetService(ctx context.Context, repo Repository, publisher ChangePublisher) (*BudgetService, error) {
	s := &BudgetService{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
	}

	agg, err := repo.Load(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Load failed, starting from default aggregate", "error", err)
		agg = core.DefaultAggregate(s.now())
	}
	if agg.ActiveMonth == "" {
		agg.ActiveMonth = core.MonthKeyOf(s.now())
	}
	s.agg = agg
	s.viewingMonth = agg.ActiveMonth
	return s, nil
}

// Aggregate returns a snapshot copy of the current state.
func (s *BudgetService) Aggregate() core.BudgetAggregate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAggregate(s.agg)
}

// ActiveMonth returns the current billing period key.
func (s *BudgetService) ActiveMonth() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agg.ActiveMonth
}

// ViewingMonth returns the navigational cursor.
func (s *BudgetService) ViewingMonth() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewingMonth
}

// ViewMode derives the mode of the viewing cursor.
func (s *BudgetService) ViewMode() ViewMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ViewModeFor(s.viewingMonth, s.agg.ActiveMonth)
}

// SetViewingMonth moves the cursor to an explicit month key.
func (s *BudgetService) SetViewingMonth(key string) error {
	if _, _, err := core.ParseMonthKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewingMonth = key
	return nil
}

// NavigateMonth moves the cursor by delta months. Moving forward from
// an incomplete active month lands in preview; it never rolls over.
func (s *BudgetService) NavigateMonth(delta int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewingMonth = core.AddMonthsToKey(s.viewingMonth, delta)
	return s.viewingMonth
}

// BillsForViewingMonth projects the bill set into the viewing month.
func (s *BudgetService) BillsForViewingMonth() []core.Bill {
	s.mu.Lock()
	defer s.mu.Unlock()
	return BillsForMonth(s.agg.Bills, s.viewingMonth)
}

// TotalsForViewingMonth summarizes the viewing month.
func (s *BudgetService) TotalsForViewingMonth() MonthTotals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return TotalsForMonth(s.agg.Bills, s.viewingMonth)
}

// Upcoming returns the active month's unpaid bills due within the next
// n days.
func (s *BudgetService) Upcoming(n int) []core.Bill {
	s.mu.Lock()
	defer s.mu.Unlock()
	return UpcomingBills(s.agg.Bills, s.agg.ActiveMonth, s.now(), n)
}

// History returns the archived payment snapshots, newest first.
func (s *BudgetService) History() []core.HistoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.HistoryItem, len(s.agg.PaidHistory))
	copy(out, s.agg.PaidHistory)
	return out
}

// AddBill validates and inserts a new bill, assigning its identifier
// and anchor day.
func (s *BudgetService) AddBill(ctx context.Context, b core.Bill) (core.Bill, error) {
	if err := b.Validate(); err != nil {
		return core.Bill{}, fmt.Errorf("validate bill: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if mode := ViewModeFor(s.viewingMonth, s.agg.ActiveMonth); !mode.AllowsEdits() {
		return core.Bill{}, editGateErr(mode)
	}

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.DueDate = core.Midnight(b.DueDate)
	if b.OriginalDueDay == 0 {
		b.OriginalDueDay = b.DueDate.Day()
	}
	s.agg.Bills = append(s.agg.Bills, b)
	s.agg.IsFirstTime = false

	if err := s.persist(ctx); err != nil {
		return b, err
	}
	s.publish(ctx, ChangeBillAdded, b.ID)
	return b, nil
}

// UpdateAmount sets the amount due on a bill. A missing id is a no-op.
func (s *BudgetService) UpdateAmount(ctx context.Context, id string, amount core.Money) error {
	return s.mutateBill(ctx, id, ChangeBillUpdated, func(b *core.Bill) error {
		if amount.Cents < 0 {
			return core.ErrInvalidAmount
		}
		b.Amount = amount
		return nil
	})
}

// UpdateNote sets the free-text note on a bill. A missing id is a no-op.
func (s *BudgetService) UpdateNote(ctx context.Context, id, note string) error {
	return s.mutateBill(ctx, id, ChangeBillUpdated, func(b *core.Bill) error {
		b.Note = note
		return nil
	})
}

// MarkPaid records a payment against a bill. A zero amount defaults to
// the amount due. Allowed in the active month and, as an advance
// payment, in preview; never in the past. A missing id is a no-op.
func (s *BudgetService) MarkPaid(ctx context.Context, id string, amount core.Money, method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mode := ViewModeFor(s.viewingMonth, s.agg.ActiveMonth); !mode.AllowsPayments() {
		return ErrReadOnlyMonth
	}

	i := s.agg.FindBill(id)
	if i < 0 {
		return nil
	}
	b := &s.agg.Bills[i]
	if amount.Cents <= 0 {
		amount = b.Amount
	}
	b.IsPaid = true
	b.PaidAmount = amount
	b.PaidMethod = method
	b.PaidDate = core.Midnight(s.now())

	if err := s.persist(ctx); err != nil {
		return err
	}
	s.publish(ctx, ChangeBillPaid, id)
	return nil
}

// UndoPayment reverses a payment as a new forward transition; history
// is never rewritten. A missing id is a no-op.
func (s *BudgetService) UndoPayment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mode := ViewModeFor(s.viewingMonth, s.agg.ActiveMonth); !mode.AllowsPayments() {
		return ErrReadOnlyMonth
	}

	i := s.agg.FindBill(id)
	if i < 0 {
		return nil
	}
	b := &s.agg.Bills[i]
	b.IsPaid = false
	b.PaidAmount = core.Money{}
	b.PaidMethod = ""
	b.PaidDate = time.Time{}

	if err := s.persist(ctx); err != nil {
		return err
	}
	s.publish(ctx, ChangeBillUnpaid, id)
	return nil
}

// DeleteBill removes a bill from the active set. A missing id is a
// no-op.
func (s *BudgetService) DeleteBill(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mode := ViewModeFor(s.viewingMonth, s.agg.ActiveMonth); !mode.AllowsEdits() {
		return editGateErr(mode)
	}

	i := s.agg.FindBill(id)
	if i < 0 {
		return nil
	}
	s.agg.Bills = append(s.agg.Bills[:i], s.agg.Bills[i+1:]...)

	if err := s.persist(ctx); err != nil {
		return err
	}
	s.publish(ctx, ChangeBillDeleted, id)
	return nil
}

// Payoff computes the three-way payoff comparison for a balance-bearing
// bill. The second return is false when the bill is missing or carries
// no balance.
func (s *BudgetService) Payoff(id string) (core.PayoffComparison, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.agg.FindBill(id)
	if i < 0 || !s.agg.Bills[i].HasBalance {
		return core.PayoffComparison{}, false
	}
	b := s.agg.Bills[i]
	return core.ComputePayoffComparison(b.Balance.Amount(), b.MonthlyPayment.Amount(), b.InterestRate), true
}

// StartNewMonth runs the rollover transaction. It is only permitted
// from the active month once every projected bill is paid; the viewing
// cursor snaps to the new active month afterwards.
func (s *BudgetService) StartNewMonth(ctx context.Context, decisions map[string]Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ViewModeFor(s.viewingMonth, s.agg.ActiveMonth) != ViewActive {
		return ErrRolloverNotAllowed
	}
	if !ActiveMonthComplete(s.agg.Bills, s.agg.ActiveMonth) {
		return ErrMonthIncomplete
	}

	res := Rollover(s.agg.Bills, s.agg.PaidHistory, decisions, s.agg.ActiveMonth, s.now())
	s.agg.Bills = res.Bills
	s.agg.PaidHistory = res.History
	s.agg.ActiveMonth = res.ActiveMonth
	s.agg.LastReset = core.Midnight(s.now())
	s.viewingMonth = res.ActiveMonth

	slog.InfoContext(ctx, "Month rolled over",
		"active_month", res.ActiveMonth,
		"bills", len(res.Bills),
		"history", len(res.History))

	if err := s.persist(ctx); err != nil {
		return err
	}
	s.publish(ctx, ChangeRollover, "")
	return nil
}

// SetPayInfos replaces the income sources.
func (s *BudgetService) SetPayInfos(ctx context.Context, infos []core.PayInfo) error {
	for _, p := range infos {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("validate pay info %q: %w", p.Name, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agg.PayInfos = infos
	if err := s.persist(ctx); err != nil {
		return err
	}
	s.publish(ctx, ChangePayInfo, "")
	return nil
}

// PayDatesForViewingMonth projects every income source into the viewing
// month.
func (s *BudgetService) PayDatesForViewingMonth() map[string][]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]time.Time, len(s.agg.PayInfos))
	for _, p := range s.agg.PayInfos {
		out[p.Name] = PayDatesInMonth(p, s.viewingMonth)
	}
	return out
}

// SetTheme stores the UI theme preference.
func (s *BudgetService) SetTheme(ctx context.Context, theme string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agg.Theme = theme
	return s.persist(ctx)
}

// ReplaceAggregate swaps in an imported aggregate wholesale.
func (s *BudgetService) ReplaceAggregate(ctx context.Context, agg core.BudgetAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if agg.ActiveMonth == "" {
		agg.ActiveMonth = core.MonthKeyOf(s.now())
	}
	s.agg = cloneAggregate(agg)
	s.viewingMonth = s.agg.ActiveMonth

	if err := s.persist(ctx); err != nil {
		return err
	}
	s.publish(ctx, ChangeImported, "")
	return nil
}

// mutateBill applies fn to the identified bill under the edit gate and
// persists. A missing id is a successful no-op.
func (s *BudgetService) mutateBill(ctx context.Context, id, kind string, fn func(*core.Bill) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mode := ViewModeFor(s.viewingMonth, s.agg.ActiveMonth); !mode.AllowsEdits() {
		return editGateErr(mode)
	}

	i := s.agg.FindBill(id)
	if i < 0 {
		return nil
	}
	if err := fn(&s.agg.Bills[i]); err != nil {
		return err
	}
	if err := s.persist(ctx); err != nil {
		return err
	}
	s.publish(ctx, kind, id)
	return nil
}

// persist writes the whole aggregate. On failure the in-memory state
// stays authoritative and the error surfaces so the user can retry.
// Callers hold the mutex.
func (s *BudgetService) persist(ctx context.Context) error {
	if err := s.repo.Save(ctx, s.agg); err != nil {
		slog.ErrorContext(ctx, "Save failed, in-memory state retained", "error", err)
		return fmt.Errorf("save aggregate: %w", err)
	}
	return nil
}

// publish emits a change event, fire-and-forget. Callers hold the mutex.
func (s *BudgetService) publish(ctx context.Context, kind, billID string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishChange(ctx, kind, billID, s.agg.ActiveMonth); err != nil {
		slog.WarnContext(ctx, "Failed to publish change event", "kind", kind, "error", err)
	}
}

func editGateErr(mode ViewMode) error {
	if mode == ViewPast {
		return ErrReadOnlyMonth
	}
	return ErrPreviewMonth
}

func cloneAggregate(a core.BudgetAggregate) core.BudgetAggregate {
	out := a
	out.Bills = append([]core.Bill(nil), a.Bills...)
	out.PaidHistory = append([]core.HistoryItem(nil), a.PaidHistory...)
	out.PayInfos = append([]core.PayInfo(nil), a.PayInfos...)
	return out
}
