package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BLINDMO/honeycutt-budget-planner-sub000/internal/core"
	"github.com/BLINDMO/honeycutt-budget-planner-sub000/internal/services"
)

type memRepo struct {
	agg core.BudgetAggregate
}

func (m *memRepo) Load(ctx context.Context) (core.BudgetAggregate, error) { return m.agg, nil }
func (m *memRepo) Save(ctx context.Context, agg core.BudgetAggregate) error {
	m.agg = agg
	return nil
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()

	now := time.Now()
	activeMonth := core.MonthKeyOf(now)
	repo := &memRepo{agg: core.BudgetAggregate{
		Bills: []core.Bill{
			{
				ID:        "rent",
				Name:      "Rent",
				Amount:    core.Money{Cents: 120000},
				DueDate:   time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC),
				Frequency: core.Monthly,
			},
			{
				ID:             "card",
				Name:           "Card",
				Amount:         core.Money{Cents: 15000},
				DueDate:        time.Date(now.Year(), now.Month(), 15, 0, 0, 0, 0, time.UTC),
				Frequency:      core.Monthly,
				HasBalance:     true,
				Balance:        core.Money{Cents: 480000},
				MonthlyPayment: core.Money{Cents: 15000},
				InterestRate:   22.9,
			},
		},
		ActiveMonth: activeMonth,
		Version:     core.AggregateVersion,
	}}

	svc, err := services.NewBudgetService(context.Background(), repo, nil)
	if err != nil {
		t.Fatalf("NewBudgetService: %v", err)
	}

	srv := NewServer(":0", svc, 1000)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv, activeMonth
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doJSON(t, srv, http.MethodGet, path, "")
		if rr.Code != 200 {
			t.Errorf("%s status=%d", path, rr.Code)
		}
	}
}

func TestStateEndpoint(t *testing.T) {
	srv, activeMonth := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/state", "")
	if rr.Code != 200 {
		t.Fatalf("state status=%d: %s", rr.Code, rr.Body.String())
	}

	var state statePayload
	if err := json.Unmarshal(rr.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.ActiveMonth != activeMonth || state.ViewingMonth != activeMonth {
		t.Errorf("months = %q/%q, want %q", state.ActiveMonth, state.ViewingMonth, activeMonth)
	}
	if state.Mode != services.ViewActive {
		t.Errorf("mode = %q, want active", state.Mode)
	}
	if len(state.Bills) != 2 {
		t.Errorf("bills = %d, want 2", len(state.Bills))
	}
	if state.Totals.DueCents != 135000 {
		t.Errorf("due = %d cents, want 135000", state.Totals.DueCents)
	}
	if state.Totals.Due != "$1350.00" {
		t.Errorf("formatted due = %q", state.Totals.Due)
	}
}

func TestAddBill(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/bills",
		`{"name":"Internet","amount":"60.00","dueDate":"2030-01-20T00:00:00Z","frequency":"monthly"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add status=%d: %s", rr.Code, rr.Body.String())
	}
	var b core.Bill
	if err := json.Unmarshal(rr.Body.Bytes(), &b); err != nil {
		t.Fatal(err)
	}
	if b.ID == "" || b.Amount.Cents != 6000 {
		t.Errorf("added bill = %+v", b)
	}

	// Validation failure surfaces as 422.
	rr = doJSON(t, srv, http.MethodPost, "/api/bills",
		`{"name":"","amount":"60.00","dueDate":"2030-01-20T00:00:00Z","frequency":"monthly"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid bill status=%d, want 422", rr.Code)
	}

	// Malformed JSON surfaces as 400.
	rr = doJSON(t, srv, http.MethodPost, "/api/bills", `{not json`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("malformed body status=%d, want 400", rr.Code)
	}
}

func TestPayAndUndo(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/bills/pay", `{"id":"rent","method":"checking"}`)
	if rr.Code != 200 {
		t.Fatalf("pay status=%d: %s", rr.Code, rr.Body.String())
	}
	var state statePayload
	if err := json.Unmarshal(rr.Body.Bytes(), &state); err != nil {
		t.Fatal(err)
	}
	var paid bool
	for _, b := range state.Bills {
		if b.ID == "rent" && b.IsPaid && b.PaidAmount.Cents == 120000 {
			paid = true
		}
	}
	if !paid {
		t.Errorf("rent not paid in state: %+v", state.Bills)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/bills/unpay", `{"id":"rent"}`)
	if rr.Code != 200 {
		t.Fatalf("unpay status=%d", rr.Code)
	}

	// A missing id is a no-op, not an error.
	rr = doJSON(t, srv, http.MethodPost, "/api/bills/pay", `{"id":"ghost"}`)
	if rr.Code != 200 {
		t.Errorf("pay missing id status=%d, want 200", rr.Code)
	}
}

func TestPayoffEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/bills/payoff?id=card", "")
	if rr.Code != 200 {
		t.Fatalf("payoff status=%d: %s", rr.Code, rr.Body.String())
	}
	var c core.PayoffComparison
	if err := json.Unmarshal(rr.Body.Bytes(), &c); err != nil {
		t.Fatal(err)
	}
	if c.Current.MonthsToPayoff == 0 {
		t.Error("expected a projection for the card balance")
	}
	if c.Aggressive.MonthsToPayoff > c.Current.MonthsToPayoff {
		t.Error("larger payment should not take longer")
	}

	// Cached on second read.
	if srv.payoffCache.Size() != 1 {
		t.Errorf("payoff cache size = %d, want 1", srv.payoffCache.Size())
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/bills/payoff?id=rent", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("payoff for balance-free bill status=%d, want 404", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodGet, "/api/bills/payoff", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("payoff without id status=%d, want 400", rr.Code)
	}
}

func TestRolloverBlockedWhileIncomplete(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/rollover", `{}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("rollover status=%d, want 409: %s", rr.Code, rr.Body.String())
	}
}

func TestRolloverAfterPayingEverything(t *testing.T) {
	srv, activeMonth := newTestServer(t)

	for _, id := range []string{"rent", "card"} {
		rr := doJSON(t, srv, http.MethodPost, "/api/bills/pay", fmt.Sprintf(`{"id":%q}`, id))
		if rr.Code != 200 {
			t.Fatalf("pay %s status=%d", id, rr.Code)
		}
	}

	rr := doJSON(t, srv, http.MethodPost, "/api/rollover", `{}`)
	if rr.Code != 200 {
		t.Fatalf("rollover status=%d: %s", rr.Code, rr.Body.String())
	}
	var state statePayload
	if err := json.Unmarshal(rr.Body.Bytes(), &state); err != nil {
		t.Fatal(err)
	}
	want := core.AddMonthsToKey(activeMonth, 1)
	if state.ActiveMonth != want || state.ViewingMonth != want {
		t.Errorf("months after rollover = %q/%q, want %q", state.ActiveMonth, state.ViewingMonth, want)
	}
	if srv.payoffCache.Size() != 0 {
		t.Error("rollover should clear the payoff cache")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/export", "")
	if rr.Code != 200 {
		t.Fatalf("export status=%d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	rr2 := doJSON(t, srv, http.MethodPost, "/api/import", rr.Body.String())
	if rr2.Code != 200 {
		t.Fatalf("import status=%d: %s", rr2.Code, rr2.Body.String())
	}
	var state statePayload
	if err := json.Unmarshal(rr2.Body.Bytes(), &state); err != nil {
		t.Fatal(err)
	}
	if len(state.Bills) != 2 {
		t.Errorf("bills after import = %d, want 2", len(state.Bills))
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/import", `{"version":99}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("import of newer version status=%d, want 400", rr.Code)
	}
}

func TestUpcomingEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	due := time.Now().UTC().Format(time.RFC3339)
	rr := doJSON(t, srv, http.MethodPost, "/api/bills",
		fmt.Sprintf(`{"name":"Trash","amount":"25.00","dueDate":%q,"frequency":"monthly"}`, due))
	if rr.Code != http.StatusCreated {
		t.Fatalf("add status=%d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/upcoming?days=7", "")
	if rr.Code != 200 {
		t.Fatalf("upcoming status=%d: %s", rr.Code, rr.Body.String())
	}
	var bills []core.Bill
	if err := json.Unmarshal(rr.Body.Bytes(), &bills); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, b := range bills {
		if b.Name == "Trash" {
			found = true
		}
	}
	if !found {
		t.Errorf("bill due tomorrow missing from upcoming window: %+v", bills)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/upcoming?days=nope", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad days param status=%d, want 400", rr.Code)
	}
	var e errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil || e.Error == "" {
		t.Errorf("bad days param body = %q, want an error payload", rr.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/rollover", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET rollover status=%d, want 405", rr.Code)
	}
	if allow := rr.Header().Get("Allow"); allow != http.MethodPost {
		t.Errorf("Allow = %q, want POST", allow)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/state", "")
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.rateLimiter.perMinute = 1

	first := doJSON(t, srv, http.MethodPost, "/api/month/navigate", `{"delta":1}`)
	if first.Code != 200 {
		t.Fatalf("first request status=%d", first.Code)
	}
	second := doJSON(t, srv, http.MethodPost, "/api/month/navigate", `{"delta":1}`)
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second request status=%d, want 429", second.Code)
	}
}
