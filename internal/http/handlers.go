package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BLINDMO/honeycutt-budget-planner-sub000/internal/core"
	"github.com/BLINDMO/honeycutt-budget-planner-sub000/internal/export"
	"github.com/BLINDMO/honeycutt-budget-planner-sub000/internal/services"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeServiceError maps the service error taxonomy onto status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrReadOnlyMonth),
		errors.Is(err, services.ErrPreviewMonth),
		errors.Is(err, services.ErrRolloverNotAllowed),
		errors.Is(err, services.ErrMonthIncomplete):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrMissingDueDate),
		errors.Is(err, core.ErrInvalidFrequency),
		errors.Is(err, core.ErrInvalidRate),
		errors.Is(err, core.ErrInvalidMonthKey):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "url", r.URL.Path)
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

type totalsPayload struct {
	Due            string `json:"due"`
	Paid           string `json:"paid"`
	Remaining      string `json:"remaining"`
	DueCents       int64  `json:"dueCents"`
	PaidCents      int64  `json:"paidCents"`
	RemainingCents int64  `json:"remainingCents"`
	BillCount      int    `json:"billCount"`
	PaidCount      int    `json:"paidCount"`
}

func totalsFor(t services.MonthTotals) totalsPayload {
	return totalsPayload{
		Due:            core.FormatDollars(t.DueCents),
		Paid:           core.FormatDollars(t.PaidCents),
		Remaining:      core.FormatDollars(t.RemainingCents),
		DueCents:       t.DueCents,
		PaidCents:      t.PaidCents,
		RemainingCents: t.RemainingCents,
		BillCount:      t.BillCount,
		PaidCount:      t.PaidCount,
	}
}

type statePayload struct {
	ActiveMonth  string            `json:"activeMonth"`
	ViewingMonth string            `json:"viewingMonth"`
	Mode         services.ViewMode `json:"mode"`
	Bills        []core.Bill       `json:"bills"`
	Totals       totalsPayload     `json:"totals"`
	IsFirstTime  bool              `json:"isFirstTime"`
	Theme        string            `json:"theme"`
}

func (s *Server) statePayload() statePayload {
	agg := s.planner.Aggregate()
	return statePayload{
		ActiveMonth:  s.planner.ActiveMonth(),
		ViewingMonth: s.planner.ViewingMonth(),
		Mode:         s.planner.ViewMode(),
		Bills:        s.planner.BillsForViewingMonth(),
		Totals:       totalsFor(s.planner.TotalsForViewingMonth()),
		IsFirstTime:  agg.IsFirstTime,
		Theme:        agg.Theme,
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.statePayload())
}

func (s *Server) handleViewMonth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Month string `json:"month"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.planner.SetViewingMonth(req.Month); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.statePayload())
}

func (s *Server) handleNavigateMonth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Delta int `json:"delta"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.planner.NavigateMonth(req.Delta)
	writeJSON(w, http.StatusOK, s.statePayload())
}

func (s *Server) handleAddBill(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var b core.Bill
	if err := decodeJSON(r, &b); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	b.Name = sanitizeInput(b.Name)
	b.Note = sanitizeInput(b.Note)

	added, err := s.planner.AddBill(r.Context(), b)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

type billRef struct {
	ID     string     `json:"id"`
	Amount core.Money `json:"amount"`
	Method string     `json:"method"`
	Note   string     `json:"note"`
}

func (s *Server) billAction(w http.ResponseWriter, r *http.Request, action func(billRef) error) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req billRef
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := action(req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.payoffCache.Delete(req.ID)
	writeJSON(w, http.StatusOK, s.statePayload())
}

func (s *Server) handlePayBill(w http.ResponseWriter, r *http.Request) {
	s.billAction(w, r, func(req billRef) error {
		return s.planner.MarkPaid(r.Context(), req.ID, req.Amount, sanitizeInput(req.Method))
	})
}

func (s *Server) handleUnpayBill(w http.ResponseWriter, r *http.Request) {
	s.billAction(w, r, func(req billRef) error {
		return s.planner.UndoPayment(r.Context(), req.ID)
	})
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	s.billAction(w, r, func(req billRef) error {
		return s.planner.DeleteBill(r.Context(), req.ID)
	})
}

func (s *Server) handleUpdateAmount(w http.ResponseWriter, r *http.Request) {
	s.billAction(w, r, func(req billRef) error {
		return s.planner.UpdateAmount(r.Context(), req.ID, req.Amount)
	})
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	s.billAction(w, r, func(req billRef) error {
		return s.planner.UpdateNote(r.Context(), req.ID, sanitizeInput(req.Note))
	})
}

func (s *Server) handlePayoff(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing id"))
		return
	}

	if cached, found := s.payoffCache.Get(id); found {
		slog.DebugContext(r.Context(), "Payoff cache hit", "bill_id", id)
		writeJSON(w, http.StatusOK, cached)
		return
	}

	comparison, ok := s.planner.Payoff(id)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("bill not found or carries no balance"))
		return
	}
	s.payoffCache.Set(id, comparison)
	writeJSON(w, http.StatusOK, comparison)
}

func (s *Server) handleRollover(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Decisions map[string]services.Decision `json:"decisions"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.planner.StartNewMonth(r.Context(), req.Decisions); err != nil {
		writeServiceError(w, r, err)
		return
	}
	// Every balance moved; drop all cached projections.
	s.payoffCache.Clear()
	writeJSON(w, http.StatusOK, s.statePayload())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	items := s.planner.History()
	if items == nil {
		items = []core.HistoryItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, errors.New("days must be a non-negative integer"))
			return
		}
		days = n
	}
	bills := s.planner.Upcoming(days)
	if bills == nil {
		bills = []core.Bill{}
	}
	writeJSON(w, http.StatusOK, bills)
}

func (s *Server) handlePayDates(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	dates := s.planner.PayDatesForViewingMonth()
	if dates == nil {
		dates = map[string][]time.Time{}
	}
	writeJSON(w, http.StatusOK, dates)
}

func (s *Server) handleSetPayInfos(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var infos []core.PayInfo
	if err := decodeJSON(r, &infos); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	for i := range infos {
		infos[i].Name = sanitizeInput(infos[i].Name)
	}
	if err := s.planner.SetPayInfos(r.Context(), infos); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.statePayload())
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Theme string `json:"theme"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.planner.SetTheme(r.Context(), sanitizeInput(req.Theme)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.statePayload())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="budget-export.json"`)
	if err := export.Write(w, s.planner.Aggregate()); err != nil {
		slog.ErrorContext(r.Context(), "Export failed", "error", err)
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	agg, err := export.Read(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.planner.ReplaceAggregate(r.Context(), agg); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.payoffCache.Clear()
	writeJSON(w, http.StatusOK, s.statePayload())
}
