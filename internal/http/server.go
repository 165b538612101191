// Package http exposes the planner over a JSON API. Amount fields in
// requests are decimal strings in major units; responses carry cents
// alongside formatted strings.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/BLINDMO/honeycutt-budget-planner-sub000/internal/cache"
	"github.com/BLINDMO/honeycutt-budget-planner-sub000/internal/core"
	"github.com/BLINDMO/honeycutt-budget-planner-sub000/internal/services"
)

type Server struct {
	http.Server
	planner     Planner
	rateLimiter *rateLimiter

	payoffCache  *cache.LRUCache[core.PayoffComparison]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// Planner is the service surface the handlers need. Satisfied by
// *services.BudgetService.
type Planner interface {
	Aggregate() core.BudgetAggregate
	ActiveMonth() string
	ViewingMonth() string
	ViewMode() services.ViewMode
	SetViewingMonth(key string) error
	NavigateMonth(delta int) string
	BillsForViewingMonth() []core.Bill
	TotalsForViewingMonth() services.MonthTotals
	History() []core.HistoryItem
	Upcoming(n int) []core.Bill
	AddBill(ctx context.Context, b core.Bill) (core.Bill, error)
	UpdateAmount(ctx context.Context, id string, amount core.Money) error
	UpdateNote(ctx context.Context, id, note string) error
	MarkPaid(ctx context.Context, id string, amount core.Money, method string) error
	UndoPayment(ctx context.Context, id string) error
	DeleteBill(ctx context.Context, id string) error
	Payoff(id string) (core.PayoffComparison, bool)
	StartNewMonth(ctx context.Context, decisions map[string]services.Decision) error
	SetPayInfos(ctx context.Context, infos []core.PayInfo) error
	PayDatesForViewingMonth() map[string][]time.Time
	SetTheme(ctx context.Context, theme string) error
	ReplaceAggregate(ctx context.Context, agg core.BudgetAggregate) error
}

// NewServer wires the routes, rate limiting, and the payoff projection
// cache, returning a ready-to-run http.Server.
func NewServer(addr string, planner Planner, rateLimitPerMinute int) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		planner:      planner,
		rateLimiter:  newRateLimiter(rateLimitPerMinute),
		payoffCache:  cache.NewLRUCache[core.PayoffComparison](100, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.payoffCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/state", s.withSecurityHeaders(s.handleState))
	mux.HandleFunc("/api/month/view", s.withSecurityHeaders(s.handleViewMonth))
	mux.HandleFunc("/api/month/navigate", s.withSecurityHeaders(s.handleNavigateMonth))
	mux.HandleFunc("/api/bills", s.withSecurityHeaders(s.handleAddBill))
	mux.HandleFunc("/api/bills/pay", s.withSecurityHeaders(s.handlePayBill))
	mux.HandleFunc("/api/bills/unpay", s.withSecurityHeaders(s.handleUnpayBill))
	mux.HandleFunc("/api/bills/delete", s.withSecurityHeaders(s.handleDeleteBill))
	mux.HandleFunc("/api/bills/amount", s.withSecurityHeaders(s.handleUpdateAmount))
	mux.HandleFunc("/api/bills/note", s.withSecurityHeaders(s.handleUpdateNote))
	mux.HandleFunc("/api/bills/payoff", s.withSecurityHeaders(s.handlePayoff))
	mux.HandleFunc("/api/rollover", s.withSecurityHeaders(s.handleRollover))
	mux.HandleFunc("/api/history", s.withSecurityHeaders(s.handleHistory))
	mux.HandleFunc("/api/upcoming", s.withSecurityHeaders(s.handleUpcoming))
	mux.HandleFunc("/api/paydates", s.withSecurityHeaders(s.handlePayDates))
	mux.HandleFunc("/api/payinfos", s.withSecurityHeaders(s.handleSetPayInfos))
	mux.HandleFunc("/api/theme", s.withSecurityHeaders(s.handleSetTheme))
	mux.HandleFunc("/api/export", s.withSecurityHeaders(s.handleExport))
	mux.HandleFunc("/api/import", s.withSecurityHeaders(s.handleImport))

	return s
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	perMinute    int
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter(perMinute int) *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		perMinute:   perMinute,
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	client.requests++
	client.lastRequest = now

	return client.requests <= rl.perMinute
}

// Shutdown stops the server along with its cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Rate limit mutations only; reads stay cheap.
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
