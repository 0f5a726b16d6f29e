package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"psp.com/arbitro-quiz/internal/config"
	"psp.com/arbitro-quiz/internal/questionbank"
	"psp.com/arbitro-quiz/internal/quiz"
)

const requestsPerMinute = 60

func runServe(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		s, code := setup(cmd, args, stderr, []config.Group{config.KB, config.Matching, config.Serve}, nil)
		if s == nil {
			return code
		}
		bank := questionbank.New(s.logger)
		bank.Policy = s.cfg.MatchPolicy()
		if _, err := bank.Load(s.cfg.KBPath); err != nil {
			fmt.Fprintf(stderr, "Failed to load knowledge base: %v\n", err)
			return ExitError
		}

		srv := &http.Server{
			Addr:              s.cfg.ServeAddr,
			Handler:           newRouter(bank, s.cfg.CORSOrigins, s.cfg.TrustProxy, s.logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		go func() {
			<-ctx.Done()
			shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdown)
		}()

		st := bank.Stats()
		s.logger.Info("serving knowledge base", "addr", s.cfg.ServeAddr, "path", s.cfg.KBPath,
			"questions", st.Total, "resolved", st.Resolved)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(stderr, "Server failed: %v\n", err)
			return ExitError
		}
		return ExitOK
	}
}

// newRouter exposes bank read-only. trustProxy keys rate limiting on the
// first X-Forwarded-For address, which only a reverse proxy can vouch for.
func newRouter(bank *questionbank.Bank, origins []string, trustProxy bool, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(securityHeaders)
	limiter := newRateLimiter(requestsPerMinute, time.Minute)
	limiter.trustProxy = trustProxy
	r.Use(limiter.middleware)

	h := &kbHandler{bank: bank, logger: logger}
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", h.stats)
		r.Get("/questions", h.questions)
		r.Get("/lookup", h.lookup)
	})
	return r
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// rateLimiter allows limit requests per client within window.
type rateLimiter struct {
	limit      int
	window     time.Duration
	trustProxy bool
	now        func() time.Time

	mu        sync.Mutex
	seen      map[string][]time.Time
	lastSweep time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{limit: limit, window: window, now: time.Now, seen: map[string][]time.Time{}}
}

func (l *rateLimiter) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(now)
	}
	recent := l.recent(client, now)
	if len(recent) >= l.limit {
		l.seen[client] = recent
		return false
	}
	l.seen[client] = append(recent, now)
	return true
}

func (l *rateLimiter) recent(client string, now time.Time) []time.Time {
	recent := l.seen[client][:0]
	for _, t := range l.seen[client] {
		if now.Sub(t) < l.window {
			recent = append(recent, t)
		}
	}
	return recent
}

// sweep forgets clients with no request inside the window.
func (l *rateLimiter) sweep(now time.Time) {
	for client := range l.seen {
		if recent := l.recent(client, now); len(recent) == 0 {
			delete(l.seen, client)
		} else {
			l.seen[client] = recent
		}
	}
	l.lastSweep = now
}

// clientKey is the peer host, or the first X-Forwarded-For entry when the
// limiter sits behind a trusted proxy.
func (l *rateLimiter) clientKey(r *http.Request) string {
	if l.trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
				return first
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (l *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		if !l.allow(l.clientKey(r)) {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type kbHandler struct {
	bank   *questionbank.Bank
	logger *slog.Logger
}

func (h *kbHandler) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.bank.Stats())
}

// questions lists stored entries; ?resolved=true limits them to resolved ones.
func (h *kbHandler) questions(w http.ResponseWriter, r *http.Request) {
	recs := h.bank.Records()
	if v := r.URL.Query().Get("resolved"); v != "" {
		only, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "resolved must be a boolean", http.StatusBadRequest)
			return
		}
		if only {
			recs = h.bank.Resolved()
		}
	}
	entries := make([]questionbank.Entry, len(recs))
	for i, rec := range recs {
		entries[i] = questionbank.NewEntry(rec)
	}
	writeJSON(w, http.StatusOK, entries)
}

type lookupResp struct {
	By    string             `json:"by"`
	Score float64            `json:"score"`
	Entry questionbank.Entry `json:"entry"`
}

// lookup finds an entry by ?id= and/or question text ?q=.
func (h *kbHandler) lookup(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	text := strings.TrimSpace(r.URL.Query().Get("q"))
	if id == "" && text == "" {
		http.Error(w, "id or q required", http.StatusBadRequest)
		return
	}
	if len(text) > 2000 {
		http.Error(w, "q too long", http.StatusBadRequest)
		return
	}
	hit := h.bank.Lookup(quiz.Question{ID: id, Text: text})
	if !hit.Found() {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	h.logger.Debug("lookup", "id", id, "by", hit.By, "score", hit.Score)
	writeJSON(w, http.StatusOK, lookupResp{By: hit.By.String(), Score: hit.Score, Entry: questionbank.NewEntry(hit.Record)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
