package middleware

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type Quota interface {
	Allow(ctx context.Context, source string) (bool, error)
	Remaining(ctx context.Context, source string) (int, error)
	Limit() int
	Window() time.Duration
}

// ScanQuotaMiddleware throttles /scan/* per source. Redis errors fail open.
type ScanQuotaMiddleware struct {
	quota  Quota
	logger *log.Logger
}

func NewScanQuotaMiddleware(quota Quota, logger *log.Logger) *ScanQuotaMiddleware {
	if logger == nil {
		logger = log.Default()
	}
	return &ScanQuotaMiddleware{quota: quota, logger: logger}
}

func (m *ScanQuotaMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.quota == nil || !strings.HasPrefix(r.URL.Path, "/scan/") {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		ip := GetClientIP(ctx)

		allowed, err := m.quota.Allow(ctx, ip)
		if err != nil {
			m.logger.Printf("Warning: scan quota check failed for %s, allowing: %v", ip, err)
			next.ServeHTTP(w, r)
			return
		}

		window := int(m.quota.Window().Seconds())
		remaining, _ := m.quota.Remaining(ctx, ip)
		resetTime := time.Now().Add(m.quota.Window())

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.quota.Limit()))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(window))
			writeJSON(w, http.StatusTooManyRequests, `{"error": "scan quota exceeded", "retry_after": `+strconv.Itoa(window)+`}`)
			return
		}

		next.ServeHTTP(w, r)
	})
}
