package middleware

import (
	"log"
	"net/http"
	"strings"
)

const blockedDetail = `{"detail": "Your IP has been temporarily blocked due to suspicious activity."}`

type BlockChecker interface {
	IsBlocked(sourceID string) bool
}

// IPFilterMiddleware rejects blocked sources. Operator and probe routes stay
// reachable so a blocked admin can still unblock.
type IPFilterMiddleware struct {
	tracker BlockChecker
	logger  *log.Logger
}

func NewIPFilterMiddleware(tracker BlockChecker, logger *log.Logger) *IPFilterMiddleware {
	if logger == nil {
		logger = log.Default()
	}
	return &IPFilterMiddleware{tracker: tracker, logger: logger}
}

func (m *IPFilterMiddleware) Filter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bypassFilter(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		ip := GetClientIP(r.Context())
		if m.tracker.IsBlocked(ip) {
			m.logger.Printf("Rejected %s %s from blocked source %s", r.Method, r.URL.Path, ip)
			writeJSON(w, http.StatusForbidden, blockedDetail)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bypassFilter(path string) bool {
	return path == "/admin" || strings.HasPrefix(path, "/admin/") || path == "/health" || path == "/metrics"
}
