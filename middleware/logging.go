package middleware

import (
	"log"
	"net/http"
	"sync"
	"time"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.size += size
	return size, err
}

// RequestLog is one served request, kept for the admin recent-requests view.
type RequestLog struct {
	Timestamp  time.Time `json:"timestamp"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	IP         string    `json:"ip"`
	StatusCode int       `json:"status_code"`
	Duration   string    `json:"duration"`
	UserAgent  string    `json:"user_agent"`
	Size       int       `json:"size"`
}

// RequestLogStore keeps the last maxSize requests in memory.
type RequestLogStore struct {
	logs    []RequestLog
	mu      sync.RWMutex
	maxSize int
}

func NewRequestLogStore(maxSize int) *RequestLogStore {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &RequestLogStore{
		logs:    make([]RequestLog, 0, maxSize),
		maxSize: maxSize,
	}
}

func (s *RequestLogStore) AddLog(entry RequestLog) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs = append(s.logs, entry)
	if len(s.logs) > s.maxSize {
		s.logs = s.logs[len(s.logs)-s.maxSize:]
	}
}

// GetRecentLogs returns up to limit entries, newest first.
func (s *RequestLogStore) GetRecentLogs(limit int) []RequestLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.logs) {
		limit = len(s.logs)
	}

	result := make([]RequestLog, limit)
	for i := 0; i < limit; i++ {
		result[i] = s.logs[len(s.logs)-1-i]
	}
	return result
}

// Stats counts requests rejected by the blocked filter (403) and the scan
// quota (429) among the retained entries.
func (s *RequestLogStore) Stats() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]int{"total": len(s.logs), "blocked": 0, "throttled": 0}
	for _, l := range s.logs {
		switch l.StatusCode {
		case http.StatusForbidden:
			stats["blocked"]++
		case http.StatusTooManyRequests:
			stats["throttled"]++
		}
	}
	return stats
}

type LoggingMiddleware struct {
	logger *log.Logger
	store  *RequestLogStore
}

func NewLoggingMiddleware(logger *log.Logger, store *RequestLogStore) *LoggingMiddleware {
	if logger == nil {
		logger = log.Default()
	}
	return &LoggingMiddleware{logger: logger, store: store}
}

func (m *LoggingMiddleware) Log(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		ip := GetClientIP(r.Context())
		if ip == "" {
			ip = r.RemoteAddr
		}

		if m.store != nil {
			m.store.AddLog(RequestLog{
				Timestamp:  start,
				Method:     r.Method,
				Path:       r.URL.Path,
				IP:         ip,
				StatusCode: rw.statusCode,
				Duration:   duration.String(),
				UserAgent:  r.UserAgent(),
				Size:       rw.size,
			})
		}

		m.logger.Printf(
			"[%s] %s %s %d %d %s %s",
			r.Method,
			r.URL.Path,
			ip,
			rw.statusCode,
			rw.size,
			duration,
			r.UserAgent(),
		)
	})
}
