package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/kafka"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/middleware"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/models"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/reputation"
)

// SuspiciousWindowMinutes is the look-back used for the recent suspicious
// scan count in the scan-events view.
const SuspiciousWindowMinutes = 60

type AuditStore interface {
	GetByIP(ctx context.Context, ip string, limit int) ([]*models.ScanEvent, error)
	CountSuspiciousInWindow(ctx context.Context, ip string, windowMinutes int) (int, error)
}

type QuotaResetter interface {
	Reset(ctx context.Context, source string) error
}

type AdminHandler struct {
	tracker  *reputation.Tracker
	events   EventPublisher
	audit    AuditStore
	quota    QuotaResetter
	requests *middleware.RequestLogStore
	logger   *log.Logger
	started  time.Time
}

// NewAdminHandler wires the operator endpoints. events, audit, quota and
// requests are optional and may be nil.
func NewAdminHandler(
	tracker *reputation.Tracker,
	events EventPublisher,
	audit AuditStore,
	quota QuotaResetter,
	requests *middleware.RequestLogStore,
	logger *log.Logger,
) *AdminHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &AdminHandler{
		tracker:  tracker,
		events:   events,
		audit:    audit,
		quota:    quota,
		requests: requests,
		logger:   logger,
		started:  time.Now(),
	}
}

func (h *AdminHandler) GetAllIPs(w http.ResponseWriter, r *http.Request) {
	ips := h.tracker.All()

	entries := make([]map[string]interface{}, 0, len(ips))
	for _, rec := range ips {
		entries = append(entries, map[string]interface{}{
			"ip":            rec.SourceID,
			"attempts":      rec.Attempts,
			"blocked_until": rec.BlockedUntil,
			"last_seen":     rec.LastSeen,
			"state":         h.tracker.State(rec.SourceID),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ips":   entries,
		"count": len(entries),
	})
}

func (h *AdminHandler) GetBlockedIPs(w http.ResponseWriter, r *http.Request) {
	ips := h.tracker.Blocked()
	if ips == nil {
		ips = []models.IPRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"blocked_ips": ips,
		"count":       len(ips),
	})
}

// UnblockIP takes the address from the path (/admin/unblock/{ip}) or from a
// JSON body {"ip": ...}.
func (h *AdminHandler) UnblockIP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ip := strings.Trim(strings.TrimPrefix(r.URL.Path, "/admin/unblock"), "/")
	if ip == "" {
		var req struct {
			IP string `json:"ip"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		ip = req.IP
	}
	if ip == "" {
		writeError(w, http.StatusBadRequest, "ip is required")
		return
	}

	ctx := r.Context()
	known := h.tracker.Unblock(ctx, ip)

	if h.quota != nil {
		if err := h.quota.Reset(ctx, ip); err != nil {
			h.logger.Printf("Warning: failed to reset scan quota for %s: %v", ip, err)
		}
	}
	if known && h.events != nil {
		if err := h.events.PublishScanEvent(ctx, kafka.NewReputationEvent(ip, models.EventSourceUnblocked, 0)); err != nil {
			h.logger.Printf("Failed to publish unblock event for %s: %v", ip, err)
		}
	}
	if subject := middleware.GetAdminSubject(ctx); subject != "" {
		h.logger.Printf("Admin %s unblocked %s", subject, ip)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "IP " + ip + " unblocked",
		"ip":      ip,
		"known":   known,
	})
}

func (h *AdminHandler) GetScanEvents(w http.ResponseWriter, r *http.Request) {
	ip := r.URL.Query().Get("ip")
	if ip == "" {
		writeError(w, http.StatusBadRequest, "ip parameter is required")
		return
	}
	if h.audit == nil {
		writeError(w, http.StatusServiceUnavailable, "scan event store not configured")
		return
	}

	limit := 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}

	ctx := r.Context()
	events, err := h.audit.GetByIP(ctx, ip, limit)
	if err != nil {
		h.logger.Printf("Failed to load scan events for %s: %v", ip, err)
		writeError(w, http.StatusInternalServerError, "failed to load scan events")
		return
	}
	suspicious, err := h.audit.CountSuspiciousInWindow(ctx, ip, SuspiciousWindowMinutes)
	if err != nil {
		h.logger.Printf("Failed to count suspicious scans for %s: %v", ip, err)
	}
	if events == nil {
		events = []*models.ScanEvent{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ip":                 ip,
		"events":             events,
		"count":              len(events),
		"suspicious_last_1h": suspicious,
	})
}

func (h *AdminHandler) GetRecentRequests(w http.ResponseWriter, r *http.Request) {
	var requests []middleware.RequestLog
	stats := map[string]int{}
	if h.requests != nil {
		requests = h.requests.GetRecentLogs(0)
		stats = h.requests.Stats()
	}
	if requests == nil {
		requests = []middleware.RequestLog{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"requests": requests,
		"count":    len(requests),
		"stats":    stats,
	})
}

func (h *AdminHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "healthy",
		"service":         "phishguard",
		"tracked_sources": len(h.tracker.All()),
		"blocked_sources": len(h.tracker.Blocked()),
		"pending_writes":  h.tracker.Pending(),
		"uptime":          time.Since(h.started).Round(time.Second).String(),
	})
}
