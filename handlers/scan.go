package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/detector"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/kafka"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/metrics"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/middleware"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/models"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/reputation"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/signatures"
)

const (
	maxJSONBytes    = 1 << 20
	MaxRequestBytes = 64 << 20
)

// EventPublisher receives one audit event per scan and per block change.
type EventPublisher interface {
	PublishScanEvent(ctx context.Context, event *models.ScanEvent) error
}

type Analyzers struct {
	URL     *detector.URLAnalyzer
	Email   *detector.EmailAnalyzer
	File    *detector.FileAnalyzer
	Message *detector.MessageAnalyzer
}

type ScanHandler struct {
	analyzers Analyzers
	tracker   *reputation.Tracker
	events    EventPublisher
	logger    *log.Logger
}

func NewScanHandler(analyzers Analyzers, tracker *reputation.Tracker, events EventPublisher, logger *log.Logger) *ScanHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &ScanHandler{
		analyzers: analyzers,
		tracker:   tracker,
		events:    events,
		logger:    logger,
	}
}

func (h *ScanHandler) ScanURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	result := h.analyzers.URL.Analyze(r.Context(), req.URL)
	h.record(r.Context(), models.KindURL, req.URL, result, "")
	writeJSON(w, http.StatusOK, result)
}

func (h *ScanHandler) ScanEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
		Sender  string `json:"sender"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result := h.analyzers.Email.Analyze(r.Context(), req.Subject, req.Body, req.Sender)
	h.record(r.Context(), models.KindEmail, req.Subject, result, "")
	writeJSON(w, http.StatusOK, result)
}

// ScanRawEmail accepts a complete RFC 5322 message as the request body.
func (h *ScanHandler) ScanRawEmail(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, MaxRequestBytes)
	result, err := h.analyzers.Message.Analyze(r.Context(), body)
	if err != nil {
		if tooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "message too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid message: "+err.Error())
		return
	}

	h.record(r.Context(), models.KindEmail, result.Subject, result.ScanResult, "")
	writeJSON(w, http.StatusOK, result)
}

func (h *ScanHandler) ScanFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		if tooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	result := h.analyzers.File.Analyze(r.Context(), header.Filename, content)
	h.record(r.Context(), models.KindFile, header.Filename, result, signatures.Fingerprint(content))
	writeJSON(w, http.StatusOK, result)
}

// IPStatus reports the caller's own throttle record.
func (h *ScanHandler) IPStatus(w http.ResponseWriter, r *http.Request) {
	ip := middleware.GetClientIP(r.Context())
	rec, ok := h.tracker.Get(ip)

	status := "allowed"
	if h.tracker.IsBlocked(ip) {
		status = "blocked"
	}

	var history interface{}
	if ok {
		history = rec
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ip":      ip,
		"status":  status,
		"state":   h.tracker.State(ip),
		"history": history,
	})
}

func (h *ScanHandler) record(ctx context.Context, kind models.ScanKind, target string, result models.ScanResult, fingerprint string) {
	ip := middleware.GetClientIP(ctx)
	h.tracker.RecordActivity(ctx, ip, result.Status.Suspicious())
	metrics.Scans.WithLabelValues(string(kind), string(result.Status)).Inc()

	if h.events == nil {
		return
	}
	if err := h.events.PublishScanEvent(ctx, kafka.NewScanEvent(ip, kind, target, result, fingerprint)); err != nil {
		h.logger.Printf("Failed to publish scan event for %s: %v", ip, err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes)).Decode(dst); err != nil {
		if tooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
