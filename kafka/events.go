package kafka

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/models"
)

func NewScanEvent(ip string, kind models.ScanKind, target string, result models.ScanResult, fingerprint string) *models.ScanEvent {
	now := time.Now()
	return &models.ScanEvent{
		ID:          uuid.New().String(),
		IP:          ip,
		EventType:   models.EventScanCompleted,
		Kind:        kind,
		Target:      truncate(target, 512),
		Status:      result.Status,
		Score:       result.Score,
		Degraded:    result.Degraded,
		Fingerprint: fingerprint,
		Timestamp:   now.Unix(),
		CreatedAt:   now,
	}
}

// NewReputationEvent records a block or unblock of ip.
func NewReputationEvent(ip string, eventType models.EventType, attempts int) *models.ScanEvent {
	now := time.Now()
	return &models.ScanEvent{
		ID:        uuid.New().String(),
		IP:        ip,
		EventType: eventType,
		Score:     attempts,
		Timestamp: now.Unix(),
		CreatedAt: now,
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
