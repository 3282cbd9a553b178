package models

import (
	"time"
)

type ScanStatus string

const (
	StatusSafe      ScanStatus = "safe"
	StatusPhishing  ScanStatus = "phishing"
	StatusMalicious ScanStatus = "malicious"
)

// Suspicious reports whether a scan outcome should count against the source
// that submitted it.
func (s ScanStatus) Suspicious() bool {
	return s == StatusPhishing || s == StatusMalicious
}

type ScanKind string

const (
	KindURL   ScanKind = "url"
	KindEmail ScanKind = "email"
	KindFile  ScanKind = "file"
)

// ScanResult is the verdict of one analyzer pass. Details are appended in the
// order signals were evaluated and are for humans only.
type ScanResult struct {
	Status           ScanStatus  `json:"status"`
	Score            int         `json:"score"`
	Details          []string    `json:"details"`
	Degraded         bool        `json:"degraded,omitempty"`
	Signature        string      `json:"signature,omitempty"`
	Embedded         *ScanResult `json:"embedded,omitempty"`
	EmbeddedPhishing bool        `json:"embedded_phishing,omitempty"`
}

type AttachmentResult struct {
	Filename string     `json:"filename"`
	Result   ScanResult `json:"result"`
}

type Label string

const (
	LabelBenign    Label = "benign"
	LabelMalicious Label = "malicious"
)

type ClassifierVerdict struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
}

type ReputationState string

const (
	StateClean      ReputationState = "clean"
	StateSuspicious ReputationState = "suspicious"
	StateBlocked    ReputationState = "blocked"
)

// IPRecord holds the throttle counters for one source. Timestamps are epoch
// seconds; BlockedUntil == 0 means never blocked.
type IPRecord struct {
	SourceID     string  `json:"ip"`
	Attempts     int     `json:"attempts"`
	BlockedUntil float64 `json:"blocked_until"`
	LastSeen     float64 `json:"last_seen"`
}

func (r IPRecord) BlockedAt(now float64) bool {
	return r.BlockedUntil > now
}

func (r IPRecord) StateAt(now float64) ReputationState {
	switch {
	case r.BlockedAt(now):
		return StateBlocked
	case r.Attempts > 0:
		return StateSuspicious
	default:
		return StateClean
	}
}

// EpochSeconds converts t to the fractional epoch seconds used in IPRecord.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

type EventType string

const (
	EventScanCompleted   EventType = "SCAN_COMPLETED"
	EventSourceBlocked   EventType = "SOURCE_BLOCKED"
	EventSourceUnblocked EventType = "SOURCE_UNBLOCKED"
)

// ScanEvent is the audit record published for every scan and every block
// state change.
type ScanEvent struct {
	ID          string     `json:"id"`
	IP          string     `json:"ip"`
	EventType   EventType  `json:"event_type"`
	Kind        ScanKind   `json:"kind,omitempty"`
	Target      string     `json:"target,omitempty"`
	Status      ScanStatus `json:"status,omitempty"`
	Score       int        `json:"score"`
	Degraded    bool       `json:"degraded,omitempty"`
	Fingerprint string     `json:"fingerprint,omitempty"`
	Timestamp   int64      `json:"timestamp"`
	CreatedAt   time.Time  `json:"created_at"`
}
