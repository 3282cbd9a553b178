package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/models"
)

// ScanEventRepository handles the scan audit trail
type ScanEventRepository struct {
	db *sql.DB
}

func NewScanEventRepository(db *sql.DB) *ScanEventRepository {
	return &ScanEventRepository{db: db}
}

func (r *ScanEventRepository) Create(ctx context.Context, event *models.ScanEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	query := `INSERT INTO scan_events (id, ip, event_type, kind, target, status, score, degraded, fingerprint, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  ON CONFLICT (id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, event.ID, event.IP, event.EventType, event.Kind, event.Target,
		event.Status, event.Score, event.Degraded, event.Fingerprint, event.CreatedAt)
	return err
}

func (r *ScanEventRepository) GetByIP(ctx context.Context, ip string, limit int) ([]*models.ScanEvent, error) {
	query := `SELECT id, ip, event_type, kind, target, status, score, degraded, fingerprint, created_at
			  FROM scan_events WHERE ip = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, ip, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*models.ScanEvent{}
	for rows.Next() {
		event := &models.ScanEvent{}
		if err := rows.Scan(&event.ID, &event.IP, &event.EventType, &event.Kind, &event.Target,
			&event.Status, &event.Score, &event.Degraded, &event.Fingerprint, &event.CreatedAt); err != nil {
			return nil, err
		}
		event.Timestamp = event.CreatedAt.Unix()
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *ScanEventRepository) CountSuspiciousInWindow(ctx context.Context, ip string, windowMinutes int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM scan_events
			  WHERE ip = $1 AND status IN ('phishing', 'malicious')
			  AND created_at > NOW() - INTERVAL '1 minute' * $2`
	err := r.db.QueryRowContext(ctx, query, ip, windowMinutes).Scan(&count)
	return count, err
}
