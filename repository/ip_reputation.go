package repository

import (
	"context"
	"database/sql"

	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/models"
)

// IPReputationRepository persists tracker records in Postgres.
type IPReputationRepository struct {
	db *sql.DB
}

func NewIPReputationRepository(db *sql.DB) *IPReputationRepository {
	return &IPReputationRepository{db: db}
}

func (r *IPReputationRepository) LoadAll(ctx context.Context) ([]models.IPRecord, error) {
	query := `SELECT ip, attempts, blocked_until, last_seen FROM ip_reputation ORDER BY ip`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []models.IPRecord
	for rows.Next() {
		var rec models.IPRecord
		if err := rows.Scan(&rec.SourceID, &rec.Attempts, &rec.BlockedUntil, &rec.LastSeen); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r *IPReputationRepository) Upsert(ctx context.Context, rec models.IPRecord) error {
	query := `INSERT INTO ip_reputation (ip, attempts, blocked_until, last_seen, updated_at)
			  VALUES ($1, $2, $3, $4, now())
			  ON CONFLICT (ip) DO UPDATE SET
			  	attempts = EXCLUDED.attempts,
			  	blocked_until = EXCLUDED.blocked_until,
			  	last_seen = EXCLUDED.last_seen,
			  	updated_at = now()`

	_, err := r.db.ExecContext(ctx, query, rec.SourceID, rec.Attempts, rec.BlockedUntil, rec.LastSeen)
	return err
}

func (r *IPReputationRepository) Delete(ctx context.Context, ip string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM ip_reputation WHERE ip = $1`, ip)
	return err
}
