package database

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

type Database struct {
	conn *sql.DB
}

func New(dsn string) (*Database, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{conn: db}, nil
}

func (d *Database) Conn() *sql.DB {
	return d.conn
}

func (d *Database) Close() error {
	return d.conn.Close()
}

func (d *Database) Ping() error {
	return d.conn.Ping()
}

// InitSchema creates the reputation and audit tables. Timestamps inside
// ip_reputation are epoch seconds so rows match the JSON store layout.
func (d *Database) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ip_reputation (
		ip TEXT PRIMARY KEY,
		attempts INTEGER NOT NULL DEFAULT 0 CHECK (attempts >= 0),
		blocked_until DOUBLE PRECISION NOT NULL DEFAULT 0,
		last_seen DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_at TIMESTAMP DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS scan_events (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		ip TEXT NOT NULL,
		event_type TEXT NOT NULL CHECK (event_type IN ('SCAN_COMPLETED', 'SOURCE_BLOCKED', 'SOURCE_UNBLOCKED')),
		kind TEXT NOT NULL DEFAULT '',
		target TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		score INTEGER NOT NULL DEFAULT 0,
		degraded BOOLEAN NOT NULL DEFAULT false,
		fingerprint TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_ip_reputation_blocked ON ip_reputation(blocked_until);
	CREATE INDEX IF NOT EXISTS idx_scan_events_ip ON scan_events(ip);
	CREATE INDEX IF NOT EXISTS idx_scan_events_created ON scan_events(created_at);
	`
	_, err := d.conn.Exec(schema)
	return err
}
