package signatures

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/glaslos/tlsh"
	_ "github.com/mattn/go-sqlite3"
)

type Kind string

const (
	KindSHA256  Kind = "sha256"
	KindContent Kind = "content"
)

// Entry is one known-bad signature. SHA256 values are hex encoded.
type Entry struct {
	Kind  Kind
	Value string
	Label string
}

const (
	eicarContent = `X5O!P%@AP[4\PZX54(P^)7CC)7}$EICAR-STANDARD-ANTIVIRUS-TEST-FILE!$H+H*`
	eicarSHA256  = "275a021bbfb6489e54d471899f7db9d1663fc695ec2fe2a2c4538aabf651fd0f"
	eicarLabel   = "EICAR-Test-Signature"
)

func Builtin() []Entry {
	return []Entry{
		{Kind: KindSHA256, Value: eicarSHA256, Label: eicarLabel},
		{Kind: KindContent, Value: eicarContent, Label: eicarLabel},
	}
}

// Store is an exact-match registry. It is never mutated after New returns,
// so lookups need no locking.
type Store struct {
	hashes   map[string]string
	contents map[string]string
}

func New(entries ...Entry) *Store {
	s := &Store{
		hashes:   make(map[string]string),
		contents: make(map[string]string),
	}
	for _, e := range entries {
		switch e.Kind {
		case KindSHA256:
			s.hashes[strings.ToLower(strings.TrimSpace(e.Value))] = e.Label
		case KindContent:
			s.contents[e.Value] = e.Label
		}
	}
	return s
}

// Lookup matches a raw SHA-256 digest.
func (s *Store) Lookup(sum []byte) (string, bool) {
	label, ok := s.hashes[hex.EncodeToString(sum)]
	return label, ok
}

func (s *Store) LookupContent(text string) (string, bool) {
	label, ok := s.contents[text]
	return label, ok
}

func (s *Store) Len() int {
	return len(s.hashes) + len(s.contents)
}

func Sum(content []byte) []byte {
	sum := sha256.Sum256(content)
	return sum[:]
}

// LoadSQLite reads extra entries from a sqlite registry, creating the table
// when the file is new.
func LoadSQLite(path string) ([]Entry, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open signature db: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS signatures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL CHECK (kind IN ('sha256', 'content')),
		value TEXT NOT NULL,
		label TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (kind, value)
	)`); err != nil {
		return nil, fmt.Errorf("init signature table: %w", err)
	}

	rows, err := db.Query(`SELECT kind, value, label FROM signatures`)
	if err != nil {
		return nil, fmt.Errorf("query signatures: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var kind string
		if err := rows.Scan(&kind, &e.Value, &e.Label); err != nil {
			return nil, err
		}
		e.Kind = Kind(kind)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Fingerprint returns a TLSH digest of content, or "" when the content is too
// small or uniform to hash.
func Fingerprint(content []byte) string {
	h, err := tlsh.HashBytes(content)
	if err != nil {
		return ""
	}
	return "T1" + strings.ToUpper(h.String())
}
