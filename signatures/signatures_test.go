package signatures

import (
	"crypto/rand"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuiltinEICAR(t *testing.T) {
	s := New(Builtin()...)

	if label, ok := s.Lookup(Sum([]byte(eicarContent))); !ok || label != eicarLabel {
		t.Errorf("hash lookup = %q, %v", label, ok)
	}
	if label, ok := s.LookupContent(eicarContent); !ok || label != eicarLabel {
		t.Errorf("content lookup = %q, %v", label, ok)
	}
	if _, ok := s.LookupContent("hello"); ok {
		t.Error("unexpected content match")
	}
	if _, ok := s.Lookup(Sum([]byte("hello"))); ok {
		t.Error("unexpected hash match")
	}
}

func TestHashValuesAreCaseInsensitive(t *testing.T) {
	s := New(Entry{Kind: KindSHA256, Value: strings.ToUpper(eicarSHA256), Label: "upper"})
	if label, ok := s.Lookup(Sum([]byte(eicarContent))); !ok || label != "upper" {
		t.Errorf("lookup = %q, %v", label, ok)
	}
}

func TestLoadSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signatures.db")

	entries, err := LoadSQLite(path)
	if err != nil {
		t.Fatalf("LoadSQLite on new file: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty registry, got %d", len(entries))
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	_, err = db.Exec(`INSERT INTO signatures (kind, value, label) VALUES
		('content', 'evil-macro-payload', 'Macro.Dropper'),
		('sha256', ?, 'Test.Hash')`, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824")
	db.Close()
	if err != nil {
		t.Fatal(err)
	}

	entries, err = LoadSQLite(path)
	if err != nil {
		t.Fatalf("LoadSQLite: %v", err)
	}
	s := New(append(Builtin(), entries...)...)
	if s.Len() != 4 {
		t.Errorf("Len = %d, want 4", s.Len())
	}
	if label, ok := s.LookupContent("evil-macro-payload"); !ok || label != "Macro.Dropper" {
		t.Errorf("content lookup = %q, %v", label, ok)
	}
	if label, ok := s.Lookup(Sum([]byte("hello"))); !ok || label != "Test.Hash" {
		t.Errorf("hash lookup = %q, %v", label, ok)
	}
}

func TestFingerprint(t *testing.T) {
	if got := Fingerprint([]byte("tiny")); got != "" {
		t.Errorf("Fingerprint of tiny input = %q, want empty", got)
	}

	buf := make([]byte, 4096)
	rand.Read(buf)
	got := Fingerprint(buf)
	if !strings.HasPrefix(got, "T1") || len(got) < 10 {
		t.Errorf("Fingerprint = %q", got)
	}
	if Fingerprint(buf) != got {
		t.Error("Fingerprint is not deterministic")
	}
}
