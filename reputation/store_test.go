package reputation

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/models"
)

func TestFileStoreLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ip_data.json")
	s := NewFileStore(path)
	ctx := context.Background()

	if _, err := s.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll on missing file: %v", err)
	}
	rec := models.IPRecord{SourceID: "192.0.2.1", Attempts: 2, BlockedUntil: 0, LastSeen: 1714564800.5}
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]map[string]float64
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("stored document is not an id-keyed map: %v\n%s", err, raw)
	}
	got := doc["192.0.2.1"]
	if got["attempts"] != 2 || got["blocked_until"] != 0 || got["last_seen"] != 1714564800.5 {
		t.Errorf("stored record = %v", got)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}

	if err := s.Delete(ctx, "192.0.2.1"); err != nil {
		t.Fatal(err)
	}
	recs, err := NewFileStore(path).LoadAll(ctx)
	if err != nil || len(recs) != 0 {
		t.Errorf("after delete: %v, %v", recs, err)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ip_data.json")
	os.WriteFile(path, []byte("{not json"), 0o644)

	if _, err := NewFileStore(path).LoadAll(context.Background()); err == nil {
		t.Error("expected decode error")
	}
}

func TestFileStoreWriteFailureRollsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "ip_data.json")
	s := NewFileStore(path)
	ctx := context.Background()

	if err := s.Upsert(ctx, models.IPRecord{SourceID: "a", Attempts: 1}); err == nil {
		t.Fatal("expected write error")
	}
	recs, _ := s.LoadAll(ctx)
	if len(recs) != 0 {
		t.Errorf("failed write left state behind: %+v", recs)
	}
}
