package reputation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/models"
)

// Store is the durable medium behind the Tracker. LoadAll is called once at
// startup; Upsert and Delete are called with the record's lock held.
type Store interface {
	LoadAll(ctx context.Context) ([]models.IPRecord, error)
	Upsert(ctx context.Context, rec models.IPRecord) error
	Delete(ctx context.Context, sourceID string) error
}

type MemoryStore struct {
	mu      sync.Mutex
	records map[string]models.IPRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]models.IPRecord)}
}

func (s *MemoryStore) LoadAll(ctx context.Context) ([]models.IPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.IPRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, rec models.IPRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.SourceID] = rec
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sourceID)
	return nil
}

// fileRecord is the on-disk layout, keyed by source id in the enclosing map.
type fileRecord struct {
	Attempts     int     `json:"attempts"`
	BlockedUntil float64 `json:"blocked_until"`
	LastSeen     float64 `json:"last_seen"`
}

// FileStore keeps every record in one JSON document and rewrites it
// atomically on each mutation.
type FileStore struct {
	path    string
	mu      sync.Mutex
	records map[string]fileRecord
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, records: make(map[string]fileRecord)}
}

func (s *FileStore) LoadAll(ctx context.Context) ([]models.IPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := make(map[string]fileRecord)
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.records = data
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&data); err != nil && err != io.EOF {
		return nil, err
	}
	s.records = data

	out := make([]models.IPRecord, 0, len(data))
	for id, r := range data {
		out = append(out, models.IPRecord{
			SourceID:     id,
			Attempts:     r.Attempts,
			BlockedUntil: r.BlockedUntil,
			LastSeen:     r.LastSeen,
		})
	}
	return out, nil
}

func (s *FileStore) Upsert(ctx context.Context, rec models.IPRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.records[rec.SourceID]
	s.records[rec.SourceID] = fileRecord{
		Attempts:     rec.Attempts,
		BlockedUntil: rec.BlockedUntil,
		LastSeen:     rec.LastSeen,
	}
	if err := s.save(); err != nil {
		if existed {
			s.records[rec.SourceID] = prev
		} else {
			delete(s.records, rec.SourceID)
		}
		return err
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.records[sourceID]
	if !existed {
		return nil
	}
	delete(s.records, sourceID)
	if err := s.save(); err != nil {
		s.records[sourceID] = prev
		return err
	}
	return nil
}

// save writes to a temp file and renames it over the target.
func (s *FileStore) save() error {
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
