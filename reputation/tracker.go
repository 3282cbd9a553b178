package reputation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/metrics"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/models"
)

const (
	BlockThreshold = 3
	BlockDuration  = 300 * time.Second
	DecayWindow    = 3600 * time.Second

	lockStripes = 256
)

type PersistMode string

const (
	PersistSync     PersistMode = "sync"
	PersistPeriodic PersistMode = "periodic"
)

// ParsePersistMode accepts "sync" or "periodic".
func ParsePersistMode(s string) (PersistMode, error) {
	switch PersistMode(s) {
	case PersistSync, PersistPeriodic:
		return PersistMode(s), nil
	default:
		return "", fmt.Errorf("unknown persist mode %q", s)
	}
}

type Options struct {
	Mode PersistMode
	// Retention > 0 lets Prune drop idle, unblocked records.
	Retention time.Duration
	Now       func() time.Time
	// OnBlock is called outside any lock after a source enters the blocked state.
	OnBlock func(models.IPRecord)
	Logger  *log.Logger
}

// Tracker is the per-source throttle. The in-memory map is authoritative;
// the Store is written through (sync) or flushed from the dirty set (periodic).
type Tracker struct {
	store   Store
	mode    PersistMode
	keep    time.Duration
	now     func() time.Time
	onBlock func(models.IPRecord)
	logger  *log.Logger

	locks [lockStripes]sync.Mutex

	mu      sync.RWMutex
	records map[string]models.IPRecord
	dirty   map[string]struct{}
}

// NewTracker returns an empty tracker over store. A nil store keeps records in memory.
func NewTracker(store Store, opts Options) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	if opts.Mode == "" {
		opts.Mode = PersistSync
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Tracker{
		store:   store,
		mode:    opts.Mode,
		keep:    opts.Retention,
		now:     opts.Now,
		onBlock: opts.OnBlock,
		logger:  opts.Logger,
		records: make(map[string]models.IPRecord),
		dirty:   make(map[string]struct{}),
	}
}

// Load replaces the working set with the store's contents.
func (t *Tracker) Load(ctx context.Context) error {
	recs, err := t.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load reputation records: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = make(map[string]models.IPRecord, len(recs))
	for _, rec := range recs {
		t.records[rec.SourceID] = rec
	}
	t.dirty = make(map[string]struct{})
	return nil
}

func (t *Tracker) lockFor(id string) *sync.Mutex {
	return &t.locks[xxhash.Sum64String(id)%lockStripes]
}

// RecordActivity applies one scan outcome to the source's record.
func (t *Tracker) RecordActivity(ctx context.Context, id string, suspicious bool) models.IPRecord {
	l := t.lockFor(id)
	l.Lock()

	now := models.EpochSeconds(t.now())
	rec, ok := t.Get(id)
	if !ok {
		rec = models.IPRecord{SourceID: id, LastSeen: now}
	}
	wasBlocked := rec.BlockedAt(now)

	if now-rec.LastSeen > DecayWindow.Seconds() {
		rec.Attempts = 0
	}
	rec.LastSeen = now

	if suspicious {
		rec.Attempts++
		if rec.Attempts >= BlockThreshold {
			rec.BlockedUntil = now + BlockDuration.Seconds()
		}
	}

	t.put(ctx, rec)
	l.Unlock()

	if !wasBlocked && rec.BlockedAt(now) {
		metrics.SourcesBlocked.Inc()
		t.logger.Printf("Source %s blocked for %s after %d suspicious scans", id, BlockDuration, rec.Attempts)
		if t.onBlock != nil {
			t.onBlock(rec)
		}
	}
	return rec
}

// IsBlocked reports whether id is inside an active block window.
func (t *Tracker) IsBlocked(id string) bool {
	rec, ok := t.Get(id)
	return ok && rec.BlockedAt(models.EpochSeconds(t.now()))
}

// Unblock resets a known source to clean. It reports false when the source
// has no record, which is already the clean state.
func (t *Tracker) Unblock(ctx context.Context, id string) bool {
	l := t.lockFor(id)
	l.Lock()
	defer l.Unlock()

	rec, ok := t.Get(id)
	if !ok {
		return false
	}
	rec.Attempts = 0
	rec.BlockedUntil = 0
	t.put(ctx, rec)
	t.logger.Printf("Source %s unblocked", id)
	return true
}

// Get returns the record for id, if any.
func (t *Tracker) Get(id string) (models.IPRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.records[id]
	return rec, ok
}

// State returns the reputation state of id. Unknown sources are clean.
func (t *Tracker) State(id string) models.ReputationState {
	rec, _ := t.Get(id)
	return rec.StateAt(models.EpochSeconds(t.now()))
}

// All returns every record ordered by source id.
func (t *Tracker) All() []models.IPRecord {
	t.mu.RLock()
	out := make([]models.IPRecord, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, rec)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	return out
}

// Blocked returns the currently blocked records ordered by source id.
func (t *Tracker) Blocked() []models.IPRecord {
	now := models.EpochSeconds(t.now())
	var out []models.IPRecord
	for _, rec := range t.All() {
		if rec.BlockedAt(now) {
			out = append(out, rec)
		}
	}
	return out
}

// put stores rec and persists it according to the mode. Caller holds the
// record's stripe lock.
func (t *Tracker) put(ctx context.Context, rec models.IPRecord) {
	t.mu.Lock()
	t.records[rec.SourceID] = rec
	t.dirty[rec.SourceID] = struct{}{}
	t.mu.Unlock()

	if t.mode == PersistSync {
		t.persist(ctx, rec)
	}
}

func (t *Tracker) persist(ctx context.Context, rec models.IPRecord) error {
	if err := t.store.Upsert(ctx, rec); err != nil {
		metrics.PersistenceErrors.Inc()
		t.logger.Printf("Warning: failed to persist reputation for %s, will retry on flush: %v", rec.SourceID, err)
		return err
	}

	t.mu.Lock()
	if cur, ok := t.records[rec.SourceID]; ok && cur == rec {
		delete(t.dirty, rec.SourceID)
	}
	t.mu.Unlock()
	return nil
}

// Pending returns the number of records not yet written to the store.
func (t *Tracker) Pending() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.dirty)
}

// Flush writes every dirty record. Records that fail stay dirty.
func (t *Tracker) Flush(ctx context.Context) error {
	t.mu.RLock()
	ids := make([]string, 0, len(t.dirty))
	for id := range t.dirty {
		ids = append(ids, id)
	}
	t.mu.RUnlock()

	var errs []error
	for _, id := range ids {
		l := t.lockFor(id)
		l.Lock()
		rec, ok := t.Get(id)
		if ok {
			if err := t.persist(ctx, rec); err != nil {
				errs = append(errs, err)
			}
		}
		l.Unlock()
	}
	return errors.Join(errs...)
}

// Prune deletes unblocked records idle for longer than the retention window.
func (t *Tracker) Prune(ctx context.Context) int {
	if t.keep <= 0 {
		return 0
	}

	now := models.EpochSeconds(t.now())
	cutoff := now - t.keep.Seconds()
	pruned := 0
	for _, candidate := range t.All() {
		if candidate.LastSeen >= cutoff || candidate.BlockedAt(now) {
			continue
		}

		l := t.lockFor(candidate.SourceID)
		l.Lock()
		rec, ok := t.Get(candidate.SourceID)
		if ok && rec.LastSeen < cutoff && !rec.BlockedAt(now) {
			if err := t.store.Delete(ctx, rec.SourceID); err != nil {
				metrics.PersistenceErrors.Inc()
				t.logger.Printf("Warning: failed to prune reputation for %s: %v", rec.SourceID, err)
			} else {
				t.mu.Lock()
				delete(t.records, rec.SourceID)
				delete(t.dirty, rec.SourceID)
				t.mu.Unlock()
				pruned++
			}
		}
		l.Unlock()
	}
	if pruned > 0 {
		t.logger.Printf("Pruned %d idle reputation records", pruned)
	}
	return pruned
}

// Run flushes and prunes on every tick until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.Flush(ctx); err != nil {
				t.logger.Printf("Warning: reputation flush incomplete: %v", err)
			}
			t.Prune(ctx)
		}
	}
}

// Close flushes pending records.
func (t *Tracker) Close(ctx context.Context) error {
	return t.Flush(ctx)
}
