package archive

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"drawboard/pkg/database"
)

// memoryStore is an in-memory StateStore for archiver tests
type memoryStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	listErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte)}
}

func (s *memoryStore) Get(ctx context.Context, canvasID string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, ok := s.data[canvasID]
	return blob, ok, nil
}

func (s *memoryStore) Set(ctx context.Context, canvasID string, blob []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[canvasID] = blob
	return nil
}

func (s *memoryStore) Canvases(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *memoryStore) HealthCheck(ctx context.Context) error { return nil }
func (s *memoryStore) Close() error                          { return nil }

func newTestArchiver(t *testing.T, store *memoryStore) *Archiver {
	t.Helper()

	cfg := database.DefaultConfig()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "archive.db")

	archiver, err := NewArchiver(cfg, store, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create archiver: %v", err)
	}
	t.Cleanup(func() { archiver.Close() })

	return archiver
}

func TestArchiver_SweepAndSnapshot(t *testing.T) {
	store := newMemoryStore()
	store.Set(context.Background(), "canvas1", []byte(`{"lastAction":"draw"}`), 0)
	store.Set(context.Background(), "canvas2", []byte(`{"lastAction":"clear"}`), 0)

	archiver := newTestArchiver(t, store)

	if err := archiver.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	blob, archivedAt, err := archiver.Snapshot(context.Background(), "canvas1")
	if err != nil {
		t.Fatalf("Snapshot read failed: %v", err)
	}
	if string(blob) != `{"lastAction":"draw"}` {
		t.Errorf("Unexpected snapshot content: %s", blob)
	}
	if archivedAt.IsZero() {
		t.Error("Archived timestamp not set")
	}

	if _, _, err := archiver.Snapshot(context.Background(), "canvas2"); err != nil {
		t.Errorf("Second canvas missing from archive: %v", err)
	}
}

func TestArchiver_SnapshotNotFound(t *testing.T) {
	archiver := newTestArchiver(t, newMemoryStore())

	_, _, err := archiver.Snapshot(context.Background(), "never-archived")
	if !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestArchiver_SweepUpsertsLatestState(t *testing.T) {
	store := newMemoryStore()
	store.Set(context.Background(), "canvas1", []byte("first"), 0)

	archiver := newTestArchiver(t, store)

	if err := archiver.Sweep(context.Background()); err != nil {
		t.Fatalf("First sweep failed: %v", err)
	}

	// The canvas state moves on; the next sweep must replace the snapshot
	store.Set(context.Background(), "canvas1", []byte("second"), 0)

	if err := archiver.Sweep(context.Background()); err != nil {
		t.Fatalf("Second sweep failed: %v", err)
	}

	blob, _, err := archiver.Snapshot(context.Background(), "canvas1")
	if err != nil {
		t.Fatalf("Snapshot read failed: %v", err)
	}
	if string(blob) != "second" {
		t.Errorf("Expected upserted snapshot 'second', got %s", blob)
	}
}

func TestArchiver_SweepStoreListFailure(t *testing.T) {
	store := newMemoryStore()
	store.listErr = errors.New("store down")

	archiver := newTestArchiver(t, store)

	if err := archiver.Sweep(context.Background()); err == nil {
		t.Error("Expected sweep error when listing fails")
	}
}

func TestArchiver_SweepEmptyStore(t *testing.T) {
	archiver := newTestArchiver(t, newMemoryStore())

	if err := archiver.Sweep(context.Background()); err != nil {
		t.Errorf("Sweep of empty store must succeed: %v", err)
	}
}

func TestArchiver_PeriodicSweepLoop(t *testing.T) {
	store := newMemoryStore()
	store.Set(context.Background(), "canvas1", []byte("periodic"), 0)

	cfg := database.DefaultConfig()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "archive.db")

	archiver, err := NewArchiver(cfg, store, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Failed to create archiver: %v", err)
	}
	defer archiver.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	archiver.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if blob, _, err := archiver.Snapshot(context.Background(), "canvas1"); err == nil {
			if string(blob) != "periodic" {
				t.Errorf("Unexpected snapshot content: %s", blob)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("Periodic sweep never archived the canvas")
}

func TestArchiver_WriteAfterClose(t *testing.T) {
	store := newMemoryStore()
	store.Set(context.Background(), "canvas1", []byte("late"), 0)

	cfg := database.DefaultConfig()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "archive.db")

	archiver, err := NewArchiver(cfg, store, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create archiver: %v", err)
	}

	if err := archiver.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := archiver.archiveSnapshot("canvas1", []byte("late")); !errors.Is(err, ErrArchiverClosed) {
		t.Errorf("Expected ErrArchiverClosed, got %v", err)
	}
}
