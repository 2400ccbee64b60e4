package archive

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"drawboard/pkg/database"
	"drawboard/pkg/interfaces"
)

// DefaultInterval is the store-to-durable sweep cadence; five minutes keeps
// snapshot lag bounded without hammering the store
const DefaultInterval = 5 * time.Minute

// Archiver periodically copies live canvas state from the session store into
// a durable sqlite catalog
// ARCHITECTURAL DISCOVERY: The live store favors delivery over durability;
// the sweep gives each canvas a durable snapshot without putting sqlite
// latency on the broadcast path
type Archiver struct {
	db       *sql.DB
	store    interfaces.StateStore
	interval time.Duration

	writeChannel chan writeOperation // TECHNICAL: Single-writer pattern for SQLite
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex

	retryDelay time.Duration
}

// writeOperation represents a database write operation
type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// NewArchiver opens the archive database and prepares the sweep
func NewArchiver(cfg *database.Config, store interfaces.StateStore, interval time.Duration) (*Archiver, error) {
	if cfg == nil {
		cfg = database.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid archive configuration: %w", err)
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	db, err := sql.Open("sqlite3", cfg.DatabasePath+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := database.ApplyOptimizations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply sqlite optimizations: %w", err)
	}

	if err := database.EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &Archiver{
		db:           db,
		store:        store,
		interval:     interval,
		writeChannel: make(chan writeOperation, 100),
		shutdown:     make(chan struct{}),
		retryDelay:   5 * time.Second,
	}

	// ARCHITECTURAL DISCOVERY: Single-writer goroutine prevents SQLite
	// write contention
	a.wg.Add(1)
	go a.writeLoop()

	return a, nil
}

// Start begins the periodic sweep
func (a *Archiver) Start(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := a.Sweep(ctx); err != nil {
					log.Printf("Archive sweep failed: %v", err)
				}
			case <-a.shutdown:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Sweep copies every live canvas state into the archive once
// FUNCTIONAL DISCOVERY: Per-canvas failures are logged and skipped; one bad
// blob must not starve the rest of the sweep
func (a *Archiver) Sweep(ctx context.Context) error {
	canvasIDs, err := a.store.Canvases(ctx)
	if err != nil {
		return fmt.Errorf("failed to list canvases: %w", err)
	}

	archived := 0
	for _, canvasID := range canvasIDs {
		blob, found, err := a.store.Get(ctx, canvasID)
		if err != nil {
			log.Printf("Archive read failed: canvas=%s err=%v", canvasID, err)
			continue
		}
		if !found {
			// Expired between the scan and the read
			continue
		}

		if err := a.archiveSnapshot(canvasID, blob); err != nil {
			log.Printf("Archive write failed: canvas=%s err=%v", canvasID, err)
			continue
		}
		archived++
	}

	if archived > 0 {
		log.Printf("Archive sweep complete: canvases=%d", archived)
	}
	return nil
}

// archiveSnapshot upserts one canvas snapshot
func (a *Archiver) archiveSnapshot(canvasID string, blob []byte) error {
	now := time.Now().UTC()
	return a.executeWrite(func(db *sql.DB) error {
		_, err := db.Exec(`
			INSERT INTO canvas_snapshots (canvas_id, state, archived_at)
			VALUES (?, ?, ?)
			ON CONFLICT(canvas_id) DO UPDATE SET state = excluded.state, archived_at = excluded.archived_at`,
			canvasID, blob, now)
		return err
	})
}

// Snapshot reads an archived canvas state back; used by recovery tooling
// and tests
func (a *Archiver) Snapshot(ctx context.Context, canvasID string) ([]byte, time.Time, error) {
	var blob []byte
	var archivedAt time.Time
	err := a.db.QueryRowContext(ctx,
		"SELECT state, archived_at FROM canvas_snapshots WHERE canvas_id = ?", canvasID,
	).Scan(&blob, &archivedAt)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return blob, archivedAt, nil
}

// writeLoop processes all write operations in a single goroutine
func (a *Archiver) writeLoop() {
	defer a.wg.Done()

	for {
		select {
		case op := <-a.writeChannel:
			// FUNCTIONAL DISCOVERY: Retry exactly once after a short delay;
			// a persistently failing archive is reported, not retried forever
			err := op.operation(a.db)
			if err != nil {
				log.Printf("Archive write failed, retrying: %v", err)
				time.Sleep(a.retryDelay)
				err = op.operation(a.db)
			}
			op.result <- err

		case <-a.shutdown:
			return
		}
	}
}

// executeWrite queues a write operation and waits for completion
func (a *Archiver) executeWrite(operation func(*sql.DB) error) error {
	a.mu.RLock()
	if a.closed {
		a.mu.RUnlock()
		return ErrArchiverClosed
	}
	a.mu.RUnlock()

	result := make(chan error, 1)

	select {
	case a.writeChannel <- writeOperation{operation: operation, result: result}:
		return <-result
	case <-time.After(30 * time.Second):
		return ErrWriteTimeout
	case <-a.shutdown:
		return ErrArchiverClosed
	}
}

// Close stops the sweep and releases the database
func (a *Archiver) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	close(a.shutdown)
	a.wg.Wait()

	return a.db.Close()
}
