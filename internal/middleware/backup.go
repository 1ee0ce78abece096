package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/conneroisu/randomall/internal/blocks"
	"github.com/conneroisu/randomall/internal/logging"
)

// MaxBackupBytes is the exclusive size limit of a stored backup.
const MaxBackupBytes = 5_000_000

const defaultBackupTimeout = 10 * time.Second

// BackupStore keeps the latest editor backup of each user.
type BackupStore interface {
	GetBackup(ctx context.Context, userID int64) (string, bool, error)
	CreateBackup(ctx context.Context, userID int64, data string) error
}

// BackupMiddleware saves the submitted body as the owner's backup when it
// differs from the stored one. Writes run in the background; failures are
// logged and never reach the caller.
type BackupMiddleware struct {
	store   BackupStore
	events  logging.EventSink
	logger  logging.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewBackupMiddleware creates a BackupMiddleware.
func NewBackupMiddleware(store BackupStore, events logging.EventSink, logger logging.Logger) *BackupMiddleware {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &BackupMiddleware{
		store:   store,
		events:  events,
		logger:  logger.WithComponent("backup"),
		timeout: defaultBackupTimeout,
	}
}

// Name implements Middleware.
func (m *BackupMiddleware) Name() string { return "backup" }

// Process implements Middleware.
func (m *BackupMiddleware) Process(ctx context.Context, state *State) error {
	if state.Owner == nil || m.store == nil {
		return nil
	}

	dump, err := blocks.Canonical(state.RawBody)
	if err != nil {
		m.logger.Warn(ctx, err, "Backup skipped, body is not valid JSON", "user_id", state.Owner.ID)
		return nil
	}
	if len(dump) >= MaxBackupBytes {
		m.logger.Debug(ctx, "Backup skipped, body too large", "user_id", state.Owner.ID, "bytes", len(dump))
		return nil
	}

	userID := state.Owner.ID
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()
		m.save(bctx, userID, string(dump))
	}()
	return nil
}

func (m *BackupMiddleware) save(ctx context.Context, userID int64, dump string) {
	previous, found, err := m.store.GetBackup(ctx, userID)
	if err != nil {
		m.logger.Error(ctx, err, "Failed to read backup", "user_id", userID)
		return
	}
	if found && previous == dump {
		return
	}

	insertions, deletions := diffStats(previous, dump)
	if m.events != nil {
		m.events.Event(ctx, logging.EventGenBackup, map[string]any{
			"user_id":    userID,
			"bytes":      len(dump),
			"insertions": insertions,
			"deletions":  deletions,
		})
	}

	if err := m.store.CreateBackup(ctx, userID, dump); err != nil {
		m.logger.Error(ctx, err, "Failed to write backup", "user_id", userID)
	}
}

// Wait blocks until all pending backup writes are done.
func (m *BackupMiddleware) Wait() {
	m.wg.Wait()
}

// diffStats counts inserted and deleted characters between two dumps.
func diffStats(before, after string) (insertions, deletions int) {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = time.Second
	for _, d := range dmp.DiffMain(before, after, false) {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			insertions += len([]rune(d.Text))
		case diffmatchpatch.DiffDelete:
			deletions += len([]rune(d.Text))
		}
	}
	return insertions, deletions
}
