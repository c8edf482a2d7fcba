package recovery

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/journal"
	"main/internal/position"
)

const (
	_sessionFileName = "session"
	_sessionLayout   = "2006-01-02 15:04:05"
)

// ReplayHistory is invoked once when a fresh session begins, so an external
// collaborator can replay the working order book into the manager before
// live flow starts. A nil hook is a no-op.
type ReplayHistory func(ctx context.Context) error

// Loader seeds the ledgers from the journal at startup.
type Loader struct {
	storePath string
	store     *journal.Store
	mgr       *position.Manager
	targets   TargetManager
	replay    ReplayHistory
}

// NewLoader creates a loader. targets and replay may be nil.
func NewLoader(storePath string, store *journal.Store, mgr *position.Manager, targets TargetManager, replay ReplayHistory) *Loader {
	return &Loader{
		storePath: storePath,
		store:     store,
		mgr:       mgr,
		targets:   targets,
		replay:    replay,
	}
}

// Run recovers beginning-of-day state. It must complete before any
// confirmation is accepted: workers start only after it returns.
func (l *Loader) Run(ctx context.Context) error {
	marker, created, err := l.sessionMarker()
	if err != nil {
		return err
	}
	logs.Infof("session start %s (new session: %v)", marker.Format(_sessionLayout), created)

	if created && l.replay != nil {
		if err := l.replay(ctx); err != nil {
			return errors.Wrap(err, "replay order history")
		}
	}

	rows, err := l.store.LatestBefore(marker)
	if err != nil {
		return err
	}
	for _, row := range rows {
		l.mgr.SeedBod(row)
	}
	logs.Infof("recovered %d position keys", len(rows))

	l.loadTargets()
	return nil
}

// sessionMarker reads the session-start timestamp, creating the marker file
// when this boot begins a new session.
func (l *Loader) sessionMarker() (time.Time, bool, error) {
	path := filepath.Join(l.storePath, _sessionFileName)
	blob, err := os.ReadFile(path)
	switch {
	case err == nil:
		marker, perr := time.ParseInLocation(_sessionLayout, strings.TrimSpace(string(blob)), time.UTC)
		if perr != nil {
			return time.Time{}, false, errors.Wrap(perr, "parse session marker")
		}
		return marker, false, nil
	case os.IsNotExist(err):
		marker := time.Now().UTC().Truncate(time.Second)
		if werr := os.WriteFile(path, []byte(marker.Format(_sessionLayout)+"\n"), 0o644); werr != nil {
			return time.Time{}, false, errors.Wrap(werr, "write session marker")
		}
		return marker, true, nil
	default:
		return time.Time{}, false, errors.Wrap(err, "read session marker")
	}
}

// loadTargets parses every sub-account's target file, skipping accounts
// without one. A malformed file is logged and skipped, never fatal.
func (l *Loader) loadTargets() {
	if l.targets == nil {
		return
	}
	for _, acc := range l.mgr.Directory().SubAccounts() {
		path := filepath.Join(l.storePath, TargetFileName(acc.ID))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		doc, err := LoadTargetFile(path)
		if err != nil {
			logs.Errorf("target file for sub-account %d: %v", acc.ID, err)
			continue
		}
		l.targets.SetTargets(acc.ID, doc.Targets)
		logs.Infof("loaded %d targets for sub-account %d", len(doc.Targets), acc.ID)
	}
}
