package recovery

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
)

// TargetWatcher reloads a target-position file when it is rewritten while
// the service runs.
type TargetWatcher struct {
	storePath string
	targets   TargetManager
	watcher   *fsnotify.Watcher
}

// NewTargetWatcher creates a watcher over the store directory.
func NewTargetWatcher(storePath string, targets TargetManager) (*TargetWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fs watcher")
	}
	if err := w.Add(storePath); err != nil {
		_ = w.Close()
		return nil, errors.Wrap(err, "watch store directory")
	}
	return &TargetWatcher{storePath: storePath, targets: targets, watcher: w}, nil
}

// Run consumes filesystem events until the context or the process shuts
// down. Writers are expected to replace the file atomically, so a single
// write/create event carries the complete document.
func (t *TargetWatcher) Run(ctx context.Context) {
	defer func() { _ = t.watcher.Close() }()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sys.Shutdown():
			return
		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			t.reload(event.Name)
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			logs.Errorf("target watcher: %v", err)
		}
	}
}

func (t *TargetWatcher) reload(path string) {
	id, ok := ParseTargetFileName(path)
	if !ok {
		return
	}
	doc, err := LoadTargetFile(path)
	if err != nil {
		logs.Errorf("reload target file for sub-account %d: %v", id, err)
		return
	}
	t.targets.SetTargets(id, doc.Targets)
	logs.Infof("reloaded %d targets for sub-account %d", len(doc.Targets), id)
}
