package watch

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"linksort/internal/config"
	"linksort/internal/errors"
	"linksort/internal/history"
	"linksort/internal/log"

	"github.com/gofrs/flock"
)

// LockFileName is created at the vault root by a running daemon. It is hidden,
// so the watcher never routes it.
const LockFileName = ".linksort.lock"

// LockPath returns the lock file for the vault at root.
func LockPath(root string) string {
	return filepath.Join(root, LockFileName)
}

// IsDaemonRunning reports whether some process holds the vault lock.
func IsDaemonRunning(root string) (bool, error) {
	path := LockPath(root)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.NewFileError("cannot stat lock file", path, errors.FileAccessDenied, err)
	}

	probe := flock.New(path)
	ok, err := probe.TryLock()
	if err != nil {
		return false, errors.NewFileError("cannot probe lock file", path, errors.FileAccessDenied, err)
	}
	if ok {
		_ = probe.Unlock()
		return false, nil
	}
	return true, nil
}

// RunUntilSignal runs d until ctx is cancelled or the process receives
// SIGINT or SIGTERM.
func RunUntilSignal(ctx context.Context, d *Daemon) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.LogWithFields(log.F("root", d.Vault().Root())).Info("Watching vault. Press Ctrl+C to stop.")
	if err := d.Run(ctx); err != nil {
		return err
	}

	status := d.Status()
	log.LogWithFields(
		log.F("handled", status.EventsHandled),
		log.F("moved", status.FilesMoved),
		log.F("skipped", status.FilesSkipped),
		log.F("failed", status.FilesFailed),
	).Info("Daemon stopped")
	return nil
}

// Serve builds a daemon for cfg, attaches the history journal when enabled
// and runs it until a signal arrives. A journal that cannot be opened is
// reported and the daemon runs without it.
func Serve(ctx context.Context, cfg *config.Config, dryRun bool) error {
	d, err := NewDaemon(cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	if dryRun {
		d.SetDryRun(true)
		log.Info("Dry run: files will not be moved")
	}

	if cfg.History.Enabled {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			log.LogWithError(err).Warn("History journal unavailable")
		} else {
			defer store.Close()
			d.SetHistory(store)
		}
	}

	return RunUntilSignal(ctx, d)
}
