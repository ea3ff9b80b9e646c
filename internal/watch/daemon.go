package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"linksort/internal/config"
	"linksort/internal/errors"
	"linksort/internal/history"
	"linksort/internal/log"
	"linksort/internal/organize"
	"linksort/internal/router"
	"linksort/internal/vault"
	"linksort/pkg/types"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"
)

// ErrAlreadyRunning is returned by Run when another daemon holds the vault lock.
var ErrAlreadyRunning = errors.New("another linksort daemon is already watching this vault")

// ownMoveTTL bounds how long a destination is remembered when its create
// event never arrives, e.g. in a folder that is not watched.
const ownMoveTTL = time.Minute

// ownMoves remembers where Run has just moved files. The watcher reports
// those destinations as new files; each one is dropped once.
type ownMoves map[string]time.Time

func (m ownMoves) add(rel string, now time.Time) {
	for p, at := range m {
		if now.Sub(at) > ownMoveTTL {
			delete(m, p)
		}
	}
	m[rel] = now
}

func (m ownMoves) consume(rel string, now time.Time) bool {
	at, ok := m[rel]
	if !ok {
		return false
	}
	delete(m, rel)
	return now.Sub(at) <= ownMoveTTL
}

// DaemonStatus represents the current status of the daemon
type DaemonStatus struct {
	Running          bool      `json:"running"`
	Root             string    `json:"root"`
	LockFile         string    `json:"lock_file"`
	WatchDirectories []string  `json:"watch_directories"`
	Rules            int       `json:"rules"`
	DryRun           bool      `json:"dry_run"`
	LastActivity     time.Time `json:"last_activity"`
	EventsHandled    int       `json:"events_handled"`
	FilesMoved       int       `json:"files_moved"`
	FilesSkipped     int       `json:"files_skipped"`
	FilesFailed      int       `json:"files_failed"`
}

// Daemon routes files created in a vault. Events are handled one at a time on
// the goroutine calling Run, so moves never overlap.
type Daemon struct {
	config  *config.Config
	vault   *vault.Dir
	watcher *Watcher
	router  *router.Router
	engine  organize.Organizer
	history history.Recorder

	lockPath string
	lock     *flock.Flock

	forceDryRun bool

	// Statistics
	handled, moved, skipped, failed int
	lastActivity                    time.Time

	// Callback for when a file is processed
	callback func(types.OrganizeResult)

	mutex   sync.RWMutex
	running bool
}

// NewDaemon prepares a daemon for the vault configured in cfg. Nothing is
// watched or locked until Run.
func NewDaemon(cfg *config.Config) (*Daemon, error) {
	root, err := cfg.VaultRoot()
	if err != nil {
		return nil, errors.NewConfigError("cannot resolve vault root", "vault.root", errors.InvalidConfig, err)
	}
	dir, err := vault.Open(root)
	if err != nil {
		return nil, err
	}

	watcher, err := New(dir.Root(), Options{
		Recursive: cfg.Watch.Recursive,
		Ignore:    cfg.Vault.Ignore,
		Buffer:    cfg.Watch.Buffer,
		Settle:    cfg.Settle(),
	})
	if err != nil {
		return nil, err
	}

	lockPath := LockPath(dir.Root())
	return &Daemon{
		config:   cfg,
		vault:    dir,
		watcher:  watcher,
		router:   router.FromConfig(cfg),
		engine:   organize.CurrentOrganizerFactory(dir, cfg),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// SetHistory journals every routed outcome to rec.
func (d *Daemon) SetHistory(rec history.Recorder) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.history = rec
}

// SetCallback sets a function to be called when a file is processed
func (d *Daemon) SetCallback(cb func(types.OrganizeResult)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.callback = cb
}

// SetDryRun forces dry run mode, surviving config reloads.
func (d *Daemon) SetDryRun(dryRun bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.forceDryRun = dryRun
	d.engine.SetDryRun(dryRun || d.config.Settings.DryRun)
}

// Vault returns the vault the daemon works on.
func (d *Daemon) Vault() *vault.Dir {
	return d.vault
}

// Run watches the vault until ctx is cancelled. It holds the vault lock for
// its whole lifetime.
func (d *Daemon) Run(ctx context.Context) error {
	ok, err := d.lock.TryLock()
	if err != nil {
		return errors.NewFileError("acquire lock", d.lockPath, errors.FileAccessDenied, err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			log.LogWithFields(log.F("lock", d.lockPath), log.F("error", err)).Warn("Failed to release daemon lock")
		}
	}()

	if err := d.watcher.Start(); err != nil {
		return err
	}
	defer d.watcher.Stop()

	reload, stopReload := d.watchConfig()
	defer stopReload()

	d.setRunning(true)
	defer d.setRunning(false)

	log.LogWithFields(
		log.F("root", d.vault.Root()),
		log.F("rules", d.currentRouter().Len()),
		log.F("lock", d.lockPath),
	).Info("linksort daemon started")

	files := d.watcher.FileChannel()
	moved := ownMoves{}
	for {
		select {
		case <-ctx.Done():
			log.Info("linksort daemon stopping")
			return nil

		case mod, ok := <-files:
			if !ok {
				return errors.New("watcher stopped unexpectedly")
			}
			if moved.consume(mod.Rel, time.Now()) {
				log.LogWithFields(log.F("file", mod.Rel)).Debug("Ignoring file the daemon moved itself")
				continue
			}
			result := d.HandleCreate(ctx, types.NewFileEvent(mod.Rel))
			if result.Moved() {
				moved.add(result.DestinationPath, time.Now())
			}

		case event, ok := <-reload:
			if !ok {
				reload = nil
				continue
			}
			if d.isConfigEvent(event) {
				d.Reload()
			}
		}
	}
}

// HandleCreate runs the routing pipeline for one created file: route, move,
// apply the template, journal the outcome.
func (d *Daemon) HandleCreate(ctx context.Context, ev types.FileEvent) types.OrganizeResult {
	d.mutex.RLock()
	r, engine, rec, cb := d.router, d.engine, d.history, d.callback
	d.mutex.RUnlock()

	result := engine.Process(ctx, r, ev)

	// Only routed outcomes are journaled
	if rec != nil && result.Rule != "" {
		if err := rec.Record(ctx, result); err != nil {
			log.LogWithError(err).Warn("Failed to record history")
		}
	}

	d.mutex.Lock()
	d.handled++
	d.lastActivity = result.Timestamp
	switch result.Status {
	case types.StatusMoved:
		d.moved++
	case types.StatusFailed:
		d.failed++
	default:
		d.skipped++
	}
	d.mutex.Unlock()

	if cb != nil {
		cb(result)
	}
	return result
}

// OrganizeFile runs the pipeline for an existing file given by absolute path.
func (d *Daemon) OrganizeFile(ctx context.Context, path string) (types.OrganizeResult, error) {
	ev, err := d.vault.EventFor(path)
	if err != nil {
		return types.OrganizeResult{}, err
	}
	ok, err := d.vault.Exists(ctx, ev.Path)
	if err != nil {
		return types.OrganizeResult{}, err
	}
	if !ok {
		return types.OrganizeResult{}, errors.NewFileError("cannot organize", ev.Path, errors.FileNotFound, errors.ErrFileNotFound)
	}
	return d.HandleCreate(ctx, ev), nil
}

// Reload re-reads the config file and swaps in its rules and settings. An
// unreadable or invalid file leaves the current rules in place.
func (d *Daemon) Reload() {
	path := d.config.Path()
	if path == "" {
		return
	}

	cfg, err := config.LoadConfigFile(path)
	if err != nil {
		log.LogWithError(err).Warn("Config reload failed, keeping previous rules")
		return
	}
	if root := d.config.VaultOverride(); root != "" {
		cfg = cfg.WithVaultRoot(root)
	}

	if root, err := cfg.VaultRoot(); err == nil && root != d.vault.Root() {
		log.LogWithFields(log.F("root", root)).Warn("Vault root changed; restart the daemon to watch it")
	}

	d.mutex.Lock()
	d.config = cfg
	d.router = router.FromConfig(cfg)
	d.engine.SetConfig(cfg)
	if d.forceDryRun {
		d.engine.SetDryRun(true)
	}
	rules := d.router.Len()
	d.mutex.Unlock()

	log.LogWithFields(log.F("rules", rules)).Info("Configuration reloaded")
}

// Close releases the watcher of a daemon that is not running.
func (d *Daemon) Close() error {
	d.watcher.Stop()
	return nil
}

// Status returns the current status of the daemon
func (d *Daemon) Status() DaemonStatus {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	return DaemonStatus{
		Running:          d.running,
		Root:             d.vault.Root(),
		LockFile:         d.lockPath,
		WatchDirectories: d.watcher.GetDirectories(),
		Rules:            d.router.Len(),
		DryRun:           d.forceDryRun || d.config.Settings.DryRun,
		LastActivity:     d.lastActivity,
		EventsHandled:    d.handled,
		FilesMoved:       d.moved,
		FilesSkipped:     d.skipped,
		FilesFailed:      d.failed,
	}
}

func (d *Daemon) setRunning(running bool) {
	d.mutex.Lock()
	d.running = running
	d.mutex.Unlock()
}

func (d *Daemon) currentRouter() *router.Router {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.router
}

// watchConfig watches the directory holding the config file, since editors
// often replace the file rather than write to it.
func (d *Daemon) watchConfig() (<-chan fsnotify.Event, func()) {
	path := d.config.Path()
	if !d.config.Watch.Reload || path == "" {
		return nil, func() {}
	}

	cw, err := fsnotify.NewWatcher()
	if err != nil {
		log.LogWithFields(log.F("error", err)).Warn("Config reload disabled")
		return nil, func() {}
	}
	if err := cw.Add(filepath.Dir(path)); err != nil {
		_ = cw.Close()
		log.LogWithFields(log.F("config", path), log.F("error", err)).Warn("Config reload disabled")
		return nil, func() {}
	}

	go func() {
		for err := range cw.Errors {
			log.LogWithFields(log.F("error", err)).Warn("Config watcher error")
		}
	}()

	log.LogWithFields(log.F("config", path)).Debug("Watching config for changes")
	return cw.Events, func() { _ = cw.Close() }
}

func (d *Daemon) isConfigEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(d.config.Path()) {
		return false
	}
	return event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create)
}
