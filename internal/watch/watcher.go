package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"linksort/internal/errors"
	"linksort/internal/log"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// DefaultSettle is how long a new file must go without writes before it is
// reported, when Options.Settle is unset.
const DefaultSettle = time.Second

// FileModification represents a file creation detected by the watcher. It is
// delivered once the file has been quiet for the settle time.
type FileModification struct {
	Path      string // Absolute path
	Rel       string // Vault-relative, slash separated
	Info      os.FileInfo
	Timestamp time.Time
	Op        fsnotify.Op
}

// Options tunes a Watcher.
type Options struct {
	Recursive bool     // Watch every non-hidden directory below the root
	Ignore    []string // Globs matched against the vault-relative path
	Buffer    int      // Capacity of the FileChannel
	Settle    time.Duration
}

// Watcher monitors a vault for newly created files using fsnotify
type Watcher struct {
	root      string
	recursive bool
	ignore    []glob.Glob
	settle    time.Duration

	// Directories being watched
	directories []string

	// Channel to receive file modifications
	fileModChan chan FileModification

	// Channel to signal stop, and one closed once the loop has exited
	stopChan chan struct{}
	done     chan struct{}

	// fsnotify watcher instance
	fsWatcher *fsnotify.Watcher

	mutex   sync.RWMutex
	running bool
}

// New creates a watcher for the vault at root. Nothing is watched until Start.
func New(root string, opts Options) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.NewFileError("cannot resolve vault root", root, errors.InvalidPath, err)
	}

	ignore := make([]glob.Glob, 0, len(opts.Ignore))
	for _, pattern := range opts.Ignore {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.NewConfigError("invalid ignore glob "+pattern, "vault.ignore", errors.InvalidConfig, err)
		}
		ignore = append(ignore, g)
	}

	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 1
	}

	settle := opts.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	return &Watcher{
		root:        abs,
		recursive:   opts.Recursive,
		ignore:      ignore,
		settle:      settle,
		directories: []string{},
		fileModChan: make(chan FileModification, buffer),
		stopChan:    make(chan struct{}),
		done:        make(chan struct{}),
		fsWatcher:   fsWatcher,
	}, nil
}

// Root returns the absolute vault directory.
func (w *Watcher) Root() string {
	return w.root
}

// AddDirectory adds a single directory to watch
func (w *Watcher) AddDirectory(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return errors.NewFileError("error accessing directory", dir, errors.FileNotFound, err)
	}
	if !info.IsDir() {
		return errors.NewFileError("not a directory", dir, errors.InvalidPath, nil)
	}

	if err := w.fsWatcher.Add(dir); err != nil {
		return errors.NewFileError("failed to add directory to watcher", dir, errors.FileOperationFailed, err)
	}

	w.mutex.Lock()
	found := false
	for _, existingDir := range w.directories {
		if existingDir == dir {
			found = true
			break
		}
	}
	if !found {
		w.directories = append(w.directories, dir)
	}
	w.mutex.Unlock()

	log.LogWithFields(log.F("directory", dir)).Debug("Watching directory")
	return nil
}

// AddTree watches dir and, when recursive, every non-hidden directory below it.
func (w *Watcher) AddTree(dir string) error {
	if !w.recursive {
		return w.AddDirectory(dir)
	}
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			log.LogWithFields(log.F("directory", p), log.F("error", err)).Warn("Skipping unreadable directory")
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && w.skip(p) {
			return fs.SkipDir
		}
		return w.AddDirectory(p)
	})
}

// FileChannel returns the channel that delivers file creation events
func (w *Watcher) FileChannel() <-chan FileModification {
	return w.fileModChan
}

// Start watches the root and begins delivering events
func (w *Watcher) Start() error {
	w.mutex.Lock()
	if w.running {
		w.mutex.Unlock()
		return errors.New("watcher already running")
	}
	w.running = true
	w.mutex.Unlock()

	if err := w.AddTree(w.root); err != nil {
		w.mutex.Lock()
		w.running = false
		w.mutex.Unlock()
		_ = w.fsWatcher.Close()
		return err
	}

	go w.loop()
	log.LogWithFields(log.F("root", w.root), log.F("directories", len(w.GetDirectories()))).Info("Watcher started")
	return nil
}

// pendingFile is a created file still being written.
type pendingFile struct {
	path  string
	first time.Time
	last  time.Time
}

func (w *Watcher) loop() {
	defer close(w.done)
	defer close(w.fileModChan)

	pending := make(map[string]*pendingFile)
	ticker := time.NewTicker(max(w.settle/4, 5*time.Millisecond))
	defer ticker.Stop()

	for {
		// Only wake up for the ticker while something is waiting
		var tick <-chan time.Time
		if len(pending) > 0 {
			tick = ticker.C
		}

		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.track(pending, event, time.Now())

		case now := <-tick:
			for _, mod := range w.settled(pending, now) {
				select {
				case w.fileModChan <- mod:
				case <-w.stopChan:
					return
				}
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.LogWithFields(log.F("error", err)).Error("fsnotify watcher error")

		case <-w.stopChan:
			return
		}
	}
}

// track records Create events for regular files and pushes their deadline back
// on every later Write. New directories are watched instead.
func (w *Watcher) track(pending map[string]*pendingFile, event fsnotify.Event, now time.Time) {
	if p, ok := pending[event.Name]; ok {
		if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) {
			p.last = now
		}
		return
	}
	if !event.Op.Has(fsnotify.Create) || w.skip(event.Name) {
		return
	}

	info, err := os.Lstat(event.Name)
	if err != nil {
		// Created and removed again before we looked
		if !os.IsNotExist(err) {
			log.LogWithFields(log.F("file", event.Name), log.F("error", err)).Error("Error stating file")
		}
		return
	}

	if info.IsDir() {
		if w.recursive {
			if err := w.AddTree(event.Name); err != nil {
				log.LogWithFields(log.F("directory", event.Name), log.F("error", err)).Warn("Failed to watch new directory")
			}
		}
		return
	}
	if !info.Mode().IsRegular() {
		return
	}
	pending[event.Name] = &pendingFile{path: event.Name, first: now, last: now}
}

// settled removes the files that have been quiet for the settle time from
// pending and returns them in creation order. Files gone by then are dropped.
func (w *Watcher) settled(pending map[string]*pendingFile, now time.Time) []FileModification {
	var ready []*pendingFile
	for name, p := range pending {
		if now.Sub(p.last) >= w.settle {
			ready = append(ready, p)
			delete(pending, name)
		}
	}
	slices.SortFunc(ready, func(a, b *pendingFile) int { return a.first.Compare(b.first) })

	mods := make([]FileModification, 0, len(ready))
	for _, p := range ready {
		info, err := os.Lstat(p.path)
		if err != nil || !info.Mode().IsRegular() {
			log.LogWithFields(log.F("file", p.path)).Debug("New file vanished before it settled")
			continue
		}
		rel, ok := w.rel(p.path)
		if !ok {
			continue
		}
		mods = append(mods, FileModification{
			Path:      p.path,
			Rel:       rel,
			Info:      info,
			Timestamp: now,
			Op:        fsnotify.Create,
		})
	}
	return mods
}

// skip reports whether an absolute path is outside the root, has a hidden
// component, or matches an ignore glob.
func (w *Watcher) skip(abs string) bool {
	rel, ok := w.rel(abs)
	if !ok {
		return true
	}
	if Hidden(rel) {
		return true
	}
	for _, g := range w.ignore {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

func (w *Watcher) rel(abs string) (string, bool) {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Hidden reports whether any component of a slash separated path starts
// with a dot.
func Hidden(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}

// Stop halts the watcher and closes FileChannel
func (w *Watcher) Stop() {
	w.mutex.Lock()
	wasRunning := w.running
	w.running = false
	w.mutex.Unlock()

	if !wasRunning {
		_ = w.fsWatcher.Close()
		return
	}

	close(w.stopChan)
	if err := w.fsWatcher.Close(); err != nil {
		log.LogWithFields(log.F("error", err)).Error("Error closing fsnotify watcher")
	}
	<-w.done

	log.Info("Watcher stopped")
}

// IsRunning returns whether the watcher is currently active
func (w *Watcher) IsRunning() bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.running
}

// GetDirectories returns the list of directories being watched
func (w *Watcher) GetDirectories() []string {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	dirsCopy := make([]string, len(w.directories))
	copy(dirsCopy, w.directories)
	return dirsCopy
}
