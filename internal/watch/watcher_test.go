package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, root string, opts Options) *Watcher {
	t.Helper()
	w, err := New(root, opts)
	require.NoError(t, err, "New watcher creation failed")
	require.NoError(t, w.Start(), "Failed to start watcher")
	t.Cleanup(w.Stop)

	// Allow a brief moment for fsnotify to initialize watches
	time.Sleep(100 * time.Millisecond)
	return w
}

func expectEvent(t *testing.T, w *Watcher, rel string) FileModification {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case mod, ok := <-w.FileChannel():
			require.True(t, ok, "Event channel closed unexpectedly")
			if mod.Rel == rel {
				return mod
			}
			t.Logf("Ignoring event for %s", mod.Rel)
		case <-timeout:
			t.Fatalf("Timeout waiting for CREATE event for %s", rel)
		}
	}
}

func expectNoEvent(t *testing.T, w *Watcher, wait time.Duration) {
	t.Helper()
	select {
	case mod, ok := <-w.FileChannel():
		if ok {
			t.Fatalf("Unexpected event for %s", mod.Rel)
		}
	case <-time.After(wait):
	}
}

func TestWatcherFsnotify(t *testing.T) {
	tempDir := t.TempDir()
	w := startWatcher(t, tempDir, Options{Recursive: true, Buffer: 8})

	testFilePath := filepath.Join(tempDir, "@Alice.md")
	require.NoError(t, os.WriteFile(testFilePath, []byte("hello"), 0o644))

	event := expectEvent(t, w, "@Alice.md")
	assert.Equal(t, testFilePath, event.Path, "Event path mismatch")
	assert.True(t, event.Op.Has(fsnotify.Create), "Expected Create operation")
	require.NotNil(t, event.Info, "Event info should not be nil")
	assert.Equal(t, "@Alice.md", event.Info.Name())

	// Writes to an existing file are not creations
	require.NoError(t, os.WriteFile(testFilePath, []byte("more"), 0o644))
	expectNoEvent(t, w, 300*time.Millisecond)

	w.Stop()
	assert.False(t, w.IsRunning())

	select {
	case _, ok := <-w.FileChannel():
		assert.False(t, ok, "Event channel should be closed after stop")
	case <-time.After(time.Second):
		t.Error("Timeout waiting for event channel to close after stop")
	}
}

func TestWatcherRecursive(t *testing.T) {
	tempDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tempDir, "Inbox", "Deep"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(tempDir, ".obsidian"), 0o755))

	w := startWatcher(t, tempDir, Options{Recursive: true, Buffer: 8})

	dirs := w.GetDirectories()
	assert.Contains(t, dirs, tempDir)
	assert.Contains(t, dirs, filepath.Join(tempDir, "Inbox", "Deep"))
	assert.NotContains(t, dirs, filepath.Join(tempDir, ".obsidian"), "hidden directories are not watched")

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "Inbox", "Deep", "@Bob.md"), nil, 0o644))
	expectEvent(t, w, "Inbox/Deep/@Bob.md")

	// Directories created later are picked up
	newDir := filepath.Join(tempDir, "Later")
	require.NoError(t, os.Mkdir(newDir, 0o755))
	require.Eventually(t, func() bool {
		for _, d := range w.GetDirectories() {
			if d == newDir {
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(newDir, "Paris@"), nil, 0o644))
	expectEvent(t, w, "Later/Paris@")
}

func TestWatcherNonRecursive(t *testing.T) {
	tempDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(tempDir, "Inbox"), 0o755))

	w := startWatcher(t, tempDir, Options{Buffer: 8})
	assert.Equal(t, []string{tempDir}, w.GetDirectories())

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "Inbox", "@Bob.md"), nil, 0o644))
	expectNoEvent(t, w, 300*time.Millisecond)
}

func TestWatcherSkipsHiddenAndIgnored(t *testing.T) {
	tempDir := t.TempDir()
	w := startWatcher(t, tempDir, Options{Recursive: true, Ignore: []string{"**.tmp", "Archive/**"}, Buffer: 8})

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, ".hidden.md"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "@draft.tmp"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "@Carol.md"), nil, 0o644))

	// The first event delivered must be the only routable file
	select {
	case mod := <-w.FileChannel():
		assert.Equal(t, "@Carol.md", mod.Rel)
	case <-time.After(3 * time.Second):
		t.Fatal("Timeout waiting for CREATE event")
	}
	expectNoEvent(t, w, 300*time.Millisecond)
}

func TestWatcherWaitsForWritesToStop(t *testing.T) {
	tempDir := t.TempDir()
	w := startWatcher(t, tempDir, Options{Buffer: 8, Settle: 200 * time.Millisecond})

	path := filepath.Join(tempDir, "@Alice.md")
	f, err := os.Create(path)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		time.Sleep(100 * time.Millisecond)
		_, err := f.WriteString("line\n")
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())

	select {
	case mod := <-w.FileChannel():
		t.Fatalf("%s reported while still being written", mod.Rel)
	default:
	}

	event := expectEvent(t, w, "@Alice.md")
	assert.Equal(t, int64(15), event.Info.Size(), "reported after the last write")
	expectNoEvent(t, w, 400*time.Millisecond)
}

func TestWatcherDropsFilesGoneBeforeSettling(t *testing.T) {
	tempDir := t.TempDir()
	w := startWatcher(t, tempDir, Options{Buffer: 8, Settle: 200 * time.Millisecond})

	gone := filepath.Join(tempDir, "@Gone.md")
	require.NoError(t, os.WriteFile(gone, nil, 0o644))
	require.NoError(t, os.Remove(gone))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "@Kept.md"), nil, 0o644))

	event := expectEvent(t, w, "@Kept.md")
	assert.Equal(t, "@Kept.md", event.Rel)
	expectNoEvent(t, w, 400*time.Millisecond)
}

func TestWatcherSettledOrder(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, Options{Settle: time.Second})
	require.NoError(t, err)
	defer w.Stop()

	base := time.Now()
	pending := map[string]*pendingFile{}
	for i, name := range []string{"b.md", "a.md", "c.md"} {
		p := filepath.Join(root, name)
		require.NoError(t, os.WriteFile(p, nil, 0o644))
		at := base.Add(time.Duration(i) * time.Millisecond)
		pending[p] = &pendingFile{path: p, first: at, last: at}
	}
	// Still being written
	busy := filepath.Join(root, "busy.md")
	pending[busy] = &pendingFile{path: busy, first: base, last: base.Add(900 * time.Millisecond)}

	mods := w.settled(pending, base.Add(time.Second+5*time.Millisecond))
	require.Len(t, mods, 3)
	assert.Equal(t, "b.md", mods[0].Rel)
	assert.Equal(t, "a.md", mods[1].Rel)
	assert.Equal(t, "c.md", mods[2].Rel)
	assert.Len(t, pending, 1)
	assert.Contains(t, pending, busy)
}

func TestWatcherSkip(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, Options{Ignore: []string{"**.swp", "Templates/**"}})
	require.NoError(t, err)
	defer w.Stop()

	assert.False(t, w.skip(filepath.Join(root, "@Alice.md")))
	assert.False(t, w.skip(filepath.Join(root, "People", "@Alice.md")))
	assert.True(t, w.skip(filepath.Join(root, ".obsidian", "workspace.json")))
	assert.True(t, w.skip(filepath.Join(root, "People", ".@Alice.md.swp")))
	assert.True(t, w.skip(filepath.Join(root, "notes.swp")))
	assert.True(t, w.skip(filepath.Join(root, "Templates", "Person.md")))
	assert.True(t, w.skip(filepath.Join(filepath.Dir(root), "elsewhere.md")))
	assert.True(t, w.skip(root))
}

func TestNewRejectsBadGlob(t *testing.T) {
	_, err := New(t.TempDir(), Options{Ignore: []string{"[unterminated"}})
	assert.Error(t, err)
}

func TestHidden(t *testing.T) {
	assert.True(t, Hidden(".obsidian/app.json"))
	assert.True(t, Hidden("People/.draft.md"))
	assert.True(t, Hidden(LockFileName))
	assert.False(t, Hidden("People/@Alice.md"))
	assert.False(t, Hidden("v1.2/notes.md"))
}
