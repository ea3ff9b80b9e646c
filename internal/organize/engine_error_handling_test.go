package organize

import (
	"context"
	"testing"

	"linksort/internal/errors"
	"linksort/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFS is an in-memory vault whose operations can be made to fail.
type stubFS struct {
	files     map[string][]byte
	failOn    map[string]error
	moves     int
	appends   int
	mkdirCall []string
}

func newStubFS(files map[string]string) *stubFS {
	s := &stubFS{files: map[string][]byte{}, failOn: map[string]error{}}
	for k, v := range files {
		s.files[k] = []byte(v)
	}
	return s
}

func (s *stubFS) Exists(ctx context.Context, rel string) (bool, error) {
	if err := s.failOn["exists"]; err != nil {
		return false, err
	}
	_, ok := s.files[rel]
	return ok, nil
}

func (s *stubFS) Move(ctx context.Context, from, to string) error {
	if err := s.failOn["move"]; err != nil {
		return err
	}
	data, ok := s.files[from]
	if !ok {
		return errors.NewFileError("cannot move", from, errors.FileNotFound, nil)
	}
	delete(s.files, from)
	s.files[to] = data
	s.moves++
	return nil
}

func (s *stubFS) Read(ctx context.Context, rel string) ([]byte, error) {
	if err := s.failOn["read"]; err != nil {
		return nil, err
	}
	data, ok := s.files[rel]
	if !ok {
		return nil, errors.NewFileError("file not found", rel, errors.FileNotFound, nil)
	}
	return data, nil
}

func (s *stubFS) Append(ctx context.Context, rel string, data []byte) error {
	if err := s.failOn["append"]; err != nil {
		return err
	}
	s.files[rel] = append(s.files[rel], data...)
	s.appends++
	return nil
}

func (s *stubFS) MkdirAll(ctx context.Context, rel string) error {
	if err := s.failOn["mkdir"]; err != nil {
		return err
	}
	s.mkdirCall = append(s.mkdirCall, rel)
	return nil
}

var person = types.Rule{Name: "People", Pattern: "^@", Folder: "People", Template: "Templates/Person.md"}

func TestErrorHandling(t *testing.T) {
	ctx := context.Background()
	ev := types.NewFileEvent("@Alice.md")

	t.Run("stat failure", func(t *testing.T) {
		fs := newStubFS(map[string]string{"@Alice.md": ""})
		fs.failOn["exists"] = errors.NewFileError("cannot stat", "People/@Alice.md", errors.FileAccessDenied, nil)

		result := New(fs).Move(ctx, ev, person)
		assert.Equal(t, types.StatusFailed, result.Status)
		assert.True(t, errors.IsFileAccessDenied(result.Error))
		assert.Zero(t, fs.moves)
	})

	t.Run("mkdir failure", func(t *testing.T) {
		fs := newStubFS(map[string]string{"@Alice.md": ""})
		fs.failOn["mkdir"] = errors.NewFileError("cannot create folder", "People", errors.FileOperationFailed, nil)

		result := New(fs).Move(ctx, ev, person)
		assert.Equal(t, types.StatusFailed, result.Status)
		assert.Zero(t, fs.moves)
	})

	t.Run("source vanished", func(t *testing.T) {
		fs := newStubFS(nil)

		result := New(fs).Move(ctx, ev, person)
		assert.Equal(t, types.StatusFailed, result.Status)
		assert.True(t, errors.IsFileNotFound(result.Error))
	})

	t.Run("folder escaping the vault", func(t *testing.T) {
		fs := newStubFS(map[string]string{"@Alice.md": ""})
		rule := types.Rule{Name: "Out", Pattern: "^@", Folder: "../outside"}

		result := New(fs).Move(ctx, ev, rule)
		assert.Equal(t, types.StatusFailed, result.Status)
		assert.True(t, errors.IsInvalidPath(result.Error))
		assert.Empty(t, fs.mkdirCall)
	})

	t.Run("template read failure keeps the move", func(t *testing.T) {
		fs := newStubFS(map[string]string{"@Alice.md": "a", "Templates/Person.md": "T"})
		fs.failOn["read"] = errors.NewFileError("cannot read", "Templates/Person.md", errors.FileAccessDenied, nil)

		result := New(fs).Organize(ctx, ev, person)
		assert.Equal(t, types.StatusMoved, result.Status)
		assert.False(t, result.TemplateApplied)
		assert.Equal(t, ReasonTemplateErr, result.Reason)
		require.Error(t, result.Error)
		assert.True(t, errors.IsFileAccessDenied(result.Error))
		assert.Equal(t, "a", string(fs.files["People/@Alice.md"]))
	})

	t.Run("template append failure keeps the move", func(t *testing.T) {
		fs := newStubFS(map[string]string{"@Alice.md": "a", "Templates/Person.md": "T"})
		fs.failOn["append"] = errors.NewFileError("cannot append", "People/@Alice.md", errors.FileOperationFailed, nil)

		result := New(fs).Organize(ctx, ev, person)
		assert.True(t, result.Moved())
		assert.Error(t, result.Error)
		assert.Contains(t, fs.files, "People/@Alice.md")
		assert.NotContains(t, fs.files, "@Alice.md")
	})

	t.Run("template applied once on success", func(t *testing.T) {
		fs := newStubFS(map[string]string{"@Alice.md": "a", "Templates/Person.md": "T"})

		result := New(fs).Organize(ctx, ev, person)
		require.NoError(t, result.Error)
		assert.True(t, result.TemplateApplied)
		assert.Equal(t, 1, fs.appends)
		assert.Equal(t, "aT", string(fs.files["People/@Alice.md"]))
		assert.Equal(t, []string{"People"}, fs.mkdirCall)
	})

	t.Run("root folder rule is a no-op for root files", func(t *testing.T) {
		fs := newStubFS(map[string]string{"@Alice.md": "a"})
		rule := types.Rule{Name: "Root", Pattern: "^@", Folder: "/"}

		result := New(fs).Move(ctx, ev, rule)
		assert.Equal(t, types.StatusSkipped, result.Status)
		assert.Equal(t, ReasonSamePath, result.Reason)
	})
}
