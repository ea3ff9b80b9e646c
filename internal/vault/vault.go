// Package vault is the filesystem boundary between the routing core and the
// note tree on disk. Paths crossing the boundary are vault-relative and use
// forward slashes; a leading "/" denotes the vault root.
package vault

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"linksort/internal/errors"
	"linksort/pkg/types"
)

// FS is the set of file operations the routing core needs.
type FS interface {
	Exists(ctx context.Context, rel string) (bool, error)
	Move(ctx context.Context, from, to string) error
	Read(ctx context.Context, rel string) ([]byte, error)
	Append(ctx context.Context, rel string, data []byte) error
	MkdirAll(ctx context.Context, rel string) error
}

// Dir implements FS on a directory of the local filesystem.
type Dir struct {
	root string
}

var _ FS = (*Dir)(nil)

// Open returns a Dir rooted at root, which must be an existing directory.
func Open(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.NewFileError("cannot resolve vault root", root, errors.InvalidPath, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileError("vault root not found", abs, errors.FileNotFound, err)
		}
		return nil, errors.NewFileError("cannot access vault root", abs, errors.FileAccessDenied, err)
	}
	if !info.IsDir() {
		return nil, errors.NewFileError("vault root is not a directory", abs, errors.InvalidPath, nil)
	}
	return &Dir{root: abs}, nil
}

// Root returns the absolute vault directory.
func (d *Dir) Root() string {
	return d.root
}

// Clean normalises a vault path: "/People/@Alice.md", "People//@Alice.md" and
// "./People/@Alice.md" all become "People/@Alice.md". Paths escaping the root
// are rejected.
func Clean(rel string) (string, error) {
	slashed := strings.ReplaceAll(rel, "\\", "/")
	trimmed := strings.TrimLeft(slashed, "/")
	cleaned := path.Clean(trimmed)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.NewFileError("cannot resolve", rel, errors.InvalidPath, errors.ErrPathOutsideRoot)
	}
	if cleaned == "." {
		return "", nil
	}
	return cleaned, nil
}

// Abs converts a vault path to an absolute OS path inside the root.
func (d *Dir) Abs(rel string) (string, error) {
	cleaned, err := Clean(rel)
	if err != nil {
		return "", err
	}
	return filepath.Join(d.root, filepath.FromSlash(cleaned)), nil
}

// Rel converts an absolute OS path inside the root to a vault path.
func (d *Dir) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(d.root, abs)
	if err != nil {
		return "", errors.NewFileError("cannot resolve", abs, errors.InvalidPath, errors.Join(errors.ErrPathOutsideRoot, err))
	}
	return Clean(filepath.ToSlash(rel))
}

// EventFor builds the FileEvent for an absolute path inside the vault.
func (d *Dir) EventFor(abs string) (types.FileEvent, error) {
	rel, err := d.Rel(abs)
	if err != nil {
		return types.FileEvent{}, err
	}
	if rel == "" {
		return types.FileEvent{}, errors.NewFileError("vault root is not a file", abs, errors.InvalidPath, nil)
	}
	return types.NewFileEvent(rel), nil
}

func (d *Dir) Exists(ctx context.Context, rel string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	abs, err := d.Abs(rel)
	if err != nil {
		return false, err
	}
	_, err = os.Lstat(abs)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.NewFileError("cannot stat", rel, errors.FileAccessDenied, err)
}

// Move renames from to to. It does not check the destination; callers decide
// whether an existing destination is acceptable.
func (d *Dir) Move(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := d.Abs(from)
	if err != nil {
		return err
	}
	dst, err := d.Abs(to)
	if err != nil {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		if os.IsNotExist(err) {
			return errors.NewFileError("cannot move", from, errors.FileNotFound, err)
		}
		return errors.NewFileError("cannot move", from, errors.FileOperationFailed, err)
	}
	return nil
}

func (d *Dir) Read(ctx context.Context, rel string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := d.Abs(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileError("file not found", rel, errors.FileNotFound, err)
		}
		return nil, errors.NewFileError("cannot read", rel, errors.FileAccessDenied, err)
	}
	return data, nil
}

// Append writes data at the end of an existing file.
func (d *Dir) Append(ctx context.Context, rel string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := d.Abs(rel)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(abs, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewFileError("file not found", rel, errors.FileNotFound, err)
		}
		return errors.NewFileError("cannot open for append", rel, errors.FileAccessDenied, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return errors.NewFileError("cannot append", rel, errors.FileOperationFailed, err)
	}
	if err := f.Close(); err != nil {
		return errors.NewFileError("cannot append", rel, errors.FileOperationFailed, err)
	}
	return nil
}

func (d *Dir) MkdirAll(ctx context.Context, rel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := d.Abs(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return errors.NewFileError("cannot create folder", rel, errors.FileOperationFailed, err)
	}
	return nil
}
