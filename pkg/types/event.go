package types

import "path"

// FileEvent describes one newly created file inside the vault.
// All paths are vault-relative and use forward slashes.
type FileEvent struct {
	Name       string // Bare filename including extension
	Dir        string // Parent directory, "" for the vault root
	ParentName string // Bare name of the parent folder, "" for the vault root
	Path       string // Dir joined with Name
}

// NewFileEvent builds a FileEvent from a vault-relative path.
func NewFileEvent(rel string) FileEvent {
	rel = path.Clean("/" + rel)[1:]
	dir := path.Dir(rel)
	if dir == "." {
		dir = ""
	}
	parent := ""
	if dir != "" {
		parent = path.Base(dir)
	}
	return FileEvent{
		Name:       path.Base(rel),
		Dir:        dir,
		ParentName: parent,
		Path:       rel,
	}
}
