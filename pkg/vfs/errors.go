package vfs

import "errors"

// Common errors
var (
	ErrNotFound      = errors.New("entry not found")
	ErrAlreadyExists = errors.New("entry already exists")
	ErrNotEmpty      = errors.New("directory not empty")
	ErrNotDirectory  = errors.New("not a directory")
	ErrNotFile       = errors.New("not a file")
	ErrNotSymlink    = errors.New("not a symlink")
	ErrInvalidPath   = errors.New("invalid path")
	ErrRootProtected = errors.New("cannot delete root")
	ErrMountBusy     = errors.New("mount point is busy")
	ErrKeyNotFound   = errors.New("key not found in store")
)
