package model

import (
	"errors"
	"strings"
)

var (
	ErrNotFound            = errors.New("target file not found")
	ErrNotWritable         = errors.New("target file is not writable")
	ErrCorruptState        = errors.New("target is patched but no backup exists; reinstall the host application")
	ErrMissingBackup       = errors.New("target is patched but the backup is missing")
	ErrBackupExists        = errors.New("backup already exists; a previous run left inconsistent state")
	ErrAnchorNotFound      = errors.New("anchor line not found; host file format changed or wrong file targeted")
	ErrAlreadyInjected     = errors.New("injection marker already present")
	ErrLocked              = errors.New("target is locked by another run")
	ErrIncompatibleVersion = errors.New("host application version is not supported (rerun with --force to skip this check)")
)

// PathError records the operation and path that produced one of the sentinels above.
type PathError struct {
	Op     string
	Path   string
	Err    error
	Detail string
}

func (e *PathError) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	b.WriteString(e.Path)
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if e.Detail != "" {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteString(")")
	}
	return b.String()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

func NewPathError(op, path string, err error) error {
	return &PathError{Op: op, Path: path, Err: err}
}

var kinds = []struct {
	err  error
	name string
}{
	{ErrNotFound, "not-found"},
	{ErrNotWritable, "not-writable"},
	{ErrCorruptState, "corrupt-state"},
	{ErrMissingBackup, "missing-backup"},
	{ErrBackupExists, "backup-exists"},
	{ErrAnchorNotFound, "anchor-not-found"},
	{ErrAlreadyInjected, "already-injected"},
	{ErrLocked, "locked"},
	{ErrIncompatibleVersion, "incompatible-version"},
}

// Kind returns a short label for the failure class of err, or "error" when
// err does not wrap one of the known sentinels.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "error"
}
