package installer

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"math-with-slack/internal/filestore"
)

type fileSnapshot struct {
	exists bool
	mode   os.FileMode
	data   []byte
}

// rollback holds the content of every path a run may touch, captured before
// the first write, so a failed run can put each one back.
type rollback struct {
	snapshots map[string]fileSnapshot
}

func newRollback() *rollback {
	return &rollback{snapshots: map[string]fileSnapshot{}}
}

func (r *rollback) capture(paths ...string) error {
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if err := r.captureFile(path); err != nil {
			return err
		}
	}
	return nil
}

func (r *rollback) captureFile(path string) error {
	clean := filepath.Clean(path)
	if _, ok := r.snapshots[clean]; ok {
		return nil
	}
	info, err := os.Stat(clean)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			r.snapshots[clean] = fileSnapshot{exists: false}
			return nil
		}
		return fmt.Errorf("stat %s for rollback: %w", clean, err)
	}
	if info.IsDir() {
		return fmt.Errorf("cannot snapshot directory for rollback: %s", clean)
	}
	data, err := os.ReadFile(clean)
	if err != nil {
		return fmt.Errorf("read %s for rollback: %w", clean, err)
	}
	r.snapshots[clean] = fileSnapshot{
		exists: true,
		mode:   info.Mode().Perm(),
		data:   data,
	}
	return nil
}

// restore puts back every path whose content, mode or presence no longer
// matches its snapshot and returns those paths. Untouched files are left
// alone so they keep their inode and mtime.
func (r *rollback) restore() ([]string, error) {
	var restored []string
	var errs []string
	for _, path := range r.paths() {
		snapshot := r.snapshots[path]
		changed, err := snapshot.changed(path)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if !changed {
			continue
		}
		if snapshot.exists {
			if err := filestore.WriteFile(path, snapshot.data, snapshot.mode); err != nil {
				errs = append(errs, fmt.Sprintf("restore %s: %v", path, err))
				continue
			}
		} else if _, err := filestore.RemoveIfExists(path); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		restored = append(restored, path)
	}
	if len(errs) > 0 {
		return restored, errors.New(strings.Join(errs, "; "))
	}
	return restored, nil
}

func (s fileSnapshot) changed(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s.exists, nil
		}
		return false, fmt.Errorf("stat %s for rollback: %w", path, err)
	}
	if !s.exists || info.Mode().Perm() != s.mode || info.Size() != int64(len(s.data)) {
		return true, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s for rollback: %w", path, err)
	}
	return !bytes.Equal(data, s.data), nil
}

func (r *rollback) paths() []string {
	paths := make([]string, 0, len(r.snapshots))
	for path := range r.snapshots {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
