package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"math-with-slack/internal/model"
)

const (
	lockSuffix    = ".mwslock"
	lockOwnerFile = "owner.json"
)

// Lock is an exclusive lock directory beside a target file. Two runs against
// the same target would otherwise race on the backup file.
type Lock struct {
	lockDir string
}

type LockOwner struct {
	PID       int    `json:"pid"`
	CreatedAt string `json:"created_at"`
	Hostname  string `json:"hostname,omitempty"`
}

func LockPath(target string) string {
	return target + lockSuffix
}

func AcquireLock(target string) (Lock, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return Lock{}, fmt.Errorf("lock target is required")
	}

	lockDir := LockPath(target)
	if err := os.Mkdir(lockDir, 0o755); err != nil {
		if os.IsExist(err) {
			lockErr := &model.PathError{Op: "lock", Path: target, Err: model.ErrLocked}
			if owner, ok := ReadLockOwner(target); ok {
				lockErr.Detail = fmt.Sprintf("pid=%d created_at=%s host=%s; remove %s if no other run is active",
					owner.PID, owner.CreatedAt, owner.Hostname, lockDir)
			} else {
				lockErr.Detail = "remove " + lockDir + " if no other run is active"
			}
			return Lock{}, lockErr
		}
		return Lock{}, fmt.Errorf("acquire lock for %s: %w", target, err)
	}

	owner := LockOwner{
		PID:       os.Getpid(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Hostname:  hostnameOrUnknown(),
	}
	if err := WriteJSON(filepath.Join(lockDir, lockOwnerFile), owner); err != nil {
		_ = os.RemoveAll(lockDir)
		return Lock{}, fmt.Errorf("write lock owner for %s: %w", target, err)
	}

	return Lock{lockDir: lockDir}, nil
}

// ReadLockOwner returns the owner of a held lock, if any.
func ReadLockOwner(target string) (LockOwner, bool) {
	var owner LockOwner
	if err := ReadJSON(filepath.Join(LockPath(target), lockOwnerFile), &owner); err != nil {
		return LockOwner{}, false
	}
	if owner.PID <= 0 || owner.CreatedAt == "" {
		return LockOwner{}, false
	}
	return owner, true
}

// IsLocked reports whether the lock directory for target exists.
func IsLocked(target string) bool {
	info, err := os.Stat(LockPath(target))
	return err == nil && info.IsDir()
}

func (l Lock) Release() error {
	if strings.TrimSpace(l.lockDir) == "" {
		return nil
	}
	_ = os.Remove(filepath.Join(l.lockDir, lockOwnerFile))
	if err := os.Remove(l.lockDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release lock %s: %w", l.lockDir, err)
	}
	return nil
}

func hostnameOrUnknown() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "unknown"
	}
	return host
}
