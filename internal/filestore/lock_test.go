package filestore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"math-with-slack/internal/model"
)

func TestAcquireLock_BlocksConcurrentAcquire(t *testing.T) {
	target := filepath.Join(t.TempDir(), "ssb-interop.js")
	if err := os.WriteFile(target, []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	lock, err := AcquireLock(target)
	if err != nil {
		t.Fatalf("acquire first lock: %v", err)
	}
	defer func() {
		_ = lock.Release()
	}()

	_, err = AcquireLock(target)
	if err == nil {
		t.Fatalf("expected second acquire to fail")
	}
	if !errors.Is(err, model.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	owner, ok := ReadLockOwner(target)
	if !ok || owner.PID != os.Getpid() {
		t.Fatalf("unexpected lock owner: %+v ok=%v", owner, ok)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("release lock: %v", err)
	}
	if IsLocked(target) {
		t.Fatal("expected lock directory to be gone after release")
	}

	lock2, err := AcquireLock(target)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if err := lock2.Release(); err != nil {
		t.Fatalf("release second lock: %v", err)
	}
}
