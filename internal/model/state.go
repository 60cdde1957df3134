package model

import "fmt"

// PatchState is the observed state of a target file and its backup.
type PatchState string

const (
	StateUnknown     PatchState = ""
	StateClean       PatchState = "clean"
	StateInstalled   PatchState = "installed"
	StateStaleBackup PatchState = "stale_backup"
	StateCorrupt     PatchState = "corrupt"
)

var allowedTransitions = map[PatchState]map[PatchState]bool{
	StateUnknown: {
		StateClean:       true,
		StateInstalled:   true,
		StateStaleBackup: true,
		StateCorrupt:     true,
	},
	StateClean: {
		StateClean:     true,
		StateInstalled: true,
	},
	StateInstalled: {
		StateInstalled: true, // reinstall over an existing patch
		StateClean:     true,
	},
	StateStaleBackup: {
		StateClean:     true,
		StateInstalled: true,
	},
	StateCorrupt: {
		StateCorrupt: true,
	},
}

// ClassifyState derives the patch state from the two facts the filesystem
// records: whether the marker is present and whether a backup exists.
func ClassifyState(markerPresent, backupPresent bool) PatchState {
	switch {
	case markerPresent && backupPresent:
		return StateInstalled
	case markerPresent:
		return StateCorrupt
	case backupPresent:
		return StateStaleBackup
	default:
		return StateClean
	}
}

func CanTransition(from, to PatchState) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// CheckTransition reports why a target in state from cannot be driven to state to.
func CheckTransition(path string, from, to PatchState) error {
	if CanTransition(from, to) {
		return nil
	}
	if from == StateCorrupt {
		return NewPathError("check", path, ErrCorruptState)
	}
	return fmt.Errorf("invalid patch state transition for %s: %q -> %q", path, from, to)
}
