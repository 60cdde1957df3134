// Package backup owns the single pristine copy kept beside a patched target.
//
// The backup exists exactly while the target carries an injection block.
// Marker present without a backup, or a backup left over after the marker
// is gone, are both states from an interrupted or external change and are
// resolved here before any new patch is written.
package backup

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"math-with-slack/internal/filestore"
	"math-with-slack/internal/model"
	"math-with-slack/internal/patch"
)

const DefaultSuffix = ".mwsbak"

type Outcome string

const (
	OutcomeClean        Outcome = "clean"
	OutcomeRestored     Outcome = "restored"
	OutcomeDroppedStale Outcome = "dropped_stale_backup"
)

type Manager struct {
	Suffix    string
	HasMarker func(content []byte) bool
	log       zerolog.Logger
}

// State is a read-only view of a target and its backup.
type State struct {
	State         model.PatchState `json:"state"`
	MarkerPresent bool             `json:"marker_present"`
	BackupPresent bool             `json:"backup_present"`
	BackupPath    string           `json:"backup_path"`
}

func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		Suffix:    DefaultSuffix,
		HasMarker: patch.HasMarker,
		log:       log,
	}
}

func (m *Manager) BackupPath(target string) string {
	suffix := m.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return target + suffix
}

func (m *Manager) Inspect(target string) (State, error) {
	content, err := os.ReadFile(target)
	if err != nil {
		return State{}, fmt.Errorf("read %s: %w", target, err)
	}
	backupPath := m.BackupPath(target)
	backupPresent, err := filestore.Exists(backupPath)
	if err != nil {
		return State{}, err
	}
	marker := m.HasMarker(content)
	return State{
		State:         model.ClassifyState(marker, backupPresent),
		MarkerPresent: marker,
		BackupPresent: backupPresent,
		BackupPath:    backupPath,
	}, nil
}

// Reconcile brings target back to its pristine content before a new install.
func (m *Manager) Reconcile(target string) (Outcome, error) {
	return m.settle(target, "reconcile", model.ErrCorruptState)
}

// RestoreAndDiscard undoes an install. A target without a marker is already
// clean, so calling it twice is harmless.
func (m *Manager) RestoreAndDiscard(target string) (Outcome, error) {
	return m.settle(target, "uninstall", model.ErrMissingBackup)
}

// Snapshot copies target verbatim to its backup path. It never overwrites an
// existing backup.
func (m *Manager) Snapshot(target string) error {
	backupPath := m.BackupPath(target)
	exists, err := filestore.Exists(backupPath)
	if err != nil {
		return err
	}
	if exists {
		return model.NewPathError("snapshot", backupPath, model.ErrBackupExists)
	}
	if err := filestore.CopyFile(target, backupPath); err != nil {
		return fmt.Errorf("create backup %s: %w", backupPath, err)
	}
	m.log.Debug().Str("target", target).Str("backup", backupPath).Msg("backup created")
	return nil
}

func (m *Manager) settle(target, op string, missingBackup error) (Outcome, error) {
	st, err := m.Inspect(target)
	if err != nil {
		return "", err
	}

	switch st.State {
	case model.StateInstalled:
		if err := m.restore(target, st.BackupPath); err != nil {
			return "", err
		}
		m.log.Debug().Str("op", op).Str("target", target).Msg("restored pristine target from backup")
		return OutcomeRestored, nil
	case model.StateCorrupt:
		return "", &model.PathError{
			Op:     op,
			Path:   target,
			Err:    missingBackup,
			Detail: "expected backup at " + st.BackupPath,
		}
	case model.StateStaleBackup:
		if _, err := filestore.RemoveIfExists(st.BackupPath); err != nil {
			return "", fmt.Errorf("remove stale backup: %w", err)
		}
		m.log.Debug().Str("op", op).Str("backup", st.BackupPath).Msg("removed stale backup")
		return OutcomeDroppedStale, nil
	default:
		return OutcomeClean, nil
	}
}

func (m *Manager) restore(target, backupPath string) error {
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("read backup %s: %w", backupPath, err)
	}
	perm := filestore.Perm(backupPath, filestore.Perm(target, 0o644))
	if err := filestore.WriteFile(target, data, perm); err != nil {
		return fmt.Errorf("restore %s from backup: %w", target, err)
	}
	if _, err := filestore.RemoveIfExists(backupPath); err != nil {
		return fmt.Errorf("restored %s but could not delete backup: %w", target, err)
	}
	return nil
}
