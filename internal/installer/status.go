package installer

import (
	"context"
	"errors"
	"fmt"
	"os"

	"math-with-slack/internal/filestore"
	"math-with-slack/internal/locate"
	"math-with-slack/internal/model"
	"math-with-slack/internal/patch"
	"math-with-slack/internal/settings"
)

type StatusReport struct {
	Target          string               `json:"target"`
	HostVersion     string               `json:"host_version,omitempty"`
	State           model.PatchState     `json:"state"`
	MarkerVersion   string               `json:"marker_version,omitempty"`
	BackupPath      string               `json:"backup_path"`
	BackupPresent   bool                 `json:"backup_present"`
	PayloadPath     string               `json:"payload_path"`
	PayloadPresent  bool                 `json:"payload_present"`
	Locked          bool                 `json:"locked"`
	LockOwner       *filestore.LockOwner `json:"lock_owner,omitempty"`
	SettingsPath    string               `json:"settings_path,omitempty"`
	SettingsApplied bool                 `json:"settings_applied"`
	Compatible      bool                 `json:"compatible"`
	CompatibleNote  string               `json:"compatible_note"`
}

type DoctorResult struct {
	OK     bool          `json:"ok"`
	Checks []DoctorCheck `json:"checks"`
}

type DoctorCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Status describes the target without changing anything and without taking
// the lock.
func (c *Controller) Status(ctx context.Context, opts Options) (StatusReport, error) {
	if err := ctx.Err(); err != nil {
		return StatusReport{}, err
	}
	target, err := c.Locator.Resolve(opts.AppFile)
	if err != nil {
		return StatusReport{}, err
	}
	st, err := c.Backup.Inspect(target.Path)
	if err != nil {
		return StatusReport{}, err
	}

	report := StatusReport{
		Target:        target.Path,
		HostVersion:   target.Version,
		State:         st.State,
		BackupPath:    st.BackupPath,
		BackupPresent: st.BackupPresent,
		PayloadPath:   PayloadPath(target.Path),
		Locked:        filestore.IsLocked(target.Path),
	}
	report.Compatible, report.CompatibleNote = c.compatible(target)

	if st.MarkerPresent {
		if content, err := os.ReadFile(target.Path); err == nil {
			report.MarkerVersion, _ = patch.MarkerVersion(content)
		}
	}
	if report.PayloadPresent, err = filestore.Exists(report.PayloadPath); err != nil {
		return StatusReport{}, err
	}
	if owner, ok := filestore.ReadLockOwner(target.Path); ok {
		report.LockOwner = &owner
	}

	settingsPath, err := settings.Resolve(opts.SettingsFile, c.SettingsDefaults)
	if err != nil {
		return StatusReport{}, err
	}
	if settingsPath != "" {
		report.SettingsPath = settingsPath
		if report.SettingsApplied, err = settings.Applied(settingsPath); err != nil {
			return StatusReport{}, err
		}
	}
	return report, nil
}

// Doctor runs every check it can and reports each one. It only returns an
// error when the context is done; a missing target is a failed check.
func (c *Controller) Doctor(ctx context.Context, opts Options) (DoctorResult, error) {
	if err := ctx.Err(); err != nil {
		return DoctorResult{}, err
	}

	checks := make([]DoctorCheck, 0, 7)
	target, err := c.Locator.Resolve(opts.AppFile)
	if err != nil {
		checks = append(checks, DoctorCheck{Name: "target:found", OK: false, Message: err.Error()})
		return DoctorResult{OK: false, Checks: checks}, nil
	}
	found := target.Path
	if target.Version != "" {
		found += " (Slack " + target.Version + ")"
	}
	checks = append(checks, DoctorCheck{Name: "target:found", OK: true, Message: found})

	if err := locate.CheckWritable(target.Path); err != nil {
		checks = append(checks, DoctorCheck{Name: "target:writable", OK: false, Message: err.Error()})
	} else {
		checks = append(checks, DoctorCheck{Name: "target:writable", OK: true, Message: "writable"})
	}

	st, err := c.Backup.Inspect(target.Path)
	if err != nil {
		checks = append(checks, DoctorCheck{Name: "state:consistent", OK: false, Message: err.Error()})
	} else {
		checks = append(checks, stateCheck(target.Path, st.State, st.BackupPath))
		checks = append(checks, c.anchorCheck(target.Path, st.BackupPath, st.MarkerPresent))
	}

	if owner, ok := filestore.ReadLockOwner(target.Path); ok {
		checks = append(checks, DoctorCheck{
			Name:    "lock:free",
			OK:      false,
			Message: fmt.Sprintf("held by pid=%d host=%s since %s", owner.PID, owner.Hostname, owner.CreatedAt),
		})
	} else if filestore.IsLocked(target.Path) {
		checks = append(checks, DoctorCheck{Name: "lock:free", OK: false, Message: "lock directory " + filestore.LockPath(target.Path) + " exists"})
	} else {
		checks = append(checks, DoctorCheck{Name: "lock:free", OK: true, Message: "free"})
	}

	compatible, note := c.compatible(target)
	checks = append(checks, DoctorCheck{Name: "host:compatible", OK: compatible, Message: note})

	checks = append(checks, c.settingsCheck(opts.SettingsFile))

	ok := true
	for _, check := range checks {
		if !check.OK {
			ok = false
			break
		}
	}
	return DoctorResult{OK: ok, Checks: checks}, nil
}

// stateCheck passes when an install could proceed from state.
func stateCheck(target string, state model.PatchState, backupPath string) DoctorCheck {
	if err := model.CheckTransition(target, state, model.StateInstalled); err != nil {
		return DoctorCheck{Name: "state:consistent", OK: false, Message: err.Error()}
	}
	check := DoctorCheck{Name: "state:consistent", OK: true}
	switch state {
	case model.StateInstalled:
		check.Message = "installed, backup at " + backupPath
	case model.StateStaleBackup:
		check.Message = "stale backup " + backupPath + " will be removed on next run"
	default:
		check.Message = "not installed"
	}
	return check
}

// anchorCheck looks for the anchor in the content a new install would patch:
// the backup when installed, else the target itself.
func (c *Controller) anchorCheck(targetPath, backupPath string, marker bool) DoctorCheck {
	source := targetPath
	if marker {
		source = backupPath
	}
	content, err := os.ReadFile(source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DoctorCheck{Name: "target:anchor", OK: false, Message: "no clean copy to check: " + source + " is missing"}
		}
		return DoctorCheck{Name: "target:anchor", OK: false, Message: err.Error()}
	}
	if !patch.HasAnchor(content, c.Block.Anchor) {
		return DoctorCheck{Name: "target:anchor", OK: false, Message: model.ErrAnchorNotFound.Error()}
	}
	return DoctorCheck{Name: "target:anchor", OK: true, Message: fmt.Sprintf("anchor %q present", c.Block.Anchor)}
}

func (c *Controller) settingsCheck(explicit string) DoctorCheck {
	path, err := settings.Resolve(explicit, c.SettingsDefaults)
	if err != nil {
		return DoctorCheck{Name: "settings:file", OK: false, Message: err.Error()}
	}
	if path == "" {
		return DoctorCheck{Name: "settings:file", OK: true, Message: "no " + settings.FileName + " found; skipped"}
	}
	if _, err := settings.Applied(path); err != nil {
		return DoctorCheck{Name: "settings:file", OK: false, Message: err.Error()}
	}
	return DoctorCheck{Name: "settings:file", OK: true, Message: path}
}
