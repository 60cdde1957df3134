// Package installer runs the install, uninstall and reinstall flows against a
// located Slack target, holding the target lock for every step that writes.
package installer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	hcversion "github.com/hashicorp/go-version"
	"github.com/rs/zerolog"

	"math-with-slack/internal/backup"
	"math-with-slack/internal/filestore"
	"math-with-slack/internal/locate"
	"math-with-slack/internal/model"
	"math-with-slack/internal/patch"
	"math-with-slack/internal/settings"
)

type Options struct {
	AppFile      string
	SettingsFile string
	// Force skips the host version compatibility check.
	Force bool
}

type Result struct {
	Action          string         `json:"action"`
	Target          string         `json:"target"`
	HostVersion     string         `json:"host_version,omitempty"`
	Outcome         backup.Outcome `json:"reconcile_outcome"`
	BackupPath      string         `json:"backup_path"`
	PayloadPath     string         `json:"payload_path"`
	SettingsPath    string         `json:"settings_path,omitempty"`
	SettingsChanged bool           `json:"settings_changed"`
	Written         []string       `json:"written"`
	Removed         []string       `json:"removed,omitempty"`
	CompletedAt     time.Time      `json:"completed_at"`
}

type Controller struct {
	Locator *locate.Locator
	Backup  *backup.Manager
	Block   patch.Block
	// Compatible limits the host versions Install accepts. Nil accepts all.
	Compatible hcversion.Constraints
	// SettingsDefaults are tried when Options.SettingsFile is empty.
	SettingsDefaults []string

	out       io.Writer
	log       zerolog.Logger
	now       func() time.Time
	writeFile func(path string, data []byte, perm os.FileMode) error
}

// NewController wires the default locator, backup manager and block. Notes
// for the user go to out.
func NewController(out io.Writer, log zerolog.Logger) *Controller {
	if out == nil {
		out = io.Discard
	}
	return &Controller{
		Locator:          locate.NewLocator(log),
		Backup:           backup.NewManager(log),
		Block:            patch.DefaultBlock(),
		SettingsDefaults: settings.DefaultPaths("", nil),
		out:              out,
		log:              log,
		now:              time.Now,
		writeFile:        filestore.WriteFile,
	}
}

func PayloadPath(target string) string {
	return filepath.Join(filepath.Dir(target), patch.PayloadName)
}

// Install injects the block into the target. Any earlier install is first
// reverted from its backup, so repeated installs produce identical bytes.
func (c *Controller) Install(ctx context.Context, opts Options) (Result, error) {
	res, err := c.prepare(ctx, "install", opts, !opts.Force)
	if err != nil {
		return Result{}, err
	}
	return c.run(res, func(res Result) (Result, error) {
		return c.install(ctx, res)
	})
}

// prepare resolves the target and settings file once per command. The
// chooser runs here and nowhere else.
func (c *Controller) prepare(ctx context.Context, action string, opts Options, checkVersion bool) (Result, error) {
	target, err := c.Locator.Locate(opts.AppFile)
	if err != nil {
		return Result{}, err
	}
	if checkVersion {
		if err := c.checkCompatible(target); err != nil {
			return Result{}, err
		}
	}
	settingsPath, err := settings.Resolve(opts.SettingsFile, c.SettingsDefaults)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return Result{
		Action:       action,
		Target:       target.Path,
		HostVersion:  target.Version,
		BackupPath:   c.Backup.BackupPath(target.Path),
		PayloadPath:  PayloadPath(target.Path),
		SettingsPath: settingsPath,
	}, nil
}

// run holds the target lock across every step. When a step fails, the files
// the earlier steps changed are put back before the lock is released.
func (c *Controller) run(res Result, steps ...func(Result) (Result, error)) (Result, error) {
	lock, err := filestore.AcquireLock(res.Target)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			c.log.Warn().Err(releaseErr).Str("target", res.Target).Msg("release lock")
		}
	}()

	rb := newRollback()
	if err := rb.capture(res.Target, res.BackupPath, res.PayloadPath, res.SettingsPath); err != nil {
		return Result{}, err
	}
	for _, step := range steps {
		res, err = step(res)
		if err != nil {
			restored, restoreErr := rb.restore()
			if restoreErr != nil {
				return Result{}, fmt.Errorf("%w (rollback failed: %v)", err, restoreErr)
			}
			if len(restored) > 0 {
				c.log.Debug().Str("action", res.Action).Strs("restored", restored).Msg("rolled back")
			}
			return Result{}, err
		}
	}
	res.CompletedAt = c.now().UTC()
	return res, nil
}

func (c *Controller) install(ctx context.Context, res Result) (Result, error) {
	outcome, err := c.Backup.Reconcile(res.Target)
	if err != nil {
		return res, err
	}
	res.Outcome = outcome
	switch outcome {
	case backup.OutcomeRestored:
		c.notef("Reverted previous install of %s from backup", res.Target)
	case backup.OutcomeDroppedStale:
		c.notef("Removed stale backup %s", res.BackupPath)
	}

	content, err := os.ReadFile(res.Target)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", res.Target, err)
	}
	patched, err := patch.Inject(content, c.Block)
	if err != nil {
		return res, model.NewPathError("inject", res.Target, err)
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	if err := c.Backup.Snapshot(res.Target); err != nil {
		return res, err
	}
	res.Written = append(res.Written, res.BackupPath)

	if err := c.writeFile(res.Target, patched, filestore.Perm(res.Target, 0o644)); err != nil {
		return res, fmt.Errorf("write patched %s: %w", res.Target, err)
	}
	res.Written = append(res.Written, res.Target)

	if err := c.writeFile(res.PayloadPath, patch.PayloadScript(), 0o644); err != nil {
		return res, fmt.Errorf("write %s: %w", res.PayloadPath, err)
	}
	res.Written = append(res.Written, res.PayloadPath)

	if res.SettingsPath != "" {
		change, err := settings.Apply(res.SettingsPath)
		if err != nil {
			return res, err
		}
		res.SettingsChanged = change.Changed
		if change.Changed {
			res.Written = append(res.Written, res.SettingsPath)
		}
	}
	c.log.Debug().Strs("written", res.Written).Msg("install complete")
	return res, nil
}

// Uninstall restores the pristine target and removes everything Install
// added. Running it on a clean target succeeds without changes.
func (c *Controller) Uninstall(ctx context.Context, opts Options) (Result, error) {
	res, err := c.prepare(ctx, "uninstall", opts, false)
	if err != nil {
		return Result{}, err
	}
	return c.run(res, c.uninstall)
}

func (c *Controller) uninstall(res Result) (Result, error) {
	outcome, err := c.Backup.RestoreAndDiscard(res.Target)
	if err != nil {
		return res, err
	}
	res.Outcome = outcome
	switch outcome {
	case backup.OutcomeRestored:
		res.Written = append(res.Written, res.Target)
		res.Removed = append(res.Removed, res.BackupPath)
	case backup.OutcomeDroppedStale:
		res.Removed = append(res.Removed, res.BackupPath)
	}

	removed, err := filestore.RemoveIfExists(res.PayloadPath)
	if err != nil {
		return res, err
	}
	if removed {
		res.Removed = append(res.Removed, res.PayloadPath)
	}

	if res.SettingsPath != "" {
		change, err := settings.Revert(res.SettingsPath)
		if err != nil {
			return res, err
		}
		res.SettingsChanged = change.Changed
		if change.Changed {
			res.Written = append(res.Written, res.SettingsPath)
		}
	}
	if outcome == backup.OutcomeClean && !removed {
		c.notef("Nothing to uninstall in %s", res.Target)
	}
	return res, nil
}

// Reinstall uninstalls and installs again on one target under one lock. A
// failed install puts the previous install back.
func (c *Controller) Reinstall(ctx context.Context, opts Options) (Result, error) {
	res, err := c.prepare(ctx, "reinstall", opts, !opts.Force)
	if err != nil {
		return Result{}, err
	}
	return c.run(res, c.uninstall, func(res Result) (Result, error) {
		res.Written, res.Removed = nil, nil
		return c.install(ctx, res)
	})
}

func (c *Controller) checkCompatible(target locate.Target) error {
	ok, detail := c.compatible(target)
	if ok {
		return nil
	}
	return &model.PathError{Op: "check version", Path: target.Path, Err: model.ErrIncompatibleVersion, Detail: detail}
}

// compatible reports whether the host version satisfies c.Compatible. A
// target whose version cannot be derived from its path is accepted.
func (c *Controller) compatible(target locate.Target) (bool, string) {
	v := target.HostVersion()
	if v == nil {
		return true, "host version unknown"
	}
	if len(c.Compatible) == 0 {
		return true, "Slack " + v.String()
	}
	if !c.Compatible.Check(v) {
		return false, fmt.Sprintf("Slack %s does not satisfy %s", v, c.Compatible)
	}
	return true, fmt.Sprintf("Slack %s satisfies %s", v, c.Compatible)
}

func (c *Controller) notef(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	_, _ = io.WriteString(c.out, line)
}
