package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"math-with-slack/internal/filestore"
	"math-with-slack/internal/locate"
	"math-with-slack/internal/model"
	"math-with-slack/internal/patch"
)

const harnessPristine = "(function() {\n    startup();\n})();\n"

func setupHarness(t *testing.T) (string, string) {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("MWS_DISABLE_UPDATE_CHECK", "1")
	t.Setenv("MWS_CONFIG", filepath.Join(tmp, "config.yaml"))
	t.Setenv("HOME", tmp)
	t.Setenv("APPDATA", tmp)

	resources := filepath.Join(tmp, "Slack", "resources")
	target := filepath.Join(resources, filepath.FromSlash(locate.RelativeTarget))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(target, []byte(harnessPristine), 0o644); err != nil {
		t.Fatal(err)
	}
	return tmp, target
}

func readTarget(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestHarnessInstallTwiceThenUninstall(t *testing.T) {
	_, target := setupHarness(t)

	if err := Run([]string{"install", "--app-file", target}); err != nil {
		t.Fatalf("first install failed: %v", err)
	}
	first := readTarget(t, target)
	if err := Run([]string{"install", "-a", target}); err != nil {
		t.Fatalf("second install failed: %v", err)
	}
	if got := readTarget(t, target); got != first {
		t.Fatalf("second install changed bytes:\n%s", got)
	}
	if strings.Count(first, patch.MarkerPrefix) != 1 {
		t.Fatalf("expected one marker:\n%s", first)
	}

	if err := Run([]string{"uninstall", "--app-file", target}); err != nil {
		t.Fatalf("uninstall failed: %v", err)
	}
	if got := readTarget(t, target); got != harnessPristine {
		t.Fatalf("uninstall did not restore pristine content:\n%s", got)
	}
	if _, err := os.Stat(target + ".mwsbak"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("backup left behind: %v", err)
	}
	if err := Run([]string{"uninstall", "--app-file", target}); err != nil {
		t.Fatalf("second uninstall failed: %v", err)
	}
}

func TestHarnessLegacyUninstallFlag(t *testing.T) {
	_, target := setupHarness(t)

	if err := Run([]string{"-a", target}); err != nil {
		t.Fatalf("flag-only install failed: %v", err)
	}
	if !strings.Contains(readTarget(t, target), patch.MarkerPrefix) {
		t.Fatal("flag-only invocation did not install")
	}
	if err := Run([]string{"-a", target, "-u"}); err != nil {
		t.Fatalf("-u failed: %v", err)
	}
	if got := readTarget(t, target); got != harnessPristine {
		t.Fatalf("-u did not uninstall:\n%s", got)
	}
}

func TestHarnessLegacyCombinedShortFlags(t *testing.T) {
	_, target := setupHarness(t)

	if err := Run([]string{"-a", target}); err != nil {
		t.Fatalf("flag-only install failed: %v", err)
	}
	if err := Run([]string{"-fu", "-a", target}); err != nil {
		t.Fatalf("-fu failed: %v", err)
	}
	if got := readTarget(t, target); got != harnessPristine {
		t.Fatalf("-fu did not uninstall:\n%s", got)
	}
	if err := Run([]string{"install", "-u", "-a", target}); err == nil {
		t.Fatal("expected install to reject -u")
	}
}

func TestHarnessSearchPathsFromConfig(t *testing.T) {
	tmp, target := setupHarness(t)
	cfg := "search_paths:\n  - " + filepath.Join(tmp, "Slack", "resources") + "\n"
	if err := os.WriteFile(filepath.Join(tmp, "config.yaml"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Run([]string{"install"}); err != nil {
		t.Fatalf("install from config search path failed: %v", err)
	}
	if !strings.Contains(readTarget(t, target), patch.MarkerPrefix) {
		t.Fatal("target from search path not patched")
	}
	if err := Run([]string{"reinstall"}); err != nil {
		t.Fatalf("reinstall failed: %v", err)
	}
}

func TestHarnessMissingAnchorReportsKind(t *testing.T) {
	_, target := setupHarness(t)
	if err := os.WriteFile(target, []byte("nothing to see\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := Run([]string{"install", "--app-file", target})
	if !errors.Is(err, model.ErrAnchorNotFound) {
		t.Fatalf("expected ErrAnchorNotFound, got %v", err)
	}
	if line := FormatError(err); !strings.Contains(line, "anchor-not-found") || !strings.Contains(line, target) {
		t.Fatalf("error line should name kind and path, got %q", line)
	}
	if got := readTarget(t, target); got != "nothing to see\n" {
		t.Fatalf("target modified: %q", got)
	}
}

func TestHarnessLockedTarget(t *testing.T) {
	_, target := setupHarness(t)
	lock, err := filestore.AcquireLock(target)
	if err != nil {
		t.Fatal(err)
	}
	defer lock.Release()

	err = Run([]string{"install", "--app-file", target})
	if !errors.Is(err, model.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if !strings.Contains(FormatError(err), "locked") {
		t.Fatalf("unexpected error line %q", FormatError(err))
	}
}

func TestHarnessStatusAndDoctor(t *testing.T) {
	tmp, target := setupHarness(t)

	if err := Run([]string{"status", "--app-file", target, "--json"}); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if err := Run([]string{"doctor", "--app-file", target}); err != nil {
		t.Fatalf("doctor failed on a healthy target: %v", err)
	}
	if err := Run([]string{"doctor", "--app-file", filepath.Join(tmp, "missing")}); err == nil {
		t.Fatal("expected doctor to fail on a missing target")
	}
}

func TestHarnessRejectsBadInput(t *testing.T) {
	_, target := setupHarness(t)

	if err := Run([]string{"frobnicate"}); err == nil {
		t.Fatal("expected unknown command error")
	}
	if err := Run([]string{"install", "--app-file", target, "--index", "0"}); err == nil {
		t.Fatal("expected --index 0 to be rejected")
	}
	if err := Run([]string{"install", "--app-file", target, "extra"}); err == nil {
		t.Fatal("expected unexpected argument error")
	}
}

func TestHarnessConfigInit(t *testing.T) {
	tmp, _ := setupHarness(t)
	path := filepath.Join(tmp, "config.yaml")

	if err := Run([]string{"config", "--init"}); err != nil {
		t.Fatalf("config --init failed: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if !strings.Contains(string(b), "compatible_versions") {
		t.Fatalf("unexpected config content:\n%s", b)
	}
	if err := Run([]string{"config", "--init"}); err != nil {
		t.Fatalf("second config --init failed: %v", err)
	}
}

func TestHarnessVersion(t *testing.T) {
	setupHarness(t)
	if err := Run([]string{"version"}); err != nil {
		t.Fatal(err)
	}
	if err := Run([]string{"help"}); err != nil {
		t.Fatal(err)
	}
}
