package locate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"math-with-slack/internal/model"
)

func writeInstall(t *testing.T, resourcesDir string) string {
	t.Helper()
	path := filepath.Join(resourcesDir, filepath.FromSlash(RelativeTarget))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("    startup();\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testLocator(locations ...string) *Locator {
	l := NewLocator(zerolog.Nop())
	l.GOOS = "testos"
	l.Locations = map[string][]string{"testos": locations}
	l.Getenv = func(string) string { return "" }
	return l
}

func TestLocate_FirstExistingDefaultWins(t *testing.T) {
	root := t.TempDir()
	second := writeInstall(t, filepath.Join(root, "opt", "slack", "resources"))
	writeInstall(t, filepath.Join(root, "usr", "local", "slack", "resources"))

	l := testLocator(
		filepath.Join(root, "usr", "lib", "slack", "resources"),
		filepath.Join(root, "opt", "slack", "resources"),
		filepath.Join(root, "usr", "local", "slack", "resources"),
	)
	got, err := l.Locate("")
	if err != nil {
		t.Fatal(err)
	}
	if got.Path != second {
		t.Fatalf("expected %s, got %s", second, got.Path)
	}
}

func TestLocate_SearchPathsComeFirst(t *testing.T) {
	root := t.TempDir()
	writeInstall(t, filepath.Join(root, "default"))
	custom := writeInstall(t, filepath.Join(root, "custom"))

	l := testLocator(filepath.Join(root, "default"))
	l.SearchPaths = []string{filepath.Join(root, "custom")}
	got, err := l.Locate("")
	if err != nil {
		t.Fatal(err)
	}
	if got.Path != custom {
		t.Fatalf("expected search path install, got %s", got.Path)
	}
}

func TestLocate_VersionedInstallsSortedNewestFirst(t *testing.T) {
	root := t.TempDir()
	for _, v := range []string{"4.2.0", "4.10.1", "4.9.0"} {
		writeInstall(t, filepath.Join(root, "slack", "app-"+v, "resources"))
	}
	l := testLocator("%LOCALAPPDATA%/slack/app-*/resources")
	l.Getenv = func(name string) string {
		if name == "LOCALAPPDATA" {
			return root
		}
		return ""
	}

	candidates, err := l.Candidates("")
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}
	order := []string{candidates[0].Version, candidates[1].Version, candidates[2].Version}
	if order[0] != "4.10.1" || order[1] != "4.9.0" || order[2] != "4.2.0" {
		t.Fatalf("unexpected order %v", order)
	}

	got, err := l.Locate("")
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != "4.10.1" {
		t.Fatalf("default choice should be newest, got %s", got.Version)
	}

	l.Chooser = IndexChooser(2)
	got, err = l.Locate("")
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != "4.2.0" {
		t.Fatalf("index 2 should pick 4.2.0, got %s", got.Version)
	}

	l.Chooser = IndexChooser(3)
	if _, err := l.Locate(""); err == nil {
		t.Fatal("expected out of range error")
	}
}

func TestLocate_UnsetVariableSkipsLocation(t *testing.T) {
	l := testLocator("%LOCALAPPDATA%/slack/app-*/resources")
	_, err := l.Locate("")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLocate_UserFileAcceptedAsIs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.js")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := testLocator().Locate(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Path != path {
		t.Fatalf("unexpected path %s", got.Path)
	}
}

func TestLocate_UserDirectoryIsCompleted(t *testing.T) {
	root := t.TempDir()
	want := writeInstall(t, filepath.Join(root, "Slack.app", "Contents", "Resources"))

	got, err := testLocator().Locate(filepath.Join(root, "Slack.app"))
	if err != nil {
		t.Fatal(err)
	}
	if got.Path != want {
		t.Fatalf("expected %s, got %s", want, got.Path)
	}
}

func TestLocate_UserHomePathExpanded(t *testing.T) {
	home := t.TempDir()
	want := writeInstall(t, filepath.Join(home, "slack", "resources"))
	l := testLocator()
	l.HomeDir = func() (string, error) { return home, nil }

	got, err := l.Locate("~/slack")
	if err != nil {
		t.Fatal(err)
	}
	if got.Path != want {
		t.Fatalf("expected %s, got %s", want, got.Path)
	}
}

func TestLocate_MissingUserPath(t *testing.T) {
	_, err := testLocator().Locate(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLocate_DirectoryWithoutTarget(t *testing.T) {
	_, err := testLocator().Locate(t.TempDir())
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCheckWritable_ReadOnlyFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses file permissions")
	}
	path := filepath.Join(t.TempDir(), "ro.js")
	if err := os.WriteFile(path, []byte("x"), 0o444); err != nil {
		t.Fatal(err)
	}
	if err := CheckWritable(path); !errors.Is(err, model.ErrNotWritable) {
		t.Fatalf("expected ErrNotWritable, got %v", err)
	}
}
