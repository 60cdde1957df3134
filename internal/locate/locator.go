// Package locate finds the Slack startup script to patch.
package locate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"time"

	hcversion "github.com/hashicorp/go-version"
	"github.com/rs/zerolog"

	"math-with-slack/internal/filestore"
	"math-with-slack/internal/model"
)

// RelativeTarget is the startup script path inside Slack's resources directory.
const RelativeTarget = "app.asar.unpacked/src/static/ssb-interop.js"

// defaultLocations lists resource directories per platform, in the order they
// are tried. Entries may hold ~, %VAR% and glob patterns.
var defaultLocations = map[string][]string{
	"linux": {
		"/usr/lib/slack/resources",
		"/usr/local/lib/slack/resources",
		"/opt/slack/resources",
	},
	"darwin": {
		"/Applications/Slack.app/Contents/Resources",
		"~/Applications/Slack.app/Contents/Resources",
	},
	"windows": {
		"%LOCALAPPDATA%/slack/app-*/resources",
		"%ProgramFiles%/Slack/resources",
	},
}

// userCompletions are tried, in order, when the user points at a directory.
var userCompletions = []string{
	"",
	"resources",
	"Contents/Resources",
	"app-*/resources",
}

var appVersionPattern = regexp.MustCompile(`^app-(\d+(?:\.\d+)*)$`)

type Target struct {
	Path    string    `json:"path"`
	Version string    `json:"version,omitempty"`
	ModTime time.Time `json:"mod_time"`

	version *hcversion.Version
}

// HostVersion returns the Slack version derived from the install path, if any.
func (t Target) HostVersion() *hcversion.Version {
	return t.version
}

// Chooser picks one of several installs. Candidates are sorted newest first.
type Chooser interface {
	Choose(candidates []Target) (int, error)
}

type ChooserFunc func(candidates []Target) (int, error)

func (f ChooserFunc) Choose(candidates []Target) (int, error) {
	return f(candidates)
}

// FirstChooser always takes the newest install.
var FirstChooser Chooser = ChooserFunc(func([]Target) (int, error) { return 0, nil })

// IndexChooser takes a fixed zero-based index.
func IndexChooser(index int) Chooser {
	return ChooserFunc(func(candidates []Target) (int, error) {
		return index, nil
	})
}

type Locator struct {
	GOOS        string
	Getenv      func(string) string
	HomeDir     func() (string, error)
	SearchPaths []string
	Locations   map[string][]string
	Chooser     Chooser
	log         zerolog.Logger
}

func NewLocator(log zerolog.Logger) *Locator {
	return &Locator{
		GOOS:      runtime.GOOS,
		Getenv:    os.Getenv,
		HomeDir:   os.UserHomeDir,
		Locations: defaultLocations,
		Chooser:   FirstChooser,
		log:       log,
	}
}

// Locate resolves the single file to patch and checks that it can be rewritten.
func (l *Locator) Locate(userPath string) (Target, error) {
	target, err := l.Resolve(userPath)
	if err != nil {
		return Target{}, err
	}
	if err := CheckWritable(target.Path); err != nil {
		return Target{}, err
	}
	return target, nil
}

// Resolve picks the target like Locate without requiring write access, for
// read-only commands.
func (l *Locator) Resolve(userPath string) (Target, error) {
	candidates, err := l.Candidates(userPath)
	if err != nil {
		return Target{}, err
	}

	idx := 0
	if len(candidates) > 1 {
		chooser := l.Chooser
		if chooser == nil {
			chooser = FirstChooser
		}
		idx, err = chooser.Choose(candidates)
		if err != nil {
			return Target{}, err
		}
		if idx < 0 || idx >= len(candidates) {
			return Target{}, fmt.Errorf("install index %d out of range (found %d installs)", idx, len(candidates))
		}
	}

	target := candidates[idx]
	l.log.Debug().Str("target", target.Path).Str("host_version", target.Version).Int("candidates", len(candidates)).Msg("target located")
	return target, nil
}

// Candidates returns the installs Locate chooses from, newest first. For a
// user path this is the first completion that exists; otherwise it is the
// first configured or default location that holds at least one install.
func (l *Locator) Candidates(userPath string) ([]Target, error) {
	userPath = strings.TrimSpace(userPath)
	if userPath != "" {
		return l.userCandidates(userPath)
	}

	locations := append(append([]string{}, l.SearchPaths...), l.Locations[l.GOOS]...)
	for _, loc := range locations {
		pattern, ok := l.expand(loc)
		if !ok {
			continue
		}
		found := l.glob(filepath.Join(pattern, filepath.FromSlash(RelativeTarget)))
		if len(found) > 0 {
			return found, nil
		}
		l.log.Debug().Str("location", pattern).Msg("no install at location")
	}
	return nil, model.NewPathError("locate", "default install locations for "+l.GOOS, model.ErrNotFound)
}

func (l *Locator) userCandidates(userPath string) ([]Target, error) {
	path, ok := l.expand(userPath)
	if !ok {
		return nil, model.NewPathError("locate", userPath, model.ErrNotFound)
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, model.NewPathError("locate", path, model.ErrNotFound)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []Target{newTarget(path, info)}, nil
	}

	for _, completion := range userCompletions {
		pattern := filepath.Join(path, filepath.FromSlash(completion), filepath.FromSlash(RelativeTarget))
		if found := l.glob(pattern); len(found) > 0 {
			return found, nil
		}
	}
	return nil, &model.PathError{
		Op:     "locate",
		Path:   path,
		Err:    model.ErrNotFound,
		Detail: "no " + filepath.Base(RelativeTarget) + " below this directory",
	}
}

func (l *Locator) glob(pattern string) []Target {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil
	}
	out := make([]Target, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		out = append(out, newTarget(m, info))
	}
	sortNewestFirst(out)
	return out
}

// expand resolves ~ and %VAR% references. It reports false when a referenced
// variable is unset, since such a location cannot exist.
func (l *Locator) expand(raw string) (string, bool) {
	p := strings.TrimSpace(raw)
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		if l.HomeDir == nil {
			return "", false
		}
		home, err := l.HomeDir()
		if err != nil || home == "" {
			return "", false
		}
		p = filepath.Join(home, p[1:])
	}

	for {
		start := strings.Index(p, "%")
		if start < 0 {
			break
		}
		end := strings.Index(p[start+1:], "%")
		if end < 0 {
			break
		}
		name := p[start+1 : start+1+end]
		value := ""
		if l.Getenv != nil {
			value = strings.TrimSpace(l.Getenv(name))
		}
		if value == "" {
			return "", false
		}
		p = p[:start] + value + p[start+1+end+1:]
	}
	return filepath.FromSlash(p), true
}

func newTarget(path string, info os.FileInfo) Target {
	t := Target{Path: path, ModTime: info.ModTime()}
	if v := versionFromPath(path); v != nil {
		t.version = v
		t.Version = v.String()
	}
	return t
}

func versionFromPath(path string) *hcversion.Version {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		m := appVersionPattern.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		if v, err := hcversion.NewVersion(m[1]); err == nil {
			return v
		}
	}
	return nil
}

func sortNewestFirst(targets []Target) {
	sort.SliceStable(targets, func(i, j int) bool {
		a, b := targets[i], targets[j]
		switch {
		case a.version != nil && b.version != nil && !a.version.Equal(b.version):
			return a.version.GreaterThan(b.version)
		case a.version != nil && b.version == nil:
			return true
		case a.version == nil && b.version != nil:
			return false
		case !a.ModTime.Equal(b.ModTime):
			return a.ModTime.After(b.ModTime)
		default:
			return a.Path < b.Path
		}
	})
}

// CheckWritable fails with ErrNotWritable unless the file can be opened for
// writing and its directory accepts the temp file used for atomic replacement.
func CheckWritable(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return &model.PathError{Op: "open", Path: path, Err: model.ErrNotWritable, Detail: "try re-running with sudo"}
		}
		if errors.Is(err, os.ErrNotExist) {
			return model.NewPathError("open", path, model.ErrNotFound)
		}
		return fmt.Errorf("open %s for writing: %w", path, err)
	}
	_ = f.Close()

	if ok, msg := filestore.WritableDir(filepath.Dir(path)); !ok {
		return &model.PathError{Op: "write", Path: filepath.Dir(path), Err: model.ErrNotWritable, Detail: msg}
	}
	return nil
}
