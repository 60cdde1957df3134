// Package settings toggles Slack's bootSonic flag in local-settings.json.
// The Sonic client does not load ssb-interop.js, so it is switched off while
// the patch is installed and restored afterwards.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"math-with-slack/internal/filestore"
	"math-with-slack/internal/model"
)

const (
	FileName = "local-settings.json"

	bootSonicKey       = "bootSonic"
	bootSonicBackupKey = "bootSonic.mwsbak"
	bootSonicDisabled  = "never"
)

// Change reports what Apply or Revert did to a settings file.
type Change struct {
	Path    string `json:"path"`
	Changed bool   `json:"changed"`
}

// DefaultPaths lists the platform locations of local-settings.json, in the
// order they are tried.
func DefaultPaths(goos string, getenv func(string) string) []string {
	if goos == "" {
		goos = runtime.GOOS
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	switch goos {
	case "darwin":
		home := strings.TrimSpace(getenv("HOME"))
		if home == "" {
			return nil
		}
		return []string{
			filepath.Join(home, "Library", "Application Support", "Slack", FileName),
			filepath.Join(home, "Library", "Containers", "com.tinyspeck.slackmacgap", "Data", "Library", "Application Support", "Slack", FileName),
		}
	case "windows":
		appData := strings.TrimSpace(getenv("APPDATA"))
		if appData == "" {
			return nil
		}
		return []string{filepath.Join(appData, "Slack", FileName)}
	default:
		return nil
	}
}

// Resolve returns the settings file to edit. An explicit path must exist;
// otherwise the first existing default is used, and "" means there is none.
func Resolve(explicit string, defaults []string) (string, error) {
	explicit = strings.TrimSpace(explicit)
	if explicit != "" {
		ok, err := filestore.Exists(explicit)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", model.NewPathError("settings", explicit, model.ErrNotFound)
		}
		return explicit, nil
	}
	for _, p := range defaults {
		if ok, err := filestore.Exists(p); err == nil && ok {
			return p, nil
		}
	}
	return "", nil
}

// Apply saves the current bootSonic value under bootSonic.mwsbak, unless a
// saved value already exists, and sets bootSonic to "never".
func Apply(path string) (Change, error) {
	root, err := readObject(path)
	if err != nil {
		return Change{}, err
	}

	changed := false
	if _, saved := root[bootSonicBackupKey]; !saved {
		prev, ok := root[bootSonicKey]
		if !ok {
			prev = json.RawMessage("null")
		}
		root[bootSonicBackupKey] = prev
		changed = true
	}
	if !isDisabled(root[bootSonicKey]) {
		root[bootSonicKey] = json.RawMessage(`"` + bootSonicDisabled + `"`)
		changed = true
	}
	if !changed {
		return Change{Path: path}, nil
	}
	if err := writeObject(path, root); err != nil {
		return Change{}, err
	}
	return Change{Path: path, Changed: true}, nil
}

// Revert moves bootSonic.mwsbak back to bootSonic. A saved null means the key
// was absent before Apply, so it is removed again. Files without a saved
// value are left alone.
func Revert(path string) (Change, error) {
	root, err := readObject(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Change{Path: path}, nil
		}
		return Change{}, err
	}

	saved, ok := root[bootSonicBackupKey]
	if !ok {
		return Change{Path: path}, nil
	}
	delete(root, bootSonicBackupKey)
	if bytes.Equal(bytes.TrimSpace(saved), []byte("null")) {
		delete(root, bootSonicKey)
	} else {
		root[bootSonicKey] = saved
	}
	if err := writeObject(path, root); err != nil {
		return Change{}, err
	}
	return Change{Path: path, Changed: true}, nil
}

// Applied reports whether path carries a saved bootSonic value.
func Applied(path string) (bool, error) {
	root, err := readObject(path)
	if err != nil {
		return false, err
	}
	_, ok := root[bootSonicBackupKey]
	return ok, nil
}

func isDisabled(raw json.RawMessage) bool {
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	return v == bootSonicDisabled
}

func readObject(path string) (map[string]json.RawMessage, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return map[string]json.RawMessage{}, nil
	}
	var root map[string]json.RawMessage
	if err := json.Unmarshal(b, &root); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if root == nil {
		root = map[string]json.RawMessage{}
	}
	return root, nil
}

func writeObject(path string, root map[string]json.RawMessage) error {
	if err := filestore.WriteJSON(path, root); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
