package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	hcversion "github.com/hashicorp/go-version"
	latest "github.com/tcnksm/go-latest"

	"math-with-slack/internal/filestore"
	"math-with-slack/internal/version"
)

const (
	updateCheckInterval      = 24 * time.Hour
	updateNotificationWindow = 12 * time.Hour
	updateCheckTimeout       = 2 * time.Second
	disableUpdateCheckEnv    = "MWS_DISABLE_UPDATE_CHECK"
)

type updateNoticeCache struct {
	LastChecked  string `json:"last_checked,omitempty"`
	LatestTag    string `json:"latest_tag,omitempty"`
	LastNotified string `json:"last_notified,omitempty"`
}

// checkLatest is replaced in tests so no request leaves the machine.
var checkLatest = func(current string) (*latest.CheckResponse, error) {
	tag := &latest.GithubTag{
		Owner:      version.RepoOwner,
		Repository: version.RepoName,
	}
	type result struct {
		res *latest.CheckResponse
		err error
	}
	done := make(chan result, 1)
	go func() {
		res, err := latest.Check(tag, current)
		done <- result{res, err}
	}()
	select {
	case r := <-done:
		return r.res, r.err
	case <-time.After(updateCheckTimeout):
		return nil, errors.New("timed out checking for a newer release")
	}
}

func maybePrintUpdateHint(s *session, args []string) {
	if shouldSkipUpdateHint(s, args) {
		return
	}

	current := strings.TrimPrefix(strings.TrimSpace(version.Value), "v")
	if current == "" {
		return
	}
	cachePath, err := updateNoticeCachePath()
	if err != nil {
		return
	}

	cache := loadUpdateNoticeCache(cachePath)
	now := time.Now().UTC()

	latestTag := strings.TrimSpace(cache.LatestTag)
	lastChecked, hasLastChecked := parseRFC3339(cache.LastChecked)
	if latestTag == "" || !hasLastChecked || now.Sub(lastChecked) >= updateCheckInterval {
		res, fetchErr := checkLatest(current)
		if fetchErr == nil && res != nil && res.Current != "" {
			latestTag = res.Current
			cache.LatestTag = latestTag
			cache.LastChecked = now.Format(time.RFC3339)
			saveUpdateNoticeCache(cachePath, cache)
		}
	}
	if latestTag == "" || !isNewerVersion(latestTag, current) {
		return
	}

	lastNotified, hasLastNotified := parseRFC3339(cache.LastNotified)
	if hasLastNotified && now.Sub(lastNotified) < updateNotificationWindow {
		return
	}

	fmt.Fprintf(os.Stderr, "update available: v%s (current v%s). Download: %s\n",
		strings.TrimPrefix(latestTag, "v"), current, releasesURL())
	cache.LastNotified = now.Format(time.RFC3339)
	saveUpdateNoticeCache(cachePath, cache)
}

func shouldSkipUpdateHint(s *session, args []string) bool {
	if strings.EqualFold(strings.TrimSpace(os.Getenv(disableUpdateCheckEnv)), "1") {
		return true
	}
	if s != nil && (s.jsonOut || (s.loaded && s.cfg.DisableUpdateCheck)) {
		return true
	}
	if len(args) == 0 {
		return true
	}
	switch args[0] {
	case "version", "--version", "help", "-h", "--help":
		return true
	}
	for _, arg := range args {
		trimmed := strings.TrimSpace(arg)
		if trimmed == "--json" || strings.HasPrefix(trimmed, "--json=") {
			return true
		}
	}
	return false
}

func updateNoticeCachePath() (string, error) {
	cacheRoot, err := os.UserCacheDir()
	if err != nil || strings.TrimSpace(cacheRoot) == "" {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return "", homeErr
		}
		cacheRoot = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheRoot, version.Product, "update-check.json"), nil
}

func loadUpdateNoticeCache(cachePath string) updateNoticeCache {
	var cache updateNoticeCache
	if err := filestore.ReadJSON(cachePath, &cache); err != nil {
		return updateNoticeCache{}
	}
	return cache
}

func saveUpdateNoticeCache(cachePath string, cache updateNoticeCache) {
	_ = filestore.WriteJSON(cachePath, cache)
}

func parseRFC3339(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func isNewerVersion(candidate, current string) bool {
	a, err := hcversion.NewVersion(candidate)
	if err != nil {
		return false
	}
	b, err := hcversion.NewVersion(current)
	if err != nil {
		return false
	}
	return a.GreaterThan(b)
}

func releasesURL() string {
	return "https://github.com/" + version.RepoOwner + "/" + version.RepoName + "/releases"
}
