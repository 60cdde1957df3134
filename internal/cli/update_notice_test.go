package cli

import (
	"errors"
	"testing"

	latest "github.com/tcnksm/go-latest"

	"math-with-slack/internal/config"
)

func stubCheckLatest(t *testing.T, fn func(string) (*latest.CheckResponse, error)) {
	t.Helper()
	prev := checkLatest
	checkLatest = fn
	t.Cleanup(func() { checkLatest = prev })
}

func TestUpdateHintCachesLatestTag(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("MWS_DISABLE_UPDATE_CHECK", "")
	t.Setenv("XDG_CACHE_HOME", tmp)
	t.Setenv("HOME", tmp)

	calls := 0
	stubCheckLatest(t, func(string) (*latest.CheckResponse, error) {
		calls++
		return &latest.CheckResponse{Current: "99.0.0", Outdated: true}, nil
	})

	maybePrintUpdateHint(&session{}, []string{"status"})
	maybePrintUpdateHint(&session{}, []string{"status"})
	if calls != 1 {
		t.Fatalf("expected one remote check within the interval, got %d", calls)
	}

	cachePath, err := updateNoticeCachePath()
	if err != nil {
		t.Fatal(err)
	}
	cache := loadUpdateNoticeCache(cachePath)
	if cache.LatestTag != "99.0.0" || cache.LastNotified == "" {
		t.Fatalf("unexpected cache %+v", cache)
	}
}

func TestUpdateHintIgnoresFailedCheck(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("MWS_DISABLE_UPDATE_CHECK", "")
	t.Setenv("XDG_CACHE_HOME", tmp)
	t.Setenv("HOME", tmp)
	stubCheckLatest(t, func(string) (*latest.CheckResponse, error) {
		return nil, errors.New("offline")
	})

	maybePrintUpdateHint(&session{}, []string{"install"})
	cachePath, err := updateNoticeCachePath()
	if err != nil {
		t.Fatal(err)
	}
	if cache := loadUpdateNoticeCache(cachePath); cache.LatestTag != "" {
		t.Fatalf("failed check should not be cached, got %+v", cache)
	}
}

func TestShouldSkipUpdateHint(t *testing.T) {
	t.Setenv("MWS_DISABLE_UPDATE_CHECK", "")
	cases := []struct {
		name string
		s    *session
		args []string
		want bool
	}{
		{"plain command", &session{}, []string{"install"}, false},
		{"json flag", &session{}, []string{"status", "--json"}, true},
		{"json session", &session{jsonOut: true}, []string{"status"}, true},
		{"version", &session{}, []string{"version"}, true},
		{"config disabled", &session{loaded: true, cfg: config.Config{DisableUpdateCheck: true}}, []string{"install"}, true},
	}
	for _, tc := range cases {
		if got := shouldSkipUpdateHint(tc.s, tc.args); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}

	t.Setenv("MWS_DISABLE_UPDATE_CHECK", "1")
	if !shouldSkipUpdateHint(&session{}, []string{"install"}) {
		t.Fatal("env override should skip the hint")
	}
}

func TestIsNewerVersion(t *testing.T) {
	if !isNewerVersion("v0.5.0", "0.4.0") {
		t.Fatal("v0.5.0 should be newer than 0.4.0")
	}
	if isNewerVersion("0.4.0", "0.4.0") {
		t.Fatal("equal versions are not newer")
	}
	if isNewerVersion("garbage", "0.4.0") {
		t.Fatal("unparseable versions are not newer")
	}
}
