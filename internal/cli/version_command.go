package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"math-with-slack/internal/version"
)

func runVersion(s *session, args []string) error {
	fs := pflag.NewFlagSet("version", pflag.ContinueOnError)
	check := fs.Bool("check", false, "check GitHub for a newer release")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	s.jsonOut = *jsonOut

	current := strings.TrimPrefix(version.Value, "v")
	out := struct {
		Version  string `json:"version"`
		Latest   string `json:"latest,omitempty"`
		Outdated bool   `json:"outdated,omitempty"`
	}{Version: current}

	if *check {
		res, err := checkLatest(current)
		if err != nil {
			return fmt.Errorf("check for updates: %w", err)
		}
		out.Latest = strings.TrimPrefix(res.Current, "v")
		out.Outdated = res.Outdated
	}

	if *jsonOut {
		return printJSON(out)
	}
	fmt.Printf("%s v%s\n", version.Product, current)
	if !*check {
		return nil
	}
	if out.Outdated {
		printWarn("A new version is available: v%s (you have v%s). Download it from %s", out.Latest, current, releasesURL())
		return nil
	}
	printOK("You are using the latest version.")
	return nil
}
