package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"math-with-slack/internal/config"
	"math-with-slack/internal/filestore"
)

func runConfig(s *session, args []string) error {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	configPath := fs.String("config", "", "config file path")
	initFile := fs.Bool("init", false, "write a config file with the defaults if none exists")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	s.jsonOut = *jsonOut

	path := strings.TrimSpace(*configPath)
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	if *initFile {
		exists, err := filestore.Exists(path)
		if err != nil {
			return err
		}
		if exists {
			printWarn("config already exists at %s; left unchanged", path)
		} else {
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			printOK("wrote %s", path)
		}
	}

	cfg, err := config.Load(strings.TrimSpace(*configPath))
	if err != nil {
		return err
	}
	s.cfg = cfg
	s.loaded = true

	if *jsonOut {
		return printJSON(struct {
			Path   string        `json:"path"`
			Config config.Config `json:"config"`
		}{Path: path, Config: cfg})
	}
	fmt.Printf("config:              %s\n", path)
	fmt.Printf("app_file:            %s\n", orNone(cfg.AppFile))
	fmt.Printf("settings_file:       %s\n", orNone(cfg.SettingsFile))
	fmt.Printf("search_paths:        %s\n", orNone(strings.Join(cfg.SearchPaths, ", ")))
	fmt.Printf("compatible_versions: %s\n", cfg.CompatibleVersions)
	fmt.Printf("update check:        %s\n", map[bool]string{true: "disabled", false: "enabled"}[cfg.DisableUpdateCheck])
	return nil
}

func orNone(v string) string {
	if strings.TrimSpace(v) == "" {
		return mutedStyle.Render("(none)")
	}
	return v
}
