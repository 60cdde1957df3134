package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"math-with-slack/internal/config"
	"math-with-slack/internal/installer"
	"math-with-slack/internal/locate"
)

// session carries what a command resolved, for the update hint after it.
type session struct {
	cfg     config.Config
	loaded  bool
	jsonOut bool
}

type commandFlags struct {
	appFile      string
	settingsFile string
	configPath   string
	index        int
	pick         bool
	force        bool
	verbose      bool
	jsonOut      bool
	uninstall    bool
}

// legacyCommand names the flag set of the flag-only invocation, the only one
// that takes -u.
const legacyCommand = "math-with-slack"

func newCommandFlagSet(name string, f *commandFlags) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringVarP(&f.appFile, "app-file", "a", "", "path to Slack's ssb-interop.js or a directory containing it")
	fs.StringVarP(&f.settingsFile, "settings-file", "s", "", "path to Slack's local-settings.json")
	fs.StringVar(&f.configPath, "config", "", "config file path")
	fs.IntVar(&f.index, "index", 0, "choose the n-th install (1 = newest) when several are found")
	fs.BoolVar(&f.pick, "pick", false, "choose the install interactively")
	fs.BoolVarP(&f.force, "force", "f", false, "skip the Slack version compatibility check")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log each step to stderr")
	fs.BoolVar(&f.jsonOut, "json", false, "print JSON output")
	if name == legacyCommand {
		fs.BoolVarP(&f.uninstall, "uninstall", "u", false, "remove MathJax instead of installing it")
	}
	fs.SetOutput(os.Stderr)
	return fs
}

func parseCommand(s *session, name string, args []string) (*installer.Controller, installer.Options, commandFlags, error) {
	var f commandFlags
	fs := newCommandFlagSet(name, &f)
	if err := fs.Parse(args); err != nil {
		return nil, installer.Options{}, f, err
	}
	if fs.NArg() > 0 {
		return nil, installer.Options{}, f, fmt.Errorf("%s: unexpected argument %q", name, fs.Arg(0))
	}
	s.jsonOut = f.jsonOut

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, installer.Options{}, f, err
	}
	s.cfg = cfg
	s.loaded = true

	log := newLogger(f.verbose)
	ctrl := installer.NewController(os.Stderr, log)
	ctrl.Locator.SearchPaths = cfg.SearchPaths
	if ctrl.Compatible, err = cfg.Constraints(); err != nil {
		return nil, installer.Options{}, f, err
	}

	switch {
	case fs.Changed("index"):
		if f.index < 1 {
			return nil, installer.Options{}, f, errors.New("--index must be 1 or greater")
		}
		ctrl.Locator.Chooser = locate.IndexChooser(f.index - 1)
	case f.pick:
		ctrl.Locator.Chooser = locate.ChooserFunc(pickInstall)
	default:
		ctrl.Locator.Chooser = locate.ChooserFunc(newestWithNote)
	}

	opts := installer.Options{
		AppFile:      firstNonEmpty(f.appFile, cfg.AppFile),
		SettingsFile: firstNonEmpty(f.settingsFile, cfg.SettingsFile),
		Force:        f.force,
	}
	return ctrl, opts, f, nil
}

func runInstall(s *session, args []string) error {
	ctrl, opts, f, err := parseCommand(s, "install", args)
	if err != nil {
		return err
	}
	return installWith(ctrl, opts, f)
}

func installWith(ctrl *installer.Controller, opts installer.Options, f commandFlags) error {
	res, err := ctrl.Install(context.Background(), opts)
	if err != nil {
		return err
	}
	if f.jsonOut {
		return printJSON(res)
	}
	printResultPaths(res)
	printOK("MathJax installed (math-with-slack %s). Restart Slack to load it.", versionString())
	return nil
}

func runUninstall(s *session, args []string) error {
	ctrl, opts, f, err := parseCommand(s, "uninstall", args)
	if err != nil {
		return err
	}
	return uninstallWith(ctrl, opts, f)
}

func uninstallWith(ctrl *installer.Controller, opts installer.Options, f commandFlags) error {
	res, err := ctrl.Uninstall(context.Background(), opts)
	if err != nil {
		return err
	}
	if f.jsonOut {
		return printJSON(res)
	}
	printResultPaths(res)
	if len(res.Written) == 0 && len(res.Removed) == 0 {
		printOK("Slack was not patched; nothing to remove.")
		return nil
	}
	printOK("MathJax removed. Restart Slack to apply.")
	return nil
}

func runReinstall(s *session, args []string) error {
	ctrl, opts, f, err := parseCommand(s, "reinstall", args)
	if err != nil {
		return err
	}
	res, err := ctrl.Reinstall(context.Background(), opts)
	if err != nil {
		return err
	}
	if f.jsonOut {
		return printJSON(res)
	}
	printResultPaths(res)
	printOK("MathJax reinstalled (math-with-slack %s). Restart Slack to load it.", versionString())
	return nil
}

func runStatus(s *session, args []string) error {
	ctrl, opts, f, err := parseCommand(s, "status", args)
	if err != nil {
		return err
	}
	report, err := ctrl.Status(context.Background(), opts)
	if err != nil {
		return err
	}
	if f.jsonOut {
		return printJSON(report)
	}
	printStatus(report)
	return nil
}

func runDoctor(s *session, args []string) error {
	ctrl, opts, f, err := parseCommand(s, "doctor", args)
	if err != nil {
		return err
	}
	res, err := ctrl.Doctor(context.Background(), opts)
	if err != nil {
		return err
	}
	if f.jsonOut {
		if err := printJSON(res); err != nil {
			return err
		}
	} else {
		for _, c := range res.Checks {
			printCheck(c.Name, c.OK, c.Message)
		}
	}
	if !res.OK {
		return errors.New("doctor checks failed")
	}
	if !f.jsonOut {
		printOK("doctor: all checks passed")
	}
	return nil
}

// newestWithNote keeps the newest install and lists the others so the user
// can rerun with --index.
func newestWithNote(candidates []locate.Target) (int, error) {
	printWarn("Found %d Slack installs; using the newest. Pass --index <n> or --pick to choose another:", len(candidates))
	for i, c := range candidates {
		fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, describeTarget(c))
	}
	return 0, nil
}

func describeTarget(t locate.Target) string {
	if t.Version == "" {
		return t.Path
	}
	return t.Path + " (Slack " + t.Version + ")"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
