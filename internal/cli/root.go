package cli

import (
	"fmt"
	"strings"
)

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	s := &session{}
	var err error
	switch args[0] {
	case "install":
		err = runInstall(s, args[1:])
	case "uninstall":
		err = runUninstall(s, args[1:])
	case "reinstall":
		err = runReinstall(s, args[1:])
	case "status":
		err = runStatus(s, args[1:])
	case "doctor":
		err = runDoctor(s, args[1:])
	case "config":
		err = runConfig(s, args[1:])
	case "version", "--version":
		err = runVersion(s, args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		if !strings.HasPrefix(args[0], "-") {
			printRootUsage()
			return fmt.Errorf("unknown command %q", args[0])
		}
		err = runLegacy(s, args)
	}

	if err != nil {
		return err
	}

	maybePrintUpdateHint(s, args)
	return nil
}

// runLegacy accepts the flag-only invocation of earlier releases: flags alone
// install, and -u/--uninstall switches to uninstall.
func runLegacy(s *session, args []string) error {
	ctrl, opts, f, err := parseCommand(s, legacyCommand, args)
	if err != nil {
		return err
	}
	if f.uninstall {
		return uninstallWith(ctrl, opts, f)
	}
	return installWith(ctrl, opts, f)
}

func printRootUsage() {
	fmt.Println("math-with-slack: render LaTeX math in the Slack desktop client with MathJax")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  math-with-slack <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  install    inject MathJax into Slack (re-running is safe)")
	fmt.Println("  uninstall  restore Slack's original startup script")
	fmt.Println("  reinstall  uninstall, then install")
	fmt.Println("  status     show the patch state of the Slack install")
	fmt.Println("  doctor     run preflight checks")
	fmt.Println("  config     show or initialize the config file")
	fmt.Println("  version    print the version (--check looks for a newer release)")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -a, --app-file <path>       Slack's ssb-interop.js, or a directory that contains it")
	fmt.Println("  -s, --settings-file <path>  Slack's local-settings.json")
	fmt.Println("      --index <n>             choose the n-th install when several are found")
	fmt.Println("      --pick                  choose the install interactively")
	fmt.Println("  -f, --force                 skip the Slack version check")
	fmt.Println("  -v, --verbose               log each step to stderr")
	fmt.Println("      --json                  print JSON output")
	fmt.Println("      --config <path>         config file path")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - Restart Slack after install or uninstall")
	fmt.Println("  - 'math-with-slack -u' is accepted as 'math-with-slack uninstall'")
}
