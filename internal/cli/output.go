package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"math-with-slack/internal/installer"
	"math-with-slack/internal/model"
	"math-with-slack/internal/version"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	selStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
)

// FormatError renders err as the single line printed before exiting 1. Known
// failure classes are labelled with their kind.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	tag := errorStyle.Render("[error]")
	kind := model.Kind(err)
	if kind == "error" {
		return tag + " " + err.Error()
	}
	return tag + " " + kind + ": " + err.Error()
}

func printOK(format string, args ...any) {
	fmt.Println(okStyle.Render("[ok]") + " " + fmt.Sprintf(format, args...))
}

func printWarn(format string, args ...any) {
	fmt.Fprintln(os.Stderr, warnStyle.Render("[warn]")+" "+fmt.Sprintf(format, args...))
}

func printCheck(name string, ok bool, message string) {
	status := okStyle.Render("ok")
	if !ok {
		status = errorStyle.Render("fail")
	}
	fmt.Printf("%s: %s %s\n", name, status, mutedStyle.Render("("+message+")"))
}

func printResultPaths(res installer.Result) {
	fmt.Println("Using Slack installation at: " + res.Target)
	if res.SettingsPath != "" {
		fmt.Println("Using local settings file at: " + res.SettingsPath)
	}
}

func printStatus(r installer.StatusReport) {
	target := r.Target
	if r.HostVersion != "" {
		target += mutedStyle.Render(" (Slack " + r.HostVersion + ")")
	}
	fmt.Println(titleStyle.Render("math-with-slack status"))
	fmt.Printf("target:     %s\n", target)

	state := string(r.State)
	switch r.State {
	case model.StateInstalled:
		state = okStyle.Render(state)
		if r.MarkerVersion != "" {
			state += mutedStyle.Render(" (v" + r.MarkerVersion + ")")
		}
	case model.StateCorrupt:
		state = errorStyle.Render(state) + mutedStyle.Render(" (marker present but no backup; reinstall Slack)")
	case model.StateStaleBackup:
		state = warnStyle.Render(state) + mutedStyle.Render(" (cleaned up on next install or uninstall)")
	}
	fmt.Printf("state:      %s\n", state)
	fmt.Printf("backup:     %s %s\n", r.BackupPath, presence(r.BackupPresent))
	fmt.Printf("payload:    %s %s\n", r.PayloadPath, presence(r.PayloadPresent))

	switch {
	case r.SettingsPath == "":
		fmt.Printf("settings:   %s\n", mutedStyle.Render("no local-settings.json found"))
	case r.SettingsApplied:
		fmt.Printf("settings:   %s %s\n", r.SettingsPath, mutedStyle.Render("(bootSonic disabled)"))
	default:
		fmt.Printf("settings:   %s\n", r.SettingsPath)
	}

	switch {
	case r.LockOwner != nil:
		fmt.Printf("lock:       %s\n", warnStyle.Render(fmt.Sprintf("held by pid=%d host=%s since %s", r.LockOwner.PID, r.LockOwner.Hostname, r.LockOwner.CreatedAt)))
	case r.Locked:
		fmt.Printf("lock:       %s\n", warnStyle.Render("held"))
	default:
		fmt.Printf("lock:       free\n")
	}

	compat := okStyle.Render("yes")
	if !r.Compatible {
		compat = errorStyle.Render("no")
	}
	fmt.Printf("compatible: %s %s\n", compat, mutedStyle.Render("("+r.CompatibleNote+")"))
}

func presence(ok bool) string {
	if ok {
		return mutedStyle.Render("[present]")
	}
	return mutedStyle.Render("[absent]")
}

func versionString() string {
	return "v" + version.Value
}
