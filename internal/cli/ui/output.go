package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/aki/weblaunch/internal/resolver"
	"github.com/aki/weblaunch/internal/supervisor"
)

// Print functions for consistent output

func Error(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorIcon, ErrorStyle.Render(fmt.Sprintf(format, args...)))
}

func Success(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", SuccessIcon, SuccessStyle.Render(fmt.Sprintf(format, args...)))
}

func Info(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", InfoIcon, InfoStyle.Render(fmt.Sprintf(format, args...)))
}

func Warning(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", WarningIcon, WarningStyle.Render(fmt.Sprintf(format, args...)))
}

// OutputLine prints a plain line to stdout
func OutputLine(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
}

// FormatDuration formats a duration into a human-readable string
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%dd%dh", int(d.Hours()/24), int(d.Hours())%24)
	}
}

// PrintServerStatus displays the supervisor state
func PrintServerStatus(info supervisor.Info) {
	if info.State == supervisor.StateIdle {
		Info("No server running")
		return
	}

	fmt.Printf("%s %s %s\n", ServerIcon, BoldStyle.Render(string(info.State)),
		DimStyle.Render(fmt.Sprintf("(pid %d)", info.PID)))
	if info.URL != "" {
		fmt.Printf("   %s %s\n", DimStyle.Render("URL:"), URLStyle.Render(info.URL))
	}
	if !info.StartedAt.IsZero() {
		fmt.Printf("   %s %s\n", DimStyle.Render("Uptime:"), FormatDuration(time.Since(info.StartedAt)))
	}
	fmt.Printf("   %s %s\n", DimStyle.Render("Run:"), info.RunID)
}

// PrintExecutables displays resolved executables as a table
func PrintExecutables(refs ...resolver.ExecutableRef) {
	width := TerminalWidth()
	tbl := NewTable("NAME", "CONFIGURED", "RESOLVED", "SHIM")
	for _, ref := range refs {
		configured := ref.Configured
		if configured == "" {
			configured = "-"
		}
		resolved := ref.Path
		if !ref.Resolved {
			resolved = WarningStyle.Render("missing")
		}
		shim := "-"
		if ref.Shim != nil {
			shim = ref.Shim.Manager
			if ref.Shim.Version != "" {
				shim += " " + ref.Shim.Version
			}
		}
		tbl.AddRow(ref.Name, Truncate(configured, width/3), Truncate(resolved, width/3), shim)
	}

	PrintSectionHeader(PathIcon, "Executables")
	tbl.Print()
	fmt.Println()
}
