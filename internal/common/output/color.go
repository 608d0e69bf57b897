package output

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/obentoo/gun/internal/common/ebuild"
)

var (
	// Merge list colors, as emerge prints them
	New       = color.New(color.FgGreen, color.Bold)
	Upgrade   = color.New(color.FgCyan, color.Bold)
	Downgrade = color.New(color.FgBlue, color.Bold)
	Reinstall = color.New(color.FgYellow, color.Bold)
	Blocker   = color.New(color.FgRed, color.Bold)
	Uninstall = color.New(color.FgRed)

	// Message colors
	Success = color.New(color.FgGreen)
	Warning = color.New(color.FgYellow)
	Error   = color.New(color.FgRed)
	Info    = color.New(color.FgCyan)
	Dim     = color.New(color.Faint)

	// Structural colors
	Header  = color.New(color.FgWhite, color.Bold)
	Package = color.New(color.FgBlue, color.Bold)
)

// NoColor disables color output
func NoColor() {
	color.NoColor = true
}

// ForceColor enables color output even when not a TTY
func ForceColor() {
	color.NoColor = false
}

// IsTerminal returns true if stdout is a terminal
func IsTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// ChangeColor returns the color for a merge list change
func ChangeColor(change ebuild.Change) *color.Color {
	switch change {
	case ebuild.ChangeNew:
		return New
	case ebuild.ChangeUpgrade:
		return Upgrade
	case ebuild.ChangeDowngrade:
		return Downgrade
	case ebuild.ChangeReinstall:
		return Reinstall
	case ebuild.ChangeBlocker:
		return Blocker
	case ebuild.ChangeUninstall:
		return Uninstall
	default:
		return color.New(color.Reset)
	}
}

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...interface{}) {
	Success.Printf("✓ "+format+"\n", args...)
}

// PrintError prints an error message
func PrintError(format string, args ...interface{}) {
	Error.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...interface{}) {
	Warning.Printf("⚠ "+format+"\n", args...)
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...interface{}) {
	Info.Printf("→ "+format+"\n", args...)
}

// FormatChange formats a change kind like "[Upgrade]"
func FormatChange(change ebuild.Change) string {
	return ChangeColor(change).Sprintf("[%s]", change)
}

// FormatPackage formats a package name with color
func FormatPackage(category, pkg string) string {
	if category != "" {
		return Package.Sprintf("%s/%s", category, pkg)
	}
	return Package.Sprint(pkg)
}

// FormatAtom formats one merge list entry, e.g.
// "[Upgrade] sys-apps/portage 3.0.61 → 3.0.63"
func FormatAtom(a *ebuild.Atom) string {
	line := FormatChange(a.Change()) + " " + FormatPackage(a.Category, a.Package)
	switch {
	case a.Previous != "" && a.Version != "" && a.Previous != a.Version:
		line += " " + Dim.Sprint(a.Previous) + " → " + a.Version
	case a.Version != "":
		line += " " + a.Version
	}
	if a.Repository != "" {
		line += Dim.Sprint(" ::" + a.Repository)
	}
	return line
}

// WriteAtoms writes one line per atom, blockers first, then grouped by
// change kind. atoms is not modified.
func WriteAtoms(w io.Writer, atoms []*ebuild.Atom) {
	order := map[ebuild.Change]int{
		ebuild.ChangeBlocker:   0,
		ebuild.ChangeUpgrade:   1,
		ebuild.ChangeDowngrade: 2,
		ebuild.ChangeNew:       3,
		ebuild.ChangeReinstall: 4,
		ebuild.ChangeUninstall: 5,
		ebuild.ChangeOther:     6,
	}
	sorted := make([]*ebuild.Atom, len(atoms))
	copy(sorted, atoms)
	sort.SliceStable(sorted, func(i, j int) bool {
		return order[sorted[i].Change()] < order[sorted[j].Change()]
	})

	for _, a := range sorted {
		fmt.Fprintln(w, FormatAtom(a))
	}
}
