package report

import (
	"fmt"
	"strings"

	"github.com/obentoo/gun/internal/common/ebuild"
)

// Summary counts the merge list entries of a plain rendering
type Summary struct {
	Atoms  []*ebuild.Atom
	Counts map[ebuild.Change]int
}

// Summarize parses every merge list line of plain and ignores the rest
func Summarize(plain string) Summary {
	s := Summary{Counts: make(map[ebuild.Change]int)}
	for _, line := range strings.Split(plain, "\n") {
		atom, err := ebuild.ParseMergeLine(line)
		if err != nil {
			continue
		}
		s.Atoms = append(s.Atoms, atom)
		s.Counts[atom.Change()]++
	}
	return s
}

// Pending returns the number of entries that would change the system
func (s Summary) Pending() int {
	return len(s.Atoms) - s.Counts[ebuild.ChangeBlocker]
}

// Empty reports whether the merge list had no entries
func (s Summary) Empty() bool {
	return len(s.Atoms) == 0
}

// String returns e.g. "3 packages (2 upgrades, 1 new)"
func (s Summary) String() string {
	if s.Empty() {
		return "no packages to update"
	}

	order := []struct {
		change ebuild.Change
		label  string
	}{
		{ebuild.ChangeUpgrade, "upgrade"},
		{ebuild.ChangeDowngrade, "downgrade"},
		{ebuild.ChangeNew, "new"},
		{ebuild.ChangeReinstall, "reinstall"},
		{ebuild.ChangeUninstall, "uninstall"},
		{ebuild.ChangeOther, "other"},
		{ebuild.ChangeBlocker, "blocker"},
	}

	var parts []string
	for _, o := range order {
		n := s.Counts[o.change]
		if n == 0 {
			continue
		}
		label := o.label
		if n > 1 && o.change != ebuild.ChangeNew && o.change != ebuild.ChangeOther {
			label += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, label))
	}

	noun := "packages"
	if s.Pending() == 1 {
		noun = "package"
	}
	return fmt.Sprintf("%d %s (%s)", s.Pending(), noun, strings.Join(parts, ", "))
}
