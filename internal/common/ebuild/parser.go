package ebuild

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrNotMergeLine = errors.New("not an emerge merge list line")
	ErrInvalidAtom  = errors.New("invalid package atom")
)

// mergeLineRegex matches: [ebuild     U  ] cat/pkg-1.2::repo [1.1::repo] ...
var mergeLineRegex = regexp.MustCompile(`^\[(ebuild|binary|blocks|uninstall|nomerge)\s*([^\]]*)\]\s+(\S+)(?:\s+\[([^\]]+)\])?`)

// atomRegex splits category/package-version
var atomRegex = regexp.MustCompile(`^([A-Za-z0-9][\w+.-]*)/([\w+-]+?)(?:-(\d[\w.]*(?:-r\d+)?))?$`)

// Change describes what emerge would do with a package
type Change string

const (
	ChangeNew       Change = "New"
	ChangeUpgrade   Change = "Upgrade"
	ChangeDowngrade Change = "Downgrade"
	ChangeReinstall Change = "Reinstall"
	ChangeBlocker   Change = "Blocker"
	ChangeUninstall Change = "Uninstall"
	ChangeOther     Change = "Other"
)

// Atom is one entry of an emerge --pretend merge list
type Atom struct {
	Kind       string // ebuild, binary, blocks, uninstall or nomerge
	Flags      string // e.g. "NS", "U", "UD", "R"
	Category   string // e.g. "sys-apps"
	Package    string // e.g. "portage"
	Version    string // e.g. "3.0.63-r1", empty for unversioned blockers
	Slot       string
	Repository string
	Previous   string // Installed version, if emerge printed one
}

// ParseMergeLine parses one line of colorless emerge --pretend output
func ParseMergeLine(line string) (*Atom, error) {
	line = strings.TrimRight(strings.TrimSpace(line), "\r")
	m := mergeLineRegex.FindStringSubmatch(line)
	if m == nil {
		return nil, ErrNotMergeLine
	}

	atom := &Atom{
		Kind:  m[1],
		Flags: strings.Join(strings.Fields(m[2]), ""),
	}

	name := m[3]
	if atom.Kind == "blocks" {
		name = strings.TrimLeft(name, "!<>=~")
	}
	name, atom.Repository, _ = strings.Cut(name, "::")
	name, atom.Slot, _ = strings.Cut(name, ":")

	am := atomRegex.FindStringSubmatch(name)
	if am == nil {
		return nil, ErrInvalidAtom
	}
	atom.Category = am[1]
	atom.Package = am[2]
	atom.Version = am[3]

	if prev := m[4]; prev != "" {
		// Several installed slots are listed comma separated; keep the first
		prev, _, _ = strings.Cut(prev, ",")
		prev, _, _ = strings.Cut(prev, "::")
		prev, _, _ = strings.Cut(prev, ":")
		if _, ok := ParseVersion(prev); ok {
			atom.Previous = prev
		}
	}

	return atom, nil
}

// FullName returns the category/package format
func (a *Atom) FullName() string {
	return a.Category + "/" + a.Package
}

// String returns category/package-version
func (a *Atom) String() string {
	if a.Version == "" {
		return a.FullName()
	}
	return a.FullName() + "-" + a.Version
}

// HasFlag reports whether the merge list flags contain f
func (a *Atom) HasFlag(f byte) bool {
	return strings.IndexByte(a.Flags, f) >= 0
}

// Change classifies the entry from its flags, falling back to comparing
// the new and installed versions
func (a *Atom) Change() Change {
	switch a.Kind {
	case "blocks":
		return ChangeBlocker
	case "uninstall":
		return ChangeUninstall
	}

	switch {
	case a.HasFlag('N'):
		return ChangeNew
	case a.HasFlag('D'):
		return ChangeDowngrade
	case a.HasFlag('U'):
		return ChangeUpgrade
	case a.HasFlag('R'):
		return ChangeReinstall
	}

	if a.Previous != "" && a.Version != "" {
		switch CompareVersions(a.Version, a.Previous) {
		case 1:
			return ChangeUpgrade
		case -1:
			return ChangeDowngrade
		default:
			return ChangeReinstall
		}
	}
	return ChangeOther
}
