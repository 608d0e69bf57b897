package ebuild

import (
	"regexp"
	"strconv"
	"strings"
)

// Version suffix priorities (lower = earlier in release cycle)
var suffixPriority = map[string]int{
	"alpha": -4,
	"beta":  -3,
	"pre":   -2,
	"rc":    -1,
	"":      0, // release version
	"p":     1, // patch
}

// versionRegex matches a PMS version: 1.2.3b_rc1_p2-r3
var versionRegex = regexp.MustCompile(`^(\d+(?:\.\d+)*)([a-z]?)((?:_(?:alpha|beta|pre|rc|p)\d*)*)(?:-r(\d+))?$`)

// suffixRegex matches one suffix like _rc1, _beta2, _alpha, _p1
var suffixRegex = regexp.MustCompile(`_([a-z]+)(\d*)`)

// Suffix is one release suffix of a version
type Suffix struct {
	Type   string // alpha, beta, pre, rc or p
	Number int
}

// Version is a parsed Gentoo package version
type Version struct {
	Numbers  []int
	Letter   string
	Suffixes []Suffix
	Revision int
	raw      string
}

// ParseVersion parses a Gentoo version string.
// ok is false when v does not follow the version syntax.
func ParseVersion(v string) (Version, bool) {
	m := versionRegex.FindStringSubmatch(v)
	if m == nil {
		return Version{raw: v}, false
	}

	ver := Version{Letter: m[2], raw: v}
	for _, p := range strings.Split(m[1], ".") {
		n, _ := strconv.Atoi(p)
		ver.Numbers = append(ver.Numbers, n)
	}
	for _, s := range suffixRegex.FindAllStringSubmatch(m[3], -1) {
		n := 0
		if s[2] != "" {
			n, _ = strconv.Atoi(s[2])
		}
		ver.Suffixes = append(ver.Suffixes, Suffix{Type: s[1], Number: n})
	}
	if m[4] != "" {
		ver.Revision, _ = strconv.Atoi(m[4])
	}
	return ver, true
}

// String returns the version as it was parsed
func (v Version) String() string {
	return v.raw
}

// Compare returns -1 if v < o, 0 if v == o and 1 if v > o
func (v Version) Compare(o Version) int {
	if cmp := compareIntSlices(v.Numbers, o.Numbers); cmp != 0 {
		return cmp
	}
	if cmp := strings.Compare(v.Letter, o.Letter); cmp != 0 {
		return cmp
	}

	// Missing suffixes compare as a plain release
	n := len(v.Suffixes)
	if len(o.Suffixes) > n {
		n = len(o.Suffixes)
	}
	for i := 0; i < n; i++ {
		var a, b Suffix
		if i < len(v.Suffixes) {
			a = v.Suffixes[i]
		}
		if i < len(o.Suffixes) {
			b = o.Suffixes[i]
		}
		if cmp := compareInt(suffixPriority[a.Type], suffixPriority[b.Type]); cmp != 0 {
			return cmp
		}
		if cmp := compareInt(a.Number, b.Number); cmp != 0 {
			return cmp
		}
	}

	return compareInt(v.Revision, o.Revision)
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// compareIntSlices compares two slices of integers, padding the shorter with zeros
func compareIntSlices(a, b []int) int {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}

	for i := 0; i < maxLen; i++ {
		var av, bv int
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if cmp := compareInt(av, bv); cmp != 0 {
			return cmp
		}
	}
	return 0
}

// CompareVersions compares two Gentoo-style version strings
// Returns: -1 if v1 < v2, 0 if v1 == v2, 1 if v1 > v2
func CompareVersions(v1, v2 string) int {
	a, _ := ParseVersion(v1)
	b, _ := ParseVersion(v2)
	return a.Compare(b)
}
