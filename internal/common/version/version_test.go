package version

import (
	"strings"
	"testing"
)

func TestInfoContainsBuildFields(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	defer func() { Version, Commit = oldVersion, oldCommit }()

	Version = "1.2.3"
	Commit = "abc1234"

	info := Info()
	for _, want := range []string{"gun version 1.2.3", "commit: abc1234", "go: go"} {
		if !strings.Contains(info, want) {
			t.Errorf("Info() missing %q:\n%s", want, info)
		}
	}
	if Short() != "1.2.3" {
		t.Errorf("Short() = %q", Short())
	}
	if UserAgent() != "gun/1.2.3" {
		t.Errorf("UserAgent() = %q", UserAgent())
	}
}
