package report

import (
	"strings"

	"github.com/obentoo/gun/internal/common/shell"
)

// DryRunCommand builds the update command line, making sure emerge runs in
// pretend mode and prints colors even though its output is not a terminal
func DryRunCommand(command, options string) string {
	fields := strings.Fields(options)

	pretend := false
	color := false
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		switch {
		case f == "--pretend":
			pretend = true
		case isShortCluster(f) && strings.ContainsRune(f[1:], 'p'):
			pretend = true
		case f == "--color" || f == "--colour":
			color = true
			if i+1 < len(fields) && isOptionValue(fields[i+1]) {
				fields[i+1] = "y"
			} else {
				fields = insertAt(fields, i+1, "y")
			}
			i++
		case strings.HasPrefix(f, "--color=") || strings.HasPrefix(f, "--colour="):
			color = true
			fields[i] = "--color=y"
		}
	}

	var extra []string
	if !pretend {
		extra = append(extra, "--pretend")
	}
	if !color {
		extra = append(extra, "--color", "y")
	}

	// Right after the command, so they never split an option from its value
	fields = insertAt(fields, 0, extra...)

	return shell.Join(command, strings.Join(fields, " "))
}

// isShortCluster reports whether f is a bundle of short options like -uvDNp
func isShortCluster(f string) bool {
	return len(f) > 1 && f[0] == '-' && f[1] != '-'
}

// isOptionValue reports whether f looks like the y/n or numeric argument of
// a long emerge option
func isOptionValue(f string) bool {
	switch f {
	case "y", "n", "yes", "no", "True", "False":
		return true
	}
	return f != "" && strings.Trim(f, "0123456789.") == ""
}

func insertAt(fields []string, i int, values ...string) []string {
	out := make([]string, 0, len(fields)+len(values))
	out = append(out, fields[:i]...)
	out = append(out, values...)
	return append(out, fields[i:]...)
}
