// Package report turns the colored output of an emerge --pretend run into
// notification bodies.
//
// The output is captured once into a Buffer. Each notification channel then
// renders the same Buffer through a Formatter built from an EscapeMap:
//
//   - HTMLMap turns portage color codes into <span> markup, newlines into
//     <br> and escapes the characters HTML treats specially.
//   - PlainMap removes every color code and keeps newlines.
//
// Both maps are derived from one canonical table and are fresh copies on
// every call, so callers may modify them freely.
package report
