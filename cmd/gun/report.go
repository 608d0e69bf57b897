package main

import (
	"fmt"
	"io"
	"os"

	"github.com/obentoo/gun/internal/common/config"
	"github.com/obentoo/gun/internal/common/logger"
	"github.com/obentoo/gun/internal/common/output"
	"github.com/obentoo/gun/internal/cycle"
	"github.com/obentoo/gun/internal/notify"
	"github.com/obentoo/gun/internal/report"
	"github.com/spf13/cobra"
)

// Report output formats
const (
	formatTerminal = "terminal"
	formatPlain    = "plain"
	formatHTML     = "html"
	formatMail     = "mail"
)

var (
	reportInput  string
	reportFormat string
	reportSync   bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the update report instead of sending it",
	Long: `Run the dry-run update and print the report to stdout without notifying anyone.

Formats:
  terminal  emerge output followed by a colored package summary
  plain     the text sent over XMPP
  html      the HTML document sent by email
  mail      the complete email message, headers included

With --input the report is read from a file ("-" for stdin) holding earlier
emerge --pretend --color y output, and no command is run.`,
	Example: `  gun report
  gun report --format html > report.html
  emerge -pvuDN --color y @world | gun report --input - --format plain`,
	Args: cobra.NoArgs,
	Run:  runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportInput, "input", "i", "", "Read emerge output from a file instead of running the update command")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", formatTerminal, "Output format: terminal, plain, html or mail")
	reportCmd.Flags().BoolVar(&reportSync, "sync", false, "Run the configured sync steps first")
	reportCmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(
		[]string{formatTerminal, formatPlain, formatHTML, formatMail}, cobra.ShellCompDirectiveNoFileComp))
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) {
	if !validFormat(reportFormat) {
		fatal("unknown format %q: use terminal, plain, html or mail", reportFormat)
	}

	cfg := loadConfig()
	defer logger.Close()

	c, err := cycle.New(cfg)
	if err != nil {
		fatal("%v", err)
	}

	buf, err := report.NewBuffer(cfg.General.TmpDir)
	if err != nil {
		fatal("%v", err)
	}
	defer buf.Close()

	if reportInput != "" {
		if err := readInput(buf, reportInput); err != nil {
			fatal("reading %s: %v", reportInput, err)
		}
	} else {
		if reportSync {
			c.Sync(cmd.Context())
		}
		if _, err := c.DryRun(cmd.Context(), buf); err != nil {
			fatal("%v", err)
		}
	}

	if err := writeReport(cmd.OutOrStdout(), buf, reportFormat, cfg, c.Renderer()); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func validFormat(format string) bool {
	switch format {
	case formatTerminal, formatPlain, formatHTML, formatMail:
		return true
	}
	return false
}

func readInput(buf *report.Buffer, path string) error {
	if path == "-" {
		_, err := buf.ReadFrom(os.Stdin)
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = buf.ReadFrom(f)
	return err
}

// writeReport renders buf in format to w
func writeReport(w io.Writer, buf *report.Buffer, format string, cfg *config.Config, r *report.Renderer) error {
	switch format {
	case formatPlain:
		text, err := r.Plain(buf)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, text)
		return err

	case formatHTML:
		fragment, err := r.HTML(buf)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, report.HTMLDocument(fragment))
		return err

	case formatMail:
		msg, err := notify.Compose(cfg.Email, buf, notify.WithRenderer(r))
		if err != nil {
			return err
		}
		_, err = w.Write(msg)
		return err

	case formatTerminal:
		return writeTerminal(w, buf, r)

	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// writeTerminal prints emerge's own output, colored only when colors are
// enabled, and a summary grouped by change kind
func writeTerminal(w io.Writer, buf *report.Buffer, r *report.Renderer) error {
	plain, err := r.Plain(buf)
	if err != nil {
		return err
	}

	text := plain
	if !noColor && output.IsTerminal() {
		if text, err = buf.Text(); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, text); err != nil {
		return err
	}

	summary := report.Summarize(plain)
	fmt.Fprintln(w)
	fmt.Fprintln(w, output.Header.Sprint("Summary: "+summary.String()))
	output.WriteAtoms(w, summary.Atoms)
	return nil
}
