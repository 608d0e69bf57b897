package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for gun.

Bash:
  $ gun completion bash > /usr/share/bash-completion/completions/gun

Zsh:
  $ gun completion zsh > /usr/share/zsh/site-functions/_gun

Fish:
  $ gun completion fish > /usr/share/fish/vendor_completions.d/gun.fish
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeCompletion(os.Stdout, args[0])
	},
}

func writeCompletion(w io.Writer, shell string) error {
	switch shell {
	case "bash":
		return rootCmd.GenBashCompletionV2(w, true)
	case "zsh":
		return rootCmd.GenZshCompletion(w)
	case "fish":
		return rootCmd.GenFishCompletion(w, true)
	default:
		return fmt.Errorf("unsupported shell %q", shell)
	}
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
