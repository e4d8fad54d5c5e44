package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Ask the configured model a question",
	Long: `Ask sends a prompt to the local model and prints the answer.
Identical prompts are served from the response cache. When the service is
unreachable the command prints static guidance and exits successfully.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		ans, err := app.Ask(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		fmt.Println(ans.Text)
		if ans.FromCache {
			fmt.Fprintln(cmd.ErrOrStderr(), "(cached)")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
