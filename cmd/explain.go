package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var explainCmd = &cobra.Command{
	Use:   "explain [output]",
	Short: "Explain an error from tool output",
	Long: `Explain asks the model to diagnose an error message. The output can
be passed as arguments or piped on stdin:

  make 2>&1 | forgeline explain`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var output string
		if len(args) > 0 {
			output = strings.Join(args, " ")
		} else {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			output = strings.TrimSpace(string(data))
		}
		if output == "" {
			return fmt.Errorf("nothing to explain: pass the error text or pipe it on stdin")
		}

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		ans, err := app.ExplainError(cmd.Context(), output)
		if err != nil {
			return err
		}

		fmt.Println(ans.Text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(explainCmd)
}
