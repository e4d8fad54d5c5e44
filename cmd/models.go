package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/forgeline/forgeline/ollama"
)

var (
	modelsOutput  string
	modelsRefresh bool
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List installed models and their capabilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		models, err := app.Models(cmd.Context(), modelsRefresh)
		if err != nil {
			return err
		}

		if modelsOutput == "json" {
			data, err := sonic.MarshalIndent(models, "", "  ")
			if err != nil {
				return err
			}
			os.Stdout.Write(data)
			fmt.Println()
			return nil
		}

		if len(models) == 0 {
			fmt.Println("No models installed. Pull one with: ollama pull llama3.2:3b")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tFAMILY\tSIZE\tCONTEXT\tCAPABILITIES")
		for _, m := range models {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				m.Name, m.Family, formatSize(m.Size), m.ContextWindow, formatCapabilities(m.Capabilities))
		}
		return w.Flush()
	},
}

func init() {
	modelsCmd.Flags().StringVarP(&modelsOutput, "output", "o", "default", "output format (default, json)")
	modelsCmd.Flags().BoolVar(&modelsRefresh, "refresh", false, "bypass the catalog cache")
	rootCmd.AddCommand(modelsCmd)
}

func formatSize(bytes int64) string {
	const gb = 1 << 30
	const mb = 1 << 20
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1fGB", float64(bytes)/gb)
	case bytes >= mb:
		return fmt.Sprintf("%.0fMB", float64(bytes)/mb)
	default:
		return fmt.Sprintf("%dB", bytes)
	}
}

func formatCapabilities(caps []ollama.Capability) string {
	out := ""
	for i, c := range caps {
		if i > 0 {
			out += ","
		}
		out += string(c)
	}
	return out
}
