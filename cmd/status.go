package cmd

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

var statusOutput string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the detected state of the model service",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		status := app.Status(cmd.Context(), true)

		if statusOutput == "json" {
			data, err := sonic.MarshalIndent(status, "", "  ")
			if err != nil {
				return err
			}
			os.Stdout.Write(data)
			fmt.Println()
			return nil
		}

		fmt.Printf("Service URL:  %s\n", status.ServiceURL)
		fmt.Printf("Installed:    %v\n", status.IsInstalled)
		fmt.Printf("Running:      %v\n", status.IsRunning)
		if status.Version != "" {
			fmt.Printf("Version:      %s\n", status.Version)
		}
		if status.BinaryPath != "" {
			fmt.Printf("Binary:       %s\n", status.BinaryPath)
		}
		if status.ErrorMessage != "" {
			fmt.Printf("Error:        %s\n", status.ErrorMessage)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "default", "output format (default, json)")
	rootCmd.AddCommand(statusCmd)
}
