// Package main provides the entry point for the savescan CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for savescan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "savescan",
		Short: "Diagnostic tool for hero save data",
		Long: `Savescan is a diagnostic tool for hero save data stored as JSON documents.
It audits equipped-item formats, detects retired items that are still
equipped, and reports inventory totals with a sample of hero records.

Audit results are recorded in a local history database so runs over the
same save file can be compared with 'savescan compare'.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
