// Package cmd implements the attestd command-line surface, in the same
// cobra-rooted, flag-bound style as the teacher's cmd/gotpm/main.go
// (`cmd.RootCmd.Execute()`), generalized from a single-binary tool into a
// root command with subcommands the way flightctl-flightctl's
// cmd/flightctl-ground-crew/main.go composes cobra.Command trees.
package cmd

import (
	"github.com/spf13/cobra"
)

// RootCmd is the attestd entrypoint's root command.
var RootCmd = &cobra.Command{
	Use:   "attestd",
	Short: "TPM 2.0 remote attestation server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	RootCmd.AddCommand(newServeCmd())
	RootCmd.AddCommand(newVersionCmd())
}
