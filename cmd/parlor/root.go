// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Parlor CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parlor",
		Short: "Parlor - account, settings and profile service",
		Long: `Parlor registers accounts, verifies their email addresses, signs them in
and keeps their settings and public profiles.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
