package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the messagely CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messagely",
		Short: "messagely - private messaging API",
		Long: `messagely registers users, issues bearer tokens and stores private
messages that only their sender and recipient may read.

Configuration is read from environment variables (see JWT_SECRET,
STORE_DRIVER, DATABASE_URL, MONGO_URI, REDIS_ADDR).`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
