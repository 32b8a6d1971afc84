// Package commands is the castbot command line.
package commands

import (
	"github.com/spf13/cobra"

	"castbot/internal/config"
)

type rootFlags struct {
	configPath string
	envFile    string
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd(version string) *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:   "castbot",
		Short: "Casting aggregator bot for Telegram",
		Long: `castbot watches casting channels, keeps only real castings, drops
reposts, rewrites each casting into one template and delivers it to a
destination channel and to matching subscribers.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(f.envFile)
		},
	}
	root.PersistentFlags().StringVarP(&f.configPath, "config", "c", "./config.yaml", "path to config (json or yaml)")
	root.PersistentFlags().StringVar(&f.envFile, "env-file", ".env", "dotenv file with secrets; missing is fine")

	root.AddCommand(
		newRunCmd(f),
		newDedupCmd(f),
		newNormalizeCmd(),
	)
	return root
}

func Execute(version string) error {
	return NewRootCmd(version).Execute()
}
