package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"castbot/pkg/textnorm"
)

func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize TEXT...",
		Short: "Print text the way the duplicate check sees it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), textnorm.Normalize(strings.Join(args, " ")))
			return err
		},
	}
}
