package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"castbot/internal/config"
	"castbot/internal/dedup"
	"castbot/internal/storage"
	logx "castbot/pkg/logx"
)

func newDedupCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Inspect the duplicate history",
	}
	cmd.AddCommand(newDedupHistoryCmd(f), newDedupCheckCmd(f))
	return cmd
}

// openChecker reads only the dedup section; the bot token and API keys are
// not needed here.
func openChecker(f *rootFlags) (*dedup.Checker, func(), error) {
	cfg, err := config.NewManager(f.configPath).Parse()
	if err != nil {
		return nil, nil, err
	}
	d := cfg.Dedup
	store, err := storage.Open(storage.Config{
		Driver:      d.Driver,
		Path:        d.Path,
		BusyTimeout: config.Duration(d.BusyTimeout, 0),
		RedisURL:    d.RedisURL,
		Key:         d.Key,
		LockTimeout: config.Duration(d.LockTimeout, 0),
	}, logx.Nop())
	if errors.Is(err, storage.ErrDisabled) {
		return nil, nil, errors.New("dedup.driver is none; nothing to inspect")
	}
	if err != nil {
		return nil, nil, err
	}
	c := dedup.New(store, dedup.Options{Threshold: d.SimilarityThreshold, HistorySize: d.HistorySize}, logx.Nop())
	return c, func() { _ = store.Close() }, nil
}

func newDedupHistoryCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Print stored fingerprints, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeFn, err := openChecker(f)
			if err != nil {
				return err
			}
			defer closeFn()
			h, err := c.History(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, fp := range h {
				fmt.Fprintf(out, "%3d  %s\n", i+1, fp)
			}
			if len(h) == 0 {
				fmt.Fprintln(out, "history is empty")
			}
			return nil
		},
	}
}

func newDedupCheckCmd(f *rootFlags) *cobra.Command {
	var (
		text, ocrText string
		record        bool
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check a casting against the history",
		Long: `Check a casting against the history. By default nothing is written;
with --record a new casting is appended exactly as the bot would do.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(text) == "" && strings.TrimSpace(ocrText) == "" {
				return errors.New("--text or --ocr is required")
			}
			c, closeFn, err := openChecker(f)
			if err != nil {
				return err
			}
			defer closeFn()

			var v dedup.Verdict
			if record {
				v, err = c.Check(cmd.Context(), text, ocrText)
			} else {
				v, err = c.Peek(cmd.Context(), text, ocrText)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "fingerprint: %s\n", v.Fingerprint)
			fmt.Fprintf(out, "duplicate:   %t (%s)\n", v.Duplicate, v.Reason)
			if v.Match != "" {
				fmt.Fprintf(out, "match:       %s (score %.3f)\n", v.Match, v.Score)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "casting text")
	cmd.Flags().StringVar(&ocrText, "ocr", "", "text read from the casting image")
	cmd.Flags().BoolVar(&record, "record", false, "append the casting to the history when it is new")
	return cmd
}
