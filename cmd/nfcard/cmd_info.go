package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nfcard/internal/atr"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show ATR details of the next card presented",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	r, conn, tg, err := newReader()
	if err != nil {
		return err
	}
	defer func() { _ = conn.Release() }()

	ctx, cancel := cardContext()
	defer cancel()

	fmt.Fprintln(cmd.OutOrStdout(), "Waiting for card...")
	raw, err := r.CardATR(ctx)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No ATR sent by card.")
		return nil
	}

	parsed, err := atr.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing ATR %s: %w", atr.HexString(raw), err)
	}
	fmt.Fprint(cmd.OutOrStdout(), parsed.Describe())
	if tg.MatchesATR(raw) {
		fmt.Fprintf(cmd.OutOrStdout(), "Matches configured tag type: %s\n", tg.Name)
	}
	return nil
}
