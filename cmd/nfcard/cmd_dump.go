package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Hex-dump the user memory of the next card presented",
	Args:  cobra.NoArgs,
	RunE:  runDump,
}

func runDump(cmd *cobra.Command, args []string) error {
	r, conn, tg, err := newReader()
	if err != nil {
		return err
	}
	defer func() { _ = conn.Release() }()

	ctx, cancel := cardContext()
	defer cancel()

	fmt.Fprintln(cmd.OutOrStdout(), "Waiting for card...")
	data, err := r.Dump(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s user memory (%d bytes, pages %d-%d):\n",
		tg.Name, len(data), tg.UserPageStart, tg.UserPageLimit-1)
	fmt.Fprint(cmd.OutOrStdout(), hex.Dump(data))
	return nil
}
