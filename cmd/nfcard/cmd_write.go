package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nfcard/internal/ndef"
	"nfcard/internal/vcard"
)

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Write a contact to the next card presented",
	Long: `Prompts for the contact fields, validates them and writes the contact to
the next card as a text/x-vcard NDEF record.`,
	Args: cobra.NoArgs,
	RunE: runWrite,
}

func runWrite(cmd *cobra.Command, args []string) error {
	contact, err := vcard.Prompt(cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}

	r, conn, _, err := newReader()
	if err != nil {
		return err
	}
	defer func() { _ = conn.Release() }()

	ctx, cancel := cardContext()
	defer cancel()

	fmt.Fprintln(cmd.OutOrStdout(), "Waiting for card...")
	if err := r.WriteMessage(ctx, []ndef.Record{contact.ToRecord()}); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Contact written.")
	return nil
}
