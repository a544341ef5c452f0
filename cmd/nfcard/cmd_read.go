package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nfcard/internal/reader"
	"nfcard/internal/vcard"
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read a vCard contact from the next card presented",
	Long: `Waits for a card, locates the NDEF message in its user memory and prints
the first vCard record found. Records of other types are skipped.`,
	Args: cobra.NoArgs,
	RunE: runRead,
}

// cardContext bounds a card operation by the configured wait timeout and
// Ctrl-C.
func cardContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Reader.WaitTimeout)
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	return ctx, func() {
		stop()
		cancel()
	}
}

func runRead(cmd *cobra.Command, args []string) error {
	r, conn, _, err := newReaderFn()
	if err != nil {
		return err
	}
	defer func() { _ = conn.Release() }()

	ctx, cancel := cardContext()
	defer cancel()

	fmt.Fprintln(cmd.OutOrStdout(), "Waiting for card...")
	records, err := r.ReadMessage(ctx)
	if errors.Is(err, reader.ErrEmptyTag) {
		fmt.Fprintln(cmd.OutOrStdout(), "No record found.")
		return err
	}
	if err != nil {
		return err
	}
	logger.Debug("message read", zap.Int("records", len(records)))

	contact, err := vcard.FromRecords(records)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), contact)
	return nil
}
