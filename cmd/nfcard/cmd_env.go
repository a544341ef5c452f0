package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nfcard/internal/env"
)

var envShowPackages bool

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Print shell exports that set up the reader environment",
	Long: `Prints export statements that prepend the smart-card middleware library
directory to the loader search paths, for use as:

  eval "$(nfcard env)"

Operator hints go to stderr so the output stays eval-able. Activation is
idempotent: re-running it never accumulates duplicate path entries.`,
	Args: cobra.NoArgs,
	RunE: runEnv,
}

func init() {
	envCmd.Flags().BoolVar(&envShowPackages, "packages", false, "List the native dependency set instead of exporting")
}

func runEnv(cmd *cobra.Command, args []string) error {
	p := env.New(cfg.Env.Platform, cfg.Env.LibDir)

	if envShowPackages {
		for _, pkg := range env.Packages() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-14s %s\n", pkg.Name, pkg.Purpose)
		}
		return nil
	}

	if err := p.WriteScript(cmd.OutOrStdout(), os.LookupEnv); err != nil {
		return err
	}
	return p.WriteHints(cmd.ErrOrStderr())
}
