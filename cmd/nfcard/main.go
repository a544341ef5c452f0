package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"nfcard/internal/config"
	"nfcard/internal/reader"
	"nfcard/internal/tag"
)

var (
	// Global flags
	verbose     bool
	configPath  string
	waitTimeout time.Duration
	tagName     string
	readerName  string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command. Running it without a subcommand reads
// a contact, matching the original workflow of tapping a card.
var rootCmd = &cobra.Command{
	Use:   "nfcard",
	Short: "nfcard - vCard contacts on NFC tags via an ACR122U reader",
	Long: `nfcard reads and writes vCard contacts on NTAG-family NFC tags through
an ACR122U USB reader over PC/SC.

It also provisions and diagnoses the host environment the reader depends on:
run 'nfcard doctor' to check the pcscd daemon, kernel drivers and libraries,
and eval "$(nfcard env)" to set up library search paths in the current shell.

Run without arguments to read a contact from the next card presented.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = loadConfig(cmd); err != nil {
			return err
		}

		zcfg := zap.NewProductionConfig()
		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(parsed)
		if logger, err = zcfg.Build(); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runRead,
}

// loadConfig merges the config file, NFCARD_* environment overrides and
// command-line flags, in ascending precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}
	c, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("timeout") || cmd.InheritedFlags().Changed("timeout") {
		c.Reader.WaitTimeout = waitTimeout
	}
	if tagName != "" {
		c.Reader.Tag = tagName
	}
	if cmd.Flags().Changed("reader") || cmd.InheritedFlags().Changed("reader") {
		c.Reader.Name = readerName
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// newReader builds the PC/SC-backed reader for the configured tag. The
// caller must Release the returned connector. Tests swap newReaderFn for a
// fake connector.
var newReaderFn = newReader

func newReader() (*reader.Reader, reader.Connector, tag.Tag, error) {
	tg, err := tag.ByName(cfg.Reader.Tag)
	if err != nil {
		return nil, nil, tag.Tag{}, err
	}
	conn, err := reader.NewPCSC(cfg.Reader.Name, tg.ATR, logger)
	if err != nil {
		return nil, nil, tag.Tag{}, err
	}
	return reader.New(conn, tg, logger), conn, tg, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.config/nfcard/config.yaml)")
	rootCmd.PersistentFlags().DurationVarP(&waitTimeout, "timeout", "t", 10*time.Second, "Maximum time to wait for a card")
	rootCmd.PersistentFlags().StringVar(&tagName, "tag", "", "Tag type (default from config: ntag216)")
	rootCmd.PersistentFlags().StringVar(&readerName, "reader", "", "Reader name filter (default from config: ACR122)")

	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(doctorCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
