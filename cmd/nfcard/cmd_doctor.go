package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nfcard/internal/doctor"
)

var doctorWait bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the host prerequisites for the ACR122U reader",
	Long: `Verifies that the pcscd daemon is running, that no conflicting kernel NFC
drivers are loaded, that the PC/SC middleware library is discoverable and that
a reader is attached. Exits non-zero when a required check fails.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorWait, "wait", false, "Wait for the pcscd daemon to come up first")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	d := doctor.New(logger)

	if doctorWait {
		ctx, cancel := cardContext()
		defer cancel()
		fmt.Fprintln(cmd.OutOrStdout(), "Waiting for pcscd...")
		if err := d.WaitForDaemon(ctx); err != nil {
			return err
		}
	}

	checks := d.Run()
	fmt.Fprint(cmd.OutOrStdout(), doctor.Render(checks))
	if doctor.Failed(checks) {
		return fmt.Errorf("%d of %d checks failed", countFailed(checks), len(checks))
	}
	return nil
}

func countFailed(checks []doctor.Check) int {
	n := 0
	for _, c := range checks {
		if c.Status == doctor.StatusFail {
			n++
		}
	}
	return n
}
