package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Archive memories that are stale and rarely used",
		Long: "Archive and delete memories last accessed before now-threshold AND used fewer than floor times.\n" +
			"With --watch, keep sweeping every interval until interrupted.",
		Run: runSweep,
	}

	cmd.Flags().Duration("threshold", 0, "Age threshold (default: retention.age_threshold, 2160h)")
	cmd.Flags().Int("floor", -1, "Usage floor (default: retention.usage_floor, 2)")
	cmd.Flags().Bool("watch", false, "Run periodically until interrupted")
	cmd.Flags().Duration("interval", 0, "Sweep interval with --watch (default: retention.interval)")

	RootCmd.AddCommand(cmd)
}

func runSweep(cmd *cobra.Command, args []string) {
	threshold, _ := cmd.Flags().GetDuration("threshold")
	floor, _ := cmd.Flags().GetInt("floor")
	watch, _ := cmd.Flags().GetBool("watch")
	interval, _ := cmd.Flags().GetDuration("interval")

	svc, done := openService(cmd.Context())
	defer done()

	if watch {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := svc.RunRetention(ctx, interval); err != nil {
			exitErr("sweep", err)
		}
		return
	}

	n, err := svc.Sweep(cmd.Context(), threshold, floor)
	if err != nil {
		exitErr("sweep", err)
	}
	fmt.Printf(`{"ok":true,"forgotten":%d}`+"\n", n)
}
