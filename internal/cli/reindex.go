package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "reindex [id]",
		Short: "Retry vector indexing of memories left un-indexed",
		Long:  "Retry vector indexing for one memory, or for every un-indexed memory when no id is given.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runReindex,
	}

	RootCmd.AddCommand(cmd)
}

func runReindex(cmd *cobra.Command, args []string) {
	svc, done := openService(cmd.Context())
	defer done()

	if len(args) == 1 {
		if err := svc.Reindex(cmd.Context(), args[0]); err != nil {
			exitErr("reindex", err)
		}
		fmt.Printf(`{"ok":true,"reindexed":1}` + "\n")
		return
	}

	n, err := svc.ReindexPending(cmd.Context())
	if err != nil {
		exitErr(fmt.Sprintf("reindex (%d succeeded)", n), err)
	}
	fmt.Printf(`{"ok":true,"reindexed":%d}`+"\n", n)
}
