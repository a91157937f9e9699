package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "archive <id>",
		Short: "Move a memory to the archive",
		Long:  "Remove a memory from the live store and vector index, keeping an archived copy. It is listed by `archived` with reason \"manual\".",
		Args:  cobra.ExactArgs(1),
		Run:   runArchive,
	}

	RootCmd.AddCommand(cmd)
}

func runArchive(cmd *cobra.Command, args []string) {
	svc, done := openService(cmd.Context())
	defer done()

	if err := svc.Archive(cmd.Context(), args[0]); err != nil {
		exitErr("archive", err)
	}
	fmt.Printf(`{"ok":true,"archived":%q}`+"\n", args[0])
}
