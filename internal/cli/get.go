package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/hye-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Retrieve one memory by id",
		Long:  "Retrieve and decrypt one memory. Does not count as a use.",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	svc, done := openService(cmd.Context())
	defer done()

	mem, err := svc.Get(cmd.Context(), args[0])
	if err != nil {
		exitErr("get", err)
	}
	printMemories([]model.Memory{*mem})
}
