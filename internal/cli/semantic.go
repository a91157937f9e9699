package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	semantic := &cobra.Command{
		Use:   "semantic <query>",
		Short: "Find the memories closest in meaning to a query",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSemantic,
	}
	semantic.Flags().IntP("k", "k", 0, "Max results (default: retrieval.semantic_k)")
	semantic.Flags().StringP("speaker", "s", "", "Limit to one speaker")
	RootCmd.AddCommand(semantic)

	byContext := &cobra.Command{
		Use:   "context <text>",
		Short: "Find memories relevant to a conversational context",
		Args:  cobra.MinimumNArgs(1),
		Run:   runContext,
	}
	byContext.Flags().IntP("k", "k", 0, "Max results (default: retrieval.context_k)")
	byContext.Flags().StringP("speaker", "s", "", "Limit to one speaker")
	RootCmd.AddCommand(byContext)
}

func runSemantic(cmd *cobra.Command, args []string) {
	k, _ := cmd.Flags().GetInt("k")
	speaker, _ := cmd.Flags().GetString("speaker")

	svc, done := openService(cmd.Context())
	defer done()

	mems, err := svc.RetrieveSemantic(cmd.Context(), strings.Join(args, " "), k, speaker)
	if err != nil {
		exitErr("semantic", err)
	}
	printMemories(mems)
}

func runContext(cmd *cobra.Command, args []string) {
	k, _ := cmd.Flags().GetInt("k")
	speaker, _ := cmd.Flags().GetString("speaker")

	svc, done := openService(cmd.Context())
	defer done()

	mems, err := svc.RetrieveByContext(cmd.Context(), strings.Join(args, " "), k, speaker)
	if err != nil {
		exitErr("context", err)
	}
	printMemories(mems)
}
