package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	search := &cobra.Command{
		Use:   "search [pattern]",
		Short: "Find memories containing text",
		Long:  "Case-insensitive substring search over memory content. Does not count as a use.",
		Run:   runSearch,
	}
	search.Flags().StringP("speaker", "s", "", "Limit to one speaker")
	RootCmd.AddCommand(search)

	tags := &cobra.Command{
		Use:   "tags <tag>...",
		Short: "Find memories carrying any of the tags",
		Args:  cobra.MinimumNArgs(1),
		Run:   runTags,
	}
	tags.Flags().StringP("speaker", "s", "", "Limit to one speaker")
	RootCmd.AddCommand(tags)
}

func runSearch(cmd *cobra.Command, args []string) {
	speaker, _ := cmd.Flags().GetString("speaker")

	svc, done := openService(cmd.Context())
	defer done()

	mems, err := svc.RetrieveText(cmd.Context(), strings.Join(args, " "), speaker)
	if err != nil {
		exitErr("search", err)
	}
	printMemories(mems)
}

func runTags(cmd *cobra.Command, args []string) {
	speaker, _ := cmd.Flags().GetString("speaker")

	var tags []string
	for _, a := range args {
		tags = append(tags, splitList(a)...)
	}

	svc, done := openService(cmd.Context())
	defer done()

	mems, err := svc.RetrieveTags(cmd.Context(), tags, speaker)
	if err != nil {
		exitErr("tags", err)
	}
	printMemories(mems)
}
