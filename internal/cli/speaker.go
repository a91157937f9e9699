package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	interest := &cobra.Command{
		Use:   "interest <speaker>",
		Short: "Show a speaker's most frequent tags",
		Args:  cobra.ExactArgs(1),
		Run:   runInterest,
	}
	interest.Flags().IntP("top", "n", 5, "Number of tags")
	RootCmd.AddCommand(interest)

	forget := &cobra.Command{
		Use:   "forget <speaker>",
		Short: "Delete every memory of a speaker",
		Long:  "Delete every memory of a speaker. Nothing is archived; this cannot be undone.",
		Args:  cobra.ExactArgs(1),
		Run:   runForget,
	}
	RootCmd.AddCommand(forget)
}

func runInterest(cmd *cobra.Command, args []string) {
	top, _ := cmd.Flags().GetInt("top")

	svc, done := openService(cmd.Context())
	defer done()

	tags, err := svc.InterestTags(cmd.Context(), args[0], top)
	if err != nil {
		exitErr("interest", err)
	}
	if textOutput() {
		if len(tags) == 0 {
			dimColor.Println("no tags")
			return
		}
		tagColor.Printf("#%s\n", strings.Join(tags, " #"))
		return
	}
	if tags == nil {
		tags = []string{}
	}
	printJSON(tags)
}

func runForget(cmd *cobra.Command, args []string) {
	svc, done := openService(cmd.Context())
	defer done()

	n, err := svc.ForgetSpeaker(cmd.Context(), args[0])
	if err != nil {
		exitErr("forget", err)
	}
	fmt.Printf(`{"ok":true,"deleted":%d}`+"\n", n)
}
