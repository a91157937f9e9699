package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/hye-memory/internal/memory"
	"github.com/rcliao/hye-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "put [content]",
		Short: "Store a memory",
		Long: "Store a memory for a speaker. Content can be a positional arg or piped via stdin.\n" +
			"Without --tags the top keywords of the content become its tags.",
		Run: runPut,
	}

	cmd.Flags().StringP("speaker", "s", "", "Speaker identifier (required)")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	cmd.Flags().String("media", "", "Comma-separated media references")
	cmd.Flags().String("context", "", "Free-text context, stored encrypted")

	cmd.MarkFlagRequired("speaker")

	RootCmd.AddCommand(cmd)
}

func runPut(cmd *cobra.Command, args []string) {
	speaker, _ := cmd.Flags().GetString("speaker")
	tagsStr, _ := cmd.Flags().GetString("tags")
	mediaStr, _ := cmd.Flags().GetString("media")
	contextText, _ := cmd.Flags().GetString("context")

	// Get content: positional arg first, then check stdin
	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}

	if strings.TrimSpace(content) == "" {
		exitErr("put", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	params := memory.StoreParams{
		Content:   strings.TrimSpace(content),
		SpeakerID: speaker,
		Media:     splitList(mediaStr),
		Context:   contextText,
	}
	if cmd.Flags().Changed("tags") {
		params.Tags = append([]string{}, splitList(tagsStr)...)
	}

	svc, done := openService(cmd.Context())
	defer done()

	mem, err := svc.Store(cmd.Context(), params)
	if err != nil {
		exitErr("put", err)
	}
	printMemories([]model.Memory{*mem})
}
