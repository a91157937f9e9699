package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Run:   runStats,
	}
	RootCmd.AddCommand(stats)

	archived := &cobra.Command{
		Use:   "archived",
		Short: "List archived memories, newest first",
		Long:  "List archived memory metadata. Content stays encrypted; only the plaintext mirror is shown.",
		Run:   runArchived,
	}
	archived.Flags().IntP("limit", "l", 20, "Max results")
	RootCmd.AddCommand(archived)
}

func runStats(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	s := openStore(cfg)
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), cfg.Storage.DBPath)
	if err != nil {
		exitErr("stats", err)
	}
	printJSON(stats)
}

type archivedView struct {
	ID         string   `json:"id"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags"`
	UsageCount int      `json:"usage_count"`
	CreatedAt  string   `json:"created_at"`
	ArchivedAt string   `json:"archived_at"`
	Reason     string   `json:"reason"`
	BatchID    string   `json:"batch_id,omitempty"`
}

func runArchived(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	cfg := loadConfig()
	s := openStore(cfg)
	defer s.Close()

	recs, err := s.Archived(cmd.Context(), limit)
	if err != nil {
		exitErr("archived", err)
	}

	views := make([]archivedView, 0, len(recs))
	for _, r := range recs {
		views = append(views, archivedView{
			ID:         r.ID,
			Content:    r.ContentPlain,
			Tags:       r.Tags,
			UsageCount: r.UsageCount,
			CreatedAt:  r.CreatedAt.Format("2006-01-02T15:04:05Z"),
			ArchivedAt: r.ArchivedAt.Format("2006-01-02T15:04:05Z"),
			Reason:     r.Reason,
			BatchID:    r.BatchID,
		})
	}

	if !textOutput() {
		printJSON(views)
		return
	}
	for _, v := range views {
		idColor.Fprint(os.Stdout, v.ID)
		dimColor.Fprintf(os.Stdout, "  %s  archived %s  used %d\n", v.Reason, v.ArchivedAt, v.UsageCount)
		os.Stdout.WriteString("  " + v.Content + "\n")
	}
}
