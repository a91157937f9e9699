package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/rcliao/hye-memory/internal/model"
)

var (
	idColor   = color.New(color.FgCyan)
	tagColor  = color.New(color.FgYellow)
	distColor = color.New(color.FgGreen)
	warnColor = color.New(color.FgRed)
	dimColor  = color.New(color.Faint)
)

func textOutput() bool {
	return strings.EqualFold(formatFlag, "text")
}

func printJSON(v interface{}) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func printMemories(mems []model.Memory) {
	if !textOutput() {
		if mems == nil {
			mems = []model.Memory{}
		}
		printJSON(mems)
		return
	}
	if len(mems) == 0 {
		dimColor.Fprintln(os.Stdout, "no memories")
		return
	}
	for _, m := range mems {
		writeMemory(os.Stdout, m)
	}
}

func writeMemory(w io.Writer, m model.Memory) {
	idColor.Fprint(w, m.ID)
	if m.Distance != nil {
		distColor.Fprintf(w, "  d=%.4f", *m.Distance)
	}
	dimColor.Fprintf(w, "  %s %.2f  used %d  %s\n",
		m.Sentiment.Label, m.Sentiment.Score, m.UsageCount, m.CreatedAt.Local().Format(time.DateTime))
	if m.DecryptError != "" {
		warnColor.Fprintf(w, "  ! %s\n", m.DecryptError)
	} else {
		fmt.Fprintf(w, "  %s\n", m.Content)
	}
	if m.Context != "" {
		dimColor.Fprintf(w, "  context: %s\n", m.Context)
	}
	if len(m.Tags) > 0 {
		tagColor.Fprintf(w, "  #%s\n", strings.Join(m.Tags, " #"))
	}
	if len(m.Media) > 0 {
		dimColor.Fprintf(w, "  media: %s\n", strings.Join(m.Media, ", "))
	}
}

func splitList(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
