package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/hye-memory/internal/memory"
	"github.com/rcliao/hye-memory/internal/model"
)

func init() {
	export := &cobra.Command{
		Use:   "export",
		Short: "Export memories as decrypted JSON",
		Long:  "Export active memories as a JSON array. Filter by speaker with -s.",
		Run:   runExport,
	}
	export.Flags().StringP("speaker", "s", "", "Only this speaker's memories")
	RootCmd.AddCommand(export)

	imp := &cobra.Command{
		Use:   "import [file]",
		Short: "Import memories from JSON",
		Long:  "Import memories from JSON (file or stdin) in the format produced by export, attributing them to --speaker.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}
	imp.Flags().StringP("speaker", "s", "", "Speaker the memories belong to (required)")
	imp.MarkFlagRequired("speaker")
	RootCmd.AddCommand(imp)
}

func runExport(cmd *cobra.Command, args []string) {
	speaker, _ := cmd.Flags().GetString("speaker")

	svc, done := openService(cmd.Context())
	defer done()

	mems, err := svc.Export(cmd.Context(), speaker)
	if err != nil {
		exitErr("export", err)
	}
	if mems == nil {
		mems = []model.Memory{}
	}
	printJSON(mems)
}

func runImport(cmd *cobra.Command, args []string) {
	speaker, _ := cmd.Flags().GetString("speaker")

	var (
		data []byte
		err  error
	)
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		exitErr("read input", err)
	}

	var mems []model.Memory
	if err := json.Unmarshal(data, &mems); err != nil {
		exitErr("parse json", err)
	}

	items := make([]memory.StoreParams, 0, len(mems))
	for _, m := range mems {
		tags := m.Tags
		if tags == nil {
			tags = []string{}
		}
		items = append(items, memory.StoreParams{
			Content:   m.Content,
			SpeakerID: speaker,
			Tags:      tags,
			Media:     m.Media,
			Context:   m.Context,
		})
	}

	svc, done := openService(cmd.Context())
	defer done()

	imported, err := svc.Import(cmd.Context(), items)
	if err != nil {
		exitErr(fmt.Sprintf("import (%d imported)", imported), err)
	}
	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", imported)
}
