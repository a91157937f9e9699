package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/hye-memory/internal/crypt"
)

func init() {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an encryption key",
		Long: "Print a new base64 master key, suitable for HYE_CRYPTO_KEY.\n" +
			"With --write, create the configured key file instead (never overwrites).",
		Run: runKeygen,
	}

	cmd.Flags().Bool("write", false, "Write the key file if it does not exist")

	RootCmd.AddCommand(cmd)
}

func runKeygen(cmd *cobra.Command, args []string) {
	write, _ := cmd.Flags().GetBool("write")

	if !write {
		key, err := crypt.GenerateKey()
		if err != nil {
			exitErr("keygen", err)
		}
		fmt.Println(crypt.EncodeKey(key))
		return
	}

	cfg := loadConfig()
	path := cfg.KeyFilePath()
	if _, err := os.Stat(path); err == nil {
		exitErr("keygen", fmt.Errorf("key file %s already exists", path))
	}
	if _, err := crypt.LoadOrCreateKey(path); err != nil {
		exitErr("keygen", err)
	}
	fmt.Printf(`{"ok":true,"key_file":%q}`+"\n", path)
}
