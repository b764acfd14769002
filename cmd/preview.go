package cmd

import (
	"github.com/adalundhe/pollwatch/core/preview"
	"github.com/spf13/cobra"
)

var (
	previewBytes int
	previewGroup int
)

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Show the binary preview of a file",
	Long: `Render the leading bytes of a file as 8-bit binary digits, the same
preview the watch command prints after a file is created or modified.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().IntVarP(&previewBytes, "bytes", "b", 0, "Number of leading bytes (default from config, 50)")
	previewCmd.Flags().IntVarP(&previewGroup, "group", "g", 0, "Bytes per line (default from config, 10)")
}

func runPreview(cmd *cobra.Command, args []string) error {
	mgr, err := loadConfig()
	if err != nil {
		return err
	}
	defer mgr.Close()

	bytes, group := mgr.Get().Preview.Bytes, mgr.Get().Preview.Group
	if previewBytes > 0 {
		bytes = previewBytes
	}
	if previewGroup > 0 {
		group = previewGroup
	}

	return preview.NewRenderer(bytes, group).Write(cmd.OutOrStdout(), args[0])
}
