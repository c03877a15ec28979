package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"takeoutmerge/internal"
)

var (
	formatFlag     string
	duplicatesFlag bool
)

var analyticsCmd = &cobra.Command{
	Use:   "analyze [folder]",
	Short: "Report how an export would be merged",
	Long: `Scan an export without writing anything: count media files and sidecars,
show which matching tier pairs them, list files without a sidecar and find
album copies of the same file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		folder := args[0]

		info, err := os.Stat(folder)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%w: folder does not exist or is not a directory: %s", internal.ErrSetup, folder)
		}

		conf, err := internal.LoadConfig()
		if err != nil {
			return err
		}

		options := &internal.AnalyticsOptions{
			FindDuplicates: duplicatesFlag,
			Format:         formatFlag,
		}
		report, err := internal.AnalyzeExport(afero.NewOsFs(), folder, conf, options)
		if err != nil {
			return fmt.Errorf("failed to analyze folder: %w", err)
		}
		return internal.DisplayAnalytics(cmd.OutOrStdout(), report, options)
	},
}

func init() {
	analyticsCmd.Flags().StringVar(&formatFlag, "format", "table", "Output format: table, json")
	analyticsCmd.Flags().BoolVar(&duplicatesFlag, "duplicates", false, "Hash files to find album copies (slower)")

	rootCmd.AddCommand(analyticsCmd)
}
