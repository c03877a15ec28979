package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"takeoutmerge/internal"
)

var standardizeDryRun bool

var standardizeCmd = &cobra.Command{
	Use:   "standardize [folder]",
	Short: "Rename *.supplemental-metadata.json sidecars to <media>.json",
	Args:  cobra.ExactArgs(1),
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
		logger, err := internal.NewLogger(conf.LogFile, conf.LogLevel)
		if err != nil {
			return err
		}
		defer logger.Close()

		res, err := internal.StandardizeSidecars(afero.NewOsFs(), folder, standardizeDryRun, logger.Logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed %d sidecars, %d already standard\n", res.Renamed, res.Skipped)
		return nil
	},
}

func init() {
	standardizeCmd.Flags().BoolVar(&standardizeDryRun, "dry-run", false, "Show renames without renaming")
	rootCmd.AddCommand(standardizeCmd)
}
