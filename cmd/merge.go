package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"takeoutmerge/internal"
)

var mergeCmd = &cobra.Command{
	Use:   "merge [input] [output]",
	Short: "Merge sidecar metadata into the media files of an export",
	Long: `Merge walks the input folder, pairs every media file with its JSON sidecar
and writes the file to the output folder with the sidecar's title, description,
dates and GPS position embedded. File timestamps are set to the photo-taken time.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, output := args[0], args[1]

		info, err := os.Stat(input)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%w: folder does not exist or is not a directory: %s", internal.ErrSetup, input)
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

		opts := []internal.MergerOption{}
		if conf.Manifest && !conf.DryRun {
			if err := os.MkdirAll(output, 0755); err != nil {
				return fmt.Errorf("%w: create output folder: %v", internal.ErrSetup, err)
			}
			session, err := internal.NewRunSession(output, input)
			if err != nil {
				return err
			}
			defer session.Close()
			logger.Info("run manifest", zap.String("path", session.ManifestPath()))
			opts = append(opts, internal.WithSession(session))
		}
		if conf.UseExifTool && !conf.DryRun {
			tagger, err := internal.NewExifToolTagger()
			if err != nil {
				logger.Warn("exiftool unavailable, videos are copied without tags", zap.Error(err))
			} else {
				defer tagger.Close()
				opts = append(opts, internal.WithVideoTagger(tagger))
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		merger := internal.NewMerger(conf, logger.Logger, opts...)
		sum, err := merger.Run(ctx, input, output)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Processed %d files in %d folders (%s written)\n",
			sum.Files, sum.Folders, humanize.Bytes(uint64(sum.Bytes)))
		fmt.Fprintf(out, "  merged: %d  converted: %d  copied: %d  unmatched: %d  failed: %d\n",
			sum.Merged, sum.Converted, sum.Copied, sum.Unmatched, sum.Failed)
		if report := merger.Stats().GenerateReport(); report != "" {
			fmt.Fprint(out, report)
		}
		return nil
	},
}

func init() {
	mergeCmd.Flags().Bool("dry-run", false, "Show what would be written without writing")
	mergeCmd.Flags().Bool("flatten", false, "Write every file directly into the output folder")
	mergeCmd.Flags().Bool("exiftool", false, "Tag videos using the exiftool binary")
	mergeCmd.Flags().Int("workers", 0, "Folders processed in parallel (default: CPU count)")
	mergeCmd.Flags().String("author", "", "Artist tag for files without one (default: current user)")

	viper.BindPFlag("dry_run", mergeCmd.Flags().Lookup("dry-run"))
	viper.BindPFlag("flatten", mergeCmd.Flags().Lookup("flatten"))
	viper.BindPFlag("use_exiftool", mergeCmd.Flags().Lookup("exiftool"))
	viper.BindPFlag("workers", mergeCmd.Flags().Lookup("workers"))
	viper.BindPFlag("author", mergeCmd.Flags().Lookup("author"))

	rootCmd.AddCommand(mergeCmd)
}
