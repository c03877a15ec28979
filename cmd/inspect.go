package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"takeoutmerge/internal"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [file...]",
	Short: "Show the dates, position and text tags of merged images",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, path := range args {
			s, err := internal.InspectImage(path)
			if err != nil {
				fmt.Fprintf(out, "%s: %v\n", path, err)
				continue
			}
			fmt.Fprintf(out, "%s\n", path)
			if !s.DateTimeOriginal.IsZero() {
				fmt.Fprintf(out, "  taken:       %s\n", s.DateTimeOriginal.Format("2006-01-02 15:04:05"))
			}
			if s.HasGPS {
				fmt.Fprintf(out, "  position:    %.6f, %.6f\n", s.Latitude, s.Longitude)
			}
			if s.Description != "" {
				fmt.Fprintf(out, "  title:       %s\n", s.Description)
			}
			if s.Comment != "" {
				fmt.Fprintf(out, "  description: %s\n", s.Comment)
			}
			if s.Artist != "" {
				fmt.Fprintf(out, "  artist:      %s\n", s.Artist)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
