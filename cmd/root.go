package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "takeoutmerge",
	Short: "Merge Google Takeout sidecar metadata into photos and videos",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		}
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default <user config dir>/takeoutmerge/takeoutmerge.toml)")
	rootCmd.PersistentFlags().String("log-file", "", "Write a JSON log to this file")
	rootCmd.PersistentFlags().String("log-level", "", "Console log level (debug, info, warn, error)")

	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}
