package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var flags runFlags
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "subburn [flags] video...",
		Short:         "Generate and burn Whisper subtitles onto videos",
		Long:          "subburn transcribes each video with Whisper and writes a copy with the subtitles rendered into the picture.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runBatch(cmd, ctx, &flags, args)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&ctx.verbose, "verbose", false, "Log debug output")
	flags.register(rootCmd)

	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newLanguagesCommand())

	return rootCmd
}
