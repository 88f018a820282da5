package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subburn/internal/language"
	"subburn/internal/whisper"
)

func newLanguagesCommand() *cobra.Command {
	var showModels bool

	cmd := &cobra.Command{
		Use:         "languages",
		Short:       "List accepted --language codes",
		Annotations: skipConfig(),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if showModels {
				models := newTextTable("Model", "English only")
				for _, m := range whisper.Models() {
					models.row(m, yesNo(whisper.IsEnglishOnly(m)))
				}
				fmt.Fprintln(out, models.render(out))
				return nil
			}
			langs := newTextTable("Code", "Language")
			langs.row(language.Auto, language.DisplayName(language.Auto))
			for _, code := range language.Supported() {
				langs.row(code, language.DisplayName(code))
			}
			fmt.Fprintln(out, langs.render(out))
			return nil
		},
	}
	cmd.Flags().BoolVar(&showModels, "models", false, "List accepted --model values instead")
	return cmd
}
