package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dubber/internal/dubbing"
	"dubber/internal/language"
	"dubber/internal/services"
	"dubber/internal/services/tts"
	"dubber/internal/voices"
)

type voiceRow struct {
	ID        string   `json:"voice_id"`
	Name      string   `json:"name"`
	Languages []string `json:"languages"`
	Gender    string   `json:"gender,omitempty"`
	Age       string   `json:"age,omitempty"`
	Accent    string   `json:"accent,omitempty"`
}

func newVoicesCommand(ctx *commandContext) *cobra.Command {
	var lang string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "voices",
		Short: "List the synthesis voice catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			client := tts.NewClient(tts.Config{
				APIKey:         cfg.TTS.APIKey,
				BaseURL:        cfg.TTS.BaseURL,
				TimeoutSeconds: cfg.TTS.TimeoutSeconds,
			})
			sources := dubbing.VoiceSources(cfg, client)
			if len(sources) == 0 {
				return services.Wrap(services.ErrConfiguration, "voices", "catalog",
					"set tts.api_key or tts.voices_file", nil)
			}
			catalog, source, err := voices.Fetch(cmd.Context(), logger, sources...)
			if err != nil {
				return err
			}

			descs := catalog.All()
			if strings.TrimSpace(lang) != "" {
				code, err := language.Parse(lang)
				if err != nil {
					return err
				}
				descs = catalog.ForLanguage(code)
			}
			rows := make([]voiceRow, 0, len(descs))
			for _, d := range descs {
				langs := make([]string, 0, len(d.Languages))
				for _, l := range d.Languages {
					langs = append(langs, l.String())
				}
				rows = append(rows, voiceRow{
					ID:        d.ID,
					Name:      d.Name,
					Languages: langs,
					Gender:    d.Attr(voices.AttrGender),
					Age:       d.Attr(voices.AttrAge),
					Accent:    d.Attr(voices.AttrAccent),
				})
			}

			if jsonOutput {
				return writeJSON(cmd, rows)
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No voices match")
				return nil
			}
			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				table = append(table, []string{r.ID, r.Name, strings.Join(r.Languages, ","), r.Gender, r.Age, r.Accent})
			}
			fmt.Fprintln(out, renderTable(voiceColumns, table))
			fmt.Fprintf(out, "%d voices from %s catalog\n", len(rows), source)
			return nil
		},
	}

	cmd.Flags().StringVarP(&lang, "language", "l", "", "Only list voices supporting this language")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the catalog as JSON")
	return cmd
}
