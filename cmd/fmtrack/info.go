package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fmtrack/fmtrack"
	"github.com/fmtrack/fmtrack/report"
)

var infoFlags struct {
	format    string
	templates string
	render    bool
}

var infoCmd = &cobra.Command{
	Use:   "info <song|dir>...",
	Short: "Summarize songs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r *report.Reporter
		var err error
		if infoFlags.templates != "" {
			r, err = report.NewFromTemplates(infoFlags.templates)
		} else {
			r, err = report.New()
		}
		if err != nil {
			return err
		}
		files, err := songFiles(args)
		if err != nil {
			return err
		}
		return forEachFile(files, func(file string) error {
			song, err := readSong(file)
			if err != nil {
				return err
			}
			var audio fmtrack.AudioBuffer
			if infoFlags.render {
				if audio, err = newRenderer().Render(cmd.Context(), song); err != nil {
					return err
				}
			}
			name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
			out, err := r.Song(infoFlags.format, name, song, audio)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		})
	},
}

func init() {
	infoCmd.Flags().StringVarP(&infoFlags.format, "format", "f", "text", "Report format: text, markdown, or the name of a custom template")
	infoCmd.Flags().StringVar(&infoFlags.templates, "templates", "", "Directory of custom *.tmpl report templates")
	infoCmd.Flags().BoolVarP(&infoFlags.render, "render", "r", false, "Render the songs and include their peak level")
}
