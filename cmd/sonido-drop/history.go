package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-drop/store"
)

func (a *app) newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show previously recorded reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.v.GetString("db")
			if path == "" {
				return fmt.Errorf("--db is required")
			}
			format, err := parseFormat(a.v.GetString("format"))
			if err != nil {
				return err
			}

			s, err := store.Open(path)
			if err != nil {
				return err
			}
			defer s.Close()

			var records []store.Record
			if source, _ := cmd.Flags().GetString("source"); source != "" {
				records, err = s.BySource(cmd.Context(), source)
			} else {
				limit, _ := cmd.Flags().GetInt("limit")
				records, err = s.List(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			return writeHistory(cmd.OutOrStdout(), format, records)
		},
	}

	flags := cmd.Flags()
	flags.String("db", "", "sqlite file holding recorded reports")
	flags.Int("limit", 20, "number of reports to show, 0 for all")
	flags.String("source", "", "only show reports of this file")
	flags.StringP("format", "f", "text", "output format: text, json or yaml")

	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		a.bindFlags(cmd, map[string]string{
			"db":     "db",
			"format": "format",
		}, false)
	}

	return cmd
}
