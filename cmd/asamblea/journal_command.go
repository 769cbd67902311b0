package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"asamblea/internal/journal"
)

func newJournalCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recent backend calls recorded by the console",
		Long: `Journal reads the local call journal directly, so it works whether or
not the console is running. Rows are listed newest first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			store, err := journal.Open(cfg)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, records)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "El diario está vacío")
				return nil
			}
			fmt.Fprintln(out, renderJournalTable(records))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", journal.DefaultListLimit, "Maximum rows to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderJournalTable(records []journal.Record) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		result := "OK"
		if !r.OK {
			result = "FALLO"
		}
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			string(r.Kind),
			r.MeetingID,
			r.Identifier,
			result,
			strconv.FormatInt(r.Duration.Milliseconds(), 10),
			r.Message,
		})
	}
	return renderTable(
		[]string{"ID", "Fecha", "Tipo", "Reunión", "Socio", "Resultado", "ms", "Mensaje"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}
