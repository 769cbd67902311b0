package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"asamblea/internal/ipc"
)

func newRosterCommand(ctx *commandContext) *cobra.Command {
	var search string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "List the attendance roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Roster(search)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Entries)
				}
				out := cmd.OutOrStdout()
				if len(resp.Entries) == 0 {
					if strings.TrimSpace(search) != "" {
						fmt.Fprintf(out, "No hay socios que coincidan con %q\n", search)
					} else {
						fmt.Fprintln(out, "La lista de asistencia está vacía")
					}
					return nil
				}
				fmt.Fprintln(out, renderRosterTable(resp.Entries))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter by member id, name, or last name")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderRosterTable(entries []ipc.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.MemberID,
			e.Name,
			e.LastName,
			presenceMark(e.Present),
			string(e.Status),
			e.Justification,
		})
	}
	return renderTable(
		[]string{"Socio", "Nombre", "Apellido", "Presente", "Estado", "Justificación"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	)
}

func presenceMark(present bool) string {
	if present {
		return "[x]"
	}
	return "[ ]"
}

func newMarkCommand(ctx *commandContext) *cobra.Command {
	var present, absent bool
	var status, justification string
	cmd := &cobra.Command{
		Use:   "mark <member-id>",
		Short: "Mark a member present or absent by hand",
		Long: `Mark toggles a roster row. --present registers the member as PRESENTE
unless --status picks RETRASO or JUSTIFICADO; --absent always sends AUSENTE
and clears any justification.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if present == absent {
				return errors.New("choose exactly one of --present or --absent")
			}
			if absent && (status != "" || justification != "") {
				return errors.New("--status and --justification only apply with --present")
			}
			req := ipc.MarkRequest{
				MemberID:      strings.TrimSpace(args[0]),
				Present:       present,
				Status:        status,
				Justification: justification,
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Mark(req)
				if err != nil {
					return err
				}
				return reportRegistration(cmd, resp.OK, resp.Message, resp.Entry)
			})
		},
	}
	cmd.Flags().BoolVar(&present, "present", false, "Mark the member present")
	cmd.Flags().BoolVar(&absent, "absent", false, "Mark the member absent")
	cmd.Flags().StringVar(&status, "status", "", "Attendance status when present (PRESENTE, RETRASO, JUSTIFICADO)")
	cmd.Flags().StringVar(&justification, "justification", "", "Reason recorded with JUSTIFICADO")
	return cmd
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <code>",
		Short: "Register a credential code typed at the desk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Scan(args[0])
				if err != nil {
					return err
				}
				if resp.Suppressed {
					fmt.Fprintf(cmd.OutOrStdout(), "Lectura repetida de %s ignorada\n", resp.Identifier)
					return nil
				}
				return reportRegistration(cmd, resp.OK, resp.Message, resp.Entry)
			})
		},
	}
}

func reportRegistration(cmd *cobra.Command, ok bool, message string, entry *ipc.Entry) error {
	if !ok {
		if message == "" {
			message = "registration failed"
		}
		return errors.New(message)
	}
	out := cmd.OutOrStdout()
	if entry != nil {
		fmt.Fprintf(out, "%s %s: %s\n", entry.MemberID, entry.FullName(), entry.Status)
		return nil
	}
	fmt.Fprintln(out, message)
	return nil
}

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Reload today's meeting and roster from the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Refresh()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Lista actualizada: %d socios\n", resp.Entries)
				return nil
			})
		},
	}
}
