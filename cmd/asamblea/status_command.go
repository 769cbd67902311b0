package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"asamblea/internal/attendance"
	"asamblea/internal/ipc"
	"asamblea/internal/meeting"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show meeting phase, camera, and attendance counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				if status == nil {
					return errors.New("missing status response")
				}
				if asJSON {
					return writeJSON(cmd, status)
				}
				out := cmd.OutOrStdout()
				for _, line := range renderStatus(status, shouldColorize(out)) {
					fmt.Fprintln(out, line)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderStatus(status *ipc.StatusResponse, colorize bool) []string {
	lines := renderSectionHeader("Reunión", colorize)
	if status.Meeting == nil {
		lines = append(lines, renderStatusLine("Reunión", statusWarn, "sin reunión para hoy; use 'asamblea refresh'", colorize))
	} else {
		m := status.Meeting
		title := m.Title
		if m.Location != "" {
			title = fmt.Sprintf("%s (%s)", title, m.Location)
		}
		lines = append(lines,
			renderStatusLine("Reunión", statusInfo, title, colorize),
			renderStatusLine("Inicio", statusInfo, m.ScheduledStart.Local().Format("15:04"), colorize),
			renderStatusLine("Fase", phaseKind(status.Phase), phaseSummary(status), colorize),
		)
		if countdown := countdownLine(status); countdown != "" {
			lines = append(lines, renderStatusLine("Cuenta", statusInfo, countdown, colorize))
		}
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Escáner", colorize)...)
	camMsg := status.Camera
	if status.Device != "" {
		camMsg += " " + status.Device
	}
	if status.CameraReason != "" {
		camMsg += " (" + status.CameraReason + ")"
	}
	lines = append(lines, renderStatusLine("Cámara", cameraKind(status.Camera), camMsg, colorize))
	scanKind := statusInfo
	scanMsg := "detenido"
	if status.Scanning {
		scanKind = statusOK
		scanMsg = "escaneando"
		if status.SessionID != "" {
			scanMsg += " (sesión " + shortID(status.SessionID) + ")"
		}
	}
	lines = append(lines, renderStatusLine("Lectura QR", scanKind, scanMsg, colorize))
	if len(status.CoolingDown) > 0 {
		lines = append(lines, renderStatusLine("Enfriamiento", statusInfo, strings.Join(status.CoolingDown, ", "), colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Asistencia", colorize)...)
	rosterMsg := fmt.Sprintf("%d socios", status.RosterSize)
	if !status.RosterAt.IsZero() {
		rosterMsg += ", actualizada " + status.RosterAt.Local().Format("15:04:05")
	}
	lines = append(lines, renderStatusLine("Lista", statusInfo, rosterMsg, colorize))
	for _, s := range attendance.Statuses() {
		lines = append(lines, renderStatusLine(string(s), statusInfo, fmt.Sprintf("%d", status.Counts[string(s)]), colorize))
	}

	if len(status.Notices) > 0 {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("Avisos", colorize)...)
		for _, n := range status.Notices {
			lines = append(lines, renderStatusLine(n.At.Local().Format("15:04:05"), noticeKind(n.Level), n.Message, colorize))
		}
	}
	return lines
}

func phaseSummary(status *ipc.StatusResponse) string {
	label := status.PhaseLabel
	if label == "" {
		label = meeting.ParsePhase(status.Phase).Label()
	}
	summary := fmt.Sprintf("%s (%s)", label, status.Phase)
	if status.Confirmed != "" && status.Confirmed != status.Phase {
		summary += ", confirmada " + status.Confirmed
	}
	return summary
}

func countdownLine(status *ipc.StatusResponse) string {
	switch meeting.ParsePhase(status.Phase) {
	case meeting.PhaseScheduled:
		return "empieza en " + meeting.FormatCountdown(time.Duration(status.TimeToStartSeconds)*time.Second)
	case meeting.PhaseInProgress:
		return "termina en " + meeting.FormatCountdown(time.Duration(status.TimeToEndSeconds)*time.Second)
	default:
		return ""
	}
}

func shortID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func newNoticesCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "notices",
		Short: "Show recent console notices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Notices(limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Notices)
				}
				out := cmd.OutOrStdout()
				if len(resp.Notices) == 0 {
					fmt.Fprintln(out, "Sin avisos")
					return nil
				}
				colorize := shouldColorize(out)
				for _, n := range resp.Notices {
					fmt.Fprintln(out, renderStatusLine(n.At.Local().Format("15:04:05"), noticeKind(n.Level), n.Message, colorize))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", ipc.DefaultNoticeLimit, "Maximum notices to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
