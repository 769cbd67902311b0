package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"asamblea/internal/camera"
	"asamblea/internal/config"
	"asamblea/internal/logging"
)

// cameraEnumerator is swapped in tests.
var cameraEnumerator camera.Enumerator = camera.UdevEnumerator{}

func newCamerasCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:         "cameras",
		Short:       "Probe for capture devices usable by the scanner",
		Annotations: withoutConfig(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.lenientConfig()
			probe := camera.NewProbe(cameraEnumerator, logging.NewNop(),
				camera.WithPreferredDevice(cfg.Scanner.Device),
				camera.WithTimeout(cfg.ProbeTimeout()),
			)
			result := probe.Run(cmd.Context())
			if asJSON {
				return writeJSON(cmd, result)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			msg := result.Availability.String()
			if result.Usable() {
				msg += " " + result.Selected.Path
			}
			if result.Reason != "" {
				msg += " (" + result.Reason + ")"
			}
			fmt.Fprintln(out, renderStatusLine("Cámara", cameraKind(result.Availability.String()), msg, colorize))
			if len(result.Devices) == 0 {
				return nil
			}
			fmt.Fprintln(out, renderDeviceTable(result))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderDeviceTable(result camera.ProbeResult) string {
	rows := make([][]string, 0, len(result.Devices))
	for _, d := range result.Devices {
		selected := ""
		if d.Path == result.Selected.Path {
			selected = "*"
		}
		rows = append(rows, []string{
			selected,
			d.Path,
			d.Label(),
			strconv.Itoa(d.Index),
			yesNo(d.Accessible),
		})
	}
	return renderTable(
		[]string{"", "Dispositivo", "Nombre", "Índice", "Acceso"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

// lenientConfig loads the config but falls back to defaults, so hardware
// checks still work before the backend section is filled in.
func (c *commandContext) lenientConfig() *config.Config {
	if cfg, err := c.loadConfig(); err == nil && cfg != nil {
		return cfg
	}
	cfg := config.Default()
	return &cfg
}
