package console

import (
	"context"
	"fmt"
	"strings"

	"asamblea/internal/attendance"
	"asamblea/internal/camera"
	"asamblea/internal/logging"
	"asamblea/internal/meeting"
	"asamblea/internal/notifications"
)

// initialProbe decides camera availability before the loop starts.
func (c *Console) initialProbe(ctx context.Context) {
	if !c.cfg.Scanner.Enabled {
		c.cam = camera.ProbeResult{Availability: camera.AvailabilityUnavailable, Reason: "scanner disabled in config"}
		c.camNotified = true
		return
	}
	c.applyProbe(c.probe.Run(ctx))
}

// onHotplug runs on the monitor goroutine.
func (c *Console) onHotplug(ev camera.HotplugEvent) {
	c.logger.Debug("camera hotplug",
		logging.String("action", ev.Action),
		logging.String(logging.FieldDevice, ev.Device),
	)
	go func() {
		res := c.probe.Run(c.baseCtx)
		c.post(func() { c.applyProbe(res) })
	}()
}

// applyProbe installs a probe result. A running session survives unless its
// device disappeared.
func (c *Console) applyProbe(res camera.ProbeResult) {
	if c.session != nil {
		if hasDevice(res.Devices, c.session.Device.Path) {
			return
		}
		c.stopScanner("camera removed")
	}

	prev := c.cam.Availability
	c.cam = res
	if res.Usable() {
		c.camNotified = false
		if prev == camera.AvailabilityUnavailable {
			c.notify(LevelInfo, "Cámara disponible: "+res.Selected.Label())
			c.publish(notifications.EventCameraAvailable, notifications.Payload{"device": res.Selected.Path})
		}
		c.reconcileScanner()
		return
	}
	c.cameraDown(res.Reason, res.Err)
}

// cameraDown switches to manual-only mode. The notice is shown once per outage.
func (c *Console) cameraDown(reason string, err error) {
	c.cam.Availability = camera.AvailabilityUnavailable
	if reason != "" {
		c.cam.Reason = reason
	}
	if err != nil {
		c.cam.Err = err
	}
	if c.camNotified {
		return
	}
	c.camNotified = true
	c.notify(LevelWarn, "Cámara no disponible ("+c.cam.Reason+"). Registro manual solamente.")
	logging.WarnWithContext(c.logger, "camera unavailable", "camera_unavailable",
		logging.String("reason", c.cam.Reason),
		logging.Error(c.cam.Err),
		logging.String(logging.FieldErrorHint, "connect a camera or mark members from the roster"),
		logging.String(logging.FieldImpact, "QR scanning disabled"),
	)
	c.publish(notifications.EventCameraUnavailable, notifications.Payload{"reason": c.cam.Reason})
}

func (c *Console) reconcileScanner() {
	want := c.meeting != nil && c.snapshot.Phase == meeting.PhaseInProgress && c.cam.Usable()
	switch {
	case want && c.session == nil:
		c.startScanner()
	case !want && c.session != nil:
		c.stopScanner("meeting not in progress")
	}
}

func (c *Console) startScanner() {
	device := c.cam.Selected
	gen := c.sessionGen + 1
	stop := make(chan struct{})

	onDecode := func(text string) {
		c.postUnless(func() {
			if c.sessionGen == gen && c.session != nil {
				c.handleDecode(text)
			}
		}, stop)
	}
	onError := func(err error) {
		c.postUnless(func() {
			if c.sessionGen != gen || c.session == nil {
				return
			}
			c.stopScanner("decoder failed")
			c.cameraDown(fmt.Sprintf("el lector de %s se detuvo", device.Path), err)
		}, stop)
	}

	session, err := camera.StartSession(c.baseCtx, c.cfg.LockDir(), device, c.opener, onDecode, onError, c.logger)
	if err != nil {
		close(stop)
		c.cameraDown(fmt.Sprintf("no se pudo abrir %s", device.Path), err)
		return
	}
	c.sessionGen = gen
	c.session = session
	c.sessionStop = stop
	c.debouncer.Reset()
	c.notify(LevelInfo, "Escáner activo en "+device.Label())
}

func (c *Console) stopScanner(reason string) {
	if c.session == nil {
		return
	}
	session := c.session
	c.session = nil
	close(c.sessionStop)
	c.sessionStop = nil
	c.debouncer.Reset()
	if err := session.Stop(); err != nil {
		logging.WarnWithContext(c.logger, "scan session stop failed", "scan_session_stop_failed",
			logging.String(logging.FieldSessionID, session.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "kill the decoder process if the camera stays busy"),
			logging.String(logging.FieldImpact, "camera may stay locked until restart"),
		)
	}
	c.logger.Info("scanner stopped",
		logging.String(logging.FieldEventType, "scanner_stopped"),
		logging.String("reason", reason),
	)
}

// handleDecode feeds a camera decode through the debouncer.
func (c *Console) handleDecode(text string) {
	c.submitScan(text, nil)
}

// submitScan is the shared path for camera decodes and typed codes.
func (c *Console) submitScan(text string, reply chan<- registrationOutcome) {
	id := strings.TrimSpace(text)
	if id == "" {
		if reply != nil {
			reply <- registrationOutcome{result: attendance.Result{Source: attendance.SourceScan, Message: "Código vacío", Err: ErrEmptyCode}}
		}
		return
	}
	if c.meeting == nil {
		if reply != nil {
			reply <- registrationOutcome{result: attendance.Result{Source: attendance.SourceScan, Identifier: id, Message: "No hay asamblea cargada", Err: ErrNoMeeting}}
		}
		return
	}
	if !c.debouncer.Admit(id) {
		c.logger.Debug("duplicate scan suppressed", logging.String(logging.FieldIdentifier, id))
		if reply != nil {
			reply <- registrationOutcome{suppressed: true, result: attendance.Result{Source: attendance.SourceScan, Identifier: id}}
		}
		return
	}
	meetingID := c.meeting.ID
	now := c.clock.Now()
	c.register(meetingID, id, func(ctx context.Context) attendance.Result {
		return c.registrar.Scan(ctx, id, meetingID, now)
	}, reply)
}

func hasDevice(devices []camera.Device, path string) bool {
	for _, d := range devices {
		if d.Path == path {
			return true
		}
	}
	return false
}
