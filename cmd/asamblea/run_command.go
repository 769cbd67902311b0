package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"asamblea/internal/backend"
	"asamblea/internal/console"
	"asamblea/internal/ipc"
	"asamblea/internal/journal"
	"asamblea/internal/logging"
	"asamblea/internal/notifications"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the meeting console in the foreground",
		Long: `Run loads today's meeting, probes for a camera, and keeps the meeting
phase in sync with the backend until interrupted or stopped with
'asamblea stop'. Other commands talk to it through the console socket.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(cmd.Context(), ctx)
		},
	}
}

func runConsole(cmdCtx context.Context, ctx *commandContext) error {
	if ctx == nil {
		return errors.New("command context is required")
	}
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseLogger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With(logging.String(logging.FieldRunID, uuid.NewString()))
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, "*.log", filepath.Join(cfg.Paths.LogDir, logging.LogFileName))

	store, err := journal.Open(cfg)
	if err != nil {
		logging.ErrorWithContext(logger, "open journal", "journal_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check state_dir permissions or remove a corrupt journal.db"),
		)
		return fmt.Errorf("open journal: %w", err)
	}
	defer store.Close()
	if cfg.Logging.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -cfg.Logging.RetentionDays)
		if pruned, err := store.Prune(signalCtx, cutoff); err != nil {
			logging.WarnWithContext(logger, "journal prune failed", "journal_prune_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the journal database in state_dir"),
				logging.String(logging.FieldImpact, "old journal rows remain"),
			)
		} else if pruned > 0 {
			logger.Info("journal pruned", logging.Int64("rows", pruned))
		}
	}

	c, err := console.New(console.Options{
		Config:   cfg,
		Backend:  backend.NewFromConfig(cfg),
		Logger:   logger,
		Notifier: notifications.NewService(cfg),
		Recorder: store,
	})
	if err != nil {
		return fmt.Errorf("create console: %w", err)
	}
	if err := c.Start(signalCtx); err != nil {
		if errors.Is(err, console.ErrLocked) {
			return fmt.Errorf("%w; use 'asamblea status' to inspect the running console", err)
		}
		return fmt.Errorf("start console: %w", err)
	}
	defer c.Stop()

	server, err := ipc.NewServer(signalCtx, cfg.SocketPath(), c, c.Stop, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer server.Close()
	server.Serve()

	logger.Info("asamblea console running",
		logging.String("socket", cfg.SocketPath()),
		logging.Int("pid", os.Getpid()),
	)

	select {
	case <-signalCtx.Done():
	case <-c.Done():
	}
	logger.Info("asamblea console shutting down")
	return nil
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running console",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop()
				if err != nil {
					return err
				}
				if resp != nil && resp.Stopped {
					fmt.Fprintln(cmd.OutOrStdout(), "Console stopping")
				}
				return nil
			})
		},
	}
}
