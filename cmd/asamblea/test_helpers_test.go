package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"asamblea/internal/backend"
	"asamblea/internal/camera"
	"asamblea/internal/config"
	"asamblea/internal/console"
	"asamblea/internal/ipc"
	"asamblea/internal/journal"
	"asamblea/internal/logging"
	"asamblea/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	backend    *testsupport.FakeBackend
	journal    *journal.Store
	console    *console.Console
	server     *ipc.Server
	socketPath string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	fb := testsupport.NewFakeBackend(t)
	fb.SetMeeting("m-7", time.Now().Add(-15*time.Minute), "IN_PROGRESS")
	fb.SetRoster(
		testsupport.Member{ID: "12", Name: "Rosa", LastName: "Mamani", Status: "AUSENTE"},
		testsupport.Member{ID: "4", Name: "Julio", LastName: "Quispe", Status: "AUSENTE"},
	)
	cfg := testsupport.NewConfig(t, testsupport.WithBackend(fb.URL()))

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenJournal(t, cfg)
	logger := logging.NewNop()
	probe := camera.NewProbe(camera.EnumeratorFunc(func(context.Context) ([]camera.Device, error) {
		return nil, nil
	}), logger)

	c, err := console.New(console.Options{
		Config:   cfg,
		Backend:  backend.NewFromConfig(cfg),
		Logger:   logger,
		Recorder: store,
		Probe:    probe,
	})
	if err != nil {
		t.Fatalf("console.New: %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("console.Start: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := ipc.NewServer(ctx, cfg.SocketPath(), c, c.Stop, logger)
	if err != nil {
		cancel()
		c.Stop()
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		c.Stop()
	})

	env := &cliTestEnv{
		cfg:        cfg,
		backend:    fb,
		journal:    store,
		console:    c,
		server:     srv,
		socketPath: cfg.SocketPath(),
		configPath: configPath,
	}
	waitFor(t, 3*time.Second, func() bool {
		out, _, err := runCLI(t, []string{"roster"}, env.socketPath, env.configPath)
		return err == nil && strings.Contains(out, "Mamani")
	})
	return env
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// writeStandaloneConfig writes a valid config for commands that do not need a
// running console.
func writeStandaloneConfig(t *testing.T) string {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, path, cfg)
	return path
}
