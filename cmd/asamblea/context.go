package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"asamblea/internal/config"
	"asamblea/internal/ipc"
)

// errConsoleUnreachable marks every failure to reach a console over its socket.
var errConsoleUnreachable = errors.New("console unreachable")

// noConfigAnnotation marks commands that must run without a valid config file.
const noConfigAnnotation = "asamblea.no-config"

func withoutConfig() map[string]string {
	return map[string]string{noConfigAnnotation: "true"}
}

// commandContext holds the persistent flags and the config resolved from them.
// The config is loaded at most once per invocation.
type commandContext struct {
	socket     string
	configFile string

	loaded bool
	cfg    *config.Config
	err    error
}

func (c *commandContext) bindFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&c.socket, "socket", "", "Path to the console socket")
	cmd.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "Configuration file path")
}

func (c *commandContext) configPath() string {
	return strings.TrimSpace(c.configFile)
}

func (c *commandContext) loadConfig() (*config.Config, error) {
	if c.loaded {
		return c.cfg, c.err
	}
	c.loaded = true
	cfg, _, _, err := config.Load(c.configPath())
	if err == nil {
		err = cfg.EnsureDirectories()
	}
	if err != nil {
		c.err = err
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// socketPath prefers --socket, then the configured state dir.
func (c *commandContext) socketPath() string {
	if socket := strings.TrimSpace(c.socket); socket != "" {
		return socket
	}
	if cfg, err := c.loadConfig(); err == nil {
		return cfg.SocketPath()
	}
	return defaultSocketPath()
}

func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	socket := c.socketPath()
	client, err := ipc.Dial(socket)
	if err != nil {
		return &dialError{socket: socket, err: err}
	}
	defer client.Close()
	return fn(client)
}

// dialError explains why no console answered on socket.
type dialError struct {
	socket string
	err    error
}

func (e *dialError) Error() string {
	switch {
	case errors.Is(e.err, syscall.ENOENT), errors.Is(e.err, fs.ErrNotExist):
		return fmt.Sprintf("no console listening: %s does not exist; start one with `asamblea run`", e.socket)
	case errors.Is(e.err, syscall.ECONNREFUSED):
		return fmt.Sprintf("no console listening: %s refused the connection; the console may have exited, start it again with `asamblea run`", e.socket)
	default:
		return fmt.Sprintf("connect to console at %s: %v", e.socket, e.err)
	}
}

func (e *dialError) Unwrap() []error { return []error{errConsoleUnreachable, e.err} }

func defaultSocketPath() string {
	stateDir, err := config.ExpandPath("~/.local/share/asamblea")
	if err != nil {
		return filepath.Join(os.TempDir(), "asamblea.sock")
	}
	return filepath.Join(stateDir, "asamblea.sock")
}

func skipsConfig(cmd *cobra.Command) bool {
	for ; cmd != nil; cmd = cmd.Parent() {
		if cmd.Annotations[noConfigAnnotation] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "sí"
	}
	return "no"
}
