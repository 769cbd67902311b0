package camera

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"asamblea/internal/logging"
)

// Stream is an open decode stream.
type Stream interface {
	Close() error
}

// Opener starts decoding frames from a device. onDecode receives each decoded
// text; onError receives the terminal error if the stream dies on its own.
// Neither callback is invoked after Close returns.
type Opener interface {
	Open(ctx context.Context, device Device, onDecode func(string), onError func(error)) (Stream, error)
}

// CommandOpener runs an external decoder (zbarcam by default) that prints one
// decoded payload per line.
type CommandOpener struct {
	// Template is split on spaces; {device} is replaced with the device path.
	Template string
	// StartupGrace is how long the process must survive to count as opened.
	StartupGrace time.Duration
	Logger       *slog.Logger
}

// Open launches the decoder process.
func (o CommandOpener) Open(ctx context.Context, device Device, onDecode func(string), onError func(error)) (Stream, error) {
	args := strings.Fields(o.Template)
	if len(args) == 0 {
		return nil, errors.New("decoder command is empty")
	}
	for i, arg := range args {
		args[i] = strings.ReplaceAll(arg, "{device}", device.Path)
	}
	logger := logging.NewComponentLogger(o.Logger, "decoder")

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = 2 * time.Second
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("decoder stdout: %w", err)
	}
	var stderr strings.Builder
	cmd.Stderr = &limitedWriter{w: &stderr, remaining: 4096}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start decoder %s: %w", args[0], err)
	}

	s := &commandStream{cancel: cancel, done: make(chan struct{})}
	exited := make(chan error, 1)
	opened := make(chan bool, 1)

	go func() {
		readErr := readDecodedLines(stdout, maxDecodedLine, func(line string) {
			text := strings.TrimSpace(strings.TrimPrefix(line, "QR-Code:"))
			if text == "" || s.isClosed() {
				return
			}
			onDecode(text)
		})
		if readErr != nil {
			cancel()
		}
		waitErr := cmd.Wait()
		if readErr != nil {
			waitErr = fmt.Errorf("read decoder output: %w", readErr)
		}
		exited <- waitErr
		close(s.done)
		if !<-opened || s.isClosed() {
			return
		}
		if waitErr == nil {
			waitErr = errors.New("decoder exited")
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			waitErr = fmt.Errorf("%w: %s", waitErr, msg)
		}
		logger.Debug("decoder stopped", logging.Error(waitErr), logging.String(logging.FieldDevice, device.Path))
		if onError != nil {
			onError(waitErr)
		}
	}()

	grace := o.StartupGrace
	if grace <= 0 {
		grace = 500 * time.Millisecond
	}
	select {
	case err := <-exited:
		opened <- false
		s.markClosed()
		if err == nil {
			err = errors.New("decoder exited immediately")
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		cancel()
		return nil, fmt.Errorf("open stream on %s: %w", device.Path, err)
	case <-time.After(grace):
		opened <- true
	}
	return s, nil
}

// maxDecodedLine bounds one line of decoder output. Longer lines are dropped.
const maxDecodedLine = 64 << 10

// readDecodedLines calls fn for every line of r until EOF. Lines longer than
// limit are skipped whole so the decoder's pipe keeps draining.
func readDecodedLines(r io.Reader, limit int, fn func(string)) error {
	reader := bufio.NewReaderSize(r, limit)
	oversized := false
	for {
		line, err := reader.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			oversized = true
			continue
		}
		if len(line) > 0 {
			if !oversized {
				fn(strings.TrimRight(string(line), "\r\n"))
			}
			oversized = false
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

type commandStream struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

func (s *commandStream) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *commandStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops the decoder and waits for it to exit.
func (s *commandStream) Close() error {
	s.markClosed()
	s.cancel()
	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
		return errors.New("decoder did not exit")
	}
	return nil
}

type limitedWriter struct {
	w         io.Writer
	remaining int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if l.remaining <= 0 {
		return n, nil
	}
	if len(p) > l.remaining {
		p = p[:l.remaining]
	}
	l.remaining -= len(p)
	if _, err := l.w.Write(p); err != nil {
		return 0, err
	}
	return n, nil
}
