package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"asamblea/internal/attendance"
	"asamblea/internal/console"
	"asamblea/internal/logging"
)

// serviceName prefixes every RPC method.
const serviceName = "Asamblea"

// Controller is the console surface exposed over IPC.
type Controller interface {
	Status(ctx context.Context) (console.Status, error)
	Roster(ctx context.Context, query string) ([]attendance.Entry, error)
	Mark(ctx context.Context, mark attendance.Mark) (attendance.Result, error)
	Scan(ctx context.Context, code string) (console.ScanOutcome, error)
	Refresh(ctx context.Context) (int, error)
	Notices(ctx context.Context, n int) ([]console.Notice, error)
}

// Server exposes console control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path. stop, when
// set, is invoked asynchronously by the Stop RPC.
func NewServer(ctx context.Context, path string, ctrl Controller, stop func(), logger *slog.Logger) (*Server, error) {
	if ctrl == nil {
		return nil, errors.New("ipc server requires a console")
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	srv := &service{ctrl: ctrl, stop: stop, logger: logger, ctx: serverCtx}
	if err := rpcServer.RegisterName(serviceName, srv); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "CLI commands may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the console if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
}

type service struct {
	ctrl   Controller
	stop   func()
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	st, err := s.ctrl.Status(s.ctx)
	if err != nil {
		return err
	}
	*resp = statusFromConsole(st)
	resp.PID = os.Getpid()
	return nil
}

func (s *service) Roster(req RosterRequest, resp *RosterResponse) error {
	entries, err := s.ctrl.Roster(s.ctx, req.Query)
	if err != nil {
		return err
	}
	resp.Entries = entries
	if resp.Entries == nil {
		resp.Entries = []Entry{}
	}
	return nil
}

func (s *service) Mark(req MarkRequest, resp *MarkResponse) error {
	mark := attendance.Mark{
		MemberID:      req.MemberID,
		Present:       req.Present,
		Justification: req.Justification,
	}
	if req.Status != "" {
		status, err := attendance.ParseStatus(req.Status)
		if err != nil {
			return err
		}
		mark.Status = status
	}
	s.logger.Debug("manual mark requested",
		logging.String(logging.FieldMemberID, req.MemberID),
		logging.Bool("present", req.Present))
	res, err := s.ctrl.Mark(s.ctx, mark)
	if err != nil {
		return err
	}
	resp.OK = res.OK
	resp.Message = res.Message
	if res.OK {
		entry := res.Entry
		resp.Entry = &entry
	}
	return nil
}

func (s *service) Scan(req ScanRequest, resp *ScanResponse) error {
	out, err := s.ctrl.Scan(s.ctx, req.Code)
	if err != nil {
		return err
	}
	resp.Identifier = out.Identifier
	resp.Suppressed = out.Suppressed
	resp.OK = out.Result.OK
	resp.Message = out.Result.Message
	if out.Result.OK {
		entry := out.Result.Entry
		resp.Entry = &entry
	}
	return nil
}

func (s *service) Refresh(_ RefreshRequest, resp *RefreshResponse) error {
	n, err := s.ctrl.Refresh(s.ctx)
	if err != nil {
		return err
	}
	resp.Entries = n
	return nil
}

func (s *service) Notices(req NoticesRequest, resp *NoticesResponse) error {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultNoticeLimit
	}
	notices, err := s.ctrl.Notices(s.ctx, limit)
	if err != nil {
		return err
	}
	resp.Notices = make([]Notice, 0, len(notices))
	for _, n := range notices {
		resp.Notices = append(resp.Notices, Notice{At: n.At, Level: string(n.Level), Message: n.Message})
	}
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	if s.stop == nil {
		return errors.New("stop not supported")
	}
	s.logger.Info("console stop requested via IPC",
		logging.String(logging.FieldEventType, "console_stop_requested"))
	go s.stop()
	resp.Stopped = true
	return nil
}

func statusFromConsole(st console.Status) StatusResponse {
	resp := StatusResponse{
		Running:            st.Running,
		StartedAt:          st.StartedAt,
		Now:                st.Now,
		Phase:              st.Phase.String(),
		PhaseLabel:         st.Phase.Label(),
		Confirmed:          st.Confirmed.String(),
		TimeToStartSeconds: int64(st.TimeToStart.Seconds()),
		TimeToEndSeconds:   int64(st.TimeToEnd.Seconds()),
		Camera:             st.Camera.String(),
		CameraReason:       st.CameraReason,
		Device:             st.Device,
		Scanning:           st.Scanning,
		SessionID:          st.SessionID,
		CoolingDown:        st.CoolingDown,
		RosterSize:         st.RosterSize,
		RosterAt:           st.RosterAt,
		Counts:             make(map[string]int, len(st.Counts)),
		Notices:            make([]Notice, 0, len(st.Notices)),
	}
	if st.Meeting != nil {
		resp.Meeting = &MeetingInfo{
			ID:             st.Meeting.ID,
			Title:          st.Meeting.Title(),
			Location:       st.Meeting.Location,
			ScheduledStart: st.Meeting.ScheduledStart,
		}
	}
	for status, n := range st.Counts {
		resp.Counts[string(status)] = n
	}
	for _, n := range st.Notices {
		resp.Notices = append(resp.Notices, Notice{At: n.At, Level: string(n.Level), Message: n.Message})
	}
	return resp
}
