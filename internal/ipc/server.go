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
	"time"

	"chemdrive/internal/daemon"
	"chemdrive/internal/logging"
	"chemdrive/internal/logs"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName("Chemdrive", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
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
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
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
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the socket file manually or rerun chemdrive stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func convertStatus(st daemon.Status) Status {
	return Status{
		Running:        st.Running,
		State:          st.State,
		Address:        st.Address,
		PID:            st.PID,
		SessionID:      st.SessionID,
		ConfigPath:     st.ConfigPath,
		ConfigName:     st.ConfigName,
		LastError:      st.LastError,
		LockPath:       st.LockPath,
		LogPath:        st.LogPath,
		ProjectsDBPath: st.ProjectsDBPath,
	}
}

func (s *service) Run(req RunRequest, resp *RunResponse) error {
	s.logger.Debug("server run requested", logging.String("config", req.ConfigPath))
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	status, err := s.daemon.RunServer(s.ctx, req.ConfigPath, req.TakeOver, wait)
	resp.Status = convertStatus(status)
	if err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "device server launched"
	s.logger.Info("device server launched via IPC",
		logging.String("config", req.ConfigPath))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("server stop requested")
	if err := s.daemon.StopServer(s.ctx); err != nil {
		resp.Stopped = false
		resp.Message = err.Error()
		return nil
	}
	resp.Stopped = true
	resp.Message = "device server stopped"
	s.logger.Info("device server stopped via IPC")
	return nil
}

func (s *service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	s.logger.Info("daemon shutdown requested via IPC")
	s.daemon.RequestShutdown()
	resp.ShuttingDown = true
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	resp.Status = convertStatus(s.daemon.Status())
	return nil
}

func (s *service) ProjectsList(req ProjectsListRequest, resp *ProjectsListResponse) error {
	records, err := s.daemon.ListProjects(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Projects = make([]Project, 0, len(records))
	for _, rec := range records {
		resp.Projects = append(resp.Projects, Project{
			Path:     rec.Path,
			Name:     rec.Name,
			LastUsed: rec.LastUsed,
		})
	}
	return nil
}

func (s *service) ProjectsRemove(req ProjectsRemoveRequest, resp *ProjectsRemoveResponse) error {
	if req.Path == "" {
		return errors.New("projects remove requires a path")
	}
	if err := s.daemon.RemoveProject(s.ctx, req.Path); err != nil {
		return err
	}
	resp.Removed = true
	return nil
}

func (s *service) ProjectsClear(_ ProjectsClearRequest, resp *ProjectsClearResponse) error {
	if err := s.daemon.ClearProjects(s.ctx); err != nil {
		return err
	}
	resp.Cleared = true
	return nil
}

func (s *service) ProjectsPrune(_ ProjectsPruneRequest, resp *ProjectsPruneResponse) error {
	pruned, err := s.daemon.PruneProjects(s.ctx)
	if err != nil {
		return err
	}
	resp.Pruned = pruned
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	result, err := logs.Tail(s.ctx, s.daemon.LogPath(), logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   time.Duration(req.WaitMillis) * time.Millisecond,
	})
	if err != nil {
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	if err != nil {
		return err
	}
	resp.Sent = sent
	resp.Message = message
	return nil
}
