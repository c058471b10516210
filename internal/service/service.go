// Package service provides the daemon request handler for cleandl.
package service

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/tessro/cleandl/internal/config"
	"github.com/tessro/cleandl/internal/daemon"
	"github.com/tessro/cleandl/internal/engine"
	"github.com/tessro/cleandl/internal/version"
)

// Version is the daemon version.
var Version = version.Version

// RecentLimit is how many recent outcomes a status response carries.
const RecentLimit = 20

// Service handles IPC requests against a running engine.
// It implements the daemon.Handler interface.
type Service struct {
	engine    *engine.Engine
	settings  config.Settings
	startedAt time.Time

	shutdownCh   chan struct{} // Closed once a shutdown is requested
	shutdownOnce sync.Once

	unsubscribe func()

	// +checklocks:mu
	server *daemon.Server // Server reference for broadcasting outcomes

	mu sync.RWMutex
}

// New creates a Service for eng. settings is reported back in status
// responses.
func New(eng *engine.Engine, settings config.Settings) *Service {
	s := &Service{
		engine:     eng,
		settings:   settings,
		startedAt:  time.Now(),
		shutdownCh: make(chan struct{}),
	}
	s.unsubscribe = eng.OnOutcome(s.handleOutcome)
	return s
}

// Handle processes IPC requests and returns responses.
// Implements daemon.Handler.
func (s *Service) Handle(ctx context.Context, req *daemon.Request) *daemon.Response {
	slog.Debug("service handling request", "type", req.Type)
	switch req.Type {
	case daemon.MsgPing:
		return s.handlePing(ctx, req)
	case daemon.MsgShutdown:
		return s.handleShutdown(ctx, req)
	case daemon.MsgStatus:
		return s.handleStatus(ctx, req)

	case daemon.MsgAttach:
		return s.handleAttach(ctx, req)
	case daemon.MsgDetach:
		return s.handleDetach(ctx, req)

	default:
		return errorResponse(req, "unknown request type: "+string(req.Type))
	}
}

// ShutdownCh returns a channel that is closed when a shutdown is requested.
func (s *Service) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

// RequestShutdown closes the shutdown channel. It is safe to call more than
// once.
func (s *Service) RequestShutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })
}

// StartedAt returns when the service was created.
func (s *Service) StartedAt() time.Time {
	return s.startedAt
}

// SetServer sets the daemon server used to broadcast outcomes.
func (s *Service) SetServer(srv *daemon.Server) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.server = srv
}

// Server returns the daemon server, or nil if not set.
func (s *Service) Server() *daemon.Server {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.server
}

// Close stops forwarding engine outcomes.
func (s *Service) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *Service) handlePing(ctx context.Context, req *daemon.Request) *daemon.Response {
	uptime := time.Since(s.startedAt)
	return successResponse(req, daemon.PingResponse{
		Version:   Version,
		Uptime:    uptime.Round(time.Second).String(),
		StartedAt: s.startedAt,
	})
}

// handleShutdown asks the daemon to drain and exit. The caller owning the
// engine watches ShutdownCh.
func (s *Service) handleShutdown(ctx context.Context, req *daemon.Request) *daemon.Response {
	slog.Info("shutdown requested over ipc")
	s.RequestShutdown()
	return successResponse(req, nil)
}

func (s *Service) handleStatus(ctx context.Context, req *daemon.Request) *daemon.Response {
	st := s.engine.Status()

	tracked := make([]daemon.TrackedStatus, 0, len(st.Tracked))
	for _, p := range st.Tracked {
		tracked = append(tracked, daemon.TrackedStatus{
			PID:   p.File.PID,
			Name:  p.Name,
			Path:  p.File.Path,
			Since: p.RegisteredAt,
		})
	}

	recent := s.engine.Recent(RecentLimit)
	outcomes := make([]daemon.OutcomeInfo, 0, len(recent))
	for _, o := range recent {
		outcomes = append(outcomes, outcomeInfo(o))
	}

	return successResponse(req, daemon.StatusResponse{
		Daemon: daemon.DaemonStatus{
			Running:   true,
			PID:       os.Getpid(),
			StartedAt: s.startedAt,
			Version:   Version,
		},
		Engine: daemon.EngineStatus{
			Running:              st.Running,
			WatchFolder:          st.WatchFolder,
			DeleteMode:           st.Mode.String(),
			FallbackToPermanent:  s.settings.FallbackToPermanent,
			BufferedTerminations: st.BufferedTerminations,
		},
		Tracked: tracked,
		Recent:  outcomes,
	})
}

// outcomeInfo converts an engine outcome to its wire form.
func outcomeInfo(o engine.Outcome) daemon.OutcomeInfo {
	info := daemon.OutcomeInfo{
		PID:   o.PID,
		Name:  o.Name,
		Path:  o.Path,
		State: string(o.State),
		Error: o.ErrorString(),
		At:    o.At,
	}
	if o.State == engine.StateDeleted || o.State == engine.StateFailed {
		info.Mode = o.Mode.String()
	}
	return info
}
