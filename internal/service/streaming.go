package service

import (
	"context"

	"github.com/tessro/cleandl/internal/daemon"
	"github.com/tessro/cleandl/internal/engine"
)

// handleAttach subscribes a client to outcome events.
func (s *Service) handleAttach(ctx context.Context, req *daemon.Request) *daemon.Response {
	var attachReq daemon.AttachRequest
	if req.Payload != nil {
		if err := unmarshalPayload(req.Payload, &attachReq); err != nil {
			return errorResponse(req, "invalid payload: "+err.Error())
		}
	}
	for _, state := range attachReq.States {
		if !knownState(state) {
			return errorResponse(req, "unknown state: "+state)
		}
	}

	conn := daemon.ConnFromContext(ctx)
	srv := daemon.ServerFromContext(ctx)
	encoder := daemon.EncoderFromContext(ctx)
	writeMu := daemon.WriteMuFromContext(ctx)

	if conn == nil || srv == nil || encoder == nil || writeMu == nil {
		return errorResponse(req, "internal error: missing connection context")
	}

	srv.Attach(conn, attachReq.States, encoder, writeMu)
	return successResponse(req, nil)
}

// handleDetach unsubscribes a client from outcome events.
func (s *Service) handleDetach(ctx context.Context, req *daemon.Request) *daemon.Response {
	conn := daemon.ConnFromContext(ctx)
	srv := daemon.ServerFromContext(ctx)

	if conn == nil || srv == nil {
		return errorResponse(req, "internal error: missing connection context")
	}

	srv.Detach(conn)
	return successResponse(req, nil)
}

// handleOutcome broadcasts engine outcomes to attached clients.
func (s *Service) handleOutcome(o engine.Outcome) {
	srv := s.Server()
	if srv == nil {
		return
	}
	srv.Broadcast(&daemon.StreamEvent{
		Type:    daemon.StreamEventOutcome,
		Outcome: outcomeInfo(o),
	})
}

func knownState(state string) bool {
	switch engine.State(state) {
	case engine.StateWatching, engine.StateDeleted, engine.StateFailed,
		engine.StateAbandoned, engine.StateSkipped:
		return true
	}
	return false
}
