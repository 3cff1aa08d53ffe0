// Package rpc exposes the relay operations over JSON-RPC.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"strings"
	"sync"

	"github.com/xiaot623/gogo/relay/internal/domain"
	"github.com/xiaot623/gogo/relay/internal/service"
)

// ServiceName is the name the handler is registered under.
const ServiceName = "Relay"

// Error codes carried as the prefix of RPC error strings.
const (
	codeNotFound         = "NOT_FOUND"
	codeInvalidInput     = "INVALID_INPUT"
	codeStoreUnavailable = "STORE_UNAVAILABLE"
	codeInternal         = "INTERNAL"
)

// Server serves the relay RPC endpoints.
type Server struct {
	rpcServer *rpc.Server

	mu       sync.Mutex
	listener net.Listener
	done     chan struct{}
}

// NewServer creates a new RPC server bound to the relay service.
func NewServer(svc *service.Service) (*Server, error) {
	rpcServer := rpc.NewServer()
	handler := &Handler{service: svc}
	if err := rpcServer.RegisterName(ServiceName, handler); err != nil {
		return nil, fmt.Errorf("register rpc handler: %w", err)
	}

	return &Server{
		rpcServer: rpcServer,
		done:      make(chan struct{}),
	}, nil
}

// Start begins accepting RPC connections on the given address.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				close(s.done)
				return nil
			}
			slog.Warn("rpc accept error", "error", err)
			continue
		}

		go s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(conn))
	}
}

// Shutdown stops accepting new RPC connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return nil
	}

	if err := ln.Close(); err != nil {
		return err
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handler implements the relay RPC methods.
type Handler struct {
	service *service.Service
}

// ListSessionsArgs bounds the listing; zero uses the server default.
type ListSessionsArgs struct {
	Limit int `json:"limit"`
}

// ListSessionsReply holds the listed sessions.
type ListSessionsReply struct {
	Sessions []domain.Session `json:"sessions"`
}

// SessionArgs identifies a session.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// CreateSession creates a session.
func (h *Handler) CreateSession(req *domain.CreateSessionRequest, resp *domain.Session) error {
	name := ""
	if req != nil {
		name = req.Name
	}
	session, err := h.service.CreateSession(context.Background(), name)
	if err != nil {
		return encodeError(err)
	}
	*resp = *session
	return nil
}

// ListSessions lists sessions, most recently active first.
func (h *Handler) ListSessions(req *ListSessionsArgs, resp *ListSessionsReply) error {
	limit := 0
	if req != nil {
		limit = req.Limit
	}
	sessions, err := h.service.ListSessions(context.Background(), limit)
	if err != nil {
		return encodeError(err)
	}
	resp.Sessions = sessions
	return nil
}

// GetSessionHistory returns a session with its messages.
func (h *Handler) GetSessionHistory(req *SessionArgs, resp *domain.ChatHistory) error {
	if req == nil {
		return encodeError(fmt.Errorf("%w: session_id is required", domain.ErrInvalidInput))
	}
	history, err := h.service.GetSessionHistory(context.Background(), req.SessionID)
	if err != nil {
		return encodeError(err)
	}
	*resp = *history
	return nil
}

// SendMessage runs one conversational turn.
func (h *Handler) SendMessage(req *domain.SendMessageRequest, resp *domain.SendMessageResponse) error {
	if req == nil {
		return encodeError(fmt.Errorf("%w: message request is required", domain.ErrInvalidInput))
	}
	result, err := h.service.SendMessage(context.Background(), *req)
	if err != nil {
		return encodeError(err)
	}
	*resp = *result
	return nil
}

// DeleteSession deletes a session and its messages.
func (h *Handler) DeleteSession(req *SessionArgs, resp *domain.DeleteSessionResponse) error {
	if req == nil {
		return encodeError(fmt.Errorf("%w: session_id is required", domain.ErrInvalidInput))
	}
	result, err := h.service.DeleteSession(context.Background(), req.SessionID)
	if err != nil {
		return encodeError(err)
	}
	*resp = *result
	return nil
}

// encodeError prefixes err with a code so clients can restore the sentinel.
func encodeError(err error) error {
	code := codeInternal
	switch {
	case errors.Is(err, domain.ErrNotFound):
		code = codeNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		code = codeInvalidInput
	case errors.Is(err, domain.ErrStoreUnavailable):
		code = codeStoreUnavailable
	}
	return fmt.Errorf("%s: %s", code, err.Error())
}

// DecodeError turns an error returned by a remote call back into an error
// wrapping the matching domain sentinel. Other errors are returned unchanged.
func DecodeError(err error) error {
	var serverErr rpc.ServerError
	if !errors.As(err, &serverErr) {
		return err
	}
	code, msg, ok := strings.Cut(string(serverErr), ": ")
	if !ok {
		return err
	}
	switch code {
	case codeNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	case codeInvalidInput:
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, msg)
	case codeStoreUnavailable:
		return fmt.Errorf("%w: %s", domain.ErrStoreUnavailable, msg)
	}
	return errors.New(msg)
}
