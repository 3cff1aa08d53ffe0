// Package relayclient is a JSON-RPC client of a running relay.
package relayclient

import (
	"context"
	"fmt"
	"net"
	"net/rpc/jsonrpc"
	"net/url"
	"strings"
	"time"

	"github.com/xiaot623/gogo/relay/internal/domain"
	relayrpc "github.com/xiaot623/gogo/relay/internal/transport/rpc"
)

// Client calls the relay RPC endpoints. Each call uses its own connection.
type Client struct {
	addr        string
	dialTimeout time.Duration
	callTimeout time.Duration
}

// NewClient creates a client for addr ("host:port" or a URL whose host is used).
// callTimeout bounds calls whose context has no deadline.
func NewClient(addr string, callTimeout time.Duration) *Client {
	return &Client{
		addr:        resolveRPCAddr(addr),
		dialTimeout: 5 * time.Second,
		callTimeout: callTimeout,
	}
}

// Addr returns the resolved RPC address.
func (c *Client) Addr() string {
	return c.addr
}

// CreateSession creates a session on the relay.
func (c *Client) CreateSession(ctx context.Context, name string) (*domain.Session, error) {
	var resp domain.Session
	if err := c.call(ctx, "CreateSession", &domain.CreateSessionRequest{Name: name}, &resp); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &resp, nil
}

// ListSessions lists sessions, most recently active first.
func (c *Client) ListSessions(ctx context.Context, limit int) ([]domain.Session, error) {
	var resp relayrpc.ListSessionsReply
	if err := c.call(ctx, "ListSessions", &relayrpc.ListSessionsArgs{Limit: limit}, &resp); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return resp.Sessions, nil
}

// GetSessionHistory returns a session with its messages.
func (c *Client) GetSessionHistory(ctx context.Context, sessionID string) (*domain.ChatHistory, error) {
	var resp domain.ChatHistory
	if err := c.call(ctx, "GetSessionHistory", &relayrpc.SessionArgs{SessionID: sessionID}, &resp); err != nil {
		return nil, fmt.Errorf("failed to get session history: %w", err)
	}
	return &resp, nil
}

// SendMessage runs one turn on the relay.
func (c *Client) SendMessage(ctx context.Context, req domain.SendMessageRequest) (*domain.SendMessageResponse, error) {
	var resp domain.SendMessageResponse
	if err := c.call(ctx, "SendMessage", &req, &resp); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return &resp, nil
}

// DeleteSession deletes a session on the relay.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) (*domain.DeleteSessionResponse, error) {
	var resp domain.DeleteSessionResponse
	if err := c.call(ctx, "DeleteSession", &relayrpc.SessionArgs{SessionID: sessionID}, &resp); err != nil {
		return nil, fmt.Errorf("failed to delete session: %w", err)
	}
	return &resp, nil
}

func (c *Client) call(ctx context.Context, method string, args, reply interface{}) error {
	conn, err := net.DialTimeout("tcp", c.addr, c.dialTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else if c.callTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(c.callTimeout))
	}

	client := jsonrpc.NewClient(conn)
	call := client.Go(relayrpc.ServiceName+"."+method, args, reply, nil)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-call.Done:
		return relayrpc.DecodeError(call.Error)
	}
}

func resolveRPCAddr(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "://") {
		parsed, err := url.Parse(raw)
		if err == nil && parsed.Host != "" {
			return parsed.Host
		}
	}
	return raw
}
