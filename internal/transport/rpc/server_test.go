package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/relay/internal/domain"
)

func TestErrorCodesRoundTrip(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{fmt.Errorf("session x: %w", domain.ErrNotFound), domain.ErrNotFound},
		{fmt.Errorf("%w: bad id", domain.ErrInvalidInput), domain.ErrInvalidInput},
		{fmt.Errorf("%w: create_session: disk I/O", domain.ErrStoreUnavailable), domain.ErrStoreUnavailable},
	}
	for _, tt := range tests {
		// net/rpc delivers server errors to the caller as rpc.ServerError.
		remote := rpc.ServerError(encodeError(tt.err).Error())
		decoded := DecodeError(remote)
		assert.ErrorIs(t, decoded, tt.want)
		assert.Contains(t, decoded.Error(), tt.err.Error())
	}

	internal := DecodeError(rpc.ServerError(encodeError(errors.New("boom")).Error()))
	assert.EqualError(t, internal, "boom")

	assert.NoError(t, DecodeError(nil))
	plain := errors.New("dial tcp: refused")
	assert.Equal(t, plain, DecodeError(plain))
}

func TestServerShutdown(t *testing.T) {
	srv, err := NewServer(nil)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	require.Eventually(t, func() bool {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		return srv.listener != nil
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-served)
}
