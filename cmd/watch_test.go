package cmd

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/relay/internal/adapter/llm"
	"github.com/xiaot623/gogo/relay/internal/config"
	"github.com/xiaot623/gogo/relay/internal/domain"
	"github.com/xiaot623/gogo/relay/internal/hub"
	"github.com/xiaot623/gogo/relay/internal/service"
	relayhttp "github.com/xiaot623/gogo/relay/internal/transport/http"
	"github.com/xiaot623/gogo/relay/policy"
	"github.com/xiaot623/gogo/relay/tests/helpers"
)

func TestEventsURL(t *testing.T) {
	tests := []struct {
		base    string
		want    string
		wantErr bool
	}{
		{"http://localhost:8000", "ws://localhost:8000/api/chat/sessions/abc/events", false},
		{"https://relay.example.com/", "wss://relay.example.com/api/chat/sessions/abc/events", false},
		{"ws://127.0.0.1:9000/prefix", "ws://127.0.0.1:9000/prefix/api/chat/sessions/abc/events", false},
		{"ftp://localhost", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := eventsURL(tt.base, "abc")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWatchFollowsSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	c := config.Default()
	c.Store.URL = ":memory:"
	c.Generation.Provider = config.ProviderMock

	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	require.NoError(t, err)
	client := llm.NewClient(llm.NewMockBackend(), llm.Options{Model: llm.DefaultMockModel, Timeout: time.Second})

	eventHub := hub.New()
	go eventHub.Run(ctx)
	svc := service.New(helpers.NewTestSQLiteStore(t), client, c, engine, eventHub)

	srv := httptest.NewServer(relayhttp.NewServer(svc, eventHub))
	t.Cleanup(srv.Close)

	session, err := svc.CreateSession(ctx, "")
	require.NoError(t, err)

	w, err := dialWatcher(srv.URL, session.ID)
	require.NoError(t, err)
	defer w.Close()
	require.Eventually(t, func() bool { return eventHub.HasActiveConnections(session.ID) }, time.Second, 5*time.Millisecond)

	_, err = svc.SendMessage(ctx, domain.SendMessageRequest{SessionID: session.ID, Content: "watch me"})
	require.NoError(t, err)
	_, err = svc.DeleteSession(ctx, session.ID)
	require.NoError(t, err)

	var out bytes.Buffer
	runCtx, runCancel := context.WithTimeout(ctx, 2*time.Second)
	defer runCancel()
	require.NoError(t, w.Run(runCtx, &out))

	text := out.String()
	assert.Contains(t, text, "watch me")
	assert.Contains(t, text, "[MOCK]")
	assert.Contains(t, text, "session deleted")
}

func TestWatchUnknownSession(t *testing.T) {
	svc := newTestService(t)
	srv := httptest.NewServer(relayhttp.NewServer(svc, hub.New()))
	t.Cleanup(srv.Close)

	_, err := dialWatcher(srv.URL, "0b8f3f8e-3c55-4c1a-9d5e-3f0b5e1b2c3d")
	assert.ErrorContains(t, err, "status 404")
}

func TestPrintEvent(t *testing.T) {
	var out bytes.Buffer
	assert.False(t, printEvent(&out, domain.SessionEvent{Type: "mystery"}))
	assert.Contains(t, out.String(), "unknown event: mystery")
}
