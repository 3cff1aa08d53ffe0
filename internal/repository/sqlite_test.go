package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaot623/gogo/relay/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// frozenClock makes every write land on the same instant so ordering falls
// back to insertion order.
func frozenClock(s *SQLiteStore) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return at }
}

func TestSQLiteStoreSessionDefaults(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	session, err := store.CreateSession(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSessionName, session.Name)
	assert.NotEmpty(t, session.ID)
	assert.False(t, session.UpdatedAt.Before(session.CreatedAt))

	named, err := store.CreateSession(ctx, "Trip planning")
	require.NoError(t, err)
	assert.Equal(t, "Trip planning", named.Name)

	got, err := store.GetSession(ctx, named.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, named.ID, got.ID)
	assert.Equal(t, "Trip planning", got.Name)
	assert.True(t, got.CreatedAt.Equal(named.CreatedAt))
}

func TestSQLiteStoreGetSessionAbsent(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetSession(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStoreMessageRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	session, err := store.CreateSession(ctx, "")
	require.NoError(t, err)

	msg, err := store.CreateMessage(ctx, session.ID, domain.RoleAssistant, "héllo wörld")
	require.NoError(t, err)

	got, err := store.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "héllo wörld", got.Content)
	assert.Equal(t, domain.RoleAssistant, got.Role)
	assert.Equal(t, session.ID, got.SessionID)
}

func TestSQLiteStoreCreateMessageUnknownSession(t *testing.T) {
	store := newTestStore(t)

	_, err := store.CreateMessage(context.Background(), "missing", domain.RoleUser, "hi")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound), "expected ErrNotFound, got %v", err)
}

func TestSQLiteStoreCreateMessageRejectsUnknownRole(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	session, err := store.CreateSession(ctx, "")
	require.NoError(t, err)

	_, err = store.CreateMessage(ctx, session.ID, domain.Role("system"), "hi")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSQLiteStoreListMessagesAscending(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	session, err := store.CreateSession(ctx, "")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := store.CreateMessage(ctx, session.ID, domain.RoleUser, string(rune('a'+i)))
		require.NoError(t, err)
	}

	messages, err := store.ListMessagesAscending(ctx, session.ID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 5)
	for i := 1; i < len(messages); i++ {
		assert.False(t, messages[i].CreatedAt.Before(messages[i-1].CreatedAt))
	}
	assert.Equal(t, "a", messages[0].Content)
	assert.Equal(t, "e", messages[4].Content)

	limited, err := store.ListMessagesAscending(ctx, session.ID, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "a", limited[0].Content)
	assert.Equal(t, "b", limited[1].Content)
}

func TestSQLiteStoreTiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	frozenClock(store)

	session, err := store.CreateSession(ctx, "")
	require.NoError(t, err)
	for _, c := range []string{"first", "second", "third"} {
		_, err := store.CreateMessage(ctx, session.ID, domain.RoleUser, c)
		require.NoError(t, err)
	}

	all, err := store.ListMessagesAscending(ctx, session.ID, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"first", "second", "third"}, contents(all))

	recent, err := store.ListRecentMessagesAscending(ctx, session.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "third"}, contents(recent))
}

func TestSQLiteStoreListRecentMessagesAscending(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	session, err := store.CreateSession(ctx, "")
	require.NoError(t, err)

	var want []string
	for i := 0; i < 30; i++ {
		content := time.Duration(i).String()
		_, err := store.CreateMessage(ctx, session.ID, domain.RoleUser, content)
		require.NoError(t, err)
		if i >= 20 {
			want = append(want, content)
		}
	}

	recent, err := store.ListRecentMessagesAscending(ctx, session.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, want, contents(recent))
}

func TestSQLiteStoreTouchSessionStrictlyIncreases(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	frozenClock(store)

	session, err := store.CreateSession(ctx, "")
	require.NoError(t, err)

	prev := session.UpdatedAt
	for i := 0; i < 3; i++ {
		require.NoError(t, store.TouchSession(ctx, session.ID))
		got, err := store.GetSession(ctx, session.ID)
		require.NoError(t, err)
		assert.True(t, got.UpdatedAt.After(prev), "updated_at did not advance: %v <= %v", got.UpdatedAt, prev)
		assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
		prev = got.UpdatedAt
	}
}

func TestSQLiteStoreTouchSessionAbsent(t *testing.T) {
	store := newTestStore(t)

	err := store.TouchSession(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteStoreListSessionsOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	var ids []string
	for i := 0; i < 3; i++ {
		s, err := store.CreateSession(ctx, "")
		require.NoError(t, err)
		ids = append(ids, s.ID)
	}
	// The oldest session becomes the most recently active.
	require.NoError(t, store.TouchSession(ctx, ids[0]))

	sessions, err := store.ListSessions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, ids[0], sessions[0].ID)
	for i := 1; i < len(sessions); i++ {
		assert.False(t, sessions[i].UpdatedAt.After(sessions[i-1].UpdatedAt))
	}

	limited, err := store.ListSessions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteStoreDeleteSessionCascades(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	session, err := store.CreateSession(ctx, "")
	require.NoError(t, err)
	msg, err := store.CreateMessage(ctx, session.ID, domain.RoleUser, "hi")
	require.NoError(t, err)

	require.NoError(t, store.DeleteSession(ctx, session.ID))

	got, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	messages, err := store.ListMessagesAscending(ctx, session.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, messages)

	orphan, err := store.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Nil(t, orphan)

	// Deleting again is not an error.
	assert.NoError(t, store.DeleteSession(ctx, session.ID))
}

func TestSQLiteStoreModerncDriver(t *testing.T) {
	ctx := context.Background()
	store, err := Open(Options{
		Driver: DriverModernc,
		DSN:    filepath.Join(t.TempDir(), "relay.db"),
	})
	require.NoError(t, err)
	defer store.Close()

	session, err := store.CreateSession(ctx, "pure go")
	require.NoError(t, err)
	_, err = store.CreateMessage(ctx, session.ID, domain.RoleUser, "hi")
	require.NoError(t, err)

	_, err = store.CreateMessage(ctx, "missing", domain.RoleUser, "hi")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.DeleteSession(ctx, session.ID))
	messages, err := store.ListMessagesAscending(ctx, session.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestSQLiteStoreUnsupportedDriver(t *testing.T) {
	_, err := Open(Options{Driver: "postgres", DSN: "x"})
	assert.Error(t, err)
}

func TestSQLiteStoreClosedIsUnavailable(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.ListSessions(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, store.Ping(context.Background()), domain.ErrStoreUnavailable)
}

func TestWithPragmas(t *testing.T) {
	assert.Equal(t, ":memory:?_foreign_keys=on&_busy_timeout=5000", withPragmas(DriverMattn, ":memory:"))
	assert.Equal(t,
		"file:relay.db?cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite",
		withPragmas(DriverModernc, "file:relay.db?cache=shared"))
}

func contents(messages []domain.Message) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.Content
	}
	return out
}
