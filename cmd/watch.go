package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/relay/internal/domain"
)

var watchURL string

var watchCmd = &cobra.Command{
	Use:   "watch <session_id>",
	Short: "Follow the events of a session on a running server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := dialWatcher(watchURL, args[0])
		if err != nil {
			return err
		}
		defer w.Close()

		fmt.Fprintln(cmd.OutOrStdout(), systemStyle.Render("watching session "+args[0]))
		return w.Run(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "http://localhost:8000", "base URL of a running relay")
	rootCmd.AddCommand(watchCmd)
}

// watcher reads session events from the events websocket.
type watcher struct {
	conn *websocket.Conn
}

// eventsURL turns the server base URL into the websocket URL of a session.
func eventsURL(base, sessionID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", base, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/chat/sessions/" + url.PathEscape(sessionID) + "/events"
	return u.String(), nil
}

func dialWatcher(base, sessionID string) (*watcher, error) {
	addr, err := eventsURL(base, sessionID)
	if err != nil {
		return nil, err
	}
	conn, resp, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &watcher{conn: conn}, nil
}

func (w *watcher) Close() error {
	return w.conn.Close()
}

// Run prints events until the server closes the stream, the session is
// deleted or ctx is done.
func (w *watcher) Run(ctx context.Context, out io.Writer) error {
	stop := context.AfterFunc(ctx, func() {
		w.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		w.conn.Close()
	})
	defer stop()

	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		var event domain.SessionEvent
		if err := json.Unmarshal(data, &event); err != nil {
			fmt.Fprintln(out, errorStyle.Render("error: "+err.Error()))
			continue
		}
		if printEvent(out, event) {
			return nil
		}
	}
}

// printEvent renders one event and reports whether the stream is over.
func printEvent(out io.Writer, event domain.SessionEvent) bool {
	ts := time.UnixMilli(event.Ts).Local().Format(time.TimeOnly)
	switch event.Type {
	case domain.EventTypeTurnCompleted:
		fmt.Fprintln(out, dateStyle.Render(ts))
		if event.UserMessage != nil {
			fmt.Fprintf(out, "%s %s\n", youStyle.Render("you>"), event.UserMessage.Content)
		}
		if event.AssistantMessage != nil {
			fmt.Fprintf(out, "%s %s\n", assistantStyle.Render("assistant>"), event.AssistantMessage.Content)
		}
		return false
	case domain.EventTypeSessionDeleted:
		fmt.Fprintln(out, systemStyle.Render(ts+" session deleted"))
		return true
	default:
		fmt.Fprintln(out, errorStyle.Render("unknown event: "+string(event.Type)))
		return false
	}
}
