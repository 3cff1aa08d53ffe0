package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/relay/internal/adapter/relayclient"
	"github.com/xiaot623/gogo/relay/internal/domain"
)

// conversation is what the chat and sessions commands need from a relay,
// local or remote.
type conversation interface {
	CreateSession(ctx context.Context, name string) (*domain.Session, error)
	ListSessions(ctx context.Context, limit int) ([]domain.Session, error)
	GetSessionHistory(ctx context.Context, sessionID string) (*domain.ChatHistory, error)
	SendMessage(ctx context.Context, req domain.SendMessageRequest) (*domain.SendMessageResponse, error)
	DeleteSession(ctx context.Context, sessionID string) (*domain.DeleteSessionResponse, error)
}

var (
	chatAddr    string
	chatSession string

	youStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat interactively",
	Long: `Chat with the configured model. Messages are persisted like any other
session. With --addr the turns run on a relay server over RPC.

Commands inside the chat:
  /new       start a new session
  /history   print the current session
  /quit      leave`,
	RunE: func(cmd *cobra.Command, args []string) error {
		conv, closeFn, err := openConversation(cmd.Context(), chatAddr)
		if err != nil {
			return err
		}
		defer closeFn()
		return runChat(cmd.Context(), conv, chatSession, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatAddr, "addr", "", "RPC address of a running relay (default: run in-process)")
	chatCmd.Flags().StringVar(&chatSession, "session", "", "resume an existing session")
	rootCmd.AddCommand(chatCmd)
}

// openConversation connects to a remote relay when addr is set, otherwise
// builds the relay in-process.
func openConversation(ctx context.Context, addr string) (conversation, func(), error) {
	if addr != "" {
		return relayclient.NewClient(addr, cfg.Generation.Timeout+cfg.Store.OpTimeout*4), func() {}, nil
	}
	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return nil, nil, err
	}
	return a.service, func() { a.Close() }, nil
}

// runChat reads lines from in until EOF or /quit and prints the replies.
func runChat(ctx context.Context, conv conversation, sessionID string, in io.Reader, out io.Writer) error {
	if sessionID != "" {
		history, err := conv.GetSessionHistory(ctx, sessionID)
		if err != nil {
			return err
		}
		printHistory(out, history)
	}

	fmt.Fprintln(out, systemStyle.Render("Type a message, /new, /history or /quit."))
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, youStyle.Render("you> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/new":
			sessionID = ""
			fmt.Fprintln(out, systemStyle.Render("Started a new session."))
			continue
		case "/history":
			if sessionID == "" {
				fmt.Fprintln(out, systemStyle.Render("No messages yet."))
				continue
			}
			history, err := conv.GetSessionHistory(ctx, sessionID)
			if err != nil {
				fmt.Fprintln(out, errorStyle.Render("error: "+err.Error()))
				continue
			}
			printHistory(out, history)
			continue
		}

		start := time.Now()
		resp, err := conv.SendMessage(ctx, domain.SendMessageRequest{SessionID: sessionID, Content: line})
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("error: "+err.Error()))
			continue
		}
		if sessionID == "" {
			fmt.Fprintln(out, systemStyle.Render("session "+resp.SessionID))
		}
		sessionID = resp.SessionID

		fmt.Fprintf(out, "%s %s\n", assistantStyle.Render("assistant>"), resp.AssistantMessage.Content)
		fmt.Fprintln(out, systemStyle.Render(fmt.Sprintf("(%s)", time.Since(start).Round(time.Millisecond))))
	}
}

func printHistory(out io.Writer, history *domain.ChatHistory) {
	fmt.Fprintln(out, systemStyle.Render(fmt.Sprintf("%s (%d messages)", history.Session.Name, len(history.Messages))))
	for _, m := range history.Messages {
		label := youStyle.Render("you>")
		if m.Role == domain.RoleAssistant {
			label = assistantStyle.Render("assistant>")
		}
		fmt.Fprintf(out, "%s %s\n", label, m.Content)
	}
}
