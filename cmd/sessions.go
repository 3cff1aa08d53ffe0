package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/relay/internal/domain"
)

var (
	sessionsAddr   string
	sessionsLimit  int
	sessionsDelete string

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List or delete sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		conv, closeFn, err := openConversation(cmd.Context(), sessionsAddr)
		if err != nil {
			return err
		}
		defer closeFn()

		if sessionsDelete != "" {
			resp, err := conv.DeleteSession(cmd.Context(), sessionsDelete)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			return nil
		}

		sessions, err := conv.ListSessions(cmd.Context(), sessionsLimit)
		if err != nil {
			return err
		}
		printSessions(cmd.OutOrStdout(), sessions)
		return nil
	},
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsAddr, "addr", "", "RPC address of a running relay (default: open the store directly)")
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 0, "maximum number of sessions (default from config)")
	sessionsCmd.Flags().StringVar(&sessionsDelete, "delete", "", "delete the session with this id")
	rootCmd.AddCommand(sessionsCmd)
}

func printSessions(out io.Writer, sessions []domain.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions found.")
		return
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%d session(s)", len(sessions))))
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			idStyle.Render(s.ID),
			s.Name,
			dateStyle.Render(s.UpdatedAt.Local().Format(time.DateTime)))
	}
	w.Flush()
}
