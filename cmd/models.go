package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/relay/internal/adapter/llm"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models of the configured provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateGeneration(); err != nil {
			return err
		}
		client, err := llm.NewClientFromConfig(cmd.Context(), cfg.Generation)
		if err != nil {
			return err
		}

		models, err := client.ListModels(cmd.Context())
		if err != nil {
			return err
		}
		printModels(cmd.OutOrStdout(), client.Provider(), models)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func printModels(out io.Writer, provider string, models []llm.Model) {
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%s: %d model(s)", provider, len(models))))
	for _, m := range models {
		line := "  " + m.Name
		if m.DisplayName != "" && m.DisplayName != m.Name {
			line += " " + dateStyle.Render("("+m.DisplayName+")")
		}
		if m.InputTokenLimit > 0 {
			line += dateStyle.Render(fmt.Sprintf(" in=%d out=%d", m.InputTokenLimit, m.OutputTokenLimit))
		}
		fmt.Fprintln(out, line)
	}
}
