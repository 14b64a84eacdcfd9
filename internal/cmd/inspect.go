package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/drop-plan-generator/internal/models"
	"github.com/drop-plan-generator/internal/plan"
	"github.com/drop-plan-generator/internal/service"
	"github.com/drop-plan-generator/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func newInspectCmd(v *viper.Viper) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Show how a plan is parsed",
		Long: `Inspect parses a plan and prints, per session, its step, limit, issued
history, paused intervals and the position the next drop starts from.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(cmd, v)

			input, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			parsed, err := plan.Parse(input)
			if err != nil {
				return err
			}
			infos, err := plan.Describe(parsed)
			if err != nil {
				return err
			}
			log.Debug("Plan parsed", logger.F("sessions", strconv.Itoa(len(infos))))

			if asJSON {
				summaries := make([]models.SessionSummary, len(infos))
				for i, info := range infos {
					summaries[i] = service.Summarize(info)
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summaries)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderSessions(infos))
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func renderSessions(infos []plan.SessionInfo) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("SESSION", "STEP", "LIMIT", "ISSUED", "LAST", "PAUSED", "NEXT").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, info := range infos {
		last := "-"
		if info.LastIssued != nil {
			last = info.LastIssued.String()
		}
		paused := "-"
		if len(info.Paused) > 0 {
			parts := make([]string, len(info.Paused))
			for i, p := range info.Paused {
				parts[i] = p.String()
			}
			paused = strings.Join(parts, " ")
		}
		t.Row(
			info.Name,
			strconv.Itoa(info.Step),
			strconv.Itoa(info.Limit),
			strconv.Itoa(info.HistoryCount),
			last,
			paused,
			strconv.Itoa(info.NextStart),
		)
	}

	return t.String()
}
