package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/drop-plan-generator/internal/plan"
	"github.com/drop-plan-generator/internal/service"
	"github.com/drop-plan-generator/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newGenerateCmd(v *viper.Viper) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "generate [file]",
		Short: "Print the next drops for every session",
		Long: `Generate reads a plan from file (or stdin) and prints one row per drop.
Each cell is the interval issued to that session, "Limite" when the session
hit its limit, "pause" when the interval touched a paused range, or "X" when
it was already issued.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(cmd, v)

			drops := v.GetInt(keyDrops)
			if maxDrops := v.GetInt(keyMaxDrops); drops > maxDrops {
				return fmt.Errorf("%w: %d > %d", service.ErrTooManyDrops, drops, maxDrops)
			}

			input, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			text, err := plan.GenerateText(input, drops)
			if err != nil {
				return err
			}
			log.Debug("Plan generated", logger.F("drops", strconv.Itoa(drops)))

			if output != "" {
				if err := os.WriteFile(output, []byte(text+"\n"), 0o644); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
				log.Info("Plan written", logger.F("path", output))
				return nil
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}

	cmd.Flags().IntP("drops", "n", 24, "number of drops to generate")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the plan to a file instead of stdout")
	_ = v.BindPFlag(keyDrops, cmd.Flags().Lookup("drops"))

	return cmd
}
