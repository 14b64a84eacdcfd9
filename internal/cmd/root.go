package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/drop-plan-generator/pkg/logger"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config keys shared by the flags, the config file and PLANGEN_* variables.
const (
	keyConfig   = "config"
	keyLogLevel = "log_level"
	keyDrops    = "drops"
	keyMaxDrops = "max_drops"
)

// Execute runs the plangen command tree
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the plangen command tree with its own viper instance
func NewRootCmd() *cobra.Command {
	v := viper.New()
	var prof interface{ Stop() }

	root := &cobra.Command{
		Use:   "plangen",
		Short: "Generate drop plans from tab-separated session data",
		Long: `plangen reads a tab-separated plan (steps, session names, issued
intervals, limits and paused intervals) and prints the intervals the next
drops should receive, one row per drop and one column per session.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(v); err != nil {
				return err
			}
			p, err := startProfile(cmd)
			prof = p
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if prof != nil {
				prof.Stop()
			}
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "config file (default is ./plangen.yaml or $HOME/.config/plangen/plangen.yaml)")
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	_ = v.BindPFlag(keyConfig, root.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag(keyLogLevel, root.PersistentFlags().Lookup("log-level"))
	root.PersistentFlags().String("profile", "", "write a cpu, mem or block profile")
	root.PersistentFlags().String("profile-path", ".", "directory for profile output")

	root.AddCommand(newGenerateCmd(v), newInspectCmd(v))
	return root
}

func initConfig(v *viper.Viper) error {
	v.SetDefault(keyDrops, 24)
	v.SetDefault(keyMaxDrops, 1000)

	if cfgFile := v.GetString(keyConfig); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("plangen")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/plangen")
	}

	v.SetEnvPrefix("PLANGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicitly named file must exist.
		if !errors.As(err, &notFound) || v.GetString(keyConfig) != "" {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// startProfile starts the profiler named by --profile, or returns nil
func startProfile(cmd *cobra.Command) (interface{ Stop() }, error) {
	kind, _ := cmd.Flags().GetString("profile")
	if kind == "" {
		return nil, nil
	}
	path, _ := cmd.Flags().GetString("profile-path")

	opts := []func(*profile.Profile){profile.ProfilePath(path), profile.NoShutdownHook, profile.Quiet}
	switch kind {
	case "cpu":
		opts = append(opts, profile.CPUProfile)
	case "mem":
		opts = append(opts, profile.MemProfile, profile.MemProfileAllocs)
	case "block":
		opts = append(opts, profile.BlockProfile)
	default:
		return nil, fmt.Errorf("unknown profile %q (want cpu, mem or block)", kind)
	}
	return profile.Start(opts...), nil
}

// newLogger logs to the command's stderr so plan output stays clean
func newLogger(cmd *cobra.Command, v *viper.Viper) *logger.Logger {
	return logger.NewWithOptions(cmd.ErrOrStderr(), logger.Level(v.GetString(keyLogLevel)), logger.FormatText)
}

// readInput reads the plan from the named file, or stdin when no file or "-"
func readInput(cmd *cobra.Command, args []string) (string, error) {
	var r io.Reader = cmd.InOrStdin()
	name := "stdin"
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r, name = f, args[0]
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return string(data), nil
}
