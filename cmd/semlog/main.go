// semlog — interpreter for the semlog logic language.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/semlog-lang/semlog"
)

var (
	flagConfig    string
	flagJudge     string
	flagModel     string
	flagThreshold float64
	flagVerbose   bool
)

func main() {
	root := &cobra.Command{
		Use:           "semlog [file]",
		Short:         "Interpreter for the semlog logic language",
		Long:          "semlog runs logic programs whose =~= goals defer truth to an external semantic judge.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return runREPL(eng)
			}
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return eng.RunSource(context.Background(), string(src))
		},
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&flagJudge, "judge", "", "judge endpoint URL (overrides config)")
	root.PersistentFlags().StringVar(&flagModel, "model", "", "judge model name (overrides config)")
	root.PersistentFlags().Float64Var(&flagThreshold, "threshold", 0, "semantic-match threshold (overrides config)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(runCmd(), replCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "semlog: %v\n", err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "Execute a semlog program file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine()
			if err != nil {
				return err
			}
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return eng.RunSource(context.Background(), string(src))
		},
	}
}

func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine()
			if err != nil {
				return err
			}
			return runREPL(eng)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the interpreter version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("semlog %s\n", semlog.Version)
		},
	}
}

// buildEngine assembles an engine from config file and flag overrides.
func buildEngine() (*semlog.Engine, error) {
	cfg := semlog.DefaultConfig()
	if flagConfig != "" {
		loaded, err := semlog.LoadConfig(flagConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if flagJudge != "" {
		cfg.Judge.Endpoint = flagJudge
	}
	if flagModel != "" {
		cfg.Judge.Model = flagModel
	}
	if flagThreshold > 0 {
		cfg.Judge.Threshold = flagThreshold
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := zap.NewNop()
	if flagVerbose {
		dev, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		log = dev
	}

	eng := semlog.NewEngine()
	eng.Log = log
	eng.Judge = cfg.BuildJudge(log)
	eng.Threshold = cfg.Judge.Threshold
	return eng, nil
}
