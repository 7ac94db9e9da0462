package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"YieldScope/internal/di"
	"YieldScope/internal/engine"
	"YieldScope/internal/simulate"
	"YieldScope/internal/usecase"
	"YieldScope/pkg/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		assessment bool
	)
	root := &cobra.Command{
		Use:   "simulate [incentive|rug|noise|gap|all]",
		Short: "Replay synthetic yield scenarios through the estimator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := engine.DefaultParams()
			ap := engine.DefaultAssessmentParams()
			if configPath != "" {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				if err := cfg.Validate(); err != nil {
					return fmt.Errorf("validate config: %w", err)
				}
				params, ap = di.EngineParams(cfg), di.AssessmentParams(cfg)
			}
			var opts []usecase.RegistryOption
			if assessment {
				opts = append(opts, usecase.WithAssessment(ap))
			}

			scenarios := simulate.Scenarios
			if args[0] != "all" {
				s, ok := simulate.Lookup(args[0])
				if !ok {
					return fmt.Errorf("unknown scenario %q", args[0])
				}
				scenarios = []simulate.Scenario{s}
			}

			out := cmd.OutOrStdout()
			for _, s := range scenarios {
				fmt.Fprintf(out, "\n=== %s ===\n", s.Title)
				if _, err := simulate.Run(s, params, func(c simulate.Checkpoint) { printCheckpoint(out, c) }, opts...); err != nil {
					return err
				}
			}
			return nil
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "read engine parameters from this YAML file")
	root.Flags().BoolVar(&assessment, "assessment", false, "enable confidence and decision")
	return root
}

func printCheckpoint(w io.Writer, c simulate.Checkpoint) {
	m := c.Output.Metrics
	fmt.Fprintf(w, "\n[%s t=%d]\n", c.Scenario, c.Tick)
	fmt.Fprintf(w, "Smoothed yield: %.2f%%\n", m.SmoothedYield)
	fmt.Fprintf(w, "Effective yield: %.2f%%\n", m.EffectiveYield)
	fmt.Fprintf(w, "Raw yield: %.2f%%\n", c.RawYield)
	fmt.Fprintf(w, "Risk: noise=%.3f, instability=%.3f, liquidityStress=%.3f\n",
		m.Risk.NoiseVariance, m.Risk.InstabilityVariance, m.Risk.LiquidityStress)
	if m.Confidence != nil {
		fmt.Fprintf(w, "Confidence: %.3f decision=%s\n", *m.Confidence, c.Output.Decision)
	}
}
