package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gocausal/adapters/engine"
	"gocausal/adapters/excel"
	"gocausal/adapters/postgres"
	"gocausal/domain/causal"
	"gocausal/ports"
)

type cliOptions struct {
	dataFile    string
	labelColumn string
	dsn         string
	table       string
	columns     []string
	coeffs      []float64
	graphEdges  string
	instance    []float64
	seed        int64
	samples     int
	bootstrap   int
	proxies     []int
}

func main() {
	// Optional .env for DSN and seed defaults; missing file is fine.
	_ = godotenv.Load()

	opts := &cliOptions{}
	var coeffsFlag, instanceFlag, proxiesFlag string

	rootCmd := &cobra.Command{
		Use:   "gocausal-cli",
		Short: "Causal effect estimation over a black-box model and a training corpus",
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.dataFile, "data", "", "corpus file (.csv or .xlsx)")
	pf.StringVar(&opts.labelColumn, "label", "", "label column name in the corpus file")
	pf.StringVar(&opts.dsn, "dsn", os.Getenv("GOCAUSAL_DSN"), "postgres DSN (alternative to --data)")
	pf.StringVar(&opts.table, "table", "corpus", "postgres corpus table")
	pf.StringSliceVar(&opts.columns, "columns", nil, "postgres feature columns, in order")
	pf.StringVar(&coeffsFlag, "coeffs", "", "comma-separated coefficients of the linear demo model")
	pf.StringVar(&opts.graphEdges, "graph", "", "causal edges as from->to pairs, e.g. \"0->1,1->2\" (omit to estimate)")
	pf.StringVar(&instanceFlag, "instance", "", "comma-separated instance values (defaults to corpus column means)")
	pf.Int64Var(&opts.seed, "seed", envInt64("GOCAUSAL_SEED", 42), "base seed for deterministic sampling")
	pf.IntVar(&opts.samples, "samples", 50, "Monte Carlo draws per intervention")
	pf.IntVar(&opts.bootstrap, "bootstrap", 100, "bootstrap repetitions for the confidence interval")
	pf.StringVar(&proxiesFlag, "proxies", "", "comma-separated legitimate proxy feature indices (fairness)")

	parseShared := func() error {
		var err error
		if coeffsFlag == "" {
			return fmt.Errorf("--coeffs is required: the CLI drives a linear demo model")
		}
		if opts.coeffs, err = parseFloats(coeffsFlag); err != nil {
			return fmt.Errorf("invalid --coeffs: %w", err)
		}
		if instanceFlag != "" {
			if opts.instance, err = parseFloats(instanceFlag); err != nil {
				return fmt.Errorf("invalid --instance: %w", err)
			}
		}
		if proxiesFlag != "" {
			if opts.proxies, err = parseInts(proxiesFlag); err != nil {
				return fmt.Errorf("invalid --proxies: %w", err)
			}
		}
		return nil
	}

	rootCmd.AddCommand(
		newEffectCmd(opts, parseShared),
		newCounterfactualCmd(opts, parseShared),
		newMediationCmd(opts, parseShared),
		newFairnessCmd(opts, parseShared),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newEffectCmd(opts *cliOptions, parseShared func() error) *cobra.Command {
	return &cobra.Command{
		Use:   "effect [feature-index] [value]",
		Short: "Estimate the interventional (causal) effect of forcing a feature to a value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := parseShared(); err != nil {
				return err
			}
			feature, value, err := parseFeatureValue(args)
			if err != nil {
				return err
			}
			eng, instance, err := buildEngine(cmd.Context(), opts)
			if err != nil {
				return err
			}
			result, err := eng.Run(cmd.Context(), causal.Query{
				Kind: causal.QueryInterventional,
				Interventional: &causal.InterventionalQuery{
					Instance:     instance,
					FeatureIndex: feature,
					Value:        value,
				},
			})
			if err != nil {
				return err
			}
			return printJSON(result.Effect)
		},
	}
}

func newCounterfactualCmd(opts *cliOptions, parseShared func() error) *cobra.Command {
	return &cobra.Command{
		Use:   "counterfactual [feature-index] [value]",
		Short: "Answer a single closest-possible-world query (no resampling)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := parseShared(); err != nil {
				return err
			}
			feature, value, err := parseFeatureValue(args)
			if err != nil {
				return err
			}
			eng, instance, err := buildEngine(cmd.Context(), opts)
			if err != nil {
				return err
			}
			result, err := eng.Run(cmd.Context(), causal.Query{
				Kind: causal.QueryCounterfactual,
				Counterfactual: &causal.CounterfactualQuery{
					Instance:            instance,
					FeatureIndex:        feature,
					CounterfactualValue: value,
				},
			})
			if err != nil {
				return err
			}
			return printJSON(result.Counterfactual)
		},
	}
}

func newMediationCmd(opts *cliOptions, parseShared func() error) *cobra.Command {
	return &cobra.Command{
		Use:   "mediation [feature-index] [value] [outcome-sink]",
		Short: "Decompose a feature's effect into direct and mediated components",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := parseShared(); err != nil {
				return err
			}
			feature, value, err := parseFeatureValue(args)
			if err != nil {
				return err
			}
			sink, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid outcome sink: %w", err)
			}
			eng, instance, err := buildEngine(cmd.Context(), opts)
			if err != nil {
				return err
			}
			result, err := eng.Run(cmd.Context(), causal.Query{
				Kind: causal.QueryMediation,
				Mediation: &causal.MediationQuery{
					Instance:     instance,
					FeatureIndex: feature,
					Value:        value,
					OutcomeSink:  sink,
				},
			})
			if err != nil {
				return err
			}
			return printJSON(result.Mediation)
		},
	}
}

func newFairnessCmd(opts *cliOptions, parseShared func() error) *cobra.Command {
	return &cobra.Command{
		Use:   "fairness [protected-feature] [value] [outcome-sink]",
		Short: "Decompose a protected feature's effect into legitimate and discriminatory parts",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := parseShared(); err != nil {
				return err
			}
			feature, value, err := parseFeatureValue(args)
			if err != nil {
				return err
			}
			sink, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid outcome sink: %w", err)
			}
			eng, instance, err := buildEngine(cmd.Context(), opts)
			if err != nil {
				return err
			}
			result, err := eng.Run(cmd.Context(), causal.Query{
				Kind: causal.QueryFairness,
				Fairness: &causal.FairnessQuery{
					Instance:          instance,
					ProtectedFeature:  feature,
					Value:             value,
					OutcomeSink:       sink,
					LegitimateProxies: opts.proxies,
				},
			})
			if err != nil {
				return err
			}
			return printJSON(result.Fairness)
		},
	}
}

// buildEngine loads the corpus from the configured source and wires the
// engine with a linear demo predictor.
func buildEngine(ctx context.Context, opts *cliOptions) (*engine.Engine, []float64, error) {
	var source ports.CorpusSource
	var featureNames []string

	switch {
	case opts.dataFile != "":
		reader := excel.NewCorpusReader(opts.dataFile, opts.labelColumn)
		names, err := reader.FeatureNames(ctx)
		if err != nil {
			return nil, nil, err
		}
		featureNames = names
		source = reader
	case opts.dsn != "":
		repo, err := postgres.Open(opts.dsn, opts.table, opts.columns, opts.labelColumn)
		if err != nil {
			return nil, nil, err
		}
		defer repo.Close()
		featureNames = opts.columns
		source = repo
	default:
		return nil, nil, fmt.Errorf("either --data or --dsn is required")
	}

	corpus, err := source.Load(ctx)
	if err != nil {
		return nil, nil, err
	}

	var graph *causal.Graph
	if opts.graphEdges != "" {
		graph, err = parseGraph(opts.graphEdges, corpus.NumFeatures())
		if err != nil {
			return nil, nil, err
		}
	}

	predictor := linearPredictor(opts.coeffs)
	cfg := engine.DefaultConfig()
	cfg.Seed = opts.seed
	cfg.NumSamples = opts.samples
	cfg.NumBootstrap = opts.bootstrap

	eng, err := engine.NewEngine(predictor, corpus, graph, cfg, engine.WithFeatureNames(featureNames))
	if err != nil {
		return nil, nil, err
	}

	instance := opts.instance
	if instance == nil {
		instance = columnMeans(corpus)
	}
	return eng, instance, nil
}

func linearPredictor(coeffs []float64) ports.PredictorFunc {
	return func(features []float64) float64 {
		sum := 0.0
		for i, c := range coeffs {
			if i < len(features) {
				sum += c * features[i]
			}
		}
		return sum
	}
}

func columnMeans(corpus *causal.Corpus) []float64 {
	out := make([]float64, corpus.NumFeatures())
	for j := range out {
		col := corpus.Column(j)
		sum := 0.0
		for _, v := range col {
			sum += v
		}
		out[j] = sum / float64(len(col))
	}
	return out
}

func parseGraph(edgeList string, featureCount int) (*causal.Graph, error) {
	graph := causal.NewGraph(featureCount)
	for _, edge := range strings.Split(edgeList, ",") {
		parts := strings.Split(strings.TrimSpace(edge), "->")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid edge %q, want from->to", edge)
		}
		from, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid edge %q: %w", edge, err)
		}
		to, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid edge %q: %w", edge, err)
		}
		if err := graph.AddEdge(from, to); err != nil {
			return nil, err
		}
	}
	return graph, nil
}

func parseFeatureValue(args []string) (int, float64, error) {
	feature, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid feature index: %w", err)
	}
	value, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid value: %w", err)
	}
	return feature, value, nil
}

func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseInts(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func envInt64(key string, fallback int64) int64 {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return v
		}
	}
	return fallback
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
