package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"mrc_prep/internal/config"
	"mrc_prep/internal/metrics"
	"mrc_prep/internal/ner"
	"mrc_prep/internal/pipeline"
	"mrc_prep/internal/prep"
	"mrc_prep/internal/report"
	"mrc_prep/internal/rouge"
	"mrc_prep/internal/stats"
	"mrc_prep/internal/window"
)

type outputOptions struct {
	statsDB     string
	metricsFile string
	reportPath  string
}

func (o *outputOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.statsDB, "stats-db", "", "SQLite database receiving per-record statistics")
	cmd.Flags().StringVar(&o.metricsFile, "metrics-file", "", "Prometheus textfile written when the run ends")
	cmd.Flags().StringVar(&o.reportPath, "report", "", "JSON run report path")
}

func (o *outputOptions) apply(cfg *config.Config) {
	if o.statsDB != "" {
		cfg.Stats.DBPath = o.statsDB
	}
	if o.metricsFile != "" {
		cfg.Metrics.Textfile = o.metricsFile
	}
	if o.reportPath != "" {
		cfg.Report.Path = o.reportPath
	}
}

type windowOptions struct {
	minLeft  int
	minRight int
	seed     int64
	policy   string
	output   outputOptions
}

func buildWindowCmd(root *rootOptions) *cobra.Command {
	opts := &windowOptions{}
	cmd := &cobra.Command{
		Use:   "window [max_train_content_len]",
		Short: "Cut every document to a fixed budget around its answer span",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				budget, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid max_train_content_len %q: %w", args[0], err)
				}
				cfg.Window.MaxTrainContentLen = budget
			}
			flags := cmd.Flags()
			if flags.Changed("min-left") {
				cfg.Window.MinLeftContextLen = opts.minLeft
			}
			if flags.Changed("min-right") {
				cfg.Window.MinRightContextLen = opts.minRight
			}
			if flags.Changed("seed") {
				cfg.Window.Seed = &opts.seed
			}
			if flags.Changed("policy") {
				cfg.Window.MultiSpanPolicy = opts.policy
			}
			opts.output.apply(cfg)

			stage, err := newWindower(cfg)
			if err != nil {
				return err
			}
			return runStage(cmd, cfg, stage)
		},
	}
	cmd.Flags().IntVar(&opts.minLeft, "min-left", window.DefaultMinLeft, "Minimum characters kept left of the answer")
	cmd.Flags().IntVar(&opts.minRight, "min-right", window.DefaultMinRight, "Minimum characters kept right of the answer")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Random seed for window placement (default: time based)")
	cmd.Flags().StringVar(&opts.policy, "policy", string(prep.PolicyReject), "Handling of several answer spans in one document (reject, hull)")
	opts.output.bind(cmd)
	return cmd
}

func newWindower(cfg *config.Config) (*prep.Windower, error) {
	params, err := cfg.WindowParams()
	if err != nil {
		return nil, err
	}
	policy, err := prep.ParsePolicy(cfg.Window.MultiSpanPolicy)
	if err != nil {
		return nil, err
	}
	var seed int64
	if cfg.Window.Seed != nil {
		seed = *cfg.Window.Seed
	} else {
		seed = time.Now().UnixNano()
	}
	slog.Info("window parameters",
		"max_train_content_len", params.Budget,
		"min_left", params.MinLeft,
		"min_right", params.MinRight,
		"policy", policy,
		"seed", seed,
	)
	return prep.NewWindower(params, policy, window.NewRand(uint64(seed)), rouge.New())
}

type nerOptions struct {
	endpoint   string
	dictionary string
	cacheSize  int
	timeout    time.Duration
	rps        float64
	output     outputOptions
}

func buildNERCmd(root *rootOptions) *cobra.Command {
	opts := &nerOptions{}
	cmd := &cobra.Command{
		Use:   "ner",
		Short: "Attach character-level entity tags to questions and documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}
			if opts.endpoint != "" {
				cfg.NER.Endpoint = opts.endpoint
			}
			if opts.dictionary != "" {
				cfg.NER.Dictionary = opts.dictionary
			}
			if opts.cacheSize > 0 {
				cfg.NER.CacheSize = opts.cacheSize
			}
			if opts.timeout > 0 {
				cfg.NER.Timeout = opts.timeout
			}
			if opts.rps > 0 {
				cfg.NER.RequestsPerSec = opts.rps
			}
			opts.output.apply(cfg)

			tagger, err := newTagger(cfg.NER)
			if err != nil {
				return err
			}
			return runStage(cmd, cfg, prep.NewProjector(tagger))
		},
	}
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "HTTP tagging service endpoint")
	cmd.Flags().StringVar(&opts.dictionary, "dictionary", "", "YAML term dictionary for offline tagging")
	cmd.Flags().IntVar(&opts.cacheSize, "cache-size", 0, "Tagged text LRU cache size")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Per-request timeout for the tagging service")
	cmd.Flags().Float64Var(&opts.rps, "rps", 0, "Requests per second sent to the tagging service")
	opts.output.bind(cmd)
	return cmd
}

func newTagger(cfg config.NERConfig) (ner.Tagger, error) {
	var next ner.Tagger
	switch {
	case cfg.Dictionary != "":
		dict, err := ner.LoadDictionary(cfg.Dictionary)
		if err != nil {
			return nil, err
		}
		slog.Info("tagging with dictionary", "path", cfg.Dictionary)
		next = dict
	case cfg.Endpoint != "":
		cc := ner.DefaultClientConfig(cfg.Endpoint)
		cc.Timeout = cfg.Timeout
		cc.RequestsPerSec = cfg.RequestsPerSec
		cc.Burst = cfg.Burst
		cc.MaxRetries = cfg.MaxRetries
		client, err := ner.NewClient(cc, slog.Default())
		if err != nil {
			return nil, err
		}
		slog.Info("tagging with service", "endpoint", cfg.Endpoint)
		next = client
	default:
		return nil, errors.New("ner needs an endpoint or a dictionary")
	}
	return ner.NewCached(next, cfg.CacheSize)
}

// runStage streams stdin through stage to stdout and settles every sink.
func runStage(cmd *cobra.Command, cfg *config.Config, stage prep.Stage) error {
	runID := uuid.NewString()
	collector := metrics.New(stage.Name())
	observers := []pipeline.Observer{collector}

	var builder *report.Builder
	if cfg.Report.Path != "" {
		builder = report.NewBuilder(runID, stage.Name())
		observers = append(observers, builder)
	}
	var statsRun *stats.Run
	if cfg.Stats.DBPath != "" {
		r, err := stats.BeginRun(cfg.Stats.DBPath, stage.Name())
		if err != nil {
			return err
		}
		statsRun = r
		runID = r.ID
		observers = append(observers, statsRun)
	}

	started := time.Now()
	st, runErr := pipeline.Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), stage, observers...)

	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	if statsRun != nil {
		if err := statsRun.Finish(st, runErr); err != nil {
			errs = append(errs, err)
		}
	}
	if err := collector.Finish(st, cfg.Metrics.Textfile); err != nil {
		errs = append(errs, err)
	}
	if builder != nil {
		r := builder.Build(st, runErr)
		r.RunID = runID
		if err := report.SaveReport(cfg.Report.Path, r); err != nil {
			errs = append(errs, err)
		}
	}

	slog.Info("stage finished",
		"stage", stage.Name(),
		"run_id", runID,
		"lines", st.Lines,
		"records", st.Records,
		"skipped", st.Skipped,
		"duration", time.Since(started).String(),
	)
	return errors.Join(errs...)
}
