package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hallusearch/hallusearch/internal/cache"
	"github.com/hallusearch/hallusearch/internal/model"
	"github.com/hallusearch/hallusearch/internal/pipeline"
	"github.com/hallusearch/hallusearch/internal/retrieve"
	"github.com/hallusearch/hallusearch/internal/verify"
	"github.com/hallusearch/hallusearch/internal/worker"
)

var (
	outputPath    string
	hardThreshold float64
	maxItems      int
	combinePolicy string
	concurrency   int
	stmtWorkers   int
	offline       bool
	withVerdicts  bool
	provider      string
	providerModel string
	runTimeout    time.Duration
	noCache       bool
	cacheDir      string
)

// inferCmd represents the infer command
var inferCmd = &cobra.Command{
	Use:   "infer <input>",
	Short: "Label hallucination spans for a JSONL file of model answers",
	Long: `Infer reads input records ({id, model_input, model_output_text}) from a
.jsonl file or a directory of .jsonl files, and writes one output record per
input line with hard_labels and soft_labels over the answer text.

For each record the answer is split into atomic anchored statements,
evidence is retrieved and verified per statement, and per-token
probabilities are aggregated back into character spans.

Example:
  hallusearch infer data/test.jsonl --output predictions.jsonl
  hallusearch infer data/ --output predictions.jsonl --provider deepseek
  hallusearch infer data/test.jsonl --offline --with-verdicts`,
	Args: cobra.ExactArgs(1),
	RunE: runInfer,
}

func init() {
	rootCmd.AddCommand(inferCmd)

	inferCmd.Flags().StringVarP(&outputPath, "output", "o", "predictions.jsonl", "output JSONL path")
	inferCmd.Flags().Float64Var(&hardThreshold, "hard-threshold", 0.5, "probability cutoff for hard spans (inclusive)")
	inferCmd.Flags().IntVar(&maxItems, "max-items", 30, "maximum statements per record")
	inferCmd.Flags().StringVar(&combinePolicy, "combine", "max", "combine policy for overlapping evidence (max, mean, min)")
	inferCmd.Flags().IntVar(&concurrency, "concurrency", 0, "records processed in parallel (default: CPU count)")
	inferCmd.Flags().IntVar(&stmtWorkers, "statement-workers", 4, "retrieve/verify fan-out per record")
	inferCmd.Flags().BoolVar(&offline, "offline", false, "no network: empty contexts, zero probabilities")
	inferCmd.Flags().BoolVar(&withVerdicts, "with-verdicts", false, "include per-statement verifications in output records")
	inferCmd.Flags().StringVar(&provider, "provider", "", "verifier provider (openai, deepseek, ollama, offline)")
	inferCmd.Flags().StringVar(&providerModel, "model", "", "verifier model name")
	inferCmd.Flags().DurationVar(&runTimeout, "timeout", 30*time.Minute, "total timeout for the run")
	inferCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the evidence context cache")
	inferCmd.Flags().StringVar(&cacheDir, "cache-dir", "", "persist the context cache to this directory")
}

func runInfer(cmd *cobra.Command, args []string) error {
	input := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	cfg := buildConfig()

	verifier, err := verify.NewVerifier(cfg.Verifier, cfg.Retrieval.MaxContextChars)
	if err != nil {
		return err
	}

	retriever := buildRetriever(cfg)

	if verbose {
		fmt.Fprintf(os.Stderr, "Input:     %s\n", input)
		fmt.Fprintf(os.Stderr, "Output:    %s\n", outputPath)
		fmt.Fprintf(os.Stderr, "Verifier:  %s\n", verifier.Name())
		fmt.Fprintf(os.Stderr, "Threshold: %.2f (%s)\n", cfg.Labeling.HardThreshold, cfg.Labeling.CombinePolicy)
		fmt.Fprintln(os.Stderr)
	}

	records, err := pipeline.ReadRecords(input)
	if err != nil {
		return err
	}

	p := pipeline.New(cfg, retriever, verifier)
	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers)
	results := processor.Process(ctx, records)

	outputs := make([]model.OutputRecord, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			return fmt.Errorf("label record %d: %w", r.Index, r.Err)
		}
		outputs = append(outputs, r.Output)
	}

	if err := pipeline.WriteRecords(outputPath, outputs); err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Labeled %d records: %s\n", len(outputs), outputPath)
	}
	return nil
}

// buildConfig merges defaults, config file/env values, and CLI flags
func buildConfig() *model.Config {
	cfg := model.DefaultConfig()

	cfg.Labeling.HardThreshold = hardThreshold
	cfg.Labeling.MaxItemsPerSample = maxItems
	cfg.Labeling.CombinePolicy = combinePolicy
	cfg.Concurrency.StatementWorkers = stmtWorkers
	cfg.Output.Verbose = verbose
	cfg.Output.WithVerdicts = withVerdicts
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}
	cfg.Cache.Enabled = !noCache
	if cacheDir != "" {
		cfg.Cache.Dir = cacheDir
	}

	cfg.Retrieval.SearchAPIKey = os.Getenv("GOOGLE_SEARCH_API_KEY")
	cfg.Retrieval.SearchEngineID = os.Getenv("GOOGLE_SEARCH_ENGINE")

	if offline {
		cfg.Verifier.Provider = "offline"
		return cfg
	}

	cfg.Verifier.Provider = provider
	cfg.Verifier.Model = providerModel
	switch provider {
	case "openai":
		cfg.Verifier.APIKey = os.Getenv("OPENAI_API_KEY")
	case "deepseek":
		cfg.Verifier.APIKey = os.Getenv("DEEPSEEK_API_KEY")
		if baseURL := os.Getenv("DEEPSEEK_BASE_URL"); baseURL != "" {
			cfg.Verifier.BaseURL = baseURL
		}
	case "ollama":
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
			cfg.Verifier.BaseURL = baseURL
		}
	}
	return cfg
}

// buildRetriever assembles the retriever stack: search, optionally wrapped
// with a memory or layered (memory + disk) cache
func buildRetriever(cfg *model.Config) retrieve.Retriever {
	if offline {
		return retrieve.NullRetriever{}
	}

	var r retrieve.Retriever = retrieve.NewSearchRetriever(cfg.Retrieval, cfg.HTTP)
	if !cfg.Cache.Enabled {
		return r
	}

	var c cache.Cache
	if cfg.Cache.Dir != "" {
		c = cache.NewLayeredCache(cfg.Cache.TTL, cfg.Cache.Dir, cfg.Cache.TTL)
	} else {
		c = cache.NewMemoryCache(cfg.Cache.TTL, 10*time.Minute)
	}
	return retrieve.NewCachedRetriever(r, c, cfg.Cache.TTL)
}
