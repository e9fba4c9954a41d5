package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/piiguard/piiguard/internal/batch"
	"github.com/piiguard/piiguard/internal/config"
	"github.com/piiguard/piiguard/internal/engine"
	"github.com/piiguard/piiguard/internal/logger"
	"github.com/piiguard/piiguard/internal/report"
)

func main() {
	var (
		configPath   = flag.String("config", "", "Configuration file path")
		inputFile    = flag.String("input", "", "Input dataset file (CSV, Parquet, or JSON lines)")
		outputFile   = flag.String("output", "", "Output file for results (JSON lines); defaults to <input>.results.jsonl")
		text         = flag.String("text", "", "Scan a single text instead of a file")
		anonymize    = flag.Bool("anonymize", false, "Produce anonymized text alongside matches")
		method       = flag.String("method", "", "Anonymization method (mask, redact, hash, replace, synthetic)")
		batchSize    = flag.Int("batch-size", 500, "Documents per processing batch")
		workers      = flag.Int("workers", 0, "Worker goroutines (0 uses the configured value)")
		reportFormat = flag.String("format", "text", "Summary format (text, json, csv)")
	)
	flag.Parse()

	if *inputFile == "" && *text == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input dataset.csv --anonymize --method redact\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --text 'Contact john@example.com' --format json\n", os.Args[0])
		os.Exit(1)
	}

	format, err := report.ParseFormat(*reportFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	overrides := map[string]interface{}{}
	if *workers > 0 {
		overrides["performance.workers"] = *workers
	}
	if len(overrides) > 0 {
		cfg, err = cfg.WithOverrides(overrides)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid override: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling operations...")
		cancel()
	}()

	eng, err := engine.New(cfg, log)
	if err != nil {
		log.Fatal("Failed to create engine", zap.Error(err))
	}

	if *text != "" {
		scanText(ctx, eng, *text, *anonymize, *method, format)
		return
	}

	if _, err := os.Stat(*inputFile); os.IsNotExist(err) {
		log.Fatal("Input file does not exist", zap.String("file", *inputFile))
	}

	output := *outputFile
	if output == "" {
		output = strings.TrimSuffix(*inputFile, ".csv")
		output = strings.TrimSuffix(output, ".parquet")
		output = strings.TrimSuffix(output, ".json")
		output = strings.TrimSuffix(output, ".jsonl")
		output += ".results.jsonl"
	}

	pipeline := batch.NewPipeline(eng, &batch.Config{
		BatchSize: *batchSize,
		Anonymize: *anonymize,
		Method:    *method,
	}, log.WithComponent("batch").Logger)

	result, err := pipeline.ProcessFile(ctx, *inputFile, output)
	if err != nil {
		log.Fatal("File processing failed", zap.Error(err))
	}

	summary, err := report.RenderSummary(result, format)
	if err != nil {
		log.Fatal("Failed to render summary", zap.Error(err))
	}
	fmt.Print(summary)
}

// scanText processes a single document and prints the result.
func scanText(ctx context.Context, eng *engine.Engine, text string, anonymize bool, method string, format report.Format) {
	result, err := eng.ProcessText(ctx, text, engine.Options{
		Anonymize: anonymize,
		Method:    method,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Processing failed: %v\n", err)
		os.Exit(1)
	}

	rendered, err := report.RenderResult(result, format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render result: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(rendered)
}
