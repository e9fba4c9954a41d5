// Package batch runs the detection pipeline over dataset files,
// reading CSV, Parquet, or line-delimited JSON and writing one JSON
// result per input document.
package batch

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/piiguard/piiguard/internal/engine"
)

// Pipeline streams documents from a file through the engine.
type Pipeline struct {
	engine *engine.Engine
	config *Config
	logger *zap.Logger
}

// NewPipeline creates a file pipeline.
func NewPipeline(eng *engine.Engine, config *Config, logger *zap.Logger) *Pipeline {
	if config.BatchSize <= 0 {
		config.BatchSize = 500
	}
	if config.ProgressReport <= 0 {
		config.ProgressReport = 1000
	}
	return &Pipeline{
		engine: eng,
		config: config,
		logger: logger,
	}
}

// ProcessFile processes one dataset file and writes results to
// outputPath as line-delimited JSON.
func (p *Pipeline) ProcessFile(ctx context.Context, filePath, outputPath string) (*ProcessingResult, error) {
	p.logger.Info("Starting file pipeline",
		zap.String("file", filePath),
		zap.String("output", outputPath),
		zap.Int("batch_size", p.config.BatchSize))

	start := time.Now()
	result := &ProcessingResult{MatchesByType: make(map[string]int)}

	format := DetectFileFormat(filePath)
	p.logger.Info("Detected file format", zap.String("format", string(format)))

	out, err := os.Create(outputPath)
	if err != nil {
		return result, fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	writer := bufio.NewWriter(out)
	defer writer.Flush()

	switch format {
	case FormatCSV:
		err = p.processCSV(ctx, filePath, writer, result)
	case FormatParquet:
		err = p.processParquet(ctx, filePath, writer, result)
	case FormatJSON:
		err = p.processJSON(ctx, filePath, writer, result)
	default:
		return result, fmt.Errorf("unsupported file format: %s", format)
	}
	if err != nil {
		return result, fmt.Errorf("%s processing failed: %w", format, err)
	}

	result.Duration = time.Since(start)

	p.logger.Info("File pipeline completed",
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("processed_ok", result.ProcessedOK),
		zap.Int64("processed_failed", result.ProcessedFailed),
		zap.Int64("total_matches", result.TotalMatches),
		zap.Duration("duration", result.Duration))

	return result, nil
}

func (p *Pipeline) processCSV(ctx context.Context, filePath string, w *bufio.Writer, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}
	p.logger.Info("CSV header detected", zap.Strings("columns", header))

	textCol, idCol := p.resolveColumns(header)
	if textCol < 0 {
		return fmt.Errorf("CSV file has no %q column", p.textColumn())
	}

	return p.processBatches(ctx, func() ([]Document, error) {
		var batch []Document
		for len(batch) < p.config.BatchSize {
			record, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read CSV record", zap.Error(err))
				result.ProcessedFailed++
				continue
			}
			if textCol >= len(record) {
				p.logger.Warn("CSV record missing text column", zap.Int("fields", len(record)))
				result.ProcessedFailed++
				continue
			}

			doc := Document{Text: record[textCol]}
			if idCol >= 0 && idCol < len(record) {
				doc.ID = record[idCol]
			}
			batch = append(batch, doc)
		}
		return batch, nil
	}, w, result)
}

func (p *Pipeline) processParquet(ctx context.Context, filePath string, w *bufio.Writer, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open Parquet file: %w", err)
	}
	defer file.Close()

	reader := parquet.NewReader(file)
	defer reader.Close()

	return p.processBatches(ctx, func() ([]Document, error) {
		var batch []Document
		for len(batch) < p.config.BatchSize {
			var doc Document
			err := reader.Read(&doc)
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read Parquet record", zap.Error(err))
				result.ProcessedFailed++
				continue
			}
			batch = append(batch, doc)
		}
		return batch, nil
	}, w, result)
}

func (p *Pipeline) processJSON(ctx context.Context, filePath string, w *bufio.Writer, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open JSON file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)

	return p.processBatches(ctx, func() ([]Document, error) {
		var batch []Document
		for len(batch) < p.config.BatchSize {
			var doc Document
			err := decoder.Decode(&doc)
			if err == io.EOF {
				break
			}
			if err != nil {
				return batch, fmt.Errorf("failed to decode JSON record: %w", err)
			}
			batch = append(batch, doc)
		}
		return batch, nil
	}, w, result)
}

// processBatches pulls document batches from readBatch and runs each
// through the engine's worker pool, preserving input order in the
// output file.
func (p *Pipeline) processBatches(ctx context.Context, readBatch func() ([]Document, error), w *bufio.Writer, result *ProcessingResult) error {
	opts := engine.Options{
		Anonymize: p.config.Anonymize,
		Method:    p.config.Method,
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := readBatch()
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			break
		}

		texts := make([]string, len(batch))
		for i, doc := range batch {
			texts[i] = doc.Text
		}

		docResults := p.engine.ProcessBatch(ctx, texts, opts)
		for i, dr := range docResults {
			result.TotalRecords++

			record := OutputRecord{ID: batch[i].ID}
			if dr.Err != nil {
				record.Error = dr.Err.Error()
				result.ProcessedFailed++
				result.Errors = appendError(result.Errors, dr.Err.Error())
			} else {
				record.Matches = dr.Result.Matches
				if dr.Result.Anonymized {
					text := dr.Result.AnonymizedText
					record.AnonymizedText = &text
				}
				result.ProcessedOK++
				result.TotalMatches += int64(dr.Result.Stats.Total)
				for t, n := range dr.Result.Stats.ByType {
					result.MatchesByType[t] += n
				}
			}

			line, err := json.Marshal(record)
			if err != nil {
				return fmt.Errorf("failed to marshal output record: %w", err)
			}
			if _, err := w.Write(append(line, '\n')); err != nil {
				return fmt.Errorf("failed to write output record: %w", err)
			}
		}

		if result.TotalRecords%int64(p.config.ProgressReport) == 0 {
			p.logger.Info("Processing progress",
				zap.Int64("records_processed", result.TotalRecords),
				zap.Int64("records_ok", result.ProcessedOK),
				zap.Int64("records_failed", result.ProcessedFailed),
				zap.Int64("total_matches", result.TotalMatches))
		}
	}

	return nil
}

func (p *Pipeline) textColumn() string {
	if p.config.TextColumn != "" {
		return p.config.TextColumn
	}
	return "text"
}

func (p *Pipeline) idColumn() string {
	if p.config.IDColumn != "" {
		return p.config.IDColumn
	}
	return "id"
}

func (p *Pipeline) resolveColumns(header []string) (textCol, idCol int) {
	textCol, idCol = -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case p.textColumn():
			textCol = i
		case p.idColumn():
			idCol = i
		}
	}
	return textCol, idCol
}

// appendError keeps the error list bounded so a poisoned file cannot
// balloon memory.
func appendError(errs []string, msg string) []string {
	const maxErrors = 100
	if len(errs) >= maxErrors {
		return errs
	}
	return append(errs, msg)
}
