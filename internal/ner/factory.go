package ner

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/piiguard/piiguard/internal/config"
)

// New creates a labeler from configuration. The "onnx" type requires
// the binary to be built with the onnx tag; without it (or when model
// initialization fails) an error is returned so the caller can apply
// detector-unavailable semantics.
func New(cfg config.ModelConfig, logger *zap.Logger) (Labeler, error) {
	switch cfg.Type {
	case "", "heuristic":
		logger.Info("Created heuristic entity labeler")
		return NewHeuristicLabeler(logger), nil
	case "onnx":
		labeler := NewONNXLabeler(logger, cfg.Path, cfg.Vocab, cfg.Labels)
		if labeler == nil {
			return nil, fmt.Errorf("onnx labeler unavailable (built without onnx support or model failed to load)")
		}
		logger.Info("Created ONNX entity labeler", zap.String("model", cfg.Path))
		return labeler, nil
	default:
		return nil, fmt.Errorf("unknown labeler type: %s", cfg.Type)
	}
}
