//go:build !onnx
// +build !onnx

package ner

import (
	"go.uber.org/zap"
)

// Stub implementation used when the 'onnx' build tag is not set.
func NewONNXLabeler(logger *zap.Logger, modelPath, vocabPath string, labels []string) Labeler {
	return nil
}
