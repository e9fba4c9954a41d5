//go:build onnx
// +build onnx

package ner

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// ONNXLabeler runs a BERT-style token-classification model through
// ONNX Runtime and decodes BIO-tagged logits into entity spans.
type ONNXLabeler struct {
	session    *ort.DynamicAdvancedSession
	inputNames []string
	outputName string
	vocab      map[string]int64
	unkID      int64
	clsID      int64
	sepID      int64
	labels     []string
	logger     *zap.Logger
	mu         sync.Mutex // ORT sessions are not safe for concurrent Run
}

const maxSequenceLength = 512

// NewONNXLabeler initializes the ONNX Runtime labeler. Requires build
// tag 'onnx'. Returns nil on any initialization failure so the factory
// can degrade to DetectorUnavailable semantics.
func NewONNXLabeler(logger *zap.Logger, modelPath, vocabPath string, labels []string) Labeler {
	if shlib := os.Getenv("ONNXRUNTIME_SHARED_LIB"); shlib != "" {
		ort.SetSharedLibraryPath(shlib)
	} else if shlib := os.Getenv("ORT_SHLIB"); shlib != "" {
		ort.SetSharedLibraryPath(shlib)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		logger.Error("ONNX Runtime environment init failed", zap.Error(err))
		return nil
	}

	vocab, err := loadVocab(vocabPath)
	if err != nil {
		logger.Error("Failed to load tokenizer vocab", zap.Error(err), zap.String("vocab", vocabPath))
		return nil
	}

	inputsInfo, outputsInfo, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		logger.Error("Failed to inspect ONNX model IO", zap.Error(err), zap.String("model", modelPath))
		return nil
	}

	preferredInputs := []string{"input_ids", "attention_mask", "token_type_ids"}
	available := map[string]bool{}
	for _, ii := range inputsInfo {
		available[strings.ToLower(ii.Name)] = true
	}
	var inputNames []string
	for _, name := range preferredInputs {
		if available[name] {
			inputNames = append(inputNames, name)
		}
	}
	if len(inputNames) == 0 && len(inputsInfo) > 0 {
		sorted := make([]string, 0, len(inputsInfo))
		for _, ii := range inputsInfo {
			sorted = append(sorted, ii.Name)
		}
		sort.Strings(sorted)
		inputNames = sorted
	}

	if len(outputsInfo) == 0 {
		logger.Error("ONNX model reports no outputs", zap.String("model", modelPath))
		return nil
	}
	outputName := outputsInfo[0].Name

	sess, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, []string{outputName}, nil)
	if err != nil {
		logger.Error("ONNX Runtime session creation failed", zap.Error(err), zap.String("model", modelPath))
		return nil
	}

	l := &ONNXLabeler{
		session:    sess,
		inputNames: inputNames,
		outputName: outputName,
		vocab:      vocab,
		labels:     labels,
		logger:     logger,
	}
	l.unkID = vocabID(vocab, "[UNK]", 100)
	l.clsID = vocabID(vocab, "[CLS]", 101)
	l.sepID = vocabID(vocab, "[SEP]", 102)

	logger.Info("ONNX NER labeler ready",
		zap.String("model", modelPath),
		zap.Strings("inputs", inputNames),
		zap.Int("vocab_size", len(vocab)),
		zap.Int("labels", len(labels)))
	return l
}

// Name implements Labeler.
func (l *ONNXLabeler) Name() string { return "onnx" }

// Close releases session and environment resources.
func (l *ONNXLabeler) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session != nil {
		l.session.Destroy()
		l.session = nil
	}
	ort.DestroyEnvironment()
	return nil
}

// Label implements Labeler.
func (l *ONNXLabeler) Label(ctx context.Context, text string) ([]Entity, error) {
	if text == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := l.tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}
	if len(tokens) > maxSequenceLength-2 {
		tokens = tokens[:maxSequenceLength-2]
	}

	seqLen := len(tokens) + 2 // [CLS] ... [SEP]
	inputIDs := make([]int64, 0, seqLen)
	inputIDs = append(inputIDs, l.clsID)
	for _, t := range tokens {
		inputIDs = append(inputIDs, t.id)
	}
	inputIDs = append(inputIDs, l.sepID)

	attention := make([]int64, seqLen)
	tokenTypes := make([]int64, seqLen)
	for i := range attention {
		attention[i] = 1
	}

	shape := ort.NewShape(1, int64(seqLen))
	idsTensor, err := ort.NewTensor[int64](shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor[int64](shape, attention)
	if err != nil {
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()
	typeTensor, err := ort.NewTensor[int64](shape, tokenTypes)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	defer typeTensor.Destroy()

	inputs := make([]ort.Value, 0, len(l.inputNames))
	for _, rawName := range l.inputNames {
		switch strings.ToLower(rawName) {
		case "attention_mask":
			inputs = append(inputs, maskTensor)
		case "token_type_ids":
			inputs = append(inputs, typeTensor)
		default:
			inputs = append(inputs, idsTensor)
		}
	}

	outputs := make([]ort.Value, 1)
	l.mu.Lock()
	sess := l.session
	if sess == nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("onnx session closed")
	}
	err = sess.Run(inputs, outputs)
	l.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("onnx run failed: %w", err)
	}
	defer outputs[0].Destroy()

	logitsTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type")
	}
	logits := logitsTensor.GetData()
	numLabels := len(l.labels)
	if numLabels == 0 || len(logits) < seqLen*numLabels {
		return nil, fmt.Errorf("logits shape mismatch: %d values for %d tokens x %d labels",
			len(logits), seqLen, numLabels)
	}

	return l.decode(tokens, logits, seqLen, numLabels), nil
}

type wordToken struct {
	id    int64
	start int
	end   int
	// cont marks a "##" continuation piece; it inherits the tag of
	// its head token during decoding.
	cont bool
}

// tokenize splits on whitespace/punctuation boundaries and applies
// greedy longest-match WordPiece against the vocab, preserving
// character offsets.
func (l *ONNXLabeler) tokenize(text string) []wordToken {
	var tokens []wordToken

	wordStart := -1
	flush := func(end int) {
		if wordStart < 0 {
			return
		}
		tokens = append(tokens, l.wordPieces(text, wordStart, end)...)
		wordStart = -1
	}

	for i, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush(i)
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush(i)
			piece := strings.ToLower(text[i : i+len(string(r))])
			id, ok := l.vocab[piece]
			if !ok {
				id = l.unkID
			}
			tokens = append(tokens, wordToken{id: id, start: i, end: i + len(string(r))})
		default:
			if wordStart < 0 {
				wordStart = i
			}
		}
	}
	flush(len(text))
	return tokens
}

func (l *ONNXLabeler) wordPieces(text string, start, end int) []wordToken {
	word := strings.ToLower(text[start:end])
	var pieces []wordToken

	pos := 0
	for pos < len(word) {
		match := -1
		for length := len(word) - pos; length > 0; length-- {
			piece := word[pos : pos+length]
			if pos > 0 {
				piece = "##" + piece
			}
			if _, ok := l.vocab[piece]; ok {
				match = length
				pieces = append(pieces, wordToken{
					id:    l.vocab[piece],
					start: start + pos,
					end:   start + pos + length,
					cont:  pos > 0,
				})
				break
			}
		}
		if match < 0 {
			// Whole word unknown
			return []wordToken{{id: l.unkID, start: start, end: end}}
		}
		pos += match
	}
	return pieces
}

// decode argmaxes per-token logits and merges BIO tags into entities.
// Entity score is the mean softmax probability of its tokens.
func (l *ONNXLabeler) decode(tokens []wordToken, logits []float32, seqLen, numLabels int) []Entity {
	var entities []Entity
	var cur *Entity
	var curScores []float64

	closeCurrent := func() {
		if cur == nil {
			return
		}
		sum := 0.0
		for _, s := range curScores {
			sum += s
		}
		cur.Score = sum / float64(len(curScores))
		entities = append(entities, *cur)
		cur, curScores = nil, nil
	}

	for i, tok := range tokens {
		// Offset +1 skips the [CLS] position.
		row := logits[(i+1)*numLabels : (i+2)*numLabels]
		best, prob := argmaxSoftmax(row)
		tag := l.labels[best]

		if tok.cont && cur != nil {
			cur.End = tok.end
			continue
		}

		switch {
		case strings.HasPrefix(tag, "B-"):
			closeCurrent()
			cur = &Entity{Start: tok.start, End: tok.end, Label: strings.TrimPrefix(tag, "B-")}
			curScores = []float64{prob}
		case strings.HasPrefix(tag, "I-") && cur != nil && cur.Label == strings.TrimPrefix(tag, "I-"):
			cur.End = tok.end
			curScores = append(curScores, prob)
		default:
			closeCurrent()
		}
	}
	closeCurrent()

	return entities
}

func argmaxSoftmax(row []float32) (int, float64) {
	best := 0
	for i, v := range row {
		if v > row[best] {
			best = i
		}
	}
	var denom float64
	for _, v := range row {
		denom += math.Exp(float64(v - row[best]))
	}
	return best, 1.0 / denom
}

func loadVocab(path string) (map[string]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	vocab := make(map[string]int64)
	scanner := bufio.NewScanner(f)
	var id int64
	for scanner.Scan() {
		vocab[strings.TrimSpace(scanner.Text())] = id
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(vocab) == 0 {
		return nil, fmt.Errorf("empty vocab file: %s", path)
	}
	return vocab, nil
}

func vocabID(vocab map[string]int64, token string, fallback int64) int64 {
	if id, ok := vocab[token]; ok {
		return id
	}
	return fallback
}
