package embedder

import (
	"context"
	"fmt"
)

// Embedder produces vector embeddings from text. Implementations are
// constructed once and shared; they must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Close() error
}

// Config locates the files of a local BERT-style ONNX model.
type Config struct {
	ModelPath      string
	VocabPath      string
	ProjectionPath string // optional dense projection (safetensors, "linear.weight")
	LibraryPath    string // onnxruntime shared library; defaults next to the model
	MaxSeqLen      int    // defaults to 128
	Normalize      bool   // L2-normalise output vectors
}

// ONNXEmbedder runs embedding inference in-process: wordpiece tokenisation,
// ONNX forward pass, masked mean pooling and an optional dense projection.
type ONNXEmbedder struct {
	session   *onnxSession
	tok       *wordPiece
	dense     *dense
	normalize bool
}

// New loads the model, vocabulary and (if configured) projection weights.
func New(cfg Config) (*ONNXEmbedder, error) {
	maxLen := cfg.MaxSeqLen
	if maxLen <= 0 {
		maxLen = defaultMaxSeqLen
	}

	tok, err := loadWordPiece(cfg.VocabPath, maxLen)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	sess, err := newONNXSession(cfg.ModelPath, cfg.LibraryPath)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	var d *dense
	if cfg.ProjectionPath != "" {
		d, err = loadDense(cfg.ProjectionPath)
		if err != nil {
			sess.close()
			return nil, fmt.Errorf("embedder: %w", err)
		}
		if int64(d.inDim) != sess.embedDim {
			sess.close()
			return nil, fmt.Errorf("embedder: model output dim %d != projection input dim %d",
				sess.embedDim, d.inDim)
		}
	}

	return &ONNXEmbedder{session: sess, tok: tok, dense: d, normalize: cfg.Normalize}, nil
}

// Dim returns the dimensionality of produced vectors.
func (e *ONNXEmbedder) Dim() int {
	if e.dense != nil {
		return e.dense.outDim
	}
	return int(e.session.embedDim)
}

// Embed produces a single embedding vector.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one inference call, padded to the longest input.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := e.tok.encodeBatch(texts)
	hidden, err := e.session.infer(b.inputIDs, b.attentionMask, b.tokenTypeIDs, b.rows, b.cols)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	dim := e.session.embedDim
	pooled := meanPool(hidden, b.attentionMask, b.rows, b.cols, dim)

	out := make([][]float32, b.rows)
	for i := int64(0); i < b.rows; i++ {
		vec := pooled[i*dim : (i+1)*dim]
		if e.dense != nil {
			vec = e.dense.apply(vec)
		}
		if e.normalize {
			l2Normalize(vec)
		}
		out[i] = vec
	}
	return out, nil
}

// Close releases ONNX Runtime resources.
func (e *ONNXEmbedder) Close() error {
	if e.session != nil {
		return e.session.close()
	}
	return nil
}
