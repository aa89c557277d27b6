package embedder

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// The ONNX Runtime environment is process-wide and may be initialised once.
var runtimeInit struct {
	once sync.Once
	err  error
}

func initRuntime(libPath string) error {
	runtimeInit.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		runtimeInit.err = ort.InitializeEnvironment()
	})
	return runtimeInit.err
}

// bertInputs are the tensors a BERT-style encoder expects, in feed order.
var bertInputs = []string{"input_ids", "attention_mask", "token_type_ids"}

// onnxSession wraps a DynamicAdvancedSession for an encoder that returns
// per-token hidden states shaped [batch, seq, dim].
type onnxSession struct {
	session    *ort.DynamicAdvancedSession
	outputName string
	embedDim   int64
	mu         sync.Mutex
}

func newONNXSession(modelPath, libPath string) (*onnxSession, error) {
	if libPath == "" {
		libPath = filepath.Join(filepath.Dir(modelPath), sharedLibraryName())
	}
	if err := initRuntime(libPath); err != nil {
		return nil, fmt.Errorf("onnx: initialise runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: read model info: %w", err)
	}
	if err := checkInputs(inputs); err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs")
	}
	dims := outputs[0].Dimensions
	if len(dims) != 3 {
		return nil, fmt.Errorf("onnx: expected 3D output tensor, got %v", dims)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(4)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(modelPath, bertInputs, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: create session: %w", err)
	}

	return &onnxSession{
		session:    session,
		outputName: outputs[0].Name,
		embedDim:   dims[2],
	}, nil
}

func sharedLibraryName() string {
	switch runtime.GOOS {
	case "darwin":
		return "libonnxruntime.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		return "libonnxruntime.so"
	}
}

func checkInputs(inputs []ort.InputOutputInfo) error {
	have := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		have[in.Name] = true
	}
	for _, name := range bertInputs {
		if !have[name] {
			return fmt.Errorf("onnx: model missing required input %q", name)
		}
	}
	return nil
}

// infer runs one forward pass over flat [rows*cols] inputs and returns the
// flat [rows*cols*embedDim] hidden states.
func (s *onnxSession) infer(inputIDs, attentionMask, tokenTypeIDs []int64, rows, cols int64) ([]float32, error) {
	shape := ort.NewShape(rows, cols)

	feeds := make([]ort.Value, 0, len(bertInputs))
	defer func() {
		for _, v := range feeds {
			v.Destroy()
		}
	}()
	for _, data := range [][]int64{inputIDs, attentionMask, tokenTypeIDs} {
		t, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("onnx: input tensor: %w", err)
		}
		feeds = append(feeds, t)
	}

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(rows, cols, s.embedDim))
	if err != nil {
		return nil, fmt.Errorf("onnx: output tensor: %w", err)
	}
	defer out.Destroy()

	s.mu.Lock()
	err = s.session.Run(feeds, []ort.Value{out})
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("onnx: inference: %w", err)
	}

	src := out.GetData()
	hidden := make([]float32, len(src))
	copy(hidden, src)
	return hidden, nil
}

func (s *onnxSession) close() error {
	return s.session.Destroy()
}
