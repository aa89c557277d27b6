package embedder

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

const denseTensor = "linear.weight"

// dense is a bias-free linear layer applied after pooling.
type dense struct {
	weights []float32 // row-major [outDim, inDim]
	inDim   int
	outDim  int
}

type tensorMeta struct {
	Dtype       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

// loadDense reads the F32 "linear.weight" tensor from a safetensors file.
func loadDense(path string) (*dense, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dense: %w", err)
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("dense: file too small: %d bytes", len(data))
	}

	headerLen := binary.LittleEndian.Uint64(data[:8])
	if headerLen > uint64(len(data)-8) {
		return nil, fmt.Errorf("dense: header length %d exceeds file size", headerLen)
	}
	body := data[8+headerLen:]

	var header map[string]json.RawMessage
	if err := json.Unmarshal(data[8:8+headerLen], &header); err != nil {
		return nil, fmt.Errorf("dense: parse header: %w", err)
	}
	raw, ok := header[denseTensor]
	if !ok {
		return nil, fmt.Errorf("dense: tensor %q not found", denseTensor)
	}
	var meta tensorMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("dense: parse tensor metadata: %w", err)
	}
	if meta.Dtype != "F32" {
		return nil, fmt.Errorf("dense: expected dtype F32, got %s", meta.Dtype)
	}
	if len(meta.Shape) != 2 || meta.Shape[0] <= 0 || meta.Shape[1] <= 0 {
		return nil, fmt.Errorf("dense: expected 2D tensor, got shape %v", meta.Shape)
	}

	outDim, inDim := meta.Shape[0], meta.Shape[1]
	start, end := meta.DataOffsets[0], meta.DataOffsets[1]
	if start < 0 || end > len(body) || end-start != outDim*inDim*4 {
		return nil, fmt.Errorf("dense: data range [%d:%d] does not fit shape %v", start, end, meta.Shape)
	}

	weights := make([]float32, outDim*inDim)
	for i := range weights {
		off := start + i*4
		weights[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[off : off+4]))
	}
	return &dense{weights: weights, inDim: inDim, outDim: outDim}, nil
}

func (d *dense) apply(vec []float32) []float32 {
	out := make([]float32, d.outDim)
	for i := range out {
		row := d.weights[i*d.inDim : (i+1)*d.inDim]
		var sum float32
		for j, w := range row {
			sum += w * vec[j]
		}
		out[i] = sum
	}
	return out
}
