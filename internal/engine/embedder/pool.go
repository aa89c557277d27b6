package embedder

import "math"

// meanPool averages hidden states over the unmasked positions of each row.
// hidden is [rows*cols*dim], mask is [rows*cols]; the result is [rows*dim].
// A row with no unmasked positions pools to the zero vector.
func meanPool(hidden []float32, mask []int64, rows, cols, dim int64) []float32 {
	out := make([]float32, rows*dim)
	for r := int64(0); r < rows; r++ {
		acc := out[r*dim : (r+1)*dim]
		var n int
		for c := int64(0); c < cols; c++ {
			if mask[r*cols+c] != 1 {
				continue
			}
			n++
			tok := hidden[(r*cols+c)*dim : (r*cols+c+1)*dim]
			for d, v := range tok {
				acc[d] += v
			}
		}
		if n == 0 {
			continue
		}
		inv := 1 / float32(n)
		for d := range acc {
			acc[d] *= inv
		}
	}
	return out
}

// l2Normalize scales vec to unit length in place. Zero vectors are left as is.
func l2Normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
}
