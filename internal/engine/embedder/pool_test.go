package embedder

import (
	"math"
	"testing"
)

func TestMeanPoolSkipsPadding(t *testing.T) {
	// one row, three positions, dim 2; last position is padding
	hidden := []float32{1, 2, 3, 4, 5, 6}
	mask := []int64{1, 1, 0}

	out := meanPool(hidden, mask, 1, 3, 2)

	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if !approx(out[0], 2) || !approx(out[1], 3) {
		t.Errorf("got %v, want [2 3]", out)
	}
}

func TestMeanPoolRows(t *testing.T) {
	hidden := []float32{10, 20, 30, 40, 5, 15, 0, 0}
	mask := []int64{1, 1, 1, 0}

	out := meanPool(hidden, mask, 2, 2, 2)

	want := []float32{20, 30, 5, 15}
	for i := range want {
		if !approx(out[i], want[i]) {
			t.Fatalf("got %v, want %v", out, want)
		}
	}
}

func TestMeanPoolFullyMaskedRow(t *testing.T) {
	out := meanPool([]float32{1, 2, 3, 4}, []int64{0, 0}, 1, 2, 2)
	for i, v := range out {
		if v != 0 {
			t.Errorf("out[%d] = %f, want 0", i, v)
		}
	}
}

func TestL2Normalize(t *testing.T) {
	vec := []float32{3, 4}
	l2Normalize(vec)
	if !approx(vec[0], 0.6) || !approx(vec[1], 0.8) {
		t.Errorf("got %v, want [0.6 0.8]", vec)
	}

	zero := []float32{0, 0}
	l2Normalize(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("zero vector changed: %v", zero)
	}
}

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-6
}
