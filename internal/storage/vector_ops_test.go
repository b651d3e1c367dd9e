package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSerializeDeserializeVector(t *testing.T) {
	original := []float32{0.1, -0.5, 3.14159, 0, 1e-8}

	blob := SerializeVector(original)
	assert.Len(t, blob, len(original)*4)

	restored := DeserializeVector(blob)
	assert.Equal(t, original, restored)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.expected, got, 1e-6)
		})
	}
}

func TestCosineSimilarity_Scale(t *testing.T) {
	// Cosine similarity is scale-invariant
	a := []float32{1, 2, 3}
	b := []float32{10, 20, 30}
	assert.InDelta(t, 1.0, CosineSimilarity(a, b), 1e-6)
}

func TestSanitizeFTSQuery(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain terms", "how to find", "how to find"},
		{"quotes stripped", `"exact phrase"`, "exact phrase"},
		{"operators become terms", "find AND grep", "find AND grep"},
		{"parens stripped", "(find)", "find"},
		{"wildcards stripped", "find*", "find"},
		{"column filter stripped", "prompt:find", "prompt find"},
		{"only syntax", `((("*`, ""},
		{"empty", "", ""},
		{"underscores kept", "snake_case", "snake_case"},
		{"punctuation splits tokens", "git-rebase --onto", "git rebase onto"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFTSQuery(tt.input))
		})
	}
}

func TestDeserializeVector_TruncatedBlob(t *testing.T) {
	// A blob whose length is not a multiple of 4 yields only complete floats
	blob := []byte{0, 0, 128, 63, 1, 2}
	restored := DeserializeVector(blob)
	assert.Len(t, restored, 1)
	assert.InDelta(t, 1.0, float64(restored[0]), 1e-6)
}

func TestCosineDistanceRange(t *testing.T) {
	// Distance 1-sim stays in [0, 2]
	vectors := [][]float32{{1, 0}, {0, 1}, {-1, 0}, {0.5, 0.5}}
	for _, a := range vectors {
		for _, b := range vectors {
			d := 1.0 - CosineSimilarity(a, b)
			assert.GreaterOrEqual(t, d, 0.0)
			assert.LessOrEqual(t, d, 2.0+1e-9)
		}
	}
}
