package venue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateSpacesRequests(t *testing.T) {
	g := NewGate(100) // 10ms spacing

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 4; i++ {
		require.NoError(t, g.Wait(ctx))
	}

	// First request is immediate; three more need ~30ms.
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestGateHonorsCancellation(t *testing.T) {
	g := NewGate(0.1) // 10s spacing

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, g.Wait(ctx)) // burst slot
	err := g.Wait(ctx)
	assert.Error(t, err)
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name     string
		tokens   []string
		size     int
		expected [][]string
	}{
		{
			name:     "even split",
			tokens:   []string{"a", "b", "c", "d"},
			size:     2,
			expected: [][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			name:     "remainder",
			tokens:   []string{"a", "b", "c"},
			size:     2,
			expected: [][]string{{"a", "b"}, {"c"}},
		},
		{
			name:     "chunk larger than input",
			tokens:   []string{"a"},
			size:     25,
			expected: [][]string{{"a"}},
		},
		{
			name:     "empty input",
			tokens:   nil,
			size:     25,
			expected: nil,
		},
		{
			name:     "invalid size",
			tokens:   []string{"a"},
			size:     0,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Chunk(tt.tokens, tt.size))
		})
	}
}
