package venue

import (
	"context"

	"golang.org/x/time/rate"
)

// Gate throttles venue requests to a fixed RPS with burst 1, so request
// spacing is even rather than bursty.
type Gate struct {
	limiter *rate.Limiter
}

// NewGate creates a gate allowing rps requests per second.
func NewGate(rps float64) *Gate {
	return &Gate{limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

// Wait blocks until the next request slot or until ctx is cancelled.
func (g *Gate) Wait(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}

// Chunk splits tokens into slices of at most size elements, preserving
// order. Used to bound bulk request payloads.
func Chunk(tokens []string, size int) [][]string {
	if size <= 0 || len(tokens) == 0 {
		return nil
	}

	chunks := make([][]string, 0, (len(tokens)+size-1)/size)
	for start := 0; start < len(tokens); start += size {
		end := start + size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, tokens[start:end])
	}
	return chunks
}
