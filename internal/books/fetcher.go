package books

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crossvenue/opinion-arb/internal/venue"
	"github.com/crossvenue/opinion-arb/pkg/types"
)

// Fetcher acquires YES books for a set of matches each cycle: one chunked
// bulk request against Polymarket running in parallel with a bounded
// worker pool of single fetches against Opinion.
type Fetcher struct {
	opinion    venue.Adapter
	polymarket venue.Adapter
	realtime   *RealtimeCache // optional Opinion book source
	config     Config
	logger     *zap.Logger
}

// Config holds fetcher configuration.
type Config struct {
	BatchSize      int
	OpinionWorkers int
	MaxSkew        time.Duration
	FetchTimeout   time.Duration
	Logger         *zap.Logger
}

// CycleBooks maps token id to snapshot for one scan cycle. Snapshots are
// discarded between cycles.
type CycleBooks map[string]*types.OrderBookSnapshot

// NewFetcher creates a fetcher over the two venue adapters. realtime may be
// nil; when set, Opinion books are read from the stream cache instead of
// REST.
func NewFetcher(opinion, polymarket venue.Adapter, realtime *RealtimeCache, cfg Config) *Fetcher {
	return &Fetcher{
		opinion:    opinion,
		polymarket: polymarket,
		realtime:   realtime,
		config:     cfg,
		logger:     cfg.Logger,
	}
}

// FetchCycle fetches the YES books for all matches, batch by batch, and
// applies the skew gate per match. Missing tokens are tolerated; the
// detector skips those matches.
func (f *Fetcher) FetchCycle(ctx context.Context, matches []types.MarketMatch) CycleBooks {
	start := time.Now()
	defer func() {
		FetchCycleDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	result := make(CycleBooks, 2*len(matches))

	batchSize := f.config.BatchSize
	if batchSize <= 0 {
		batchSize = len(matches)
	}

	for begin := 0; begin < len(matches); begin += batchSize {
		end := begin + batchSize
		if end > len(matches) {
			end = len(matches)
		}
		f.fetchBatch(ctx, matches[begin:end], result)

		if ctx.Err() != nil {
			return result
		}
	}

	// Skew gate: drop both snapshots of any match whose fetch timestamps
	// diverge too far.
	for _, m := range matches {
		a, okA := result[m.YesTokenA]
		b, okB := result[m.YesTokenB]
		if !okA || !okB {
			continue
		}
		if types.SkewExceeds(a, b, f.config.MaxSkew) {
			delete(result, m.YesTokenA)
			delete(result, m.YesTokenB)
			SkewGateDropsTotal.Inc()
			f.logger.Warn("orderbook-skew-gate-drop",
				zap.String("question", m.Question),
				zap.Time("opinion-ts", a.FetchedAt),
				zap.Time("polymarket-ts", b.FetchedAt))
		}
	}

	return result
}

// fetchBatch fetches one batch of matches: the Polymarket bulk call and the
// Opinion worker pool run in parallel.
func (f *Fetcher) fetchBatch(ctx context.Context, matches []types.MarketMatch, out CycleBooks) {
	opinionTokens := make([]string, 0, len(matches))
	polyTokens := make([]string, 0, len(matches))
	for _, m := range matches {
		opinionTokens = append(opinionTokens, m.YesTokenA)
		polyTokens = append(polyTokens, m.YesTokenB)
	}

	fetchCtx := ctx
	if f.config.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, f.config.FetchTimeout)
		defer cancel()
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		bulk, err := f.polymarket.FetchBooksBulk(fetchCtx, polyTokens)
		if err != nil {
			BookFetchErrorsTotal.WithLabelValues(string(types.VenuePolymarket)).Inc()
			f.logger.Warn("polymarket-bulk-fetch-failed", zap.Error(err))
			return
		}

		mu.Lock()
		for tokenID, snap := range bulk {
			if snap.Crossed() {
				CrossedBooksTotal.WithLabelValues(string(types.VenuePolymarket)).Inc()
				continue
			}
			out[tokenID] = snap
			BooksFetchedTotal.WithLabelValues(string(types.VenuePolymarket)).Inc()
		}
		mu.Unlock()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		f.fetchOpinionPool(fetchCtx, opinionTokens, &mu, out)
	}()

	wg.Wait()
}

// fetchOpinionPool runs a bounded worker pool over single Opinion fetches,
// or reads the realtime cache when it is enabled.
func (f *Fetcher) fetchOpinionPool(ctx context.Context, tokens []string, mu *sync.Mutex, out CycleBooks) {
	if f.realtime != nil {
		now := time.Now()
		mu.Lock()
		for _, tokenID := range tokens {
			if snap, ok := f.realtime.Get(tokenID); ok {
				// Stamp the read time so the skew gate measures staleness.
				copied := *snap
				copied.FetchedAt = now
				if snap.FetchedAt.Before(now.Add(-f.config.MaxSkew)) {
					copied.FetchedAt = snap.FetchedAt
				}
				out[tokenID] = &copied
				BooksFetchedTotal.WithLabelValues(string(types.VenueOpinion)).Inc()
			}
		}
		mu.Unlock()
		return
	}

	workers := f.config.OpinionWorkers
	if workers <= 0 {
		workers = 1
	}

	jobs := make(chan string)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tokenID := range jobs {
				snap, err := f.opinion.FetchBook(ctx, tokenID)
				if err != nil {
					BookFetchErrorsTotal.WithLabelValues(string(types.VenueOpinion)).Inc()
					f.logger.Warn("opinion-book-fetch-failed",
						zap.String("token-id", tokenID),
						zap.Error(err))
					continue
				}
				if snap.Crossed() {
					CrossedBooksTotal.WithLabelValues(string(types.VenueOpinion)).Inc()
					continue
				}

				mu.Lock()
				out[tokenID] = snap
				mu.Unlock()
				BooksFetchedTotal.WithLabelValues(string(types.VenueOpinion)).Inc()
			}
		}()
	}

	for _, tokenID := range tokens {
		select {
		case jobs <- tokenID:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		}
	}
	close(jobs)
	wg.Wait()
}
