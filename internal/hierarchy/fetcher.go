package hierarchy

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/ssandy33/ado-pulse/internal/batch"
	"github.com/ssandy33/ado-pulse/internal/domain"
)

const (
	DefaultBatchSize   = 200
	DefaultConcurrency = 3
)

// Source is the work-item side of the tracker. WorkItems omits ids that do
// not exist; WorkItem returns nil, nil for them.
type Source interface {
	WorkItems(ctx context.Context, ids []int) ([]domain.WorkItem, error)
	WorkItem(ctx context.Context, id int) (*domain.WorkItem, error)
}

type BatchFetcher struct {
	src         Source
	batchSize   int
	concurrency int
	log         zerolog.Logger
}

func NewBatchFetcher(src Source, batchSize, concurrency int, log zerolog.Logger) *BatchFetcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &BatchFetcher{src: src, batchSize: batchSize, concurrency: concurrency, log: log}
}

// Fetch loads the given work items in fixed-size batches. Unknown ids are
// simply absent from the result.
func (f *BatchFetcher) Fetch(ctx context.Context, ids []int) (map[int]domain.WorkItem, error) {
	uniq := dedupe(ids)
	out := make(map[int]domain.WorkItem, len(uniq))
	if len(uniq) == 0 {
		return out, nil
	}
	chunks := batch.Chunk(uniq, f.batchSize)
	tasks := make([]batch.Task[[]domain.WorkItem], 0, len(chunks))
	for _, chunk := range chunks {
		chunk := chunk
		tasks = append(tasks, func(ctx context.Context) ([]domain.WorkItem, error) {
			return f.src.WorkItems(ctx, chunk)
		})
	}
	results, err := batch.Run(ctx, tasks, f.concurrency)
	if err != nil {
		return nil, fmt.Errorf("fetch work items: %w", err)
	}
	for _, items := range results {
		for _, wi := range items {
			out[wi.ID] = wi
		}
	}
	f.log.Debug().Int("requested", len(uniq)).Int("found", len(out)).Int("batches", len(chunks)).Msg("work items fetched")
	return out, nil
}

// Prefetch warms cache with ids and their ancestors, one hierarchy level per
// round, stopping at items of unitType and after MaxDepth levels.
func (f *BatchFetcher) Prefetch(ctx context.Context, ids []int, cache *Cache, unitType string) error {
	level := unknown(ids, cache)
	for depth := 0; depth < MaxDepth && len(level) > 0; depth++ {
		items, err := f.Fetch(ctx, level)
		if err != nil {
			return err
		}
		var parents []int
		for _, id := range level {
			wi, ok := items[id]
			if !ok {
				cache.MarkMissing(id)
				continue
			}
			cache.Put(wi)
			if wi.Type != unitType && wi.ParentID != nil {
				parents = append(parents, *wi.ParentID)
			}
		}
		level = unknown(parents, cache)
	}
	return nil
}

func unknown(ids []int, cache *Cache) []int {
	var out []int
	for _, id := range dedupe(ids) {
		if !cache.Known(id) {
			out = append(out, id)
		}
	}
	return out
}

func dedupe(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
