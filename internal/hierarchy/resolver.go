package hierarchy

import (
	"context"
	"fmt"
	"sync"

	"github.com/ssandy33/ado-pulse/internal/domain"
)

// MaxDepth bounds the parent-chain walk.
const MaxDepth = 5

// Resolver maps a work item to the Feature that owns it. One Resolver serves
// one run: its memo and cache are never shared across runs.
type Resolver struct {
	src      Source
	cache    *Cache
	unitType string

	mu   sync.Mutex
	memo map[int]domain.ResolvedFeature
}

func NewResolver(src Source, cache *Cache, unitType string) *Resolver {
	if unitType == "" {
		unitType = domain.FeatureType
	}
	return &Resolver{src: src, cache: cache, unitType: unitType, memo: map[int]domain.ResolvedFeature{}}
}

func (r *Resolver) UnitType() string { return r.unitType }

// WorkItem returns the cached work item, if any.
func (r *Resolver) WorkItem(id int) (domain.WorkItem, bool) { return r.cache.Get(id) }

// Resolve walks up from id until it finds an item of the unit type. Missing
// items, dangling parents, cycles and chains deeper than MaxDepth all yield
// NoFeature. Only upstream failures return an error.
func (r *Resolver) Resolve(ctx context.Context, id int) (domain.ResolvedFeature, error) {
	r.mu.Lock()
	if rf, ok := r.memo[id]; ok {
		r.mu.Unlock()
		return rf, nil
	}
	r.mu.Unlock()

	rf, err := r.walk(ctx, id)
	if err != nil {
		return domain.ResolvedFeature{}, err
	}

	r.mu.Lock()
	r.memo[id] = rf
	r.mu.Unlock()
	return rf, nil
}

func (r *Resolver) walk(ctx context.Context, id int) (domain.ResolvedFeature, error) {
	current := id
	visited := make(map[int]struct{}, MaxDepth)
	for depth := 0; depth < MaxDepth; depth++ {
		if _, seen := visited[current]; seen {
			return domain.NoFeature(), nil
		}
		visited[current] = struct{}{}

		wi, err := r.lookup(ctx, current)
		if err != nil {
			return domain.ResolvedFeature{}, err
		}
		if wi == nil {
			return domain.NoFeature(), nil
		}
		if wi.Type == r.unitType {
			return featureOf(*wi), nil
		}
		if wi.ParentID == nil {
			break
		}
		current = *wi.ParentID
	}
	return domain.NoFeature(), nil
}

func (r *Resolver) lookup(ctx context.Context, id int) (*domain.WorkItem, error) {
	if wi, ok := r.cache.Get(id); ok {
		return &wi, nil
	}
	if r.cache.IsMissing(id) {
		return nil, nil
	}
	wi, err := r.src.WorkItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve work item %d: %w", id, err)
	}
	if wi == nil {
		r.cache.MarkMissing(id)
		return nil, nil
	}
	r.cache.Put(*wi)
	return wi, nil
}

func featureOf(wi domain.WorkItem) domain.ResolvedFeature {
	id := wi.ID
	title := wi.Title
	if title == "" {
		title = fmt.Sprintf("Feature %d", wi.ID)
	}
	return domain.ResolvedFeature{FeatureID: &id, FeatureTitle: title, ExpenseType: domain.ParseExpenseType(wi.Expense)}
}
