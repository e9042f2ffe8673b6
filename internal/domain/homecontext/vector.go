package homecontext

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/janhq/reno-server/internal/domain/llm"
)

// VectorRanker ranks fragments by embedding similarity using an in-process
// chromem collection per home. Fragments are embedded once and re-embedded
// only when their text changes.
type VectorRanker struct {
	db    *chromem.DB
	embed chromem.EmbeddingFunc

	mu      sync.Mutex
	indexed map[string]map[string]uint64 // collection -> fragment id -> text hash
}

// NewVectorRanker builds a ranker backed by embedder.
func NewVectorRanker(embedder llm.Embedder) *VectorRanker {
	return &VectorRanker{
		db:      chromem.NewDB(),
		embed:   chromem.EmbeddingFunc(embedder.Embed),
		indexed: make(map[string]map[string]uint64),
	}
}

func (r *VectorRanker) Rank(ctx context.Context, homeID, query string, fragments []Fragment, k int) ([]Fragment, error) {
	if len(fragments) == 0 {
		return nil, nil
	}
	if k <= 0 || k > len(fragments) {
		k = len(fragments)
	}

	col, err := r.sync(ctx, "home_"+homeID, fragments)
	if err != nil {
		return nil, err
	}

	n := col.Count()
	if n == 0 {
		return nil, fmt.Errorf("vector collection for home %s is empty", homeID)
	}
	results, err := col.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	byID := make(map[string]Fragment, len(fragments))
	for _, f := range fragments {
		byID[f.ID] = f
	}
	out := make([]Fragment, 0, k)
	for _, res := range results {
		if f, ok := byID[res.ID]; ok {
			out = append(out, f)
			if len(out) == k {
				break
			}
		}
	}
	return out, nil
}

func (r *VectorRanker) sync(ctx context.Context, name string, fragments []Fragment) (*chromem.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	col, err := r.db.GetOrCreateCollection(name, nil, r.embed)
	if err != nil {
		return nil, fmt.Errorf("open vector collection: %w", err)
	}
	known := r.indexed[name]
	if known == nil {
		known = make(map[string]uint64)
		r.indexed[name] = known
	}

	var pending []chromem.Document
	hashes := make(map[string]uint64)
	for _, f := range fragments {
		h := textHash(f.Text)
		if prev, ok := known[f.ID]; ok && prev == h {
			continue
		}
		hashes[f.ID] = h
		pending = append(pending, chromem.Document{
			ID:       f.ID,
			Content:  f.Text,
			Metadata: map[string]string{"source": f.Source},
		})
	}
	if len(pending) > 0 {
		if err := col.AddDocuments(ctx, pending, 4); err != nil {
			return nil, fmt.Errorf("index fragments: %w", err)
		}
		for id, h := range hashes {
			known[id] = h
		}
	}
	return col, nil
}

func textHash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
