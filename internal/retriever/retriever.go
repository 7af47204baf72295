package retriever

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/chatrecall/internal/ai"
	"github.com/xxxsen/chatrecall/internal/model"
	"github.com/xxxsen/chatrecall/internal/vectorstore"
)

const (
	defaultTopK     = 5
	defaultMinScore = 0.4

	// The vector stage over-fetches at a relaxed floor so the keyword boost
	// can promote entries that would otherwise sit just below minScore.
	vectorOverFetchFactor = 5
	vectorMinFetch        = 25
	vectorFloorRelax      = 0.3
	vectorFloorMin        = 0.2

	keywordMinLength  = 4
	keywordStageLimit = 10
	keywordBoostStep  = 0.2
	keywordBoostCap   = 0.5
	keywordOnlyBase   = 0.6
	keywordOnlyStep   = 0.1
	keywordOnlyCap    = 0.9
)

type Options struct {
	TopK     int
	MinScore float64
	Filter   *vectorstore.SearchFilter
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = defaultTopK
	}
	if o.MinScore <= 0 {
		o.MinScore = defaultMinScore
	}
	return o
}

// Retriever fuses dense vector search with a lexical keyword scan. Pure
// vector similarity under-ranks short proper-noun queries (names, dates)
// common in personal chat search, so keyword matches either boost a vector
// hit or enter the result with a bounded synthetic score.
type Retriever struct {
	embedder ai.Embedder
	store    vectorstore.Store
}

func New(embedder ai.Embedder, store vectorstore.Store) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

type candidate struct {
	chunk        *model.StoredChunk
	vectorScore  float64
	fromVector   bool
	keywordCount int
	order        int
}

func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) (*model.RetrievalResult, error) {
	opts = opts.withDefaults()
	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	floor := opts.MinScore - vectorFloorRelax
	if floor < vectorFloorMin {
		floor = vectorFloorMin
	}
	fetch := opts.TopK * vectorOverFetchFactor
	if fetch < vectorMinFetch {
		fetch = vectorMinFetch
	}
	vectorHits, err := r.store.Search(ctx, embedding, vectorstore.SearchOptions{
		TopK:     fetch,
		MinScore: floor,
		Filter:   opts.Filter,
	})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	candidates := map[string]*candidate{}
	order := 0
	for _, hit := range vectorHits {
		candidates[hit.Chunk.ID] = &candidate{
			chunk:       hit.Chunk,
			vectorScore: hit.Score,
			fromVector:  true,
			order:       order,
		}
		order++
	}

	keywords := ExtractKeywords(query)
	if hasLongKeyword(keywords) {
		matches, err := r.scanKeywords(ctx, keywords, opts.Filter)
		if err != nil {
			// lexical stage is an enhancement, not a prerequisite
			logutil.GetLogger(ctx).Warn("keyword scan failed", zap.Error(err))
		} else {
			for _, match := range matches {
				if existing, ok := candidates[match.chunk.ID]; ok {
					existing.keywordCount = match.count
					continue
				}
				candidates[match.chunk.ID] = &candidate{
					chunk:        match.chunk,
					keywordCount: match.count,
					order:        order,
				}
				order++
			}
		}
	}

	fused := make([]model.ScoredChunk, 0, len(candidates))
	type ranked struct {
		item       model.ScoredChunk
		fromVector bool
		order      int
	}
	rankedList := make([]ranked, 0, len(candidates))
	for _, cand := range candidates {
		var score float64
		if cand.fromVector {
			boost := keywordBoostStep * float64(cand.keywordCount)
			if boost > keywordBoostCap {
				boost = keywordBoostCap
			}
			score = cand.vectorScore + boost
			if score > 1.0 {
				score = 1.0
			}
		} else {
			score = keywordOnlyBase + keywordOnlyStep*float64(cand.keywordCount)
			if score > keywordOnlyCap {
				score = keywordOnlyCap
			}
		}
		rankedList = append(rankedList, ranked{
			item:       model.ScoredChunk{Chunk: cand.chunk, Score: score},
			fromVector: cand.fromVector,
			order:      cand.order,
		})
	}
	sort.SliceStable(rankedList, func(i, j int) bool {
		if rankedList[i].item.Score != rankedList[j].item.Score {
			return rankedList[i].item.Score > rankedList[j].item.Score
		}
		if rankedList[i].fromVector != rankedList[j].fromVector {
			return rankedList[i].fromVector
		}
		return rankedList[i].order < rankedList[j].order
	})
	for _, entry := range rankedList {
		if entry.item.Score < opts.MinScore {
			continue
		}
		fused = append(fused, entry.item)
		if len(fused) >= opts.TopK {
			break
		}
	}
	return &model.RetrievalResult{Chunks: fused}, nil
}

func hasLongKeyword(keywords []string) bool {
	for _, kw := range keywords {
		if len([]rune(kw)) >= keywordMinLength {
			return true
		}
	}
	return false
}

type keywordMatch struct {
	chunk *model.StoredChunk
	count int
}

// scanKeywords walks the whole store counting occurrences. A full scan is
// acceptable for personal archives; it does not scale to large corpora and
// is intentionally capped at the top few matches.
func (r *Retriever) scanKeywords(ctx context.Context, keywords []string, filter *vectorstore.SearchFilter) ([]keywordMatch, error) {
	var matches []keywordMatch
	err := r.store.ScrollAll(ctx, filter, func(chunk *model.StoredChunk) error {
		var b strings.Builder
		for _, msg := range chunk.Messages {
			b.WriteString(strings.ToLower(msg.Sender))
			b.WriteByte(' ')
			b.WriteString(strings.ToLower(msg.Content))
			b.WriteByte(' ')
		}
		text := b.String()
		count := 0
		for _, kw := range keywords {
			count += strings.Count(text, kw)
		}
		if count > 0 {
			matches = append(matches, keywordMatch{chunk: chunk, count: count})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].count > matches[j].count
	})
	if len(matches) > keywordStageLimit {
		matches = matches[:keywordStageLimit]
	}
	return matches, nil
}
