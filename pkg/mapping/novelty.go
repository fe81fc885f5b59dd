package mapping

import (
	"context"
	"sort"
)

// DistinctValueSource exposes the persisted value history the detector
// compares against. *Repository satisfies it.
type DistinctValueSource interface {
	DistinctNewChannels(ctx context.Context) ([]string, error)
	DistinctNewTradeClasses(ctx context.Context) ([]string, error)
}

// NoveltyDetector decides which of a batch's new channel and trade-class
// values have never been persisted before. It is read-only and must run
// before any write from the same batch, so novelty reflects pre-batch
// history rather than the batch's own rows.
type NoveltyDetector struct {
	source DistinctValueSource
}

func NewNoveltyDetector(source DistinctValueSource) *NoveltyDetector {
	return &NoveltyDetector{source: source}
}

// Detect returns the batch values absent from history, deduplicated and
// sorted. Blank values are ignored on both sides.
func (d *NoveltyDetector) Detect(ctx context.Context, batchChannels, batchTradeClasses []string) ([]string, []string, error) {
	existingChannels, err := d.source.DistinctNewChannels(ctx)
	if err != nil {
		return nil, nil, err
	}
	existingTradeClasses, err := d.source.DistinctNewTradeClasses(ctx)
	if err != nil {
		return nil, nil, err
	}

	novelChannels := difference(batchChannels, existingChannels)
	novelTradeClasses := difference(batchTradeClasses, existingTradeClasses)
	return novelChannels, novelTradeClasses, nil
}

func difference(batch, existing []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		if v != "" {
			seen[v] = struct{}{}
		}
	}

	dedup := make(map[string]struct{}, len(batch))
	var out []string
	for _, v := range batch {
		if v == "" {
			continue
		}
		if _, exists := seen[v]; exists {
			continue
		}
		if _, dup := dedup[v]; dup {
			continue
		}
		dedup[v] = struct{}{}
		out = append(out, v)
	}

	sort.Strings(out)
	return out
}
