package analytics

import (
	"context"
	"time"

	"github.com/tradeops/cot-mapping-service/pkg/audit"
	"github.com/tradeops/cot-mapping-service/pkg/common/logger"
)

// MappingStats is the slice of the mapping repository the summary reads.
type MappingStats interface {
	Count(ctx context.Context) (int64, error)
	CountFlagged(ctx context.Context) (int64, int64, error)
	DistinctNewChannels(ctx context.Context) ([]string, error)
	DistinctNewTradeClasses(ctx context.Context) ([]string, error)
	ChannelDistribution(ctx context.Context) (map[string]int64, error)
}

// BatchStats is the slice of the audit repository the summary reads.
type BatchStats interface {
	CountByStatus(ctx context.Context) (int64, int64, error)
	Recent(ctx context.Context, limit int) ([]audit.Entry, error)
	DailyStats(ctx context.Context, since time.Time) ([]audit.DayStat, error)
}

// Cache holds a built summary between ingests. May be a no-op.
type Cache interface {
	GetSummary(ctx context.Context) (*Summary, bool)
	SetSummary(ctx context.Context, summary *Summary)
	Invalidate(ctx context.Context)
}

// BatchDigest is one processed batch in the recent-activity list.
type BatchDigest struct {
	BatchName   string    `json:"batch_name"`
	Origin      string    `json:"origin"`
	Status      string    `json:"status"`
	TotalRows   int       `json:"total_rows"`
	NewItems    int       `json:"new_items"`
	CompletedAt time.Time `json:"completed_at"`
}

// Summary is the typed statistics structure handed to dashboards, the
// trends endpoint, and the data chat prompt. Built once per query rather
// than assembled ad hoc at each call site.
type Summary struct {
	TotalMappings          int64            `json:"total_mappings"`
	FlaggedNewChannels     int64            `json:"flagged_new_channels"`
	FlaggedNewTradeClasses int64            `json:"flagged_new_trade_classes"`
	DistinctChannels       int              `json:"distinct_channels"`
	DistinctTradeClasses   int              `json:"distinct_trade_classes"`
	SuccessfulBatches      int64            `json:"successful_batches"`
	FailedBatches          int64            `json:"failed_batches"`
	ChannelDistribution    map[string]int64 `json:"channel_distribution"`
	RecentBatches          []BatchDigest    `json:"recent_batches"`
	GeneratedAt            time.Time        `json:"generated_at"`
}

type Service struct {
	mappings MappingStats
	batches  BatchStats
	cache    Cache
}

func NewService(mappings MappingStats, batches BatchStats, cache Cache) *Service {
	if cache == nil {
		cache = noopCache{}
	}
	return &Service{mappings: mappings, batches: batches, cache: cache}
}

// Summary returns the cached summary when fresh, otherwise rebuilds it
// from the store.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	if cached, ok := s.cache.GetSummary(ctx); ok {
		return cached, nil
	}

	summary, err := s.build(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.SetSummary(ctx, summary)
	return summary, nil
}

func (s *Service) build(ctx context.Context) (*Summary, error) {
	total, err := s.mappings.Count(ctx)
	if err != nil {
		return nil, err
	}
	newChannels, newTradeClasses, err := s.mappings.CountFlagged(ctx)
	if err != nil {
		return nil, err
	}
	channels, err := s.mappings.DistinctNewChannels(ctx)
	if err != nil {
		return nil, err
	}
	tradeClasses, err := s.mappings.DistinctNewTradeClasses(ctx)
	if err != nil {
		return nil, err
	}
	distribution, err := s.mappings.ChannelDistribution(ctx)
	if err != nil {
		return nil, err
	}
	success, failed, err := s.batches.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.batches.Recent(ctx, 10)
	if err != nil {
		return nil, err
	}

	digests := make([]BatchDigest, len(recent))
	for i, entry := range recent {
		digests[i] = BatchDigest{
			BatchName:   entry.BatchName,
			Origin:      entry.Origin,
			Status:      entry.Status,
			TotalRows:   entry.TotalRows,
			NewItems:    entry.NewChannelCount + entry.NewTradeClassCount,
			CompletedAt: entry.CompletedAt,
		}
	}

	return &Summary{
		TotalMappings:          total,
		FlaggedNewChannels:     newChannels,
		FlaggedNewTradeClasses: newTradeClasses,
		DistinctChannels:       len(channels),
		DistinctTradeClasses:   len(tradeClasses),
		SuccessfulBatches:      success,
		FailedBatches:          failed,
		ChannelDistribution:    distribution,
		RecentBatches:          digests,
		GeneratedAt:            time.Now().UTC(),
	}, nil
}

// Trends rolls up batch activity per day over the given window.
func (s *Service) Trends(ctx context.Context, days int) ([]audit.DayStat, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	return s.batches.DailyStats(ctx, since)
}

// Invalidate drops the cached summary. The ingest service calls this after
// every successful batch.
func (s *Service) Invalidate(ctx context.Context) {
	s.cache.Invalidate(ctx)
	logger.Log.Debug("analytics summary cache invalidated")
}

type noopCache struct{}

func (noopCache) GetSummary(context.Context) (*Summary, bool) { return nil, false }
func (noopCache) SetSummary(context.Context, *Summary)        {}
func (noopCache) Invalidate(context.Context)                  {}
