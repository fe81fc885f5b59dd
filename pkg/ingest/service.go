package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tradeops/cot-mapping-service/pkg/audit"
	"github.com/tradeops/cot-mapping-service/pkg/common/logger"
	"github.com/tradeops/cot-mapping-service/pkg/mapping"
	"gorm.io/datatypes"
)

// RecordStore is the slice of the mapping repository the per-row upsert
// loop needs.
type RecordStore interface {
	FindByKey(ctx context.Context, originalChannel, originalTradeClass string) (*mapping.Record, error)
	Create(ctx context.Context, rec *mapping.Record) error
	Update(ctx context.Context, rec *mapping.Record) error
}

// Store adds the history reads the novelty detector uses and transactional
// execution, so a batch's writes commit as one unit.
type Store interface {
	RecordStore
	mapping.DistinctValueSource
	InBatch(ctx context.Context, fn func(RecordStore) error) error
}

type gormStore struct {
	repo *mapping.Repository
}

// NewStore adapts the gorm-backed mapping repository to the ingest store
// contract.
func NewStore(repo *mapping.Repository) Store {
	return gormStore{repo: repo}
}

func (s gormStore) FindByKey(ctx context.Context, ch, tc string) (*mapping.Record, error) {
	return s.repo.FindByKey(ctx, ch, tc)
}

func (s gormStore) Create(ctx context.Context, rec *mapping.Record) error {
	return s.repo.Create(ctx, rec)
}

func (s gormStore) Update(ctx context.Context, rec *mapping.Record) error {
	return s.repo.Update(ctx, rec)
}

func (s gormStore) DistinctNewChannels(ctx context.Context) ([]string, error) {
	return s.repo.DistinctNewChannels(ctx)
}

func (s gormStore) DistinctNewTradeClasses(ctx context.Context) ([]string, error) {
	return s.repo.DistinctNewTradeClasses(ctx)
}

func (s gormStore) InBatch(ctx context.Context, fn func(RecordStore) error) error {
	return s.repo.InTransaction(ctx, func(tx *mapping.Repository) error {
		return fn(tx)
	})
}

// LogStore persists one audit entry per batch attempt.
type LogStore interface {
	Create(ctx context.Context, entry *audit.Entry) error
}

// EventPublisher announces processed batches downstream. Optional.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// CacheInvalidator drops derived statistics after the store changes.
// Optional.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// Result aggregates one batch's ingest outcome. The novelty lists carry the
// literal values, deduplicated and sorted, for notifications.
type Result struct {
	TotalRows       int      `json:"total_rows"`
	RowsInserted    int      `json:"rows_inserted"`
	RowsUpdated     int      `json:"rows_updated"`
	RowsSkipped     int      `json:"rows_skipped"`
	NewChannels     []string `json:"new_channels"`
	NewTradeClasses []string `json:"new_trade_classes"`
}

// ProcessRequest is one delivery of raw spreadsheet bytes, from either the
// upload endpoint or the mailbox poller.
type ProcessRequest struct {
	FileName  string
	Content   []byte
	Origin    string
	Subject   string
	MessageID string
}

type Service struct {
	store    Store
	detector *mapping.NoveltyDetector
	logs     LogStore
	aliases  map[string]string
	producer EventPublisher
	cache    CacheInvalidator
}

// NewService wires the ingestion procedure. producer and cache may be nil.
func NewService(store Store, logs LogStore, aliases map[string]string, producer EventPublisher, cache CacheInvalidator) *Service {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	return &Service{
		store:    store,
		detector: mapping.NewNoveltyDetector(store),
		logs:     logs,
		aliases:  aliases,
		producer: producer,
		cache:    cache,
	}
}

// Ingest upserts a batch into the record store. Novelty is computed against
// persisted history before any write, so values repeated within the batch
// are all flagged novel. Rows without an identity key are skipped; the
// batch commits as a single transaction.
//
// Row-level skips cover failures raised before the row's write lands
// (lookup errors, rejected values). A write that fails inside the
// transaction leaves it aborted on postgres, so later rows fail too and
// the commit surfaces a StoreError for the whole batch.
func (s *Service) Ingest(ctx context.Context, batch *Batch) (*Result, error) {
	novelChannels, novelTradeClasses, err := s.detector.Detect(ctx,
		batch.NewChannelValues(), batch.NewTradeClassValues())
	if err != nil {
		return nil, StoreError{Err: fmt.Errorf("detecting novel values: %w", err)}
	}

	channelSet := toSet(novelChannels)
	tradeClassSet := toSet(novelTradeClasses)

	result := &Result{
		TotalRows:       len(batch.Rows),
		NewChannels:     novelChannels,
		NewTradeClasses: novelTradeClasses,
	}

	err = s.store.InBatch(ctx, func(tx RecordStore) error {
		for _, row := range batch.Rows {
			if !row.HasIdentity() {
				result.RowsSkipped++
				continue
			}

			if err := s.upsertRow(ctx, tx, batch.Name, row, channelSet, tradeClassSet, result); err != nil {
				// Row-level failures never abort the batch.
				logger.Log.WithError(err).WithFields(map[string]interface{}{
					"batch":   batch.Name,
					"channel": row.OriginalChannel,
				}).Warn("row skipped")
				result.RowsSkipped++
			}
		}
		return nil
	})
	if err != nil {
		return nil, StoreError{Err: fmt.Errorf("committing batch: %w", err)}
	}

	return result, nil
}

func (s *Service) upsertRow(ctx context.Context, tx RecordStore, batchName string, row Row, novelChannels, novelTradeClasses map[string]struct{}, result *Result) error {
	now := time.Now().UTC()
	_, isNewChannel := novelChannels[row.NewChannel]
	_, isNewTradeClass := novelTradeClasses[row.NewTradeClass]

	existing, err := tx.FindByKey(ctx, row.OriginalChannel, row.OriginalTradeClass)
	switch {
	case err == nil:
		existing.NewChannel = row.NewChannel
		existing.NewTradeClass = row.NewTradeClass
		existing.Notes = row.Notes
		existing.SourceBatch = batchName
		existing.IsNewChannel = isNewChannel
		existing.IsNewTradeClass = isNewTradeClass
		existing.LastProcessedAt = now
		if err := tx.Update(ctx, existing); err != nil {
			return err
		}
		result.RowsUpdated++
	case err == mapping.ErrNotFound:
		rec := &mapping.Record{
			OriginalChannel:    row.OriginalChannel,
			OriginalTradeClass: row.OriginalTradeClass,
			NewChannel:         row.NewChannel,
			NewTradeClass:      row.NewTradeClass,
			Notes:              row.Notes,
			SourceBatch:        batchName,
			IsNewChannel:       isNewChannel,
			IsNewTradeClass:    isNewTradeClass,
			LastProcessedAt:    now,
		}
		if err := tx.Create(ctx, rec); err != nil {
			return err
		}
		result.RowsInserted++
	default:
		return err
	}
	return nil
}

// ProcessBatch is the shared ingest-and-log path behind both delivery
// drivers. It writes exactly one audit entry per attempt, success or
// failure, then surfaces the error for the caller to decide on.
func (s *Service) ProcessBatch(ctx context.Context, req ProcessRequest) (*Result, error) {
	start := time.Now()

	batch, err := ParseBatch(req.FileName, req.Content, s.aliases)
	if err != nil {
		s.writeLog(ctx, req, nil, start, err)
		return nil, err
	}

	result, err := s.Ingest(ctx, batch)
	if err != nil {
		s.writeLog(ctx, req, nil, start, err)
		return nil, err
	}

	s.writeLog(ctx, req, result, start, nil)

	if s.producer != nil {
		data := map[string]interface{}{
			"batch_name":        req.FileName,
			"origin":            req.Origin,
			"total_rows":        result.TotalRows,
			"rows_inserted":     result.RowsInserted,
			"rows_updated":      result.RowsUpdated,
			"rows_skipped":      result.RowsSkipped,
			"new_channels":      result.NewChannels,
			"new_trade_classes": result.NewTradeClasses,
		}
		if err := s.producer.PublishEvent(ctx, "mapping-batch-processed", req.Origin, data); err != nil {
			logger.Log.WithError(err).Warn("failed to publish batch event")
		}
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}

	logger.Log.WithFields(map[string]interface{}{
		"batch":    req.FileName,
		"origin":   req.Origin,
		"inserted": result.RowsInserted,
		"updated":  result.RowsUpdated,
		"skipped":  result.RowsSkipped,
	}).Info("batch processed")

	return result, nil
}

func (s *Service) writeLog(ctx context.Context, req ProcessRequest, result *Result, start time.Time, ingestErr error) {
	entry := &audit.Entry{
		BatchName:      req.FileName,
		Origin:         req.Origin,
		Subject:        req.Subject,
		MessageID:      req.MessageID,
		Status:         audit.StatusSuccess,
		ByteSize:       int64(len(req.Content)),
		DurationMillis: time.Since(start).Milliseconds(),
		CompletedAt:    time.Now().UTC(),
	}

	if ingestErr != nil {
		entry.Status = audit.StatusError
		entry.ErrorDetail = ingestErr.Error()
	} else if result != nil {
		entry.TotalRows = result.TotalRows
		entry.RowsInserted = result.RowsInserted
		entry.RowsUpdated = result.RowsUpdated
		entry.RowsSkipped = result.RowsSkipped
		entry.NewChannelCount = len(result.NewChannels)
		entry.NewTradeClassCount = len(result.NewTradeClasses)
		entry.NewChannels = toJSONList(result.NewChannels)
		entry.NewTradeClasses = toJSONList(result.NewTradeClasses)
	}

	if err := s.logs.Create(ctx, entry); err != nil {
		logger.Log.WithError(err).WithField("batch", req.FileName).Error("failed to write processing log")
	}
}

func toJSONList(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
