package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tradeops/cot-mapping-service/pkg/audit"
	"github.com/tradeops/cot-mapping-service/pkg/mapping"
)

// memStore keeps committed records in memory and applies each batch through
// a staging copy, so a forced commit error leaves history untouched.
type memStore struct {
	records   map[string]*mapping.Record
	nextID    uint
	commitErr error
	findErr   map[string]error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*mapping.Record), findErr: make(map[string]error)}
}

func key(ch, tc string) string { return ch + "|" + tc }

func (s *memStore) FindByKey(ctx context.Context, ch, tc string) (*mapping.Record, error) {
	if err, ok := s.findErr[key(ch, tc)]; ok {
		return nil, err
	}
	rec, ok := s.records[key(ch, tc)]
	if !ok {
		return nil, mapping.ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (s *memStore) Create(ctx context.Context, rec *mapping.Record) error {
	s.nextID++
	rec.ID = s.nextID
	clone := *rec
	s.records[key(rec.OriginalChannel, rec.OriginalTradeClass)] = &clone
	return nil
}

func (s *memStore) Update(ctx context.Context, rec *mapping.Record) error {
	clone := *rec
	s.records[key(rec.OriginalChannel, rec.OriginalTradeClass)] = &clone
	return nil
}

func (s *memStore) DistinctNewChannels(ctx context.Context) ([]string, error) {
	return s.distinct(func(r *mapping.Record) string { return r.NewChannel }), nil
}

func (s *memStore) DistinctNewTradeClasses(ctx context.Context) ([]string, error) {
	return s.distinct(func(r *mapping.Record) string { return r.NewTradeClass }), nil
}

func (s *memStore) distinct(field func(*mapping.Record) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, rec := range s.records {
		v := field(rec)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func (s *memStore) InBatch(ctx context.Context, fn func(RecordStore) error) error {
	staging := &memStore{
		records: make(map[string]*mapping.Record, len(s.records)),
		nextID:  s.nextID,
		findErr: s.findErr,
	}
	for k, rec := range s.records {
		clone := *rec
		staging.records[k] = &clone
	}

	if err := fn(staging); err != nil {
		return err
	}
	if s.commitErr != nil {
		return s.commitErr
	}
	s.records = staging.records
	s.nextID = staging.nextID
	return nil
}

type memLogs struct {
	entries []*audit.Entry
	err     error
}

func (l *memLogs) Create(ctx context.Context, entry *audit.Entry) error {
	if l.err != nil {
		return l.err
	}
	l.entries = append(l.entries, entry)
	return nil
}

type recordingProducer struct {
	events []string
}

func (p *recordingProducer) PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error {
	p.events = append(p.events, eventType)
	return nil
}

type recordingCache struct {
	invalidations int
}

func (c *recordingCache) Invalidate(ctx context.Context) { c.invalidations++ }

func csvPayload(rows ...string) []byte {
	payload := "IC Channel,IC COT,New Channel,New COT\n"
	for _, row := range rows {
		payload += row + "\n"
	}
	return []byte(payload)
}

func TestIngestCountsSkipsAndNovelty(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &memLogs{}, nil, nil, nil)

	batch := &Batch{Name: "first.csv", Rows: []Row{
		{OriginalChannel: "Retail", OriginalTradeClass: "Pharmacy", NewChannel: "Community Retail", NewTradeClass: "Independent"},
		{OriginalChannel: "Hospital", OriginalTradeClass: "Acute", NewChannel: "Community Retail", NewTradeClass: "Acute Care"},
		{OriginalChannel: "", OriginalTradeClass: "Acute", NewChannel: "Orphan", NewTradeClass: ""},
	}}

	result, err := svc.Ingest(context.Background(), batch)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if result.TotalRows != 3 || result.RowsInserted != 2 || result.RowsUpdated != 0 || result.RowsSkipped != 1 {
		t.Errorf("counts = %+v, want total 3, inserted 2, skipped 1", result)
	}
	if result.TotalRows != result.RowsInserted+result.RowsUpdated+result.RowsSkipped {
		t.Error("row counts must partition the batch")
	}

	// Two rows share the same unseen channel; novelty is computed against
	// history, so both carry the flag and the value appears once.
	if len(result.NewChannels) != 2 {
		t.Errorf("NewChannels = %v, want [Community Retail Orphan]", result.NewChannels)
	}
	for _, k := range []string{key("Retail", "Pharmacy"), key("Hospital", "Acute")} {
		if rec := store.records[k]; rec == nil || !rec.IsNewChannel {
			t.Errorf("record %s should be flagged as new channel", k)
		}
	}
}

func TestIngestIsIdempotent(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &memLogs{}, nil, nil, nil)

	batch := &Batch{Name: "repeat.csv", Rows: []Row{
		{OriginalChannel: "Retail", OriginalTradeClass: "Pharmacy", NewChannel: "Community Retail", NewTradeClass: "Independent"},
		{OriginalChannel: "Hospital", OriginalTradeClass: "Acute", NewChannel: "Institutional", NewTradeClass: "Acute Care"},
	}}

	if _, err := svc.Ingest(context.Background(), batch); err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}
	second, err := svc.Ingest(context.Background(), batch)
	if err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}

	if second.RowsInserted != 0 || second.RowsUpdated != 2 {
		t.Errorf("second run inserted %d updated %d, want 0 and 2", second.RowsInserted, second.RowsUpdated)
	}
	if len(second.NewChannels) != 0 || len(second.NewTradeClasses) != 0 {
		t.Errorf("second run novelty = %v / %v, want none", second.NewChannels, second.NewTradeClasses)
	}
	if len(store.records) != 2 {
		t.Errorf("store holds %d records, want 2", len(store.records))
	}
}

func TestIngestRowFailureSkipsWithoutAborting(t *testing.T) {
	store := newMemStore()
	store.findErr[key("Hospital", "Acute")] = errors.New("connection reset")
	svc := NewService(store, &memLogs{}, nil, nil, nil)

	batch := &Batch{Name: "partial.csv", Rows: []Row{
		{OriginalChannel: "Retail", OriginalTradeClass: "Pharmacy", NewChannel: "Community Retail"},
		{OriginalChannel: "Hospital", OriginalTradeClass: "Acute", NewChannel: "Institutional"},
	}}

	result, err := svc.Ingest(context.Background(), batch)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if result.RowsInserted != 1 || result.RowsSkipped != 1 {
		t.Errorf("counts = %+v, want inserted 1 skipped 1", result)
	}
	if _, ok := store.records[key("Retail", "Pharmacy")]; !ok {
		t.Error("healthy row should still commit")
	}
}

func TestProcessBatchWritesOneSuccessLog(t *testing.T) {
	store := newMemStore()
	logs := &memLogs{}
	producer := &recordingProducer{}
	cache := &recordingCache{}
	svc := NewService(store, logs, nil, producer, cache)

	result, err := svc.ProcessBatch(context.Background(), ProcessRequest{
		FileName: "upload.csv",
		Content:  csvPayload("Retail,Pharmacy,Community Retail,Independent"),
		Origin:   audit.OriginManual,
	})
	if err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}
	if result.RowsInserted != 1 {
		t.Errorf("inserted = %d, want 1", result.RowsInserted)
	}

	if len(logs.entries) != 1 {
		t.Fatalf("wrote %d log entries, want exactly 1", len(logs.entries))
	}
	entry := logs.entries[0]
	if entry.Status != audit.StatusSuccess || entry.BatchName != "upload.csv" || entry.Origin != audit.OriginManual {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.TotalRows != 1 || entry.NewChannelCount != 1 || entry.NewTradeClassCount != 1 {
		t.Errorf("entry counts: %+v", entry)
	}

	if len(producer.events) != 1 || producer.events[0] != "mapping-batch-processed" {
		t.Errorf("events = %v", producer.events)
	}
	if cache.invalidations != 1 {
		t.Errorf("cache invalidated %d times, want 1", cache.invalidations)
	}
}

func TestProcessBatchLogsParseFailure(t *testing.T) {
	store := newMemStore()
	logs := &memLogs{}
	svc := NewService(store, logs, nil, nil, nil)

	_, err := svc.ProcessBatch(context.Background(), ProcessRequest{
		FileName: "broken.csv",
		Content:  []byte("Region,Notes\nWest,hello\n"),
		Origin:   audit.OriginManual,
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !IsValidationError(err) {
		t.Errorf("expected ValidationError, got %v", err)
	}

	if len(logs.entries) != 1 {
		t.Fatalf("wrote %d log entries, want exactly 1", len(logs.entries))
	}
	entry := logs.entries[0]
	if entry.Status != audit.StatusError || entry.ErrorDetail == "" {
		t.Errorf("unexpected failure entry: %+v", entry)
	}
	if entry.TotalRows != 0 {
		t.Errorf("failure entry should carry no row counts: %+v", entry)
	}
	if len(store.records) != 0 {
		t.Error("no records should be written for a rejected batch")
	}
}

func TestProcessBatchCommitFailureLeavesHistoryUntouched(t *testing.T) {
	store := newMemStore()
	store.commitErr = fmt.Errorf("deadlock detected")
	logs := &memLogs{}
	svc := NewService(store, logs, nil, nil, nil)

	_, err := svc.ProcessBatch(context.Background(), ProcessRequest{
		FileName: "doomed.csv",
		Content:  csvPayload("Retail,Pharmacy,Community Retail,Independent"),
		Origin:   audit.OriginManual,
	})
	if err == nil {
		t.Fatal("expected commit error")
	}
	if !IsStoreError(err) {
		t.Errorf("expected StoreError, got %v", err)
	}

	if len(store.records) != 0 {
		t.Error("failed commit must not leave partial writes")
	}
	if len(logs.entries) != 1 || logs.entries[0].Status != audit.StatusError {
		t.Errorf("expected one error entry, got %+v", logs.entries)
	}
}
