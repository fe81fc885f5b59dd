package mapping

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("mapping record not found")

type ListFilter struct {
	NewChannelsOnly     bool
	NewTradeClassesOnly bool
	Offset              int
	Limit               int
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Record{})
}

// InTransaction runs fn against a repository bound to a single database
// transaction. The ingest path uses this so a batch commits as one unit.
func (r *Repository) InTransaction(ctx context.Context, fn func(*Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) FindByKey(ctx context.Context, originalChannel, originalTradeClass string) (*Record, error) {
	var rec Record
	result := r.db.WithContext(ctx).
		Where("original_channel = ? AND original_trade_class = ?", originalChannel, originalTradeClass).
		First(&rec)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, result.Error
}

func (r *Repository) Create(ctx context.Context, rec *Record) error {
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *Repository) Update(ctx context.Context, rec *Record) error {
	rec.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(rec).Error
}

func (r *Repository) Get(ctx context.Context, id uint) (*Record, error) {
	var rec Record
	result := r.db.WithContext(ctx).First(&rec, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, result.Error
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	query := r.db.WithContext(ctx).Model(&Record{})
	if filter.NewChannelsOnly {
		query = query.Where("is_new_channel = ?", true)
	}
	if filter.NewTradeClassesOnly {
		query = query.Where("is_new_trade_class = ?", true)
	}
	if filter.Limit <= 0 {
		filter.Limit = 100
	}

	var rows []Record
	err := query.Order("last_processed_at DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&rows).Error
	return rows, err
}

// DistinctNewChannels returns every non-blank new_channel value currently
// persisted, across the whole history.
func (r *Repository) DistinctNewChannels(ctx context.Context) ([]string, error) {
	var values []string
	err := r.db.WithContext(ctx).Model(&Record{}).
		Where("new_channel IS NOT NULL AND new_channel <> ''").
		Distinct().
		Pluck("new_channel", &values).Error
	return values, err
}

func (r *Repository) DistinctNewTradeClasses(ctx context.Context) ([]string, error) {
	var values []string
	err := r.db.WithContext(ctx).Model(&Record{}).
		Where("new_trade_class IS NOT NULL AND new_trade_class <> ''").
		Distinct().
		Pluck("new_trade_class", &values).Error
	return values, err
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Record{}).Count(&n).Error
	return n, err
}

func (r *Repository) CountFlagged(ctx context.Context) (newChannels int64, newTradeClasses int64, err error) {
	if err = r.db.WithContext(ctx).Model(&Record{}).
		Where("is_new_channel = ?", true).Count(&newChannels).Error; err != nil {
		return
	}
	err = r.db.WithContext(ctx).Model(&Record{}).
		Where("is_new_trade_class = ?", true).Count(&newTradeClasses).Error
	return
}

// ChannelDistribution groups mapping counts by their resolved channel.
func (r *Repository) ChannelDistribution(ctx context.Context) (map[string]int64, error) {
	type bucket struct {
		NewChannel string
		Total      int64
	}
	var buckets []bucket
	err := r.db.WithContext(ctx).Model(&Record{}).
		Select("new_channel, count(id) as total").
		Where("new_channel <> ''").
		Group("new_channel").
		Scan(&buckets).Error
	if err != nil {
		return nil, err
	}

	dist := make(map[string]int64, len(buckets))
	for _, b := range buckets {
		dist[b.NewChannel] = b.Total
	}
	return dist, nil
}
