package audit

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("processing log entry not found")

type ListFilter struct {
	Status string
	Offset int
	Limit  int
}

// DayStat is one day's rollup of batch activity, oldest first.
type DayStat struct {
	Day          time.Time `json:"day"`
	Batches      int64     `json:"batches"`
	Failed       int64     `json:"failed"`
	TotalRows    int64     `json:"total_rows"`
	NewItemsSeen int64     `json:"new_items_seen"`
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Entry{})
}

func (r *Repository) Create(ctx context.Context, entry *Entry) error {
	entry.CreatedAt = time.Now().UTC()
	if entry.CompletedAt.IsZero() {
		entry.CompletedAt = entry.CreatedAt
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *Repository) Get(ctx context.Context, id uint) (*Entry, error) {
	var entry Entry
	result := r.db.WithContext(ctx).First(&entry, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &entry, result.Error
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	query := r.db.WithContext(ctx).Model(&Entry{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	var rows []Entry
	err := query.Order("completed_at DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return r.List(ctx, ListFilter{Limit: limit})
}

// DeleteOlderThan removes entries whose completion predates the cutoff and
// reports how many were swept.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("completed_at < ?", cutoff).Delete(&Entry{})
	return result.RowsAffected, result.Error
}

func (r *Repository) CountByStatus(ctx context.Context) (success int64, failed int64, err error) {
	if err = r.db.WithContext(ctx).Model(&Entry{}).
		Where("status = ?", StatusSuccess).Count(&success).Error; err != nil {
		return
	}
	err = r.db.WithContext(ctx).Model(&Entry{}).
		Where("status = ?", StatusError).Count(&failed).Error
	return
}

func (r *Repository) DailyStats(ctx context.Context, since time.Time) ([]DayStat, error) {
	type row struct {
		Day          time.Time
		Batches      int64
		Failed       int64
		TotalRows    int64
		NewItemsSeen int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&Entry{}).
		Select(`date_trunc('day', completed_at) as day,
			count(id) as batches,
			count(id) filter (where status = ?) as failed,
			coalesce(sum(total_rows), 0) as total_rows,
			coalesce(sum(new_channel_count + new_trade_class_count), 0) as new_items_seen`, StatusError).
		Where("completed_at >= ?", since).
		Group("day").
		Order("day ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := make([]DayStat, len(rows))
	for i, r := range rows {
		stats[i] = DayStat{
			Day:          r.Day,
			Batches:      r.Batches,
			Failed:       r.Failed,
			TotalRows:    r.TotalRows,
			NewItemsSeen: r.NewItemsSeen,
		}
	}
	return stats, nil
}
