package audit

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

// OriginManual marks entries produced by the synchronous upload endpoint,
// as opposed to a sender address captured by the polling driver.
const OriginManual = "manual"

// Entry is the audit record written exactly once per batch attempt. Entries
// are immutable; only the retention sweep removes them.
type Entry struct {
	ID                 uint           `json:"id" gorm:"primaryKey;column:id"`
	BatchName          string         `json:"batch_name" gorm:"column:batch_name;size:255;index"`
	Origin             string         `json:"origin" gorm:"column:origin;size:255;index"`
	Subject            string         `json:"subject,omitempty" gorm:"column:subject;size:500"`
	MessageID          string         `json:"message_id,omitempty" gorm:"column:message_id;size:255"`
	Status             string         `json:"status" gorm:"column:status;size:20;index"`
	TotalRows          int            `json:"total_rows" gorm:"column:total_rows"`
	RowsInserted       int            `json:"rows_inserted" gorm:"column:rows_inserted"`
	RowsUpdated        int            `json:"rows_updated" gorm:"column:rows_updated"`
	RowsSkipped        int            `json:"rows_skipped" gorm:"column:rows_skipped"`
	NewChannelCount    int            `json:"new_channel_count" gorm:"column:new_channel_count"`
	NewTradeClassCount int            `json:"new_trade_class_count" gorm:"column:new_trade_class_count"`
	NewChannels        datatypes.JSON `json:"new_channels,omitempty" gorm:"column:new_channels"`
	NewTradeClasses    datatypes.JSON `json:"new_trade_classes,omitempty" gorm:"column:new_trade_classes"`
	ErrorDetail        string         `json:"error_detail,omitempty" gorm:"column:error_detail;type:text"`
	DurationMillis     int64          `json:"duration_ms" gorm:"column:duration_ms"`
	ByteSize           int64          `json:"byte_size" gorm:"column:byte_size"`
	CompletedAt        time.Time      `json:"completed_at" gorm:"column:completed_at;index"`
	CreatedAt          time.Time      `json:"created_at" gorm:"column:created_at"`
}

func (Entry) TableName() string {
	return "processing_logs"
}
