package mapping

import "time"

// Record is one resolved channel / class-of-trade mapping. The pair
// (original_channel, original_trade_class) identifies the record; later
// batches carrying the same pair overwrite payload, provenance, and the
// novelty flags.
type Record struct {
	ID                 uint      `json:"id" gorm:"primaryKey;column:id"`
	OriginalChannel    string    `json:"original_channel" gorm:"column:original_channel;size:100;uniqueIndex:idx_identity_key"`
	OriginalTradeClass string    `json:"original_trade_class" gorm:"column:original_trade_class;size:200;uniqueIndex:idx_identity_key"`
	NewChannel         string    `json:"new_channel" gorm:"column:new_channel;size:100;index"`
	NewTradeClass      string    `json:"new_trade_class" gorm:"column:new_trade_class;size:200;index"`
	Notes              string    `json:"notes,omitempty" gorm:"column:notes;type:text"`
	SourceBatch        string    `json:"source_batch" gorm:"column:source_batch;size:255"`
	IsNewChannel       bool      `json:"is_new_channel" gorm:"column:is_new_channel;index:idx_novelty_flags"`
	IsNewTradeClass    bool      `json:"is_new_trade_class" gorm:"column:is_new_trade_class;index:idx_novelty_flags"`
	LastProcessedAt    time.Time `json:"last_processed_at" gorm:"column:last_processed_at;index"`
	CreatedAt          time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Record) TableName() string {
	return "cot_mappings"
}
