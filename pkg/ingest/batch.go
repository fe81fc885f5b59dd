package ingest

import (
	"strings"
)

// Canonical column names a batch must provide after header normalisation.
const (
	FieldOriginalChannel    = "original_channel"
	FieldOriginalTradeClass = "original_trade_class"
	FieldNewChannel         = "new_channel"
	FieldNewTradeClass      = "new_trade_class"
	FieldNotes              = "notes"
)

var requiredFields = []string{
	FieldOriginalChannel,
	FieldOriginalTradeClass,
	FieldNewChannel,
	FieldNewTradeClass,
}

// Row is one spreadsheet row mapped to canonical fields. Values are
// trimmed; blank means absent.
type Row struct {
	OriginalChannel    string
	OriginalTradeClass string
	NewChannel         string
	NewTradeClass      string
	Notes              string
}

// HasIdentity reports whether the row carries the key it would be upserted
// under.
func (r Row) HasIdentity() bool {
	return r.OriginalChannel != "" && r.OriginalTradeClass != ""
}

// Batch is one spreadsheet's worth of mapping rows submitted together.
type Batch struct {
	Name string
	Rows []Row
}

// NewChannelValues returns the batch's non-blank new_channel values, in row
// order, duplicates included; the novelty detector deduplicates.
func (b *Batch) NewChannelValues() []string {
	out := make([]string, 0, len(b.Rows))
	for _, row := range b.Rows {
		if row.NewChannel != "" {
			out = append(out, row.NewChannel)
		}
	}
	return out
}

func (b *Batch) NewTradeClassValues() []string {
	out := make([]string, 0, len(b.Rows))
	for _, row := range b.Rows {
		if row.NewTradeClass != "" {
			out = append(out, row.NewTradeClass)
		}
	}
	return out
}

// normalizeHeader lowercases, trims, and collapses separators so that
// "IC Channel", "ic_channel" and " Ic  Channel " all read the same.
func normalizeHeader(raw string) string {
	h := strings.ToLower(strings.TrimSpace(raw))
	h = strings.Join(strings.Fields(h), " ")
	return h
}

// resolveColumns maps canonical field names to column indexes using the
// alias table. Headers that resolve to no canonical field are ignored.
func resolveColumns(headers []string, aliases map[string]string) map[string]int {
	columns := make(map[string]int, len(requiredFields)+1)
	for idx, raw := range headers {
		h := normalizeHeader(raw)
		if h == "" {
			continue
		}

		canonical, ok := aliases[h]
		if !ok {
			// An underscore-separated header may already be canonical.
			canonical = strings.ReplaceAll(h, " ", "_")
		}
		if !isCanonicalField(canonical) {
			continue
		}
		if _, taken := columns[canonical]; taken {
			continue
		}
		columns[canonical] = idx
	}
	return columns
}

func isCanonicalField(name string) bool {
	switch name {
	case FieldOriginalChannel, FieldOriginalTradeClass, FieldNewChannel, FieldNewTradeClass, FieldNotes:
		return true
	}
	return false
}

// buildBatch validates the resolved columns and converts raw rows into
// canonical ones. Missing required columns reject the batch wholesale.
func buildBatch(name string, headers []string, rows [][]string, aliases map[string]string) (*Batch, error) {
	columns := resolveColumns(headers, aliases)

	var missing []string
	for _, field := range requiredFields {
		if _, ok := columns[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, ValidationError{Missing: missing}
	}

	batch := &Batch{Name: name, Rows: make([]Row, 0, len(rows))}
	for _, raw := range rows {
		batch.Rows = append(batch.Rows, Row{
			OriginalChannel:    cell(raw, columns[FieldOriginalChannel]),
			OriginalTradeClass: cell(raw, columns[FieldOriginalTradeClass]),
			NewChannel:         cell(raw, columns[FieldNewChannel]),
			NewTradeClass:      cell(raw, columns[FieldNewTradeClass]),
			Notes:              cellOptional(raw, columns, FieldNotes),
		})
	}
	return batch, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func cellOptional(row []string, columns map[string]int, field string) string {
	idx, ok := columns[field]
	if !ok {
		return ""
	}
	return cell(row, idx)
}
