package schema

import (
	"strings"
)

// DeliveryMode selects how pipeline events reach the consumer.
type DeliveryMode string

const (
	// DeliveryModeBatch accumulates drafts and writes them once at the end of the run.
	DeliveryModeBatch DeliveryMode = "batch"
	// DeliveryModeStream writes every event as soon as it is produced.
	DeliveryModeStream DeliveryMode = "stream"
)

// Column is one CSV output column.
type Column struct {
	Name string
}

// CSVContract is the logical schema of the batch export.
type CSVContract struct {
	Mode    DeliveryMode
	Columns []Column
}

// ContactsCSV is the stable export contract: one row per draft.
var ContactsCSV = CSVContract{
	Mode:    DeliveryModeBatch,
	Columns: []Column{{Name: "name"}, {Name: "email"}},
}

// Header returns the column names in order.
func (c CSVContract) Header() []string {
	out := make([]string, 0, len(c.Columns))
	for _, col := range c.Columns {
		out = append(out, col.Name)
	}
	return out
}

func NormalizeMode(raw string) DeliveryMode {
	s := strings.TrimSpace(strings.ToLower(raw))
	switch s {
	case "stream", "streaming", "ndjson":
		return DeliveryModeStream
	default:
		return DeliveryModeBatch
	}
}
