package storage

import "pumpscope/internal/model"

// Sink persists enrichment output.
type Sink interface {
	Append(entry model.CpiLogEntry) error
}
