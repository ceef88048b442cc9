package domain

import (
	"context"
	"time"
)

// EntryView is a served entry with its derived freshness
type EntryView[T any] struct {
	Data      T         `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	Freshness Freshness `json:"freshness"`
}

// Service is the cache surface used by HTTP and main
type Service interface {
	IdentifierList(key string) (EntryView[[]string], bool)
	SetIdentifierList(key string, ids []string)
	MergeIdentifierList(key string, ids []string)

	LineItems(key string) (EntryView[[]LineItem], bool)
	SetLineItems(key string, items []LineItem)
	MergeLineItems(key string, items []LineItem)
	DetectChanges(key string, items []LineItem) ChangeSet

	StatusSnapshot(key string) (EntryView[StatusSnapshot], bool)
	SetStatusSnapshot(key string, s StatusSnapshot)
	MergeStatusSnapshot(key string, s StatusSnapshot)

	AllIDs() (EntryView[[]string], bool)
	SetAllIDs(ids []string)
	MergeAllIDs(ids []string)

	Keys(table string) ([]string, error)
	Invalidate(table, key string) error
	InvalidateAll()

	Analytics() Report
	Freshness() FreshnessReport
}

// PersisterPort runs the background snapshot writer
type PersisterPort interface {
	Load(ctx context.Context)
	Run(ctx context.Context) error
	Flush(ctx context.Context)
}
