package router

import (
	"encoding/json"
	"time"

	"github.com/rickgao/collection-replay/internal/idstore"
	"github.com/rickgao/collection-replay/internal/protocol"
	"github.com/rickgao/collection-replay/internal/sink"
)

// RouterConfig holds configuration for the Response Router.
type RouterConfig struct {
	QueueHint int // Initial queue capacity. Default: 1000
}

// DefaultRouterConfig returns default configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		QueueHint: 1000,
	}
}

// Record is a routed response waiting to be appended to its bucket.
type Record struct {
	Bucket        string
	CorrelationID string
	Body          json.RawMessage // Complete body, starting at '['
	ReceivedAt    time.Time
}

// Resolver maps a correlation id to the bucket its response is stored under.
type Resolver interface {
	Bucket(correlationID string) string
}

// IDResolver buckets by the raw correlation id.
type IDResolver struct{}

func (IDResolver) Bucket(correlationID string) string {
	return correlationID
}

// NameResolver buckets by the store name of the request's entry.
// Ids the index does not know, or entries without a name, fall back to the raw id.
// Entries that share a name share a bucket.
type NameResolver struct {
	Index *idstore.Index
}

func (r NameResolver) Bucket(correlationID string) string {
	seq, ok := protocol.ParseSeq(correlationID)
	if !ok || r.Index == nil {
		return correlationID
	}
	entry, ok := r.Index.Lookup(seq)
	if !ok || entry.Name == "" {
		return correlationID
	}
	return sink.SanitizeName(entry.Name)
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	FramesReceived int64
	FramesRouted   int64
	FramesIgnored  int64 // Not a response, or no body
	ParseErrors    int64 // Response with an invalid body or missing id
	Queue          QueueStats
}
