package domain

import "context"

// KVStore is the persistence collaborator: a durable key-value store holding
// JSON-encoded values. Implementations must return ErrNotFound for absent
// keys. Callers treat absent or corrupt values as "empty", never as fatal.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// MarketFetcher is the market source collaborator. A failed fetch surfaces an
// error and leaves previously fetched data untouched; the engine does not
// retry.
type MarketFetcher interface {
	FetchMarkets(ctx context.Context, tab SourceTab, f MarketFilters) ([]Market, error)
}

// BalanceProvider supplies the funding wallet's available balance, read-only.
type BalanceProvider interface {
	BalanceOf(ctx context.Context, address string) (float64, error)
}

// ExportSink receives the final payload of a completed export run. The default
// sink logs the payload; real delivery targets (object storage, a backend
// call) substitute here without altering pipeline semantics.
type ExportSink interface {
	Deliver(ctx context.Context, payload ExportPayload) error
	Name() string
}
