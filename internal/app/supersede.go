package app

import (
	"context"
	"sync"

	"github.com/example/mediadb/internal/core/errs"
)

// LatestWins tracks one in-flight query per input field. Starting a query
// on a field cancels the previous query on that field; the older query's
// result is discarded and it returns errs.ErrSuperseded.
type LatestWins struct {
	mu       sync.Mutex
	seq      map[string]uint64
	inFlight map[string]inFlightQuery
}

type inFlightQuery struct {
	token  uint64
	cancel context.CancelCauseFunc
}

// NewLatestWins creates an empty supervisor.
func NewLatestWins() *LatestWins {
	return &LatestWins{
		seq:      make(map[string]uint64),
		inFlight: make(map[string]inFlightQuery),
	}
}

func (l *LatestWins) begin(parent context.Context, field string) (context.Context, uint64) {
	ctx, cancel := context.WithCancelCause(parent)

	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.inFlight[field]; ok {
		prev.cancel(errs.ErrSuperseded)
	}
	l.seq[field]++
	token := l.seq[field]
	l.inFlight[field] = inFlightQuery{token: token, cancel: cancel}
	return ctx, token
}

// finish releases the query and reports whether it is still the latest.
func (l *LatestWins) finish(field string, token uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if q, ok := l.inFlight[field]; ok && q.token == token {
		q.cancel(nil)
		delete(l.inFlight, field)
	}
	return l.seq[field] == token
}

// RunLatest runs fn as the latest query on field.
func RunLatest[T any](ctx context.Context, l *LatestWins, field string, fn func(ctx context.Context) (T, error)) (T, error) {
	runCtx, token := l.begin(ctx, field)
	result, err := fn(runCtx)
	if !l.finish(field, token) {
		var zero T
		return zero, errs.ErrSuperseded
	}
	return result, err
}
