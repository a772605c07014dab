package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
)

// QueryObserver receives the outcome of every query.
type QueryObserver interface {
	ObserveQuery(operation string, elapsed time.Duration, err error)
}

// QueryTracer implements pgx.QueryTracer and reports per-statement timings.
type QueryTracer struct {
	observer QueryObserver
	clock    clockwork.Clock
}

var _ pgx.QueryTracer = (*QueryTracer)(nil)

func NewQueryTracer(observer QueryObserver, clock clockwork.Clock) *QueryTracer {
	return &QueryTracer{observer: observer, clock: clock}
}

type queryContextKey struct{}

type queryContext struct {
	start     time.Time
	operation string
}

func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryContextKey{}, queryContext{
		start:     t.clock.Now(),
		operation: operationName(data.SQL),
	})
}

func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qctx, ok := ctx.Value(queryContextKey{}).(queryContext)
	if !ok {
		return
	}
	t.observer.ObserveQuery(qctx.operation, t.clock.Since(qctx.start), data.Err)
}

// operationName keeps metric label cardinality low: the leading SQL keyword only.
func operationName(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	op := strings.ToLower(fields[0])
	if op == "with" {
		return "cte"
	}
	if len(op) > 20 {
		op = op[:20]
	}
	return op
}
