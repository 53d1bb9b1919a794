package db

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

type traceKey struct{}

type queryStart struct {
	at  time.Time
	sql string
}

// QueryTracer logs statements through slog. Successful statements go to
// debug, failures to error.
type QueryTracer struct {
	log *slog.Logger
}

var _ pgx.QueryTracer = (*QueryTracer)(nil)

func NewQueryTracer(l *slog.Logger) *QueryTracer {
	if l == nil {
		l = slog.Default()
	}
	return &QueryTracer{log: l.With("component", "pgx")}
}

func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	t.log.DebugContext(ctx, "query start", "sql", data.SQL, "args", len(data.Args))
	return context.WithValue(ctx, traceKey{}, queryStart{at: time.Now(), sql: data.SQL})
}

func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	var took time.Duration
	var sql string
	if qs, ok := ctx.Value(traceKey{}).(queryStart); ok {
		took = time.Since(qs.at)
		sql = qs.sql
	}
	if data.Err != nil {
		t.log.ErrorContext(ctx, "query failed", "sql", sql, "err", data.Err, "duration_ms", took.Milliseconds())
		return
	}
	t.log.DebugContext(ctx, "query done",
		"command", data.CommandTag.String(),
		"rows_affected", data.CommandTag.RowsAffected(),
		"duration_ms", took.Milliseconds(),
	)
}
