package obs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxStatementLen = 300

type queryKey struct{}

type queryState struct {
	span      trace.Span
	statement string
	start     time.Time
}

// PGXTracer is a pgx.QueryTracer that opens a client span per statement. Statements
// slower than SlowQuery are logged through the context logger; zero disables that.
type PGXTracer struct {
	SlowQuery time.Duration
}

func (t PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	statement := compactSQL(data.SQL)
	op, _, _ := strings.Cut(statement, " ")
	op = strings.ToUpper(op)
	name := "pgx.query"
	if op != "" {
		name = "pgx." + strings.ToLower(op)
	}
	ctx, span := otel.Tracer("db.pgx").Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", op),
		attribute.String("db.statement", statement),
		attribute.Int("db.args", len(data.Args)),
	)
	return context.WithValue(ctx, queryKey{}, &queryState{span: span, statement: statement, start: time.Now()})
}

func (t PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	state, ok := ctx.Value(queryKey{}).(*queryState)
	if !ok {
		return
	}
	defer state.span.End()

	if elapsed := time.Since(state.start); t.SlowQuery > 0 && elapsed >= t.SlowQuery {
		zerolog.Ctx(ctx).Warn().
			Str("statement", state.statement).
			Int64("duration_ms", elapsed.Milliseconds()).
			Msg("slow query")
	}
	if data.Err != nil && !errors.Is(data.Err, pgx.ErrNoRows) {
		state.span.RecordError(data.Err)
		state.span.SetStatus(codes.Error, data.Err.Error())
		return
	}
	state.span.SetAttributes(attribute.Int64("db.rows_affected", data.CommandTag.RowsAffected()))
}

func compactSQL(sql string) string {
	compact := strings.Join(strings.Fields(sql), " ")
	if len(compact) > maxStatementLen {
		return compact[:maxStatementLen] + "..."
	}
	return compact
}
