package obs

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestCompactSQL(t *testing.T) {
	require.Equal(t, "SELECT id FROM budgets WHERE id = $1", compactSQL("SELECT id\n\t FROM budgets\n WHERE id = $1"))
	long := compactSQL("SELECT " + string(bytes.Repeat([]byte("x, "), 200)))
	require.Len(t, long, maxStatementLen+3)
}

func TestPGXTracerLogsSlowQueries(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := logger.WithContext(context.Background())

	tracer := PGXTracer{SlowQuery: time.Nanosecond}
	ctx = tracer.TraceQueryStart(ctx, nil, pgx.TraceQueryStartData{SQL: "UPDATE budgets SET status = $1"})
	time.Sleep(time.Millisecond)
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("UPDATE 1")})
	require.Contains(t, buf.String(), `"message":"slow query"`)

	buf.Reset()
	quiet := PGXTracer{}
	ctx = quiet.TraceQueryStart(logger.WithContext(context.Background()), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	quiet.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: errors.New("boom")})
	require.Empty(t, buf.String())
}
