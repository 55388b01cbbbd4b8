package obs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitTracerExporters(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), TracingConfig{ServiceName: "quotes-api", Exporter: "none"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, err = InitTracer(context.Background(), TracingConfig{ServiceName: "quotes-api", Exporter: "zipkin"})
	require.EqualError(t, err, "unsupported tracing exporter: zipkin")
}
