package lending

import (
	"context"
	"testing"
	"time"

	invrepo "github.com/lendinghub/lending-service/internal/inventory/repository"
	loanrepo "github.com/lendinghub/lending-service/internal/loans/repository"
	"github.com/lendinghub/lending-service/internal/models"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func spanAttr(s sdktrace.ReadOnlySpan, key string) string {
	for _, kv := range s.Attributes() {
		if string(kv.Key) == key {
			return kv.Value.Emit()
		}
	}
	return ""
}

func TestEngineEmitsSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	items := invrepo.NewMemoryRepo()
	loans := loanrepo.NewMemoryRepo()
	ctx := context.Background()
	require.NoError(t, items.Save(ctx, &models.Item{ID: "dune", Title: "Dune", Available: 1}))
	e := NewEngine(items, loans, Policy{LoanDuration: time.Hour},
		WithClock(func() time.Time { return start }),
		WithTracerProvider(tp),
	)

	loan, err := e.BorrowItem(ctx, "alice", "dune")
	require.NoError(t, err)
	_, err = e.BorrowItem(ctx, "bob", "dune")
	require.ErrorIs(t, err, ErrUnavailable)
	_, err = e.ReturnItem(ctx, "alice", "dune")
	require.NoError(t, err)

	ended := rec.Ended()
	require.Len(t, ended, 3)

	require.Equal(t, "lending.borrow", ended[0].Name())
	require.Equal(t, "alice", spanAttr(ended[0], "holder.id"))
	require.Equal(t, loan.ID, spanAttr(ended[0], "loan.id"))

	require.Equal(t, "lending.borrow", ended[1].Name())
	require.Equal(t, "unavailable", spanAttr(ended[1], "rejection.reason"))

	require.Equal(t, "lending.return", ended[2].Name())
}
