package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/smallbiznis/leasehold/internal/actorcontext"
)

func TestEnsureCorrelationIDKeepsExisting(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "cid-1")

	ctx, cid := EnsureCorrelationID(ctx)
	assert.Equal(t, "cid-1", cid)
	assert.Equal(t, "cid-1", CorrelationIDFromContext(ctx))
}

func TestEnsureCorrelationIDGenerates(t *testing.T) {
	ctx, cid := EnsureCorrelationID(context.Background())
	assert.Len(t, cid, 26)
	assert.Equal(t, cid, CorrelationIDFromContext(ctx))
}

func TestRequestIDAndActor(t *testing.T) {
	ctx := WithRequestID(context.Background(), "  ")
	assert.Empty(t, RequestIDFromContext(ctx))

	ctx = WithRequestID(ctx, "req-9")
	ctx = actorcontext.WithUserID(ctx, 77)
	assert.Equal(t, "req-9", RequestIDFromContext(ctx))
	assert.Equal(t, "77", ActorFromContext(ctx))
}
