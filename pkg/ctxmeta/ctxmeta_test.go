package ctxmeta

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetachKeepsMetadataButDropsCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	parent = WithTraceID(parent, "trace-1")
	parent = WithUserID(parent, "u1")
	parent = WithConnID(parent, "42")
	cancel()

	ctx := Detach(parent)

	assert.NoError(t, ctx.Err())
	assert.Equal(t, "trace-1", TraceID(ctx))
	assert.Equal(t, "u1", UserID(ctx))
	assert.Equal(t, "42", ConnID(ctx))
	assert.Empty(t, ClientIP(ctx))
}

func TestNilContext(t *testing.T) {
	//nolint:staticcheck
	assert.Empty(t, TraceID(nil))
	assert.NotNil(t, Detach(nil))
}
